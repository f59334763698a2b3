// Package geo содержит расчёт расстояний между точками на поверхности Земли.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusKm задаёт средний радиус Земли в километрах.
const EarthRadiusKm = 6371.0

var (
	ErrLatitudeOutOfRange  = errors.New("latitude must be between -90 and 90")
	ErrLongitudeOutOfRange = errors.New("longitude must be between -180 and 180")
)

// Point описывает географическую точку в градусах.
type Point struct {
	Lat float64
	Lon float64
}

// Validate проверяет, что координаты находятся в допустимых пределах.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return ErrLatitudeOutOfRange
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return ErrLongitudeOutOfRange
	}
	return nil
}

// DistanceKm возвращает расстояние по дуге большого круга между a и b (формула гаверсинусов).
func DistanceKm(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
