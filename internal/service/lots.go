package service

import (
	"context"
	"sort"

	"gopkg.in/guregu/null.v4"

	"github.com/mmeshcher/tuparking/internal/geo"
	"github.com/mmeshcher/tuparking/internal/model"
)

// LotListing дополняет парковку расстоянием до точки поиска, если она была задана.
type LotListing struct {
	model.ParkingLot
	DistanceKm null.Float
}

// ListLots возвращает активные парковки. Без near список упорядочен по названию,
// с near по возрастанию расстояния.
func (s *Service) ListLots(ctx context.Context, near *geo.Point) ([]LotListing, error) {
	if near != nil {
		if err := near.Validate(); err != nil {
			return nil, invalid("coordinates", err.Error())
		}
	}

	lots, err := s.repo.ListActiveLots(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]LotListing, 0, len(lots))
	for _, lot := range lots {
		l := LotListing{ParkingLot: lot}
		if near != nil {
			l.DistanceKm = null.FloatFrom(geo.DistanceKm(*near, geo.Point{Lat: lot.Latitude, Lon: lot.Longitude}))
		}
		res = append(res, l)
	}

	if near != nil {
		sort.SliceStable(res, func(i, j int) bool {
			return res[i].DistanceKm.Float64 < res[j].DistanceKm.Float64
		})
	}
	return res, nil
}

// GetLot возвращает активную парковку.
func (s *Service) GetLot(ctx context.Context, lotID int64) (model.ParkingLot, error) {
	if lotID <= 0 {
		return model.ParkingLot{}, invalid("lot_id", "must be positive")
	}
	return s.repo.GetLot(ctx, lotID)
}
