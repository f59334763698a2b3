package service

import (
	"context"
	"strings"

	"gopkg.in/guregu/null.v4"

	"github.com/mmeshcher/tuparking/internal/model"
	"github.com/mmeshcher/tuparking/internal/validation"
)

var plateCleaner = strings.NewReplacer(" ", "", "-", "")

// VehicleInput содержит данные нового автомобиля.
type VehicleInput struct {
	Plate string
	Make  string
	Color string
}

// ListVehicles возвращает автомобили пользователя.
func (s *Service) ListVehicles(ctx context.Context, userID int64) ([]model.Vehicle, error) {
	return s.repo.ListVehicles(ctx, userID)
}

// AddVehicle регистрирует автомобиль пользователя. Номер хранится в верхнем регистре без
// пробелов и дефисов и уникален в пределах владельца.
func (s *Service) AddVehicle(ctx context.Context, userID int64, in VehicleInput) (model.Vehicle, error) {
	if !validation.IsValidPlate(in.Plate) {
		return model.Vehicle{}, invalid("plate", "must contain 3 to 10 letters or digits")
	}
	plate := strings.ToUpper(plateCleaner.Replace(in.Plate))

	v := model.Vehicle{
		UserID: userID,
		Plate:  plate,
		Make:   null.NewString(strings.TrimSpace(in.Make), strings.TrimSpace(in.Make) != ""),
		Color:  null.NewString(strings.TrimSpace(in.Color), strings.TrimSpace(in.Color) != ""),
	}
	if err := s.repo.CreateVehicle(ctx, &v); err != nil {
		return model.Vehicle{}, err
	}
	return v, nil
}

// DeleteVehicle удаляет автомобиль пользователя.
func (s *Service) DeleteVehicle(ctx context.Context, userID, vehicleID int64) error {
	if vehicleID <= 0 {
		return invalid("vehicle_id", "must be positive")
	}
	return s.repo.DeleteVehicle(ctx, userID, vehicleID)
}
