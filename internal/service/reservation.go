package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/tuparking/internal/model"
	"github.com/mmeshcher/tuparking/internal/repository"
)

// CreateReservation бронирует место на парковке и списывает его стоимость с баланса.
// Всё выполняется одной единицей работы: при любой ошибке не сохраняется ничего.
func (s *Service) CreateReservation(ctx context.Context, userID, vehicleID, lotID int64, durationHours int) (model.Reservation, decimal.Decimal, error) {
	switch {
	case vehicleID <= 0:
		return model.Reservation{}, decimal.Zero, invalid("vehicle_id", "must be positive")
	case lotID <= 0:
		return model.Reservation{}, decimal.Zero, invalid("lot_id", "must be positive")
	case durationHours <= 0:
		return model.Reservation{}, decimal.Zero, invalid("duration_hours", "must be a positive number of hours")
	}

	var (
		rsv          model.Reservation
		balanceAfter decimal.Decimal
	)
	err := s.withinUnitOfWork(ctx, "create reservation", func(uow repository.UnitOfWork) error {
		lot, err := uow.GetActiveLot(ctx, lotID)
		if err != nil {
			return err
		}
		vehicle, err := uow.GetVehicle(ctx, userID, vehicleID)
		if err != nil {
			return err
		}

		cost := roundMoney(lot.PricePerHour.Mul(decimal.NewFromInt(int64(durationHours))))

		acc, err := uow.LockAccount(ctx, userID)
		if err != nil {
			return err
		}
		if acc.Balance.LessThan(cost) {
			return &InsufficientFundsError{Balance: acc.Balance, Required: cost}
		}

		rsv = model.Reservation{
			UserID:        userID,
			VehicleID:     vehicle.ID,
			LotID:         lot.ID,
			StartTime:     s.now(),
			DurationHours: durationHours,
			TotalCost:     cost,
			Status:        model.ReservationStatusActive,
			LotName:       lot.Name,
			VehiclePlate:  vehicle.Plate,
		}
		if err := uow.InsertReservation(ctx, &rsv); err != nil {
			return err
		}

		session := model.ParkingSession{
			ReservationID:   rsv.ID,
			VehicleID:       vehicle.ID,
			Cost:            cost,
			DurationMinutes: durationHours * 60,
		}
		if err := uow.InsertParkingSession(ctx, &session); err != nil {
			return err
		}

		entry, err := debit(ctx, uow, acc, cost, session.ID)
		if err != nil {
			return err
		}
		balanceAfter = entry.BalanceAfter

		_, err = uow.ReserveOneSpace(ctx, lot.ID)
		return err
	})
	if err != nil {
		return model.Reservation{}, decimal.Zero, err
	}

	s.logger.Info("reservation created",
		zap.Int64("user_id", userID),
		zap.Int64("reservation_id", rsv.ID),
		zap.Int64("lot_id", rsv.LotID),
		zap.String("total_cost", rsv.TotalCost.StringFixed(2)),
	)
	return rsv, balanceAfter, nil
}

// CompleteReservation завершает активное бронирование пользователя и освобождает место.
// Отсутствующее, чужое или уже завершённое бронирование даёт ErrNotFound.
func (s *Service) CompleteReservation(ctx context.Context, userID, reservationID int64) error {
	if reservationID <= 0 {
		return invalid("reservation_id", "must be positive")
	}
	return s.completeReservation(ctx, userID, reservationID)
}

func (s *Service) completeReservation(ctx context.Context, userID, reservationID int64) error {
	var (
		lotID    int64
		released bool
	)
	err := s.withinUnitOfWork(ctx, "complete reservation", func(uow repository.UnitOfWork) error {
		rsv, err := uow.LockActiveReservation(ctx, userID, reservationID)
		if err != nil {
			return err
		}
		if err := uow.CompleteReservation(ctx, rsv.ID, s.now()); err != nil {
			return err
		}
		lotID = rsv.LotID
		released, err = uow.ReleaseOneSpace(ctx, rsv.LotID)
		return err
	})
	if err != nil {
		return err
	}

	if !released {
		s.logger.Error("capacity release clamped: lot already has all spaces available",
			zap.Int64("reservation_id", reservationID),
			zap.Int64("lot_id", lotID),
		)
	}
	return nil
}

// ListReservations возвращает бронирования пользователя. Пустой status означает все бронирования.
func (s *Service) ListReservations(ctx context.Context, userID int64, status string) ([]model.Reservation, error) {
	st := model.ReservationStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		return nil, invalid("status", "must be active or completed")
	}
	return s.repo.ListReservations(ctx, userID, st)
}
