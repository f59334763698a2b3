package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/tuparking/internal/repository"
)

const sweepBatchSize = 100

// StartReservationSweeper запускает фоновое завершение бронирований, оплаченное время
// которых истекло. При interval <= 0 ничего не запускается.
func (s *Service) StartReservationSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepOverdueReservations(ctx)
			}
		}
	}()
}

// sweepOverdueReservations завершает просроченные бронирования, каждое в своей единице работы.
// Возвращает число завершённых бронирований.
func (s *Service) sweepOverdueReservations(ctx context.Context) int {
	overdue, err := s.repo.ListOverdueReservations(ctx, s.now(), sweepBatchSize)
	if err != nil {
		s.logger.Warn("list overdue reservations", zap.Error(err))
		return 0
	}

	completed := 0
	for _, r := range overdue {
		if ctx.Err() != nil {
			break
		}
		err := s.completeReservation(ctx, r.UserID, r.ID)
		switch {
		case err == nil:
			completed++
		case errors.Is(err, repository.ErrNotFound):
			// уже завершено пользователем
		default:
			s.logger.Warn("complete overdue reservation",
				zap.Int64("reservation_id", r.ID),
				zap.Error(err),
			)
		}
	}

	if completed > 0 {
		s.logger.Info("overdue reservations completed", zap.Int("count", completed))
	}
	return completed
}
