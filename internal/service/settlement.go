package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"github.com/mmeshcher/tuparking/internal/model"
	"github.com/mmeshcher/tuparking/internal/repository"
)

// withinUnitOfWork выполняет fn как одну единицу работы. Нарушения инвариантов хранилища
// логируются полностью, вызывающему возвращается та же ошибка.
func (s *Service) withinUnitOfWork(ctx context.Context, op string, fn func(repository.UnitOfWork) error) error {
	err := s.repo.WithinUnitOfWork(ctx, fn)
	if errors.Is(err, repository.ErrInvariantViolation) {
		s.logger.Error("unit of work aborted on invariant violation",
			zap.String("operation", op),
			zap.Error(err),
		)
	}
	return err
}

// debit списывает amount с заблокированного счёта и пишет запись spend, связанную с сессией.
// Достаточность средств проверяется вызывающим до записи бронирования.
func debit(ctx context.Context, uow repository.UnitOfWork, acc model.Account, amount decimal.Decimal, sessionID int64) (model.LedgerEntry, error) {
	after, err := uow.ApplyDelta(ctx, acc.ID, amount.Neg(), acc.Balance)
	if err != nil {
		return model.LedgerEntry{}, err
	}

	entry := model.LedgerEntry{
		AccountID:        acc.ID,
		Kind:             model.LedgerKindSpend,
		Amount:           amount,
		BalanceBefore:    acc.Balance,
		BalanceAfter:     after,
		ParkingSessionID: null.IntFrom(sessionID),
	}
	if err := uow.AppendLedgerEntry(ctx, &entry); err != nil {
		return model.LedgerEntry{}, err
	}
	return entry, nil
}

// credit зачисляет amount на заблокированный счёт и пишет запись recharge, связанную с пополнением.
func credit(ctx context.Context, uow repository.UnitOfWork, acc model.Account, amount decimal.Decimal, rechargeID int64) (model.LedgerEntry, error) {
	after, err := uow.ApplyDelta(ctx, acc.ID, amount, acc.Balance)
	if err != nil {
		return model.LedgerEntry{}, err
	}

	entry := model.LedgerEntry{
		AccountID:     acc.ID,
		Kind:          model.LedgerKindRecharge,
		Amount:        amount,
		BalanceBefore: acc.Balance,
		BalanceAfter:  after,
		RechargeID:    null.IntFrom(rechargeID),
	}
	if err := uow.AppendLedgerEntry(ctx, &entry); err != nil {
		return model.LedgerEntry{}, err
	}
	return entry, nil
}
