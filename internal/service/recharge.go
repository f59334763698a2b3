package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/tuparking/internal/model"
	"github.com/mmeshcher/tuparking/internal/repository"
)

// DefaultLedgerLimit используется, если лимит выборки журнала не указан.
const DefaultLedgerLimit = 50

var ledgerKindAliases = map[string]model.LedgerKind{
	"recharge": model.LedgerKindRecharge,
	"recarga":  model.LedgerKindRecharge,
	"spend":    model.LedgerKindSpend,
	"parqueo":  model.LedgerKindSpend,
}

// ParseLedgerKind разбирает фильтр типа записи журнала. Пустая строка означает отсутствие фильтра.
func ParseLedgerKind(input string) (model.LedgerKind, error) {
	v := strings.ToLower(strings.TrimSpace(input))
	if v == "" {
		return "", nil
	}
	kind, ok := ledgerKindAliases[v]
	if !ok {
		return "", invalid("kind", "must be recharge or spend")
	}
	return kind, nil
}

// GetAccount возвращает счёт пользователя.
func (s *Service) GetAccount(ctx context.Context, userID int64) (model.Account, error) {
	return s.repo.GetAccountByUser(ctx, userID)
}

// Recharge пополняет баланс пользователя. Нераспознанный способ оплаты заменяется способом
// по умолчанию.
func (s *Service) Recharge(ctx context.Context, userID int64, amount decimal.Decimal, paymentMethod string) (model.LedgerEntry, decimal.Decimal, error) {
	amount = roundMoney(amount)
	if !amount.IsPositive() {
		return model.LedgerEntry{}, decimal.Zero, invalid("amount", "must be greater than zero")
	}
	if amount.GreaterThan(repository.MaxBalance) {
		return model.LedgerEntry{}, decimal.Zero, invalid("amount", "must not exceed "+repository.MaxBalance.StringFixed(2))
	}
	method := model.NormalizePaymentMethod(paymentMethod, s.defaultPayment)

	var entry model.LedgerEntry
	err := s.withinUnitOfWork(ctx, "recharge", func(uow repository.UnitOfWork) error {
		acc, err := uow.LockAccount(ctx, userID)
		if err != nil {
			return err
		}
		if acc.Balance.Add(amount).GreaterThan(repository.MaxBalance) {
			return invalid("amount", "balance would exceed "+repository.MaxBalance.StringFixed(2))
		}

		rc := model.Recharge{
			AccountID:     acc.ID,
			Amount:        amount,
			PaymentMethod: method,
			Reference:     uuid.NewString(),
			Status:        model.RechargeStatusCompleted,
		}
		if err := uow.InsertRecharge(ctx, &rc); err != nil {
			return err
		}

		entry, err = credit(ctx, uow, acc, amount, rc.ID)
		if err != nil {
			return err
		}
		entry.PaymentMethod = rc.PaymentMethod
		entry.RechargeState = rc.Status
		return nil
	})
	if err != nil {
		return model.LedgerEntry{}, decimal.Zero, err
	}

	s.logger.Info("account recharged",
		zap.Int64("user_id", userID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("payment_method", string(method)),
	)
	return entry, entry.BalanceAfter, nil
}

// ListTransactions возвращает журнал операций пользователя, начиная с самых новых.
// limit = 0 означает DefaultLedgerLimit, остальные значения ограничиваются диапазоном 1..1000.
func (s *Service) ListTransactions(ctx context.Context, userID int64, kindFilter string, limit int) ([]model.LedgerEntry, error) {
	kind, err := ParseLedgerKind(kindFilter)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultLedgerLimit
	}
	limit = max(1, min(limit, repository.MaxLedgerLimit))

	acc, err := s.repo.GetAccountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListLedgerEntries(ctx, acc.ID, kind, limit)
}
