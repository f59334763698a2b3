package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/tuparking/internal/model"
)

// LockAccount читает счёт пользователя с блокировкой строки до конца транзакции.
func (u *pgUnitOfWork) LockAccount(ctx context.Context, userID int64) (model.Account, error) {
	var (
		acc     model.Account
		balance string
	)
	err := u.tx.QueryRow(ctx,
		`SELECT id, user_id, balance::text FROM accounts WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&acc.ID, &acc.UserID, &balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, ErrAccountNotFound
		}
		return model.Account{}, fmt.Errorf("lock account: %w", err)
	}
	if acc.Balance, err = parseMoney(balance); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

// ApplyDelta изменяет баланс относительно текущего значения. Обновление выполняется, только если
// баланс не изменился с момента блокировки.
func (u *pgUnitOfWork) ApplyDelta(ctx context.Context, accountID int64, delta, expectedPrior decimal.Decimal) (decimal.Decimal, error) {
	want, err := nextBalance(accountID, expectedPrior, delta)
	if err != nil {
		return decimal.Zero, err
	}

	var balance string
	err = u.tx.QueryRow(ctx,
		`UPDATE accounts SET balance = balance + $2, updated_at = NOW()
		 WHERE id = $1 AND balance = $3
		 RETURNING balance::text`,
		accountID, delta.String(), expectedPrior.String(),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: account %d balance changed under lock", ErrInvariantViolation, accountID)
		}
		if code := pgErrorCode(err); code == pgerrcode.CheckViolation || code == pgerrcode.NumericValueOutOfRange {
			return decimal.Zero, fmt.Errorf("%w: account %d: %v", ErrInvariantViolation, accountID, err)
		}
		return decimal.Zero, fmt.Errorf("apply balance delta: %w", err)
	}

	got, err := parseMoney(balance)
	if err != nil {
		return decimal.Zero, err
	}
	if !got.Equal(want) {
		return decimal.Zero, fmt.Errorf("%w: account %d balance %s, expected %s", ErrInvariantViolation, accountID, got, want)
	}
	return got, nil
}

// AppendLedgerEntry добавляет запись в журнал операций.
func (u *pgUnitOfWork) AppendLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	if err := checkLedgerEntry(e); err != nil {
		return err
	}

	err := u.tx.QueryRow(ctx,
		`INSERT INTO ledger_entries (account_id, kind, amount, balance_before, balance_after, recharge_id, parking_session_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		e.AccountID, string(e.Kind), e.Amount.String(), e.BalanceBefore.String(), e.BalanceAfter.String(),
		e.RechargeID, e.ParkingSessionID,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgerrcode.CheckViolation {
			return fmt.Errorf("%w: ledger entry: %v", ErrInvariantViolation, err)
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// InsertRecharge сохраняет запись о пополнении.
func (u *pgUnitOfWork) InsertRecharge(ctx context.Context, rc *model.Recharge) error {
	err := u.tx.QueryRow(ctx,
		`INSERT INTO recharges (account_id, amount, payment_method, reference, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		rc.AccountID, rc.Amount.String(), string(rc.PaymentMethod), rc.Reference, rc.Status,
	).Scan(&rc.ID, &rc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert recharge: %w", err)
	}
	return nil
}

// ListLedgerEntries возвращает записи журнала по счёту, начиная с самых новых.
// Пустой kind означает отсутствие фильтра.
func (r *PostgresRepository) ListLedgerEntries(ctx context.Context, accountID int64, kind model.LedgerKind, limit int) ([]model.LedgerEntry, error) {
	var res []model.LedgerEntry

	err := r.withRetry(ctx, func() error {
		res = res[:0]

		rows, err := r.pool.Query(ctx,
			`SELECT e.id, e.account_id, e.kind::text, e.amount::text, e.balance_before::text, e.balance_after::text,
			        e.recharge_id, e.parking_session_id, e.created_at,
			        COALESCE(rc.payment_method::text, ''), COALESCE(rc.status, '')
			 FROM ledger_entries e
			 LEFT JOIN recharges rc ON rc.id = e.recharge_id
			 WHERE e.account_id = $1 AND ($2::text = '' OR e.kind::text = $2::text)
			 ORDER BY e.id DESC
			 LIMIT $3`,
			accountID, string(kind), clampLimit(limit),
		)
		if err != nil {
			return fmt.Errorf("select ledger entries: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				e                            model.LedgerEntry
				kindStr, method              string
				amount, before, after, state string
			)
			if err := rows.Scan(&e.ID, &e.AccountID, &kindStr, &amount, &before, &after,
				&e.RechargeID, &e.ParkingSessionID, &e.CreatedAt, &method, &state); err != nil {
				return fmt.Errorf("scan ledger entry: %w", err)
			}

			e.Kind = model.LedgerKind(kindStr)
			e.PaymentMethod = model.PaymentMethod(method)
			e.RechargeState = state
			if e.Amount, err = parseMoney(amount); err != nil {
				return err
			}
			if e.BalanceBefore, err = parseMoney(before); err != nil {
				return err
			}
			if e.BalanceAfter, err = parseMoney(after); err != nil {
				return err
			}
			res = append(res, e)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}
