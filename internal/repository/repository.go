// Package repository содержит реализации хранилища данных: PostgreSQL и in-memory.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/tuparking/internal/model"
)

var (
	// ErrNotFound возвращается, если запрошенная сущность отсутствует или не принадлежит пользователю.
	ErrNotFound = errors.New("not found")
	// ErrConflict возвращается при нарушении уникальности.
	ErrConflict = errors.New("conflict")
	// ErrNoCapacity возвращается, если на парковке не осталось свободных мест.
	ErrNoCapacity = errors.New("no available spaces")
	// ErrInvariantViolation сигнализирует о нарушении инварианта хранилища (отрицательный баланс,
	// несогласованная запись журнала). Такая ошибка всегда приводит к откату единицы работы.
	ErrInvariantViolation = errors.New("invariant violation")
)

var (
	// ErrUserExists возвращается при попытке создать пользователя с уже занятым документом или email.
	ErrUserExists = fmt.Errorf("user already exists: %w", ErrConflict)
	// ErrVehicleExists возвращается, если у пользователя уже есть автомобиль с таким номером.
	ErrVehicleExists = fmt.Errorf("vehicle plate already registered: %w", ErrConflict)
	// ErrVehicleInUse возвращается при удалении автомобиля, на который оформлены бронирования.
	ErrVehicleInUse = fmt.Errorf("vehicle has reservations: %w", ErrConflict)

	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrLotNotFound         = fmt.Errorf("parking lot %w", ErrNotFound)
	ErrVehicleNotFound     = fmt.Errorf("vehicle %w", ErrNotFound)
	ErrReservationNotFound = fmt.Errorf("reservation %w", ErrNotFound)
)

// UnitOfWork описывает операции, выполняемые внутри одной транзакции.
// Блокировки, взятые через LockAccount и LockActiveReservation, держатся до фиксации или отката.
type UnitOfWork interface {
	CreateUser(ctx context.Context, u *model.User) error
	CreateAccount(ctx context.Context, userID int64) (model.Account, error)

	// LockAccount читает счёт пользователя с эксклюзивной блокировкой.
	LockAccount(ctx context.Context, userID int64) (model.Account, error)
	// ApplyDelta изменяет баланс на delta при условии, что текущий баланс равен expectedPrior.
	ApplyDelta(ctx context.Context, accountID int64, delta, expectedPrior decimal.Decimal) (decimal.Decimal, error)
	// AppendLedgerEntry добавляет запись в журнал. Записи журнала не изменяются и не удаляются.
	AppendLedgerEntry(ctx context.Context, e *model.LedgerEntry) error

	GetActiveLot(ctx context.Context, lotID int64) (model.ParkingLot, error)
	GetVehicle(ctx context.Context, userID, vehicleID int64) (model.Vehicle, error)

	// ReserveOneSpace атомарно уменьшает число свободных мест, если оно больше нуля.
	ReserveOneSpace(ctx context.Context, lotID int64) (int, error)
	// ReleaseOneSpace атомарно увеличивает число свободных мест, не превышая вместимость.
	// Возвращает false, если парковка уже была полностью свободна.
	ReleaseOneSpace(ctx context.Context, lotID int64) (bool, error)

	InsertReservation(ctx context.Context, r *model.Reservation) error
	InsertParkingSession(ctx context.Context, s *model.ParkingSession) error
	LockActiveReservation(ctx context.Context, userID, reservationID int64) (model.Reservation, error)
	CompleteReservation(ctx context.Context, reservationID int64, endTime time.Time) error

	InsertRecharge(ctx context.Context, rc *model.Recharge) error
}

// ProfileUpdate содержит изменяемые поля профиля. Пустые значения не меняют текущие данные.
type ProfileUpdate struct {
	Name    string
	Phone   string
	Address string
}

// MaxLedgerLimit ограничивает размер выборки журнала сверху.
const MaxLedgerLimit = 1000

// MaxBalance равен наибольшей сумме, которую вмещает столбец NUMERIC(14,2).
var MaxBalance = decimal.RequireFromString("999999999999.99")

func checkLedgerEntry(e *model.LedgerEntry) error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown ledger kind %q", ErrInvariantViolation, e.Kind)
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: ledger amount %s is not positive", ErrInvariantViolation, e.Amount)
	}
	if e.BalanceAfter.IsNegative() {
		return fmt.Errorf("%w: ledger balance after %s is negative", ErrInvariantViolation, e.BalanceAfter)
	}
	if !e.Consistent() {
		return fmt.Errorf("%w: ledger %s entry %s -> %s does not match amount %s",
			ErrInvariantViolation, e.Kind, e.BalanceBefore, e.BalanceAfter, e.Amount)
	}
	switch {
	case e.Kind == model.LedgerKindRecharge && !e.RechargeID.Valid:
		return fmt.Errorf("%w: recharge entry without recharge link", ErrInvariantViolation)
	case e.Kind == model.LedgerKindSpend && !e.ParkingSessionID.Valid:
		return fmt.Errorf("%w: spend entry without parking session link", ErrInvariantViolation)
	}
	return nil
}

func nextBalance(accountID int64, prior, delta decimal.Decimal) (decimal.Decimal, error) {
	next := prior.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: account %d balance %s + %s would be negative",
			ErrInvariantViolation, accountID, prior, delta)
	}
	if next.GreaterThan(MaxBalance) {
		return decimal.Zero, fmt.Errorf("%w: account %d balance %s + %s exceeds %s",
			ErrInvariantViolation, accountID, prior, delta, MaxBalance)
	}
	return next, nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxLedgerLimit {
		return MaxLedgerLimit
	}
	return limit
}
