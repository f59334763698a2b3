// Package model содержит доменные сущности сервиса бронирования парковок.
package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

// User представляет зарегистрированного пользователя приложения.
type User struct {
	ID           int64
	DocumentID   string
	Email        string
	Name         string
	Phone        null.String
	Address      null.String
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Account описывает предоплаченный счёт пользователя. У каждого пользователя ровно один счёт.
type Account struct {
	ID        int64
	UserID    int64
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Vehicle описывает транспортное средство пользователя.
type Vehicle struct {
	ID        int64
	UserID    int64
	Plate     string
	Make      null.String
	Color     null.String
	CreatedAt time.Time
}

// ParkingLot описывает парковку и счётчик свободных мест.
type ParkingLot struct {
	ID              int64
	Name            string
	Address         string
	Latitude        float64
	Longitude       float64
	Phone           null.String
	OpeningTime     null.String
	ClosingTime     null.String
	PricePerHour    decimal.Decimal
	TotalSpaces     int
	AvailableSpaces int
	Description     null.String
	ImageURL        null.String
	Active          bool
}

// ReservationStatus описывает состояние бронирования.
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCompleted ReservationStatus = "completed"
)

// Valid сообщает, является ли статус одним из допустимых значений.
func (s ReservationStatus) Valid() bool {
	return s == ReservationStatusActive || s == ReservationStatusCompleted
}

// Reservation описывает бронирование места на парковке.
type Reservation struct {
	ID            int64
	UserID        int64
	VehicleID     int64
	LotID         int64
	StartTime     time.Time
	DurationHours int
	TotalCost     decimal.Decimal
	Status        ReservationStatus
	EndTime       null.Time
	CreatedAt     time.Time

	// Заполняются только при чтении списка бронирований.
	LotName      string
	VehiclePlate string
}

// ExpiresAt возвращает момент окончания оплаченного времени.
func (r Reservation) ExpiresAt() time.Time {
	return r.StartTime.Add(time.Duration(r.DurationHours) * time.Hour)
}

// ParkingSession связывает списание в журнале с конкретным бронированием.
type ParkingSession struct {
	ID              int64
	ReservationID   int64
	VehicleID       int64
	Cost            decimal.Decimal
	DurationMinutes int
	CreatedAt       time.Time
}

// RechargeStatusCompleted обозначает успешно зачисленное пополнение.
const RechargeStatusCompleted = "completed"

// Recharge описывает пополнение счёта.
type Recharge struct {
	ID            int64
	AccountID     int64
	Amount        decimal.Decimal
	PaymentMethod PaymentMethod
	Reference     string
	Status        string
	CreatedAt     time.Time
}

// LedgerKind описывает тип записи журнала операций.
type LedgerKind string

const (
	LedgerKindRecharge LedgerKind = "recharge"
	LedgerKindSpend    LedgerKind = "spend"
)

// Valid сообщает, является ли тип записи одним из допустимых значений.
func (k LedgerKind) Valid() bool {
	return k == LedgerKindRecharge || k == LedgerKindSpend
}

// LedgerEntry описывает неизменяемую запись журнала операций по счёту.
type LedgerEntry struct {
	ID               int64
	AccountID        int64
	Kind             LedgerKind
	Amount           decimal.Decimal
	BalanceBefore    decimal.Decimal
	BalanceAfter     decimal.Decimal
	RechargeID       null.Int
	ParkingSessionID null.Int
	CreatedAt        time.Time

	// Заполняются только для пополнений при чтении журнала.
	PaymentMethod PaymentMethod
	RechargeState string
}

// Consistent проверяет, что остаток после операции соответствует типу и сумме записи.
func (e LedgerEntry) Consistent() bool {
	switch e.Kind {
	case LedgerKindRecharge:
		return e.BalanceAfter.Equal(e.BalanceBefore.Add(e.Amount))
	case LedgerKindSpend:
		return e.BalanceAfter.Equal(e.BalanceBefore.Sub(e.Amount))
	default:
		return false
	}
}
