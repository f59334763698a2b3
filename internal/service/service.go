// Package service реализует бизнес-логику сервиса бронирования парковок.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/tuparking/internal/model"
	"github.com/mmeshcher/tuparking/internal/repository"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error
	WithinUnitOfWork(ctx context.Context, fn func(repository.UnitOfWork) error) error

	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, userID int64) (*model.User, error)
	UpdateProfile(ctx context.Context, userID int64, upd repository.ProfileUpdate) (*model.User, error)
	GetAccountByUser(ctx context.Context, userID int64) (model.Account, error)

	ListVehicles(ctx context.Context, userID int64) ([]model.Vehicle, error)
	CreateVehicle(ctx context.Context, v *model.Vehicle) error
	DeleteVehicle(ctx context.Context, userID, vehicleID int64) error

	GetLot(ctx context.Context, lotID int64) (model.ParkingLot, error)
	ListActiveLots(ctx context.Context) ([]model.ParkingLot, error)

	ListReservations(ctx context.Context, userID int64, status model.ReservationStatus) ([]model.Reservation, error)
	ListOverdueReservations(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error)

	ListLedgerEntries(ctx context.Context, accountID int64, kind model.LedgerKind, limit int) ([]model.LedgerEntry, error)
}

// TokenIssuer выпускает токен доступа для пользователя.
type TokenIssuer interface {
	IssueToken(userID int64) (string, error)
}

// Service содержит бизнес-логику сервиса бронирования.
type Service struct {
	repo           Repository
	tokens         TokenIssuer
	logger         *zap.Logger
	defaultPayment model.PaymentMethod
	passwordCost   int
	now            func() time.Time
}

// NewService создаёт сервис. defaultPayment используется для нераспознанных способов оплаты.
func NewService(repo Repository, tokens TokenIssuer, logger *zap.Logger, defaultPayment model.PaymentMethod) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !defaultPayment.Valid() {
		defaultPayment = model.PaymentMethodCreditCard
	}
	return &Service{
		repo:           repo,
		tokens:         tokens,
		logger:         logger,
		defaultPayment: defaultPayment,
		passwordCost:   bcrypt.DefaultCost,
		now:            time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
}

func checkPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// roundMoney округляет сумму до двух знаков после запятой.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
