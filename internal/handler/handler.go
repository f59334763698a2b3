// Package handler содержит HTTP-обработчики API сервиса бронирования парковок.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/tuparking/internal/geo"
	"github.com/mmeshcher/tuparking/internal/middleware"
	"github.com/mmeshcher/tuparking/internal/model"
	"github.com/mmeshcher/tuparking/internal/repository"
	"github.com/mmeshcher/tuparking/internal/service"
	"github.com/mmeshcher/tuparking/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	Register(ctx context.Context, in service.RegisterInput) (*model.User, model.Account, string, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, string, error)
	GetProfile(ctx context.Context, userID int64) (*model.User, error)
	UpdateProfile(ctx context.Context, userID int64, upd repository.ProfileUpdate) (*model.User, error)

	GetAccount(ctx context.Context, userID int64) (model.Account, error)
	Recharge(ctx context.Context, userID int64, amount decimal.Decimal, paymentMethod string) (model.LedgerEntry, decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID int64, kindFilter string, limit int) ([]model.LedgerEntry, error)

	ListVehicles(ctx context.Context, userID int64) ([]model.Vehicle, error)
	AddVehicle(ctx context.Context, userID int64, in service.VehicleInput) (model.Vehicle, error)
	DeleteVehicle(ctx context.Context, userID, vehicleID int64) error

	ListLots(ctx context.Context, near *geo.Point) ([]service.LotListing, error)
	GetLot(ctx context.Context, lotID int64) (model.ParkingLot, error)

	CreateReservation(ctx context.Context, userID, vehicleID, lotID int64, durationHours int) (model.Reservation, decimal.Decimal, error)
	CompleteReservation(ctx context.Context, userID, reservationID int64) error
	ListReservations(ctx context.Context, userID int64, status string) ([]model.Reservation, error)
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	validate       *validation.Validator
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		validate:       validation.New(),
	}
}

type errorResponse struct {
	Error    string                  `json:"error"`
	Code     string                  `json:"code,omitempty"`
	Field    string                  `json:"field,omitempty"`
	Reason   string                  `json:"reason,omitempty"`
	Details  []validation.FieldError `json:"details,omitempty"`
	Balance  string                  `json:"balance,omitempty"`
	Required string                  `json:"required,omitempty"`
}

var conflictMessages = []struct {
	err error
	msg string
}{
	{repository.ErrUserExists, "user with this email or document already exists"},
	{repository.ErrVehicleExists, "vehicle plate already registered"},
	{repository.ErrVehicleInUse, "vehicle has reservations"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError отображает ошибку бизнес-логики в HTTP-ответ. Неизвестные ошибки логируются,
// клиент получает обезличенный ответ 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		verr   *service.ValidationError
		ferrs  validation.Errors
		funds  *service.InsufficientFundsError
		status int
		resp   errorResponse
	)

	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp = errorResponse{Error: "validation failed", Code: "validation", Field: verr.Field, Reason: verr.Reason}
	case errors.As(err, &ferrs) && len(ferrs) > 0:
		status = http.StatusBadRequest
		resp = errorResponse{Error: "validation failed", Code: "validation", Field: ferrs[0].Field, Reason: ferrs[0].Reason, Details: ferrs}
	case errors.As(err, &funds):
		status = http.StatusPaymentRequired
		resp = errorResponse{
			Error:    "insufficient funds",
			Code:     "insufficient_funds",
			Balance:  funds.Balance.StringFixed(2),
			Required: funds.Required.StringFixed(2),
		}
	case errors.Is(err, errBodyTooLarge):
		status = http.StatusRequestEntityTooLarge
		resp = errorResponse{Error: "request body must not exceed 1 MiB", Code: "body_too_large"}
	case errors.Is(err, repository.ErrNoCapacity):
		status = http.StatusConflict
		resp = errorResponse{Error: "no available spaces", Code: "no_capacity"}
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
		resp = errorResponse{Error: notFoundMessage(err), Code: "not_found"}
	case errors.Is(err, repository.ErrConflict):
		status = http.StatusConflict
		resp = errorResponse{Error: "conflict", Code: "conflict"}
		for _, c := range conflictMessages {
			if errors.Is(err, c.err) {
				resp.Error = c.msg
				break
			}
		}
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
		resp = errorResponse{Error: "invalid email or password", Code: "unauthorized"}
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		resp = errorResponse{Error: "request timed out"}
	default:
		userID, _ := middleware.GetUserIDFromContext(r.Context())
		h.logger.Error(op+" error",
			zap.Error(err),
			zap.Int64("userID", userID),
			zap.String("path", r.URL.Path),
		)
		status = http.StatusInternalServerError
		resp = errorResponse{Error: http.StatusText(http.StatusInternalServerError)}
	}

	writeJSON(w, status, resp)
}

func notFoundMessage(err error) string {
	for _, e := range []error{
		repository.ErrLotNotFound,
		repository.ErrVehicleNotFound,
		repository.ErrReservationNotFound,
		repository.ErrAccountNotFound,
		repository.ErrUserNotFound,
	} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "not found"
}

// maxBodyBytes ограничивает тело запроса после распаковки gzip.
const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// decode читает JSON тело запроса в dst и проверяет его теги validate.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return &service.ValidationError{Field: "body", Reason: "malformed JSON: " + err.Error()}
	}
	return h.validate.Struct(dst)
}

func pathID(r *http.Request, field string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Field: field, Reason: "must be a positive integer"}
	}
	return id, nil
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required", Code: "unauthorized"})
		return 0, false
	}
	return userID, true
}

// Health сообщает о доступности сервиса и хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
