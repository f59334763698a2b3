package handler

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/tuparking/internal/geo"
	"github.com/mmeshcher/tuparking/internal/middleware"
	"github.com/mmeshcher/tuparking/internal/model"
	"github.com/mmeshcher/tuparking/internal/repository"
	"github.com/mmeshcher/tuparking/internal/service"
)

type stubService struct {
	pingErr error

	registerErr error
	registerIn  service.RegisterInput

	authErr error

	account     model.Account
	rechargeErr error

	transactions  []model.LedgerEntry
	gotKind       string
	gotLimit      int
	listTxnsErr   error
	vehicles      []model.Vehicle
	deleteErr     error
	lots          []service.LotListing
	gotNear       *geo.Point
	lotErr        error
	reservation   model.Reservation
	balanceAfter  decimal.Decimal
	reserveErr    error
	completeErr   error
	gotCompleteID int64
	reservations  []model.Reservation
	gotStatus     string
}

func (s *stubService) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubService) Register(ctx context.Context, in service.RegisterInput) (*model.User, model.Account, string, error) {
	s.registerIn = in
	if s.registerErr != nil {
		return nil, model.Account{}, "", s.registerErr
	}
	u := &model.User{ID: 7, DocumentID: in.DocumentID, Email: in.Email, Name: in.Name}
	return u, model.Account{ID: 3, UserID: 7, Balance: decimal.Zero}, "token-7", nil
}

func (s *stubService) Authenticate(ctx context.Context, email, password string) (*model.User, string, error) {
	if s.authErr != nil {
		return nil, "", s.authErr
	}
	return &model.User{ID: 7, Email: email}, "token-7", nil
}

func (s *stubService) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	return &model.User{ID: userID}, nil
}

func (s *stubService) UpdateProfile(ctx context.Context, userID int64, upd repository.ProfileUpdate) (*model.User, error) {
	return &model.User{ID: userID, Name: upd.Name}, nil
}

func (s *stubService) GetAccount(ctx context.Context, userID int64) (model.Account, error) {
	return s.account, nil
}

func (s *stubService) Recharge(ctx context.Context, userID int64, amount decimal.Decimal, paymentMethod string) (model.LedgerEntry, decimal.Decimal, error) {
	if s.rechargeErr != nil {
		return model.LedgerEntry{}, decimal.Zero, s.rechargeErr
	}
	after := s.account.Balance.Add(amount)
	return model.LedgerEntry{
		ID:            1,
		Kind:          model.LedgerKindRecharge,
		Amount:        amount,
		BalanceBefore: s.account.Balance,
		BalanceAfter:  after,
		PaymentMethod: model.PaymentMethod(paymentMethod),
	}, after, nil
}

func (s *stubService) ListTransactions(ctx context.Context, userID int64, kindFilter string, limit int) ([]model.LedgerEntry, error) {
	s.gotKind, s.gotLimit = kindFilter, limit
	return s.transactions, s.listTxnsErr
}

func (s *stubService) ListVehicles(ctx context.Context, userID int64) ([]model.Vehicle, error) {
	return s.vehicles, nil
}

func (s *stubService) AddVehicle(ctx context.Context, userID int64, in service.VehicleInput) (model.Vehicle, error) {
	return model.Vehicle{ID: 1, UserID: userID, Plate: in.Plate}, nil
}

func (s *stubService) DeleteVehicle(ctx context.Context, userID, vehicleID int64) error {
	return s.deleteErr
}

func (s *stubService) ListLots(ctx context.Context, near *geo.Point) ([]service.LotListing, error) {
	s.gotNear = near
	return s.lots, nil
}

func (s *stubService) GetLot(ctx context.Context, lotID int64) (model.ParkingLot, error) {
	if s.lotErr != nil {
		return model.ParkingLot{}, s.lotErr
	}
	return model.ParkingLot{ID: lotID, Name: "Centro", PricePerHour: decimal.NewFromInt(4500)}, nil
}

func (s *stubService) CreateReservation(ctx context.Context, userID, vehicleID, lotID int64, durationHours int) (model.Reservation, decimal.Decimal, error) {
	if s.reserveErr != nil {
		return model.Reservation{}, decimal.Zero, s.reserveErr
	}
	return s.reservation, s.balanceAfter, nil
}

func (s *stubService) CompleteReservation(ctx context.Context, userID, reservationID int64) error {
	s.gotCompleteID = reservationID
	return s.completeErr
}

func (s *stubService) ListReservations(ctx context.Context, userID int64, status string) ([]model.Reservation, error) {
	s.gotStatus = status
	return s.reservations, nil
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret", time.Hour, nil, logger)

	return NewHandler(svc, logger, auth)
}

func doRequest(t *testing.T, h *Handler, method, target string, body any, userID int64) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		token, err := h.authMiddleware.IssueToken(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.SetupRouter(RouterConfig{RequestTimeout: time.Second, AllowedOrigins: []string{"*"}}).ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	rec := doRequest(t, h, http.MethodGet, "/health", nil, 0)
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.pingErr = errors.New("connection refused")
	rec = doRequest(t, h, http.MethodGet, "/health", nil, 0)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRegister_Created(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	rec := doRequest(t, h, http.MethodPost, "/api/auth/register", map[string]string{
		"document_id": "1020304050",
		"email":       "ana@example.com",
		"name":        "Ana",
		"password":    "secret1",
	}, 0)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[authResponse](t, rec)
	assert.Equal(t, "token-7", resp.Token)
	assert.Equal(t, int64(7), resp.User.ID)
	require.NotNil(t, resp.Account)
	assert.Equal(t, "0.00", resp.Account.Balance)
	assert.Equal(t, "ana@example.com", svc.registerIn.Email)
}

func TestRegister_ValidationFailed(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		wantField string
	}{
		{
			name:      "document with letters",
			body:      map[string]string{"document_id": "12ab5", "email": "a@b.co", "name": "Ana", "password": "secret1"},
			wantField: "document_id",
		},
		{
			name:      "short password",
			body:      map[string]string{"document_id": "1020304050", "email": "a@b.co", "name": "Ana", "password": "123"},
			wantField: "password",
		},
		{
			name:      "bad email",
			body:      map[string]string{"document_id": "1020304050", "email": "nope", "name": "Ana", "password": "secret1"},
			wantField: "email",
		},
		{
			name:      "unknown field",
			body:      map[string]string{"document_id": "1020304050", "email": "a@b.co", "name": "Ana", "password": "secret1", "role": "admin"},
			wantField: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{})

			rec := doRequest(t, h, http.MethodPost, "/api/auth/register", tt.body, 0)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeBody[errorResponse](t, rec)
			assert.Equal(t, "validation", resp.Code)
			assert.Equal(t, tt.wantField, resp.Field)
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newTestHandler(t, &stubService{authErr: service.ErrInvalidCredentials})

	rec := doRequest(t, h, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "wrong-password",
	}, 0)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/account"},
		{http.MethodGet, "/api/transactions"},
		{http.MethodPost, "/api/transactions/recharge"},
		{http.MethodGet, "/api/vehicles"},
		{http.MethodPost, "/api/reservations"},
		{http.MethodPut, "/api/reservations/1/complete"},
		{http.MethodGet, "/api/auth/profile"},
		{http.MethodPost, "/api/auth/logout"},
	} {
		rec := doRequest(t, h, route.method, route.path, nil, 0)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestCreateReservation_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		check      func(t *testing.T, resp errorResponse)
	}{
		{
			name:       "insufficient funds",
			err:        &service.InsufficientFundsError{Balance: decimal.RequireFromString("3"), Required: decimal.RequireFromString("6")},
			wantStatus: http.StatusPaymentRequired,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "insufficient_funds", resp.Code)
				assert.Equal(t, "3.00", resp.Balance)
				assert.Equal(t, "6.00", resp.Required)
			},
		},
		{
			name:       "no capacity",
			err:        repository.ErrNoCapacity,
			wantStatus: http.StatusConflict,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "no_capacity", resp.Code)
			},
		},
		{
			name:       "lot not found",
			err:        repository.ErrLotNotFound,
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, repository.ErrLotNotFound.Error(), resp.Error)
			},
		},
		{
			name:       "service validation",
			err:        &service.ValidationError{Field: "duration_hours", Reason: "must be positive"},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "duration_hours", resp.Field)
			},
		},
		{
			name:       "unexpected",
			err:        fmt.Errorf("settle: %w", repository.ErrInvariantViolation),
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, http.StatusText(http.StatusInternalServerError), resp.Error)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{reserveErr: tt.err})

			rec := doRequest(t, h, http.MethodPost, "/api/reservations", map[string]int{
				"vehicle_id":     1,
				"lot_id":         2,
				"duration_hours": 3,
			}, 1)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			tt.check(t, decodeBody[errorResponse](t, rec))
		})
	}
}

func TestCreateReservation_Created(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &stubService{
		reservation: model.Reservation{
			ID:            11,
			VehicleID:     1,
			LotID:         2,
			StartTime:     start,
			DurationHours: 3,
			TotalCost:     decimal.RequireFromString("6"),
			Status:        model.ReservationStatusActive,
		},
		balanceAfter: decimal.RequireFromString("4"),
	}
	h := newTestHandler(t, svc)

	rec := doRequest(t, h, http.MethodPost, "/api/reservations", map[string]int{
		"vehicle_id":     1,
		"lot_id":         2,
		"duration_hours": 3,
	}, 1)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[createReservationResponse](t, rec)
	assert.Equal(t, "4.00", resp.Balance)
	assert.Equal(t, "6.00", resp.Reservation.TotalCost)
	assert.Equal(t, "active", resp.Reservation.Status)
	assert.True(t, resp.Reservation.ExpiresAt.Equal(start.Add(3*time.Hour)))
}

func TestCreateReservation_RejectsNonPositiveDuration(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := doRequest(t, h, http.MethodPost, "/api/reservations", map[string]int{
		"vehicle_id":     1,
		"lot_id":         2,
		"duration_hours": -1,
	}, 1)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "duration_hours", decodeBody[errorResponse](t, rec).Field)
}

func TestCompleteReservation(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	rec := doRequest(t, h, http.MethodPut, "/api/reservations/15/complete", nil, 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(15), svc.gotCompleteID)

	rec = doRequest(t, h, http.MethodPut, "/api/reservations/abc/complete", nil, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.completeErr = repository.ErrReservationNotFound
	rec = doRequest(t, h, http.MethodPut, "/api/reservations/15/complete", nil, 1)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecharge(t *testing.T) {
	svc := &stubService{account: model.Account{ID: 3, Balance: decimal.RequireFromString("10")}}
	h := newTestHandler(t, svc)

	rec := doRequest(t, h, http.MethodPost, "/api/transactions/recharge", map[string]any{
		"amount":         "25.50",
		"payment_method": "cash",
	}, 1)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[rechargeResponse](t, rec)
	assert.Equal(t, "35.50", resp.Balance)
	assert.Equal(t, "25.50", resp.Transaction.Amount)
	assert.Equal(t, "recharge", resp.Transaction.Kind)

	for _, amount := range []any{0, "1000000000000000"} {
		rec = doRequest(t, h, http.MethodPost, "/api/transactions/recharge", map[string]any{"amount": amount}, 1)
		require.Equal(t, http.StatusBadRequest, rec.Code, "amount %v", amount)
		assert.Equal(t, "amount", decodeBody[errorResponse](t, rec).Field)
	}
}

func TestDecode_BodyLimit(t *testing.T) {
	payload := `{"plate":"` + strings.Repeat("A", 2<<20) + `"}`

	var zipped bytes.Buffer
	zw := gzip.NewWriter(&zipped)
	_, err := zw.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	tests := []struct {
		name     string
		body     []byte
		encoding string
	}{
		{name: "plain", body: []byte(payload)},
		{name: "gzip expands past limit", body: zipped.Bytes(), encoding: "gzip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{})
			token, err := h.authMiddleware.IssueToken(1)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/vehicles", bytes.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			if tt.encoding != "" {
				req.Header.Set("Content-Encoding", tt.encoding)
			}
			rec := httptest.NewRecorder()
			h.SetupRouter(RouterConfig{}).ServeHTTP(rec, req)

			require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
			assert.Equal(t, "body_too_large", decodeBody[errorResponse](t, rec).Code)
		})
	}
}

func TestListTransactions_QueryParams(t *testing.T) {
	tests := []struct {
		query     string
		wantKind  string
		wantLimit int
	}{
		{query: "", wantKind: "", wantLimit: 0},
		{query: "?limit=5&kind=spend", wantKind: "spend", wantLimit: 5},
		{query: "?limit=abc", wantKind: "", wantLimit: 0},
		{query: "?limit=-3", wantKind: "", wantLimit: -3},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			svc := &stubService{}
			h := newTestHandler(t, svc)

			rec := doRequest(t, h, http.MethodGet, "/api/transactions"+tt.query, nil, 1)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantKind, svc.gotKind)
			assert.Equal(t, tt.wantLimit, svc.gotLimit)
			assert.JSONEq(t, "[]", rec.Body.String())
		})
	}
}

func TestListLots_Coordinates(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantNear   *geo.Point
	}{
		{name: "no coordinates", query: "", wantStatus: http.StatusOK},
		{name: "both", query: "?lat=4.65&lon=-74.05", wantStatus: http.StatusOK, wantNear: &geo.Point{Lat: 4.65, Lon: -74.05}},
		{name: "lat only", query: "?lat=4.65", wantStatus: http.StatusBadRequest},
		{name: "not a number", query: "?lat=north&lon=-74.05", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			h := newTestHandler(t, svc)

			rec := doRequest(t, h, http.MethodGet, "/api/lots"+tt.query, nil, 0)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantNear, svc.gotNear)
		})
	}
}

func TestGetLot(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)

	rec := doRequest(t, h, http.MethodGet, "/api/lots/4", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[lotResponse](t, rec)
	assert.Equal(t, "4500.00", resp.PricePerHour)
	assert.Nil(t, resp.DistanceKm)

	svc.lotErr = repository.ErrLotNotFound
	rec = doRequest(t, h, http.MethodGet, "/api/lots/4", nil, 0)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteVehicle_InUse(t *testing.T) {
	h := newTestHandler(t, &stubService{deleteErr: repository.ErrVehicleInUse})

	rec := doRequest(t, h, http.MethodDelete, "/api/vehicles/2", nil, 1)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "vehicle has reservations", decodeBody[errorResponse](t, rec).Error)
}

func TestLogout_WithoutRevocationStore(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := doRequest(t, h, http.MethodPost, "/api/auth/logout", nil, 1)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute_JSON(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	rec := doRequest(t, h, http.MethodGet, "/api/unknown", nil, 0)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
