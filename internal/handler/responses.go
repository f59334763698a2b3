package handler

import (
	"time"

	"gopkg.in/guregu/null.v4"

	"github.com/mmeshcher/tuparking/internal/model"
	"github.com/mmeshcher/tuparking/internal/service"
)

type userResponse struct {
	ID         int64       `json:"id"`
	DocumentID string      `json:"document_id"`
	Email      string      `json:"email"`
	Name       string      `json:"name"`
	Phone      null.String `json:"phone"`
	Address    null.String `json:"address"`
	CreatedAt  time.Time   `json:"created_at"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:         u.ID,
		DocumentID: u.DocumentID,
		Email:      u.Email,
		Name:       u.Name,
		Phone:      u.Phone,
		Address:    u.Address,
		CreatedAt:  u.CreatedAt,
	}
}

type accountResponse struct {
	ID        int64     `json:"id"`
	Balance   string    `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newAccountResponse(a model.Account) accountResponse {
	return accountResponse{ID: a.ID, Balance: a.Balance.StringFixed(2), UpdatedAt: a.UpdatedAt}
}

type vehicleResponse struct {
	ID        int64       `json:"id"`
	Plate     string      `json:"plate"`
	Make      null.String `json:"make"`
	Color     null.String `json:"color"`
	CreatedAt time.Time   `json:"created_at"`
}

func newVehicleResponse(v model.Vehicle) vehicleResponse {
	return vehicleResponse{ID: v.ID, Plate: v.Plate, Make: v.Make, Color: v.Color, CreatedAt: v.CreatedAt}
}

type lotResponse struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	Address         string      `json:"address"`
	Latitude        float64     `json:"latitude"`
	Longitude       float64     `json:"longitude"`
	Phone           null.String `json:"phone"`
	OpeningTime     null.String `json:"opening_time"`
	ClosingTime     null.String `json:"closing_time"`
	PricePerHour    string      `json:"price_per_hour"`
	TotalSpaces     int         `json:"total_spaces"`
	AvailableSpaces int         `json:"available_spaces"`
	Description     null.String `json:"description"`
	ImageURL        null.String `json:"image_url"`
	DistanceKm      *float64    `json:"distance_km,omitempty"`
}

func newLotResponse(l model.ParkingLot) lotResponse {
	return lotResponse{
		ID:              l.ID,
		Name:            l.Name,
		Address:         l.Address,
		Latitude:        l.Latitude,
		Longitude:       l.Longitude,
		Phone:           l.Phone,
		OpeningTime:     l.OpeningTime,
		ClosingTime:     l.ClosingTime,
		PricePerHour:    l.PricePerHour.StringFixed(2),
		TotalSpaces:     l.TotalSpaces,
		AvailableSpaces: l.AvailableSpaces,
		Description:     l.Description,
		ImageURL:        l.ImageURL,
	}
}

func newLotListingResponse(l service.LotListing) lotResponse {
	resp := newLotResponse(l.ParkingLot)
	resp.DistanceKm = l.DistanceKm.Ptr()
	return resp
}

type reservationResponse struct {
	ID            int64     `json:"id"`
	VehicleID     int64     `json:"vehicle_id"`
	LotID         int64     `json:"lot_id"`
	LotName       string    `json:"lot_name,omitempty"`
	VehiclePlate  string    `json:"vehicle_plate,omitempty"`
	StartTime     time.Time `json:"start_time"`
	DurationHours int       `json:"duration_hours"`
	ExpiresAt     time.Time `json:"expires_at"`
	TotalCost     string    `json:"total_cost"`
	Status        string    `json:"status"`
	EndTime       null.Time `json:"end_time"`
}

func newReservationResponse(r model.Reservation) reservationResponse {
	return reservationResponse{
		ID:            r.ID,
		VehicleID:     r.VehicleID,
		LotID:         r.LotID,
		LotName:       r.LotName,
		VehiclePlate:  r.VehiclePlate,
		StartTime:     r.StartTime,
		DurationHours: r.DurationHours,
		ExpiresAt:     r.ExpiresAt(),
		TotalCost:     r.TotalCost.StringFixed(2),
		Status:        string(r.Status),
		EndTime:       r.EndTime,
	}
}

type ledgerEntryResponse struct {
	ID               int64     `json:"id"`
	Kind             string    `json:"kind"`
	Amount           string    `json:"amount"`
	BalanceBefore    string    `json:"balance_before"`
	BalanceAfter     string    `json:"balance_after"`
	RechargeID       null.Int  `json:"recharge_id"`
	ParkingSessionID null.Int  `json:"parking_session_id"`
	PaymentMethod    string    `json:"payment_method,omitempty"`
	RechargeStatus   string    `json:"recharge_status,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func newLedgerEntryResponse(e model.LedgerEntry) ledgerEntryResponse {
	return ledgerEntryResponse{
		ID:               e.ID,
		Kind:             string(e.Kind),
		Amount:           e.Amount.StringFixed(2),
		BalanceBefore:    e.BalanceBefore.StringFixed(2),
		BalanceAfter:     e.BalanceAfter.StringFixed(2),
		RechargeID:       e.RechargeID,
		ParkingSessionID: e.ParkingSessionID,
		PaymentMethod:    string(e.PaymentMethod),
		RechargeStatus:   e.RechargeState,
		CreatedAt:        e.CreatedAt,
	}
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
