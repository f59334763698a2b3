package handler

import (
	"net/http"
)

type reservationRequest struct {
	VehicleID     int64 `json:"vehicle_id" validate:"required,gt=0"`
	LotID         int64 `json:"lot_id" validate:"required,gt=0"`
	DurationHours int   `json:"duration_hours" validate:"required,gt=0"`
}

type createReservationResponse struct {
	Reservation reservationResponse `json:"reservation"`
	Balance     string              `json:"balance"`
}

// CreateReservation бронирует место и списывает стоимость с баланса текущего пользователя.
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req reservationRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, "create reservation", err)
		return
	}

	rsv, balance, err := h.service.CreateReservation(r.Context(), userID, req.VehicleID, req.LotID, req.DurationHours)
	if err != nil {
		h.writeError(w, r, "create reservation", err)
		return
	}

	writeJSON(w, http.StatusCreated, createReservationResponse{
		Reservation: newReservationResponse(rsv),
		Balance:     balance.StringFixed(2),
	})
}

// ListReservations возвращает бронирования текущего пользователя с необязательным фильтром status.
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListReservations(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(w, r, "list reservations", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, newReservationResponse))
}

// CompleteReservation завершает активное бронирование текущего пользователя.
func (h *Handler) CompleteReservation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	reservationID, err := pathID(r, "reservation_id")
	if err != nil {
		h.writeError(w, r, "complete reservation", err)
		return
	}

	if err := h.service.CompleteReservation(r.Context(), userID, reservationID); err != nil {
		h.writeError(w, r, "complete reservation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reservation completed"})
}
