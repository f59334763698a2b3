package handler

import (
	"net/http"

	"github.com/mmeshcher/tuparking/internal/service"
)

type vehicleRequest struct {
	Plate string `json:"plate" validate:"required,plate"`
	Make  string `json:"make" validate:"omitempty,max=64"`
	Color string `json:"color" validate:"omitempty,max=32"`
}

// ListVehicles возвращает автомобили текущего пользователя.
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	vehicles, err := h.service.ListVehicles(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "list vehicles", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(vehicles, newVehicleResponse))
}

// AddVehicle регистрирует автомобиль текущего пользователя.
func (h *Handler) AddVehicle(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req vehicleRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, "add vehicle", err)
		return
	}

	v, err := h.service.AddVehicle(r.Context(), userID, service.VehicleInput{
		Plate: req.Plate,
		Make:  req.Make,
		Color: req.Color,
	})
	if err != nil {
		h.writeError(w, r, "add vehicle", err)
		return
	}
	writeJSON(w, http.StatusCreated, newVehicleResponse(v))
}

// DeleteVehicle удаляет автомобиль текущего пользователя.
func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	vehicleID, err := pathID(r, "vehicle_id")
	if err != nil {
		h.writeError(w, r, "delete vehicle", err)
		return
	}

	if err := h.service.DeleteVehicle(r.Context(), userID, vehicleID); err != nil {
		h.writeError(w, r, "delete vehicle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
