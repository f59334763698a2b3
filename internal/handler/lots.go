package handler

import (
	"net/http"
	"strconv"

	"github.com/mmeshcher/tuparking/internal/geo"
	"github.com/mmeshcher/tuparking/internal/service"
)

// ListLots возвращает активные парковки. С параметрами lat и lon список упорядочен по расстоянию.
func (h *Handler) ListLots(w http.ResponseWriter, r *http.Request) {
	near, err := parseNear(r)
	if err != nil {
		h.writeError(w, r, "list lots", err)
		return
	}

	lots, err := h.service.ListLots(r.Context(), near)
	if err != nil {
		h.writeError(w, r, "list lots", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(lots, newLotListingResponse))
}

func parseNear(r *http.Request) (*geo.Point, error) {
	q := r.URL.Query()
	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, &service.ValidationError{Field: "coordinates", Reason: "lat and lon must be given together"}
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, &service.ValidationError{Field: "lat", Reason: "must be a number"}
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, &service.ValidationError{Field: "lon", Reason: "must be a number"}
	}
	return &geo.Point{Lat: lat, Lon: lon}, nil
}

// GetLot возвращает парковку по идентификатору.
func (h *Handler) GetLot(w http.ResponseWriter, r *http.Request) {
	lotID, err := pathID(r, "lot_id")
	if err != nil {
		h.writeError(w, r, "get lot", err)
		return
	}

	lot, err := h.service.GetLot(r.Context(), lotID)
	if err != nil {
		h.writeError(w, r, "get lot", err)
		return
	}
	writeJSON(w, http.StatusOK, newLotResponse(lot))
}
