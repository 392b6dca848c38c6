package handlers

import (
	"field-route-service/internal/api/dto"
	"field-route-service/internal/domain"
	"field-route-service/internal/monitoring"
	"field-route-service/internal/ports"
	"field-route-service/internal/services"
	"net/http"
	"strings"
	"time"
)

type TrackingHandler struct {
	Tracker   *monitoring.Tracker
	Customers ports.CustomerRepository
	Visits    ports.VisitRepository
	Now       func() time.Time
}

func (h *TrackingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// RecordGPS ingests one device sample for the agent in the path.
func (h *TrackingHandler) RecordGPS(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.GpsSampleRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeError(w, r, http.StatusBadRequest, "lat and lng are required")
		return
	}

	s := domain.GpsSample{
		AgentID:     r.PathValue("id"),
		Coordinates: domain.Coordinates{Lat: *req.Lat, Lng: *req.Lng},
		RecordedAt:  h.now().UTC(),
		SpeedKmh:    req.SpeedKmh,
		Heading:     req.Heading,
		AccuracyM:   req.AccuracyM,
	}
	if req.RecordedAt != nil {
		s.RecordedAt = req.RecordedAt.UTC()
	}

	if err := h.Tracker.RecordSample(r.Context(), s); err != nil {
		writeServiceError(w, r, "record gps sample", err)
		return
	}

	s.AgentID = strings.TrimSpace(s.AgentID)
	writeJSON(w, r, http.StatusCreated, positionToDTO(&s))
}

// Position returns the agent's best-known position, or 204 when none exists.
func (h *TrackingHandler) Position(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	pos, err := h.Tracker.CurrentPosition(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "current position", err)
		return
	}
	if pos == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, r, http.StatusOK, positionToDTO(pos))
}

// CheckIn opens a visit for the agent in the path.
func (h *TrackingHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.CheckInRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		writeError(w, r, http.StatusBadRequest, "lat and lng must be given together")
		return
	}

	svcReq := services.CheckInRequest{
		AgentID:    r.PathValue("id"),
		CustomerID: req.CustomerID,
		At:         h.now(),
	}
	if req.CheckInAt != nil {
		svcReq.At = *req.CheckInAt
	}
	if req.Lat != nil {
		svcReq.Coordinates = &domain.Coordinates{Lat: *req.Lat, Lng: *req.Lng}
	}

	v, err := services.CheckIn(r.Context(), svcReq, h.Customers, h.Visits)
	if err != nil {
		writeServiceError(w, r, "check in", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, visitToDTO(v))
}

// CheckOut closes the visit in the path. The body is optional.
func (h *TrackingHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.CheckOutRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	at := h.now()
	if req.CheckOutAt != nil {
		at = *req.CheckOutAt
	}

	if err := services.CheckOut(r.Context(), r.PathValue("id"), at, h.Visits); err != nil {
		writeServiceError(w, r, "check out", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
