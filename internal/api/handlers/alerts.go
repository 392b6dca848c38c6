package handlers

import (
	"field-route-service/internal/api/dto"
	"field-route-service/internal/ports"
	"net/http"
	"strconv"
	"strings"
)

const maxAlertLimit = 500

type AlertHandler struct {
	Repo ports.AlertRepository
}

// List returns alerts newest first. Query: agent_id, unread, limit.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	f := ports.AlertFilter{AgentID: strings.TrimSpace(q.Get("agent_id"))}

	if v := q.Get("unread"); v != "" {
		unread, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "unread must be a boolean")
			return
		}
		f.UnreadOnly = unread
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxAlertLimit {
			writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		f.Limit = n
	}

	alerts, err := h.Repo.ListAlerts(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, "list alerts", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ListAlertsResponse{Alerts: alertsToDTO(alerts)})
}

// MarkRead flags the alert in the path as read.
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.Repo.MarkRead(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, "mark alert read", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
