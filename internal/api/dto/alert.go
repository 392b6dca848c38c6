package dto

import "time"

type AlertResponse struct {
	AlertID   string         `json:"alert_id"`
	AgentID   string         `json:"agent_id"`
	RouteID   string         `json:"route_id,omitempty"`
	Type      string         `json:"alert_type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata"`
	Read      bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

type ListAlertsResponse struct {
	Alerts []AlertResponse `json:"alerts"`
}
