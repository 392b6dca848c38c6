package domain

import "time"

type AlertType string

const (
	AlertRouteDeviation   AlertType = "route_deviation"
	AlertSignificantDelay AlertType = "significant_delay"
	AlertMissedStop       AlertType = "missed_stop"
	AlertExtendedVisit    AlertType = "extended_visit"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is an immutable record of a detected condition; only Read changes.
// RouteID is empty for alerts not tied to a route.
type Alert struct {
	ID        string
	AgentID   string
	RouteID   string
	Type      AlertType
	Severity  Severity
	Message   string
	Metadata  map[string]any
	Read      bool
	CreatedAt time.Time
}

// StopStatus is derived on every read from visits and position.
type StopStatus string

const (
	StopCompleted StopStatus = "completed"
	StopActive    StopStatus = "active"
	StopPending   StopStatus = "pending"
)
