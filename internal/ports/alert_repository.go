package ports

import (
	"context"
	"field-route-service/internal/domain"
	"time"
)

type AlertFilter struct {
	AgentID    string
	UnreadOnly bool
	Limit      int
}

// Port: durable alert storage. Alerts are insert-only apart from the read flag.
type AlertRepository interface {
	CreateAlert(ctx context.Context, a domain.Alert) error
	// Return alerts newest first.
	ListAlerts(ctx context.Context, f AlertFilter) ([]domain.Alert, error)
	// Returns domain.ErrNotFound for an unknown id.
	MarkRead(ctx context.Context, alertID string) error
}

// Port: gate that suppresses repeated alerts for a persisting condition.
type AlertSuppressor interface {
	// Acquire returns true when key was free and is now held for window.
	Acquire(ctx context.Context, key string, window time.Duration) (bool, error)
}

// Port: outbound delivery of an alert to owners or managers.
type Notifier interface {
	Notify(ctx context.Context, a domain.Alert) error
}
