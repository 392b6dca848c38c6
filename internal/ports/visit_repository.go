package ports

import (
	"context"
	"field-route-service/internal/domain"
	"time"
)

// Port: visit records written by the field app.
type VisitRepository interface {
	// Return the agent's most recent open visit, or nil when none is open.
	OpenVisit(ctx context.Context, agentID string) (*domain.Visit, error)
	// Return the agent's visits checked in within [from, to).
	AgentVisitsBetween(ctx context.Context, agentID string, from, to time.Time) ([]domain.Visit, error)
	// Return visits by any agent to the given customers checked in within [from, to).
	CustomerVisitsBetween(ctx context.Context, customerIDs []string, from, to time.Time) ([]domain.Visit, error)
	CheckIn(ctx context.Context, v domain.Visit) error
	// Close an open visit. Returns domain.ErrNotFound when no open visit has the id.
	CheckOut(ctx context.Context, visitID string, at time.Time) error
}
