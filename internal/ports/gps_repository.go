package ports

import (
	"context"
	"field-route-service/internal/domain"
)

// Port: the append-only GPS sample log.
type GpsSampleRepository interface {
	AppendSample(ctx context.Context, s domain.GpsSample) error
	// Return the newest sample for the agent, or nil when none exists.
	LatestSample(ctx context.Context, agentID string) (*domain.GpsSample, error)
}

// Port: a fast lookup of each agent's latest sample.
type PositionCache interface {
	SetLatest(ctx context.Context, s domain.GpsSample) error
	// Return the cached sample, or nil on a miss.
	Latest(ctx context.Context, agentID string) (*domain.GpsSample, error)
}
