package monitoring

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/metrics"
	"field-route-service/internal/ports"
	"fmt"
	"log"
	"strings"
	"time"
)

// Tracker answers "where is this agent now".
//
// Resolution order: a fresh device sample, then a virtual track from an open
// check-in, then the last sample marked stale, then nothing. A missing
// position is a normal result, not an error.
type Tracker struct {
	gps       ports.GpsSampleRepository
	visits    ports.VisitRepository
	cache     ports.PositionCache
	freshness time.Duration
	metrics   *metrics.Registry
	now       func() time.Time
}

// NewTracker builds a tracker. cache may be nil.
func NewTracker(
	gps ports.GpsSampleRepository,
	visits ports.VisitRepository,
	cache ports.PositionCache,
	freshness time.Duration,
	m *metrics.Registry,
) *Tracker {
	if freshness <= 0 {
		freshness = time.Minute
	}
	if m == nil {
		m = metrics.New()
	}
	return &Tracker{
		gps:       gps,
		visits:    visits,
		cache:     cache,
		freshness: freshness,
		metrics:   m,
		now:       time.Now,
	}
}

// WithClock returns a copy of the tracker that reads time from now.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	cp := *t
	cp.now = now
	return &cp
}

func (t *Tracker) CurrentPosition(ctx context.Context, agentID string) (*domain.GpsSample, error) {
	latest, err := t.latestSample(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("current position for %s: %w", agentID, err)
	}

	if latest != nil && t.now().Sub(latest.RecordedAt) <= t.freshness {
		return latest, nil
	}

	open, err := t.visits.OpenVisit(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("current position for %s: open visit: %w", agentID, err)
	}
	if open != nil && open.CheckIn != nil {
		return &domain.GpsSample{
			AgentID:     agentID,
			Coordinates: *open.CheckIn,
			RecordedAt:  open.CheckInAt,
			IsVirtual:   true,
		}, nil
	}

	if latest != nil {
		stale := *latest
		stale.Stale = true
		return &stale, nil
	}

	return nil, nil
}

func (t *Tracker) latestSample(ctx context.Context, agentID string) (*domain.GpsSample, error) {
	if t.cache != nil {
		s, err := t.cache.Latest(ctx, agentID)
		if err != nil {
			log.Printf("position cache read agent=%s failed, using sample log: %v", agentID, err)
		} else if s != nil {
			return s, nil
		}
	}

	s, err := t.gps.LatestSample(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("latest sample: %w", err)
	}

	if s != nil && t.cache != nil {
		if err := t.cache.SetLatest(ctx, *s); err != nil {
			log.Printf("position cache backfill agent=%s failed: %v", agentID, err)
		}
	}
	return s, nil
}

// RecordSample validates and appends a device sample, then refreshes the cache.
func (t *Tracker) RecordSample(ctx context.Context, s domain.GpsSample) error {
	s.AgentID = strings.TrimSpace(s.AgentID)
	if s.AgentID == "" {
		return fmt.Errorf("record sample: %w: agent id is required", domain.ErrInvalidInput)
	}
	if err := s.Coordinates.Validate(); err != nil {
		return fmt.Errorf("record sample: %w", err)
	}
	if s.RecordedAt.IsZero() {
		return fmt.Errorf("record sample: %w: recorded_at is required", domain.ErrInvalidInput)
	}
	if s.IsVirtual {
		return fmt.Errorf("record sample: %w: virtual samples cannot be recorded", domain.ErrInvalidInput)
	}
	if s.AccuracyM != nil && *s.AccuracyM < 0 {
		return fmt.Errorf("record sample: %w: accuracy must not be negative", domain.ErrInvalidInput)
	}
	s.Stale = false

	if err := t.gps.AppendSample(ctx, s); err != nil {
		return fmt.Errorf("record sample: %w", err)
	}
	t.metrics.SamplesIngested.Inc()

	if t.cache != nil {
		if err := t.cache.SetLatest(ctx, s); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("position cache write agent=%s failed: %v", s.AgentID, err)
		}
	}
	return nil
}
