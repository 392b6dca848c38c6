package monitoring

import (
	"context"
	"field-route-service/internal/domain"
	"field-route-service/internal/metrics"
	"field-route-service/internal/ports"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

type RouteChecker interface {
	RunChecks(ctx context.Context, agentID, routeID string) ([]domain.Alert, error)
}

// Scheduler polls today's active routes on a fixed interval and runs the
// route checks with bounded concurrency.
type Scheduler struct {
	routes      ports.RouteRepository
	checker     RouteChecker
	interval    time.Duration
	concurrency int
	metrics     *metrics.Registry
	loc         *time.Location
	now         func() time.Time
}

func NewScheduler(
	routes ports.RouteRepository,
	checker RouteChecker,
	interval time.Duration,
	concurrency int,
	m *metrics.Registry,
	loc *time.Location,
) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	if m == nil {
		m = metrics.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		routes:      routes,
		checker:     checker,
		interval:    interval,
		concurrency: concurrency,
		metrics:     m,
		loc:         loc,
		now:         time.Now,
	}
}

// WithClock returns a copy of the scheduler that reads time from now.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	cp := *s
	cp.now = now
	return &cp
}

// Run polls once immediately and then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("monitor scheduler started interval=%s concurrency=%d", s.interval, s.concurrency)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.PollOnce(ctx); err != nil {
			log.Printf("monitor poll failed: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Printf("monitor scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// PollOnce checks every active route for today. Route failures are logged
// and counted; only a failure to list routes is returned.
func (s *Scheduler) PollOnce(ctx context.Context) error {
	s.metrics.PollCycles.Inc()

	routes, err := s.routes.ListActiveRoutes(ctx, s.now().In(s.loc))
	if err != nil {
		return fmt.Errorf("poll: list active routes: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, r := range routes {
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(ctx, s.interval)
			defer cancel()

			if _, err := s.checker.RunChecks(rctx, r.AgentID, r.ID); err != nil {
				s.metrics.ChecksFailed.Inc()
				log.Printf("monitor route=%s agent=%s: %v", r.ID, r.AgentID, err)
			}
			return nil
		})
	}

	return g.Wait()
}
