package services

import (
	"cmp"
	"field-route-service/internal/domain"
	"field-route-service/internal/geo"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Method selects the route construction heuristic.
type Method string

const (
	MethodNearestNeighbor Method = "nearest-neighbor"
	MethodPriority        Method = "priority"
)

// Parse a method name; the empty string selects nearest-neighbor.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodNearestNeighbor:
		return MethodNearestNeighbor, nil
	case MethodPriority:
		return MethodPriority, nil
	default:
		return "", fmt.Errorf("%w: unknown route method %q", domain.ErrInvalidInput, s)
	}
}

// PriorityWeights combine the three normalized priority signals.
type PriorityWeights struct {
	Frequency  float64
	OrderValue float64
	Recency    float64
}

type PlannerConfig struct {
	TimeModel              TimeModel
	Weights                PriorityWeights
	PriorityTopK           int
	RecencyHorizonDays     int
	MaxIterations          int
	EfficiencyPenaltyPerKm float64
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		TimeModel:              DefaultTimeModel(),
		Weights:                PriorityWeights{Frequency: 0.3, OrderValue: 0.4, Recency: 0.3},
		PriorityTopK:           10,
		RecencyHorizonDays:     30,
		MaxIterations:          100,
		EfficiencyPenaltyPerKm: 5,
	}
}

// RoutePlanner builds, refines, splits and compares routes.
//
// A planner holds only immutable configuration, so one value can serve
// concurrent planning requests. All distances are straight-line haversine
// approximations of travel distance.
type RoutePlanner struct {
	cfg PlannerConfig
	now func() time.Time
}

func NewRoutePlanner(cfg PlannerConfig) *RoutePlanner {
	return &RoutePlanner{cfg: cfg, now: time.Now}
}

// WithClock returns a copy of the planner that reads time from now.
func (p *RoutePlanner) WithClock(now func() time.Time) *RoutePlanner {
	cp := *p
	cp.now = now
	return &cp
}

func (p *RoutePlanner) Config() PlannerConfig { return p.cfg }

// Build an initial visiting sequence for locations starting at origin.
//
// A nil origin stands for an agent without a depot; the centroid of the
// locations is used instead. Empty input yields an empty route.
func (p *RoutePlanner) BuildRoute(
	locations []domain.Location,
	origin *domain.Coordinates,
	method Method,
) (domain.Route, error) {
	if method == "" {
		method = MethodNearestNeighbor
	}
	if method != MethodNearestNeighbor && method != MethodPriority {
		return domain.Route{}, fmt.Errorf("build route: %w: unknown method %q", domain.ErrInvalidInput, method)
	}

	if len(locations) == 0 {
		return p.NewRoute(nil), nil
	}

	start := resolveOrigin(locations, origin)

	var ordered []domain.Location
	switch method {
	case MethodPriority:
		ordered = p.priorityOrder(locations, start)
	default:
		ordered = nearestNeighborOrder(locations, start)
	}

	return p.NewRoute(ordered), nil
}

// NewRoute wraps an ordered stop list into a Route with computed metrics.
func (p *RoutePlanner) NewRoute(stops []domain.Location) domain.Route {
	if stops == nil {
		stops = []domain.Location{}
	}

	dist := PathDistanceKm(stops)
	return domain.Route{
		ID:               uuid.NewString(),
		Stops:            stops,
		TotalDistanceKm:  dist,
		EstimatedMinutes: p.cfg.TimeModel.EstimateMinutes(stops, dist),
		EfficiencyScore:  EfficiencyScore(dist, len(stops), p.cfg.EfficiencyPenaltyPerKm),
	}
}

func resolveOrigin(locations []domain.Location, origin *domain.Coordinates) domain.Coordinates {
	if origin != nil {
		return *origin
	}

	points := make([]domain.Coordinates, 0, len(locations))
	for _, l := range locations {
		points = append(points, l.Coordinates)
	}
	c, _ := geo.Centroid(points)
	return c
}

type scoredLocation struct {
	loc   domain.Location
	index int
	score float64
	dist  float64
}

// Score every location, keep the top K and order those by distance from origin.
func (p *RoutePlanner) priorityOrder(locations []domain.Location, origin domain.Coordinates) []domain.Location {
	now := p.now()
	w := p.cfg.Weights

	horizon := float64(p.cfg.RecencyHorizonDays)
	if horizon <= 0 {
		horizon = 30
	}

	var maxFreq, maxValue float64
	for _, l := range locations {
		maxFreq = max(maxFreq, visitFrequency(l))
		maxValue = max(maxValue, l.AvgOrderValue)
	}

	scored := make([]scoredLocation, 0, len(locations))
	for i, l := range locations {
		var freqNorm, valueNorm float64
		if maxFreq > 0 {
			freqNorm = visitFrequency(l) / maxFreq
		}
		if maxValue > 0 {
			valueNorm = max(l.AvgOrderValue, 0) / maxValue
		}

		days := horizon
		if l.LastVisitAt != nil {
			days = max(now.Sub(*l.LastVisitAt).Hours()/24, 0)
		}
		recencyNorm := min(days, horizon) / horizon

		scored = append(scored, scoredLocation{
			loc:   l,
			index: i,
			score: w.Frequency*freqNorm + w.OrderValue*valueNorm + w.Recency*recencyNorm,
			dist:  geo.DistanceKm(origin, l.Coordinates),
		})
	}

	slices.SortStableFunc(scored, func(a, b scoredLocation) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.loc.Priority, a.loc.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	k := p.cfg.PriorityTopK
	if k <= 0 || k > len(scored) {
		k = len(scored)
	}
	top := scored[:k]

	// The selection is by score; the visiting order is geographic.
	slices.SortStableFunc(top, func(a, b scoredLocation) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	out := make([]domain.Location, 0, k)
	for _, s := range top {
		out = append(out, s.loc)
	}
	return out
}

func visitFrequency(l domain.Location) float64 {
	if l.VisitFrequencyDays <= 0 {
		return 0
	}
	return 1 / float64(l.VisitFrequencyDays)
}
