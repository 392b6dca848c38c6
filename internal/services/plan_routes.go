package services

import (
	"context"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"slices"
	"strings"
	"time"
)

type PlanRoutesRequest struct {
	AgentID          string
	CustomerIDs      []string
	Origin           *domain.Coordinates
	Method           Method
	MaxStopsPerRoute int
	PlanDate         time.Time
	DepartAt         time.Time
}

// PlannedRoute is one optimized route, the same stops in input order, and
// the stops as they are (or would be) persisted.
type PlannedRoute struct {
	Route      domain.Route
	Original   domain.Route
	Comparison RouteComparison
	Stops      []domain.RouteStop
	Persisted  bool
}

type PlanRoutesResult struct {
	Routes    []PlannedRoute
	Unlocated []string
}

// PlanRoutes turns a customer list into one or more optimized routes.
//
// Customers without coordinates are skipped and reported. When an agent is
// given, every resulting route is persisted as that agent's route for the
// plan day with arrivals scheduled from the departure time.
func PlanRoutes(
	ctx context.Context,
	req PlanRoutesRequest,
	planner *RoutePlanner,
	customers ports.CustomerRepository,
	routes ports.RouteRepository,
) (_ PlanRoutesResult, err error) {
	defer obs.Time(ctx, "services.PlanRoutes")(&err)

	ids := uniqueIDs(req.CustomerIDs)
	if len(ids) == 0 {
		return PlanRoutesResult{Routes: []PlannedRoute{}, Unlocated: []string{}}, nil
	}

	found, err := customers.GetCustomers(ctx, ids)
	if err != nil {
		return PlanRoutesResult{}, fmt.Errorf("plan routes: load customers: %w", err)
	}

	byID := make(map[string]domain.Customer, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	located := make([]domain.Location, 0, len(ids))
	unlocated := []string{}
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return PlanRoutesResult{}, fmt.Errorf("plan routes: customer %q: %w", id, domain.ErrNotFound)
		}
		loc, ok := c.Location()
		if !ok {
			unlocated = append(unlocated, id)
			continue
		}
		located = append(located, loc)
	}

	res := PlanRoutesResult{Routes: []PlannedRoute{}, Unlocated: unlocated}
	if len(located) == 0 {
		return res, nil
	}

	built, err := planner.BuildRoute(located, req.Origin, req.Method)
	if err != nil {
		return PlanRoutesResult{}, fmt.Errorf("plan routes: %w", err)
	}

	var optimized []domain.Route
	if req.MaxStopsPerRoute > 0 && len(built.Stops) > req.MaxStopsPerRoute {
		optimized, err = planner.SplitIntoRoutes(built.Stops, req.Origin, req.MaxStopsPerRoute)
		if err != nil {
			return PlanRoutesResult{}, fmt.Errorf("plan routes: %w", err)
		}
	} else {
		optimized = []domain.Route{planner.RefineRoute(built, planner.cfg.MaxIterations)}
	}

	departAt := req.DepartAt
	if departAt.IsZero() {
		departAt = planner.now()
	}
	planDate := req.PlanDate
	if planDate.IsZero() {
		planDate = departAt
	}

	inputOrder := make(map[string]int, len(located))
	for i, l := range located {
		inputOrder[l.ID] = i
	}

	for _, r := range optimized {
		original := planner.NewRoute(inInputOrder(r.Stops, inputOrder))
		arrivals := planner.cfg.TimeModel.ScheduleArrivals(r.Stops, req.Origin, departAt)

		pr := PlannedRoute{
			Route:      r,
			Original:   original,
			Comparison: CompareRoutes(original, r),
			Stops:      domain.NumberStops(r.ID, r.Stops, arrivals),
		}

		if req.AgentID != "" {
			assigned := domain.AssignedRoute{
				ID:               r.ID,
				AgentID:          req.AgentID,
				PlanDate:         truncateDay(planDate),
				Status:           domain.RouteStatusActive,
				TotalDistanceKm:  r.TotalDistanceKm,
				EstimatedMinutes: r.EstimatedMinutes,
				EfficiencyScore:  r.EfficiencyScore,
				Stops:            pr.Stops,
				CreatedAt:        planner.now().UTC(),
			}
			if err := routes.CreateRoute(ctx, assigned); err != nil {
				return PlanRoutesResult{}, fmt.Errorf("plan routes: persist route for agent %q: %w", req.AgentID, err)
			}
			pr.Persisted = true
		}

		res.Routes = append(res.Routes, pr)
	}

	return res, nil
}

type ReoptimizeRequest struct {
	RouteID  string
	Origin   *domain.Coordinates
	DepartAt time.Time
}

// ReoptimizeRoute rebuilds the stop order of a persisted route.
//
// Located stops are re-sequenced with nearest-neighbor and 2-opt; stops whose
// customers have no coordinates keep their relative order at the end without
// a planned arrival. The persisted route keeps its id.
func ReoptimizeRoute(
	ctx context.Context,
	req ReoptimizeRequest,
	planner *RoutePlanner,
	customers ports.CustomerRepository,
	routes ports.RouteRepository,
) (_ PlannedRoute, err error) {
	defer obs.Time(ctx, "services.ReoptimizeRoute")(&err)

	assigned, err := routes.GetRoute(ctx, req.RouteID)
	if err != nil {
		return PlannedRoute{}, fmt.Errorf("reoptimize route %q: %w", req.RouteID, err)
	}

	found, err := customers.GetCustomers(ctx, assigned.CustomerIDs())
	if err != nil {
		return PlannedRoute{}, fmt.Errorf("reoptimize route %q: load customers: %w", req.RouteID, err)
	}
	byID := make(map[string]domain.Customer, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	current := make([]domain.Location, 0, len(assigned.Stops))
	var trailing []domain.Location
	for _, s := range assigned.Stops {
		if loc, ok := byID[s.CustomerID].Location(); ok {
			current = append(current, loc)
			continue
		}
		trailing = append(trailing, domain.Location{ID: s.CustomerID})
	}

	original := planner.NewRoute(current)
	original.ID = assigned.ID

	built, err := planner.BuildRoute(current, req.Origin, MethodNearestNeighbor)
	if err != nil {
		return PlannedRoute{}, fmt.Errorf("reoptimize route %q: %w", req.RouteID, err)
	}
	refined := planner.RefineRoute(built, planner.cfg.MaxIterations)
	refined.ID = assigned.ID

	departAt := req.DepartAt
	if departAt.IsZero() {
		departAt = planner.now()
	}
	arrivals := planner.cfg.TimeModel.ScheduleArrivals(refined.Stops, req.Origin, departAt)

	all := append(slices.Clone(refined.Stops), trailing...)
	stops := domain.NumberStops(assigned.ID, all, arrivals)
	if err := domain.ValidateStopOrder(stops); err != nil {
		return PlannedRoute{}, fmt.Errorf("reoptimize route %q: %w", req.RouteID, err)
	}

	assigned.Stops = stops
	assigned.TotalDistanceKm = refined.TotalDistanceKm
	assigned.EstimatedMinutes = refined.EstimatedMinutes
	assigned.EfficiencyScore = refined.EfficiencyScore

	if err := routes.ReorderStops(ctx, assigned); err != nil {
		return PlannedRoute{}, fmt.Errorf("reoptimize route %q: reorder stops: %w", req.RouteID, err)
	}

	return PlannedRoute{
		Route:      refined,
		Original:   original,
		Comparison: CompareRoutes(original, refined),
		Stops:      stops,
		Persisted:  true,
	}, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func inInputOrder(stops []domain.Location, order map[string]int) []domain.Location {
	out := slices.Clone(stops)
	slices.SortStableFunc(out, func(a, b domain.Location) int {
		return order[a.ID] - order[b.ID]
	})
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
