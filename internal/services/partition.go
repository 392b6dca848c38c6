package services

import (
	"field-route-service/internal/domain"
	"fmt"
)

// SplitIntoRoutes partitions locations into routes of at most maxStops stops.
//
// The full set is first ordered by nearest-neighbor from origin, then sliced
// into contiguous chunks so each sub-route covers a spatially coherent band.
// Every chunk is constructed and refined on its own. Each input location
// appears in exactly one output route.
func (p *RoutePlanner) SplitIntoRoutes(
	locations []domain.Location,
	origin *domain.Coordinates,
	maxStops int,
) ([]domain.Route, error) {
	if maxStops <= 0 {
		return nil, fmt.Errorf("split into routes: %w: max stops per route must be positive, got %d", domain.ErrInvalidInput, maxStops)
	}

	if len(locations) == 0 {
		return []domain.Route{p.NewRoute(nil)}, nil
	}

	start := resolveOrigin(locations, origin)

	if len(locations) <= maxStops {
		built := p.NewRoute(nearestNeighborOrder(locations, start))
		return []domain.Route{p.RefineRoute(built, p.cfg.MaxIterations)}, nil
	}

	ordered := nearestNeighborOrder(locations, start)
	n := len(ordered)

	// Ceiling division: the last chunk takes the remainder.
	routeCount := (n + maxStops - 1) / maxStops
	routes := make([]domain.Route, 0, routeCount)

	for lo := 0; lo < n; lo += maxStops {
		hi := min(lo+maxStops, n)

		built := p.NewRoute(nearestNeighborOrder(ordered[lo:hi], start))
		routes = append(routes, p.RefineRoute(built, p.cfg.MaxIterations))
	}

	return routes, nil
}
