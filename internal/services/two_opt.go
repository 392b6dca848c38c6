package services

import (
	"field-route-service/internal/domain"
	"slices"
)

// Refine a constructed route with 2-opt local search.
//
// Each iteration scans all index pairs (i, j) with j >= i+2 and tries
// reversing the segment i+1..j on a candidate copy. A candidate replaces the
// current best only when total distance strictly decreases. The search stops
// after a pass without improvement or after maxIterations passes.
// The result is never longer than the input.
func (p *RoutePlanner) RefineRoute(route domain.Route, maxIterations int) domain.Route {
	best := slices.Clone(route.Stops)
	if len(best) < 3 || maxIterations <= 0 {
		return p.NewRoute(best)
	}

	bestDist := PathDistanceKm(best)

	for iter := 0; iter < maxIterations; iter++ {
		improved := false

		for i := 0; i < len(best)-2; i++ {
			for j := i + 2; j < len(best); j++ {
				candidate := slices.Clone(best)
				slices.Reverse(candidate[i+1 : j+1])

				if d := PathDistanceKm(candidate); d < bestDist {
					best = candidate
					bestDist = d
					improved = true
				}
			}
		}

		if !improved {
			break
		}
	}

	return p.NewRoute(best)
}
