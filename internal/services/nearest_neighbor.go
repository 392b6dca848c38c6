package services

import (
	"field-route-service/internal/domain"
	"field-route-service/internal/geo"
	"math"
	"slices"
)

// Order locations with a greedy nearest-neighbor walk from origin.
//
// At each step the closest not-yet-routed location is appended. Ties keep
// input order: the first location at the minimum distance wins. The input
// slice is not modified.
func nearestNeighborOrder(locations []domain.Location, origin domain.Coordinates) []domain.Location {
	remaining := slices.Clone(locations)
	ordered := make([]domain.Location, 0, len(locations))
	current := origin

	for len(remaining) > 0 {
		best := -1
		bestDist := math.Inf(1)

		for i, loc := range remaining {
			d := geo.DistanceKm(current, loc.Coordinates)
			if d < bestDist {
				best = i
				bestDist = d
			}
		}

		next := remaining[best]
		ordered = append(ordered, next)
		remaining = slices.Delete(remaining, best, best+1)
		current = next.Coordinates
	}

	return ordered
}

// PathDistanceKm sums the legs between consecutive stops.
// The leg from the origin to the first stop is not included.
func PathDistanceKm(stops []domain.Location) float64 {
	total := 0.0
	for i := 1; i < len(stops); i++ {
		total += geo.DistanceKm(stops[i-1].Coordinates, stops[i].Coordinates)
	}
	return total
}
