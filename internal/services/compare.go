package services

import "field-route-service/internal/domain"

// RouteComparison reports what an optimized route saves over an original.
// Negative savings mean the optimized route is worse.
type RouteComparison struct {
	DistanceSavedKm   float64
	TimeSavedMinutes  float64
	EfficiencyGainPct float64
}

// CompareRoutes computes distance, time and efficiency deltas.
// Efficiency gain is 0 when the original route has zero distance.
func CompareRoutes(original, optimized domain.Route) RouteComparison {
	saved := original.TotalDistanceKm - optimized.TotalDistanceKm

	gain := 0.0
	if original.TotalDistanceKm > 0 {
		gain = saved / original.TotalDistanceKm * 100
	}

	return RouteComparison{
		DistanceSavedKm:   saved,
		TimeSavedMinutes:  original.EstimatedMinutes - optimized.EstimatedMinutes,
		EfficiencyGainPct: gain,
	}
}
