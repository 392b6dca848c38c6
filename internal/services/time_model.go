package services

import (
	"field-route-service/internal/domain"
	"field-route-service/internal/geo"
	"time"
)

// TimeModel turns straight-line distance and stop count into minutes.
type TimeModel struct {
	MinutesPerKm        float64
	DefaultVisitMinutes int
}

// 30 km/h average and half an hour per stop.
func DefaultTimeModel() TimeModel {
	return TimeModel{MinutesPerKm: 2, DefaultVisitMinutes: 30}
}

// Return the on-site minutes for a stop.
func (m TimeModel) StopMinutes(l domain.Location) float64 {
	if l.VisitMinutes > 0 {
		return float64(l.VisitMinutes)
	}
	return float64(max(m.DefaultVisitMinutes, 0))
}

// EstimateMinutes returns distanceKm × MinutesPerKm plus every stop's visit time.
func (m TimeModel) EstimateMinutes(stops []domain.Location, distanceKm float64) float64 {
	total := distanceKm * m.MinutesPerKm
	for _, s := range stops {
		total += m.StopMinutes(s)
	}
	return total
}

// ScheduleArrivals returns the planned arrival time at each stop.
//
// The first arrival adds the travel time from origin (none when origin is
// nil); every later arrival adds the previous stop's visit time and the leg.
func (m TimeModel) ScheduleArrivals(stops []domain.Location, origin *domain.Coordinates, departAt time.Time) []time.Time {
	arrivals := make([]time.Time, 0, len(stops))
	current := departAt

	for i, s := range stops {
		var legKm float64
		switch {
		case i > 0:
			current = current.Add(minutes(m.StopMinutes(stops[i-1])))
			legKm = geo.DistanceKm(stops[i-1].Coordinates, s.Coordinates)
		case origin != nil:
			legKm = geo.DistanceKm(*origin, s.Coordinates)
		}

		current = current.Add(minutes(legKm * m.MinutesPerKm))
		arrivals = append(arrivals, current)
	}

	return arrivals
}

// EfficiencyScore rates a route from 0 to 100 by its average leg length.
// Routes with fewer than two stops are trivially optimal.
func EfficiencyScore(distanceKm float64, stops int, penaltyPerKm float64) float64 {
	if stops < 2 {
		return 100
	}

	avgLeg := distanceKm / float64(stops-1)
	score := 100 - penaltyPerKm*avgLeg
	return min(max(score, 0), 100)
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
