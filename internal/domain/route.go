package domain

import (
	"fmt"
	"time"
)

// Represents a planned visiting sequence. The order of Stops is the route.
// A Route is a value produced by planning; re-optimizing yields a new Route.
type Route struct {
	ID               string
	Stops            []Location
	TotalDistanceKm  float64
	EstimatedMinutes float64
	EfficiencyScore  float64
}

// Return the location ids in visiting order.
func (r Route) StopIDs() []string {
	ids := make([]string, 0, len(r.Stops))
	for _, s := range r.Stops {
		ids = append(ids, s.ID)
	}
	return ids
}

// Represents a persisted stop of an assigned route.
type RouteStop struct {
	RouteID        string
	CustomerID     string
	StopOrder      int
	PlannedArrival *time.Time
}

type RouteStatus string

const (
	RouteStatusActive    RouteStatus = "active"
	RouteStatusCompleted RouteStatus = "completed"
)

// AssignedRoute is a route persisted for one agent and one plan day.
type AssignedRoute struct {
	ID               string
	AgentID          string
	PlanDate         time.Time
	Status           RouteStatus
	TotalDistanceKm  float64
	EstimatedMinutes float64
	EfficiencyScore  float64
	Stops            []RouteStop
	CreatedAt        time.Time
}

// Return customer ids in stop order.
func (r AssignedRoute) CustomerIDs() []string {
	ids := make([]string, 0, len(r.Stops))
	for _, s := range r.Stops {
		ids = append(ids, s.CustomerID)
	}
	return ids
}

// NumberStops turns an ordered location list into persisted stops with
// 1-based dense ordering. arrivals may be nil or must match len(stops).
func NumberStops(routeID string, stops []Location, arrivals []time.Time) []RouteStop {
	out := make([]RouteStop, 0, len(stops))
	for i, loc := range stops {
		rs := RouteStop{
			RouteID:    routeID,
			CustomerID: loc.ID,
			StopOrder:  i + 1,
		}
		if i < len(arrivals) {
			at := arrivals[i]
			rs.PlannedArrival = &at
		}
		out = append(out, rs)
	}
	return out
}

// ValidateStopOrder checks that stop orders form the sequence 1..n in slice order.
func ValidateStopOrder(stops []RouteStop) error {
	for i, s := range stops {
		if s.StopOrder != i+1 {
			return fmt.Errorf("%w: stop %d has order %d, want %d", ErrInvalidInput, i, s.StopOrder, i+1)
		}
		if s.CustomerID == "" {
			return fmt.Errorf("%w: stop %d has empty customer id", ErrInvalidInput, i+1)
		}
	}
	return nil
}
