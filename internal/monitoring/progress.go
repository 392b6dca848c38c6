package monitoring

import (
	"context"
	"field-route-service/internal/domain"
	"field-route-service/internal/geo"
	"field-route-service/internal/platform/obs"
	"fmt"
)

type StopProgress struct {
	Stop           domain.RouteStop
	CustomerName   string
	Coordinates    *domain.Coordinates
	Status         domain.StopStatus
	DistanceMeters *float64
}

type RouteProgress struct {
	Route     domain.AssignedRoute
	Position  *domain.GpsSample
	Stops     []StopProgress
	Completed int
	Active    int
	Pending   int
}

// RouteProgress classifies every stop of the route for its assigned agent.
func (s *Service) RouteProgress(ctx context.Context, routeID string) (_ RouteProgress, err error) {
	defer obs.Time(ctx, "monitoring.RouteProgress")(&err)

	v, err := s.loadRoute(ctx, "", routeID)
	if err != nil {
		return RouteProgress{}, fmt.Errorf("route progress: %w", err)
	}
	agentID := v.route.AgentID

	pos, err := s.tracker.CurrentPosition(ctx, agentID)
	if err != nil {
		return RouteProgress{}, fmt.Errorf("route progress: %w", err)
	}
	visits, err := s.visits.AgentVisitsBetween(ctx, agentID, v.dayStart, v.dayEnd)
	if err != nil {
		return RouteProgress{}, fmt.Errorf("route progress: agent visits: %w", err)
	}

	classifier := StopClassifier{ProximityMeters: v.th.ProximityMeters, Location: s.loc}
	out := RouteProgress{
		Route:    v.route,
		Position: pos,
		Stops:    make([]StopProgress, 0, len(v.route.Stops)),
	}
	for _, stop := range v.route.Stops {
		c := v.customers[stop.CustomerID]
		sp := StopProgress{
			Stop:         stop,
			CustomerName: v.stopName(stop),
			Coordinates:  c.Coordinates,
			Status:       classifier.Classify(stop, c, pos, visits, v.now),
		}
		if pos != nil && c.Coordinates != nil {
			d := geo.DistanceMeters(pos.Coordinates, *c.Coordinates)
			sp.DistanceMeters = &d
		}

		switch sp.Status {
		case domain.StopCompleted:
			out.Completed++
		case domain.StopActive:
			out.Active++
		default:
			out.Pending++
		}
		out.Stops = append(out.Stops, sp)
	}

	return out, nil
}
