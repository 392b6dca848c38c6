package ports

import (
	"context"
	"field-route-service/internal/domain"
	"time"
)

// Port: persistence of assigned routes and their stops.
type RouteRepository interface {
	// Persist a route header together with its stops.
	CreateRoute(ctx context.Context, route domain.AssignedRoute) error
	// Fetch a route with its stops ordered by stop order.
	// Returns domain.ErrNotFound for an unknown id.
	GetRoute(ctx context.Context, routeID string) (domain.AssignedRoute, error)
	// Replace the stops and metrics of an existing route.
	ReorderStops(ctx context.Context, route domain.AssignedRoute) error
	// Return active routes planned for the calendar day of planDate.
	ListActiveRoutes(ctx context.Context, planDate time.Time) ([]domain.AssignedRoute, error)
}
