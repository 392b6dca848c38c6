package services

import (
	"context"
	"field-route-service/internal/domain"
	"fmt"
	"sync"
	"time"
)

type memCustomerRepo struct {
	mu        sync.Mutex
	customers map[string]domain.Customer
}

func newMemCustomerRepo(cs ...domain.Customer) *memCustomerRepo {
	r := &memCustomerRepo{customers: map[string]domain.Customer{}}
	for _, c := range cs {
		r.customers[c.ID] = c
	}
	return r
}

func (r *memCustomerRepo) GetCustomers(ctx context.Context, ids []string) ([]domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Customer, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.customers[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCustomerRepo) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return nil, fmt.Errorf("not used")
}

type memRouteRepo struct {
	mu        sync.Mutex
	routes    map[string]domain.AssignedRoute
	reordered int
}

func newMemRouteRepo() *memRouteRepo {
	return &memRouteRepo{routes: map[string]domain.AssignedRoute{}}
}

func (r *memRouteRepo) CreateRoute(ctx context.Context, route domain.AssignedRoute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[route.ID] = route
	return nil
}

func (r *memRouteRepo) GetRoute(ctx context.Context, routeID string) (domain.AssignedRoute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	route, ok := r.routes[routeID]
	if !ok {
		return domain.AssignedRoute{}, domain.ErrNotFound
	}
	return route, nil
}

func (r *memRouteRepo) ReorderStops(ctx context.Context, route domain.AssignedRoute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.routes[route.ID]; !ok {
		return domain.ErrNotFound
	}
	r.routes[route.ID] = route
	r.reordered++
	return nil
}

func (r *memRouteRepo) ListActiveRoutes(ctx context.Context, planDate time.Time) ([]domain.AssignedRoute, error) {
	return nil, fmt.Errorf("not used")
}

func loc(id string, lat, lng float64) domain.Location {
	return domain.Location{ID: id, Name: id, Coordinates: domain.Coordinates{Lat: lat, Lng: lng}}
}

func customer(id string, lat, lng float64) domain.Customer {
	return domain.Customer{ID: id, Name: id, Coordinates: &domain.Coordinates{Lat: lat, Lng: lng}}
}
