package api

import (
	"field-route-service/internal/api/handlers"
	"field-route-service/internal/metrics"
	"field-route-service/internal/monitoring"
	"field-route-service/internal/ports"
	"field-route-service/internal/services"
	"net/http"
	"time"
)

// Deps are the collaborators the HTTP layer needs. Handlers only see ports
// and services, never concrete adapters.
type Deps struct {
	Customers ports.CustomerRepository
	Routes    ports.RouteRepository
	Visits    ports.VisitRepository
	Alerts    ports.AlertRepository
	Tracker   *monitoring.Tracker
	Monitor   *monitoring.Service
	Planner   func() *services.RoutePlanner
	MaxStops  func() int
	Metrics   *metrics.Registry
	Location  *time.Location
	Now       func() time.Time
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	customers := &handlers.CustomerHandler{Repo: d.Customers}
	routes := &handlers.RouteHandler{
		Customers: d.Customers,
		Routes:    d.Routes,
		Planner:   d.Planner,
		MaxStops:  d.MaxStops,
		Monitor:   d.Monitor,
		Location:  d.Location,
		Now:       d.Now,
	}
	tracking := &handlers.TrackingHandler{
		Tracker:   d.Tracker,
		Customers: d.Customers,
		Visits:    d.Visits,
		Now:       d.Now,
	}
	alerts := &handlers.AlertHandler{Repo: d.Alerts}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/metrics", handlers.Metrics(d.Metrics))
	mux.HandleFunc("/customers", customers.List)

	mux.HandleFunc("/routes/plan", routes.Plan)
	mux.HandleFunc("/routes/compare", routes.Compare)
	mux.HandleFunc("/routes/{id}", routes.Get)
	mux.HandleFunc("/routes/{id}/optimize", routes.Optimize)
	mux.HandleFunc("/routes/{id}/progress", routes.Progress)
	mux.HandleFunc("/routes/{id}/checks", routes.Checks)

	mux.HandleFunc("/agents/{id}/gps", tracking.RecordGPS)
	mux.HandleFunc("/agents/{id}/position", tracking.Position)
	mux.HandleFunc("/agents/{id}/visits", tracking.CheckIn)
	mux.HandleFunc("/visits/{id}/checkout", tracking.CheckOut)

	mux.HandleFunc("/alerts", alerts.List)
	mux.HandleFunc("/alerts/{id}/read", alerts.MarkRead)

	return requestIDMiddleware(loggingMiddleware(mux))
}
