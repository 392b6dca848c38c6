package handlers

import (
	"field-route-service/internal/api/dto"
	"field-route-service/internal/domain"
	"field-route-service/internal/monitoring"
	"field-route-service/internal/ports"
	"field-route-service/internal/services"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const planDateLayout = "2006-01-02"

type RouteHandler struct {
	Customers ports.CustomerRepository
	Routes    ports.RouteRepository
	// Planner returns the planner for the current tuning snapshot.
	Planner func() *services.RoutePlanner
	// MaxStops is the split size used when a request does not set one.
	MaxStops func() int
	Monitor  *monitoring.Service
	Location *time.Location
	Now      func() time.Time
}

func (h *RouteHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *RouteHandler) loc() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return time.UTC
}

// Plan builds optimized routes for a customer list and, when an agent is
// named, assigns them to that agent for the plan day.
func (h *RouteHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.PlanRoutesRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	method, err := services.ParseMethod(req.Method)
	if err != nil {
		writeServiceError(w, r, "plan routes", err)
		return
	}

	origin := coordinatesFromDTO(req.Origin)
	if origin != nil {
		if err := origin.Validate(); err != nil {
			writeServiceError(w, r, "plan routes", err)
			return
		}
	}

	maxStops := 0
	if h.MaxStops != nil {
		maxStops = h.MaxStops()
	}
	if req.MaxStopsPerRoute != nil {
		if *req.MaxStopsPerRoute < 1 {
			writeError(w, r, http.StatusBadRequest, "max_stops_per_route must be at least 1")
			return
		}
		maxStops = *req.MaxStopsPerRoute
	}

	var departAt time.Time
	if req.DepartAt != nil {
		departAt = *req.DepartAt
	}

	planDate := departAt
	if planDate.IsZero() {
		planDate = h.now()
	}
	planDate = planDate.In(h.loc())
	if s := strings.TrimSpace(req.PlanDate); s != "" {
		planDate, err = time.ParseInLocation(planDateLayout, s, h.loc())
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "plan_date must be formatted as YYYY-MM-DD")
			return
		}
	}

	svcReq := services.PlanRoutesRequest{
		AgentID:          strings.TrimSpace(req.AgentID),
		CustomerIDs:      req.CustomerIDs,
		Origin:           origin,
		Method:           method,
		MaxStopsPerRoute: maxStops,
		PlanDate:         planDate,
		DepartAt:         departAt,
	}

	out, err := services.PlanRoutes(r.Context(), svcReq, h.Planner(), h.Customers, h.Routes)
	if err != nil {
		writeServiceError(w, r, "plan routes", err)
		return
	}

	res := dto.PlanRoutesResponse{
		Routes:    make([]dto.PlannedRouteResponse, 0, len(out.Routes)),
		Unlocated: out.Unlocated,
	}
	for _, p := range out.Routes {
		res.Routes = append(res.Routes, plannedRouteToDTO(p))
	}
	if len(out.Routes) == 0 {
		res.Message = "nothing to optimize"
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Compare orders an ad-hoc location list and reports the savings over
// visiting it in the given order. Nothing is persisted.
func (h *RouteHandler) Compare(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.CompareRoutesRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	method, err := services.ParseMethod(req.Method)
	if err != nil {
		writeServiceError(w, r, "compare routes", err)
		return
	}

	origin := coordinatesFromDTO(req.Origin)
	if origin != nil {
		if err := origin.Validate(); err != nil {
			writeServiceError(w, r, "compare routes", err)
			return
		}
	}

	locations := make([]domain.Location, 0, len(req.Locations))
	for i, l := range req.Locations {
		id := strings.TrimSpace(l.ID)
		if id == "" {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("locations[%d].id is required", i))
			return
		}
		c := domain.Coordinates{Lat: l.Lat, Lng: l.Lng}
		if err := c.Validate(); err != nil {
			writeServiceError(w, r, "compare routes", err)
			return
		}
		locations = append(locations, domain.Location{
			ID:                 id,
			Name:               l.Name,
			Coordinates:        c,
			VisitMinutes:       l.VisitMinutes,
			Priority:           l.Priority,
			LastVisitAt:        l.LastVisitAt,
			VisitFrequencyDays: l.VisitFrequencyDays,
			AvgOrderValue:      l.AvgOrderValue,
		})
	}

	planner := h.Planner()
	original := planner.NewRoute(locations)
	built, err := planner.BuildRoute(locations, origin, method)
	if err != nil {
		writeServiceError(w, r, "compare routes", err)
		return
	}
	optimized := planner.RefineRoute(built, planner.Config().MaxIterations)

	writeJSON(w, r, http.StatusOK, dto.CompareRoutesResponse{
		Original:   routeToDTO(original),
		Optimized:  routeToDTO(optimized),
		Comparison: comparisonToDTO(services.CompareRoutes(original, optimized)),
	})
}

// Get returns a persisted route with its stops.
func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	route, err := h.Routes.GetRoute(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "get route", err)
		return
	}

	writeJSON(w, r, http.StatusOK, assignedRouteToDTO(route))
}

// Optimize re-sequences the stops of a persisted route in place.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.OptimizeRouteRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	origin := coordinatesFromDTO(req.Origin)
	if origin != nil {
		if err := origin.Validate(); err != nil {
			writeServiceError(w, r, "optimize route", err)
			return
		}
	}

	svcReq := services.ReoptimizeRequest{RouteID: r.PathValue("id"), Origin: origin}
	if req.DepartAt != nil {
		svcReq.DepartAt = *req.DepartAt
	}

	out, err := services.ReoptimizeRoute(r.Context(), svcReq, h.Planner(), h.Customers, h.Routes)
	if err != nil {
		writeServiceError(w, r, "optimize route", err)
		return
	}

	writeJSON(w, r, http.StatusOK, plannedRouteToDTO(out))
}

// Progress reports the live status of every stop on a route.
func (h *RouteHandler) Progress(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	p, err := h.Monitor.RouteProgress(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "route progress", err)
		return
	}

	res := dto.RouteProgressResponse{
		RouteID:   p.Route.ID,
		AgentID:   p.Route.AgentID,
		Position:  positionToDTO(p.Position),
		Stops:     make([]dto.StopProgressResponse, 0, len(p.Stops)),
		Completed: p.Completed,
		Active:    p.Active,
		Pending:   p.Pending,
	}
	for _, s := range p.Stops {
		res.Stops = append(res.Stops, dto.StopProgressResponse{
			CustomerID:     s.Stop.CustomerID,
			Name:           s.CustomerName,
			StopOrder:      s.Stop.StopOrder,
			PlannedArrival: s.Stop.PlannedArrival,
			Coordinates:    coordinatesToDTO(s.Coordinates),
			Status:         string(s.Status),
			DistanceMeters: s.DistanceMeters,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Checks runs every live check for the route's agent right away.
func (h *RouteHandler) Checks(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	route, err := h.Routes.GetRoute(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "run checks", err)
		return
	}

	raised, err := h.Monitor.RunChecks(r.Context(), route.AgentID, route.ID)
	if err != nil {
		if len(raised) > 0 {
			log.Printf("run checks route=%s raised=%d before failing", route.ID, len(raised))
		}
		writeServiceError(w, r, "run checks", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ListAlertsResponse{Alerts: alertsToDTO(raised)})
}
