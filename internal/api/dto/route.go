package dto

import "time"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type PlanRoutesRequest struct {
	AgentID          string       `json:"agent_id"`
	CustomerIDs      []string     `json:"customer_ids"`
	Origin           *Coordinates `json:"origin"`
	Method           string       `json:"method"`
	MaxStopsPerRoute *int         `json:"max_stops_per_route"`
	PlanDate         string       `json:"plan_date"`
	DepartAt         *time.Time   `json:"depart_at"`
}

type LocationRequest struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Lat                float64    `json:"lat"`
	Lng                float64    `json:"lng"`
	VisitMinutes       int        `json:"visit_minutes"`
	Priority           int        `json:"priority"`
	LastVisitAt        *time.Time `json:"last_visit_at"`
	VisitFrequencyDays int        `json:"visit_frequency_days"`
	AvgOrderValue      float64    `json:"avg_order_value"`
}

type CompareRoutesRequest struct {
	Locations []LocationRequest `json:"locations"`
	Origin    *Coordinates      `json:"origin"`
	Method    string            `json:"method"`
}

type OptimizeRouteRequest struct {
	Origin   *Coordinates `json:"origin"`
	DepartAt *time.Time   `json:"depart_at"`
}

type RouteLocationResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	VisitMinutes int     `json:"visit_minutes"`
}

type RouteResponse struct {
	RouteID          string                  `json:"route_id"`
	TotalDistanceKm  float64                 `json:"total_distance_km"`
	EstimatedMinutes float64                 `json:"estimated_minutes"`
	EfficiencyScore  float64                 `json:"efficiency_score"`
	Stops            []RouteLocationResponse `json:"stops"`
}

type ComparisonResponse struct {
	DistanceSavedKm   float64 `json:"distance_saved_km"`
	TimeSavedMinutes  float64 `json:"time_saved_minutes"`
	EfficiencyGainPct float64 `json:"efficiency_gain_pct"`
}

type RouteStopResponse struct {
	CustomerID     string     `json:"customer_id"`
	StopOrder      int        `json:"stop_order"`
	PlannedArrival *time.Time `json:"planned_arrival"`
}

type PlannedRouteResponse struct {
	Route      RouteResponse       `json:"route"`
	Original   RouteResponse       `json:"original"`
	Comparison ComparisonResponse  `json:"comparison"`
	Stops      []RouteStopResponse `json:"stops"`
	Persisted  bool                `json:"persisted"`
}

type PlanRoutesResponse struct {
	Routes    []PlannedRouteResponse `json:"routes"`
	Unlocated []string               `json:"unlocated"`
	Message   string                 `json:"message,omitempty"`
}

type CompareRoutesResponse struct {
	Original   RouteResponse      `json:"original"`
	Optimized  RouteResponse      `json:"optimized"`
	Comparison ComparisonResponse `json:"comparison"`
}

type AssignedRouteResponse struct {
	RouteID          string              `json:"route_id"`
	AgentID          string              `json:"agent_id"`
	PlanDate         string              `json:"plan_date"`
	Status           string              `json:"status"`
	TotalDistanceKm  float64             `json:"total_distance_km"`
	EstimatedMinutes float64             `json:"estimated_minutes"`
	EfficiencyScore  float64             `json:"efficiency_score"`
	Stops            []RouteStopResponse `json:"stops"`
	CreatedAt        time.Time           `json:"created_at"`
}

type StopProgressResponse struct {
	CustomerID     string       `json:"customer_id"`
	Name           string       `json:"name"`
	StopOrder      int          `json:"stop_order"`
	PlannedArrival *time.Time   `json:"planned_arrival"`
	Coordinates    *Coordinates `json:"coordinates"`
	Status         string       `json:"status"`
	DistanceMeters *float64     `json:"distance_meters"`
}

type RouteProgressResponse struct {
	RouteID   string                 `json:"route_id"`
	AgentID   string                 `json:"agent_id"`
	Position  *PositionResponse      `json:"position"`
	Stops     []StopProgressResponse `json:"stops"`
	Completed int                    `json:"completed"`
	Active    int                    `json:"active"`
	Pending   int                    `json:"pending"`
}
