package handlers

import (
	"field-route-service/internal/api/dto"
	"field-route-service/internal/domain"
	"field-route-service/internal/services"
)

func coordinatesFromDTO(c *dto.Coordinates) *domain.Coordinates {
	if c == nil {
		return nil
	}
	return &domain.Coordinates{Lat: c.Lat, Lng: c.Lng}
}

func coordinatesToDTO(c *domain.Coordinates) *dto.Coordinates {
	if c == nil {
		return nil
	}
	return &dto.Coordinates{Lat: c.Lat, Lng: c.Lng}
}

func routeToDTO(r domain.Route) dto.RouteResponse {
	stops := make([]dto.RouteLocationResponse, 0, len(r.Stops))
	for _, l := range r.Stops {
		stops = append(stops, dto.RouteLocationResponse{
			ID:           l.ID,
			Name:         l.Name,
			Lat:          l.Coordinates.Lat,
			Lng:          l.Coordinates.Lng,
			VisitMinutes: l.VisitMinutes,
		})
	}
	return dto.RouteResponse{
		RouteID:          r.ID,
		TotalDistanceKm:  r.TotalDistanceKm,
		EstimatedMinutes: r.EstimatedMinutes,
		EfficiencyScore:  r.EfficiencyScore,
		Stops:            stops,
	}
}

func comparisonToDTO(c services.RouteComparison) dto.ComparisonResponse {
	return dto.ComparisonResponse{
		DistanceSavedKm:   c.DistanceSavedKm,
		TimeSavedMinutes:  c.TimeSavedMinutes,
		EfficiencyGainPct: c.EfficiencyGainPct,
	}
}

func stopsToDTO(stops []domain.RouteStop) []dto.RouteStopResponse {
	out := make([]dto.RouteStopResponse, 0, len(stops))
	for _, s := range stops {
		out = append(out, dto.RouteStopResponse{
			CustomerID:     s.CustomerID,
			StopOrder:      s.StopOrder,
			PlannedArrival: s.PlannedArrival,
		})
	}
	return out
}

func plannedRouteToDTO(p services.PlannedRoute) dto.PlannedRouteResponse {
	return dto.PlannedRouteResponse{
		Route:      routeToDTO(p.Route),
		Original:   routeToDTO(p.Original),
		Comparison: comparisonToDTO(p.Comparison),
		Stops:      stopsToDTO(p.Stops),
		Persisted:  p.Persisted,
	}
}

func assignedRouteToDTO(r domain.AssignedRoute) dto.AssignedRouteResponse {
	return dto.AssignedRouteResponse{
		RouteID:          r.ID,
		AgentID:          r.AgentID,
		PlanDate:         r.PlanDate.Format(planDateLayout),
		Status:           string(r.Status),
		TotalDistanceKm:  r.TotalDistanceKm,
		EstimatedMinutes: r.EstimatedMinutes,
		EfficiencyScore:  r.EfficiencyScore,
		Stops:            stopsToDTO(r.Stops),
		CreatedAt:        r.CreatedAt,
	}
}

func positionToDTO(s *domain.GpsSample) *dto.PositionResponse {
	if s == nil {
		return nil
	}
	return &dto.PositionResponse{
		AgentID:    s.AgentID,
		Lat:        s.Coordinates.Lat,
		Lng:        s.Coordinates.Lng,
		RecordedAt: s.RecordedAt,
		SpeedKmh:   s.SpeedKmh,
		Heading:    s.Heading,
		AccuracyM:  s.AccuracyM,
		IsVirtual:  s.IsVirtual,
		Stale:      s.Stale,
	}
}

func visitToDTO(v domain.Visit) dto.VisitResponse {
	return dto.VisitResponse{
		VisitID:    v.ID,
		AgentID:    v.AgentID,
		CustomerID: v.CustomerID,
		CheckInAt:  v.CheckInAt,
		CheckOutAt: v.CheckOutAt,
		CheckIn:    coordinatesToDTO(v.CheckIn),
		Status:     string(v.Status),
	}
}

func alertToDTO(a domain.Alert) dto.AlertResponse {
	meta := a.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return dto.AlertResponse{
		AlertID:   a.ID,
		AgentID:   a.AgentID,
		RouteID:   a.RouteID,
		Type:      string(a.Type),
		Severity:  string(a.Severity),
		Message:   a.Message,
		Metadata:  meta,
		Read:      a.Read,
		CreatedAt: a.CreatedAt,
	}
}

func alertsToDTO(alerts []domain.Alert) []dto.AlertResponse {
	out := make([]dto.AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertToDTO(a))
	}
	return out
}
