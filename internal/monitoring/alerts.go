package monitoring

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/events"
	"field-route-service/internal/geo"
	"field-route-service/internal/metrics"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Deps struct {
	Routes    ports.RouteRepository
	Customers ports.CustomerRepository
	Visits    ports.VisitRepository
	Alerts    ports.AlertRepository
	Tracker   *Tracker
	// Optional. Without a suppressor every detection creates an alert.
	Cooldown ports.AlertSuppressor
	// Optional. Without a bus alerts are stored but nobody is notified.
	Bus        *events.Bus
	Metrics    *metrics.Registry
	Thresholds func() Thresholds
	Location   *time.Location
}

// Service runs the live checks for an agent's assigned route and records
// the alerts they raise.
type Service struct {
	routes     ports.RouteRepository
	customers  ports.CustomerRepository
	visits     ports.VisitRepository
	alerts     ports.AlertRepository
	tracker    *Tracker
	cooldown   ports.AlertSuppressor
	bus        *events.Bus
	metrics    *metrics.Registry
	thresholds func() Thresholds
	loc        *time.Location
	now        func() time.Time
}

func NewService(d Deps) *Service {
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Thresholds == nil {
		d.Thresholds = StaticThresholds(DefaultThresholds())
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &Service{
		routes:     d.Routes,
		customers:  d.Customers,
		visits:     d.Visits,
		alerts:     d.Alerts,
		tracker:    d.Tracker,
		cooldown:   d.Cooldown,
		bus:        d.Bus,
		metrics:    d.Metrics,
		thresholds: d.Thresholds,
		loc:        d.Location,
		now:        time.Now,
	}
}

// WithClock returns a copy of the service that reads time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Service) Classifier() StopClassifier {
	return StopClassifier{ProximityMeters: s.thresholds().ProximityMeters, Location: s.loc}
}

// routeView is one consistent-enough read of a route for a single check pass.
type routeView struct {
	route     domain.AssignedRoute
	customers map[string]domain.Customer
	now       time.Time
	dayStart  time.Time
	dayEnd    time.Time
	th        Thresholds
}

func (s *Service) loadRoute(ctx context.Context, agentID, routeID string) (routeView, error) {
	route, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return routeView{}, fmt.Errorf("load route %s: %w", routeID, err)
	}
	if agentID != "" && route.AgentID != agentID {
		return routeView{}, fmt.Errorf("load route %s: %w: route is assigned to another agent", routeID, domain.ErrInvalidInput)
	}

	customers := map[string]domain.Customer{}
	if ids := route.CustomerIDs(); len(ids) > 0 {
		found, err := s.customers.GetCustomers(ctx, ids)
		if err != nil {
			return routeView{}, fmt.Errorf("load route %s: customers: %w", routeID, err)
		}
		for _, c := range found {
			customers[c.ID] = c
		}
	}

	now := s.now()
	start, end := dayBounds(now, s.loc)
	return routeView{
		route:     route,
		customers: customers,
		now:       now,
		dayStart:  start,
		dayEnd:    end,
		th:        s.thresholds(),
	}, nil
}

func (v routeView) stopName(stop domain.RouteStop) string {
	if c, ok := v.customers[stop.CustomerID]; ok && c.Name != "" {
		return c.Name
	}
	return stop.CustomerID
}

// CheckRouteDeviation alerts when the agent's live position is farther than
// the deviation threshold from every located stop on the route.
func (s *Service) CheckRouteDeviation(ctx context.Context, agentID, routeID string) (_ *domain.Alert, err error) {
	defer obs.Time(ctx, "monitoring.CheckRouteDeviation")(&err)

	v, err := s.loadRoute(ctx, agentID, routeID)
	if err != nil {
		return nil, fmt.Errorf("check route deviation: %w", err)
	}
	pos, err := s.tracker.CurrentPosition(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("check route deviation: %w", err)
	}
	return s.checkDeviation(ctx, agentID, v, pos)
}

func (s *Service) checkDeviation(ctx context.Context, agentID string, v routeView, pos *domain.GpsSample) (*domain.Alert, error) {
	if pos == nil {
		return nil, nil
	}

	minDist := math.Inf(1)
	var nearest domain.RouteStop
	for _, stop := range v.route.Stops {
		c, ok := v.customers[stop.CustomerID]
		if !ok || c.Coordinates == nil {
			continue
		}
		if d := geo.DistanceMeters(pos.Coordinates, *c.Coordinates); d < minDist {
			minDist = d
			nearest = stop
		}
	}

	if math.IsInf(minDist, 1) || minDist <= v.th.DeviationMeters {
		return nil, nil
	}

	severity := domain.SeverityMedium
	if minDist > v.th.DeviationHighMeters {
		severity = domain.SeverityHigh
	}

	name := v.stopName(nearest)
	a := domain.Alert{
		AgentID:  agentID,
		RouteID:  v.route.ID,
		Type:     domain.AlertRouteDeviation,
		Severity: severity,
		Message:  fmt.Sprintf("Agent is %.0f m from the nearest planned stop (%s)", minDist, name),
		Metadata: map[string]any{
			"distance_meters":     math.Round(minDist),
			"nearest_stop":        name,
			"nearest_customer_id": nearest.CustomerID,
			"lat":                 pos.Coordinates.Lat,
			"lng":                 pos.Coordinates.Lng,
			"virtual":             pos.IsVirtual,
			"stale":               pos.Stale,
		},
	}
	return s.raise(ctx, a, cooldownKey(agentID, v.route.ID, domain.AlertRouteDeviation, ""))
}

// CheckRouteDelay returns one alert per stop that is past its planned
// arrival by more than the delay threshold and has no completed visit today.
func (s *Service) CheckRouteDelay(ctx context.Context, agentID, routeID string) (_ []domain.Alert, err error) {
	defer obs.Time(ctx, "monitoring.CheckRouteDelay")(&err)

	v, err := s.loadRoute(ctx, agentID, routeID)
	if err != nil {
		return nil, fmt.Errorf("check route delay: %w", err)
	}
	pos, err := s.tracker.CurrentPosition(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("check route delay: %w", err)
	}
	visits, err := s.routeVisitsToday(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("check route delay: %w", err)
	}
	return s.checkDelay(ctx, agentID, v, pos, visits)
}

func (s *Service) checkDelay(
	ctx context.Context,
	agentID string,
	v routeView,
	pos *domain.GpsSample,
	visits []domain.Visit,
) ([]domain.Alert, error) {
	raised := []domain.Alert{}
	if pos == nil {
		return raised, nil
	}

	completed := map[string]bool{}
	for _, visit := range visits {
		if visit.Completed() {
			completed[visit.CustomerID] = true
		}
	}

	var errs []error
	for _, stop := range v.route.Stops {
		if stop.PlannedArrival == nil {
			continue
		}
		late := v.now.Sub(*stop.PlannedArrival).Minutes()
		if late <= v.th.DelayMinutes || completed[stop.CustomerID] {
			continue
		}

		severity := domain.SeverityMedium
		if late > v.th.DelayHighMinutes {
			severity = domain.SeverityHigh
		}

		name := v.stopName(stop)
		a := domain.Alert{
			AgentID:  agentID,
			RouteID:  v.route.ID,
			Type:     domain.AlertSignificantDelay,
			Severity: severity,
			Message:  fmt.Sprintf("Stop %d (%s) is %.0f minutes past its planned arrival", stop.StopOrder, name, late),
			Metadata: map[string]any{
				"minutes_late":    math.Round(late),
				"customer_id":     stop.CustomerID,
				"stop_name":       name,
				"stop_order":      stop.StopOrder,
				"planned_arrival": stop.PlannedArrival.UTC().Format(time.RFC3339),
			},
		}
		created, err := s.raise(ctx, a, cooldownKey(agentID, v.route.ID, domain.AlertSignificantDelay, stop.CustomerID))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if created != nil {
			raised = append(raised, *created)
		}
	}
	return raised, errors.Join(errs...)
}

// CheckExtendedVisit alerts when the agent's open visit has lasted longer
// than the extended-visit threshold; twice the threshold is high severity.
func (s *Service) CheckExtendedVisit(ctx context.Context, agentID, routeID string) (_ *domain.Alert, err error) {
	defer obs.Time(ctx, "monitoring.CheckExtendedVisit")(&err)

	v, err := s.loadRoute(ctx, agentID, routeID)
	if err != nil {
		return nil, fmt.Errorf("check extended visit: %w", err)
	}
	return s.checkExtendedVisit(ctx, agentID, v)
}

func (s *Service) checkExtendedVisit(ctx context.Context, agentID string, v routeView) (*domain.Alert, error) {
	if v.th.ExtendedVisitMinutes <= 0 {
		return nil, nil
	}

	open, err := s.visits.OpenVisit(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("check extended visit: open visit: %w", err)
	}
	if open == nil {
		return nil, nil
	}

	minutes := v.now.Sub(open.CheckInAt).Minutes()
	if minutes <= v.th.ExtendedVisitMinutes {
		return nil, nil
	}

	severity := domain.SeverityMedium
	if minutes > 2*v.th.ExtendedVisitMinutes {
		severity = domain.SeverityHigh
	}

	name := open.CustomerID
	if c, ok := v.customers[open.CustomerID]; ok && c.Name != "" {
		name = c.Name
	}

	a := domain.Alert{
		AgentID:  agentID,
		RouteID:  v.route.ID,
		Type:     domain.AlertExtendedVisit,
		Severity: severity,
		Message:  fmt.Sprintf("Visit at %s has lasted %.0f minutes", name, minutes),
		Metadata: map[string]any{
			"visit_id":      open.ID,
			"customer_id":   open.CustomerID,
			"visit_minutes": math.Round(minutes),
			"check_in_at":   open.CheckInAt.UTC().Format(time.RFC3339),
		},
	}
	return s.raise(ctx, a, cooldownKey(agentID, v.route.ID, domain.AlertExtendedVisit, open.CustomerID))
}

// CheckMissedStops alerts for stops whose planned arrival has passed with no
// visit today while a later stop on the route has already been visited.
func (s *Service) CheckMissedStops(ctx context.Context, agentID, routeID string) (_ []domain.Alert, err error) {
	defer obs.Time(ctx, "monitoring.CheckMissedStops")(&err)

	v, err := s.loadRoute(ctx, agentID, routeID)
	if err != nil {
		return nil, fmt.Errorf("check missed stops: %w", err)
	}
	visits, err := s.routeVisitsToday(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("check missed stops: %w", err)
	}
	return s.checkMissed(ctx, agentID, v, visits)
}

func (s *Service) checkMissed(ctx context.Context, agentID string, v routeView, visits []domain.Visit) ([]domain.Alert, error) {
	raised := []domain.Alert{}

	visited := map[string]bool{}
	for _, visit := range visits {
		visited[visit.CustomerID] = true
	}

	lastVisited := -1
	for i, stop := range v.route.Stops {
		if visited[stop.CustomerID] {
			lastVisited = i
		}
	}

	var errs []error
	for i := 0; i < lastVisited; i++ {
		stop := v.route.Stops[i]
		if visited[stop.CustomerID] || stop.PlannedArrival == nil || !stop.PlannedArrival.Before(v.now) {
			continue
		}

		name := v.stopName(stop)
		a := domain.Alert{
			AgentID:  agentID,
			RouteID:  v.route.ID,
			Type:     domain.AlertMissedStop,
			Severity: domain.SeverityLow,
			Message:  fmt.Sprintf("Stop %d (%s) was skipped", stop.StopOrder, name),
			Metadata: map[string]any{
				"customer_id":     stop.CustomerID,
				"stop_name":       name,
				"stop_order":      stop.StopOrder,
				"planned_arrival": stop.PlannedArrival.UTC().Format(time.RFC3339),
			},
		}
		created, err := s.raise(ctx, a, cooldownKey(agentID, v.route.ID, domain.AlertMissedStop, stop.CustomerID))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if created != nil {
			raised = append(raised, *created)
		}
	}
	return raised, errors.Join(errs...)
}

// RunChecks runs every check against one read of the route. A failing check
// does not prevent the others; their errors are joined.
func (s *Service) RunChecks(ctx context.Context, agentID, routeID string) (_ []domain.Alert, err error) {
	defer obs.Time(ctx, "monitoring.RunChecks")(&err)

	v, err := s.loadRoute(ctx, agentID, routeID)
	if err != nil {
		return nil, fmt.Errorf("run checks: %w", err)
	}

	raised := []domain.Alert{}
	var errs []error

	pos, posErr := s.tracker.CurrentPosition(ctx, agentID)
	if posErr != nil {
		errs = append(errs, posErr)
	} else if a, err := s.checkDeviation(ctx, agentID, v, pos); err != nil {
		errs = append(errs, err)
	} else if a != nil {
		raised = append(raised, *a)
	}

	visits, visitErr := s.routeVisitsToday(ctx, v)
	if visitErr != nil {
		errs = append(errs, visitErr)
	}

	if posErr == nil && visitErr == nil {
		delayed, err := s.checkDelay(ctx, agentID, v, pos, visits)
		raised = append(raised, delayed...)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if a, err := s.checkExtendedVisit(ctx, agentID, v); err != nil {
		errs = append(errs, err)
	} else if a != nil {
		raised = append(raised, *a)
	}

	if visitErr == nil {
		missed, err := s.checkMissed(ctx, agentID, v, visits)
		raised = append(raised, missed...)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return raised, fmt.Errorf("run checks agent=%s route=%s: %w", agentID, routeID, err)
	}
	return raised, nil
}

// routeVisitsToday returns today's visits by any agent to the route's customers.
func (s *Service) routeVisitsToday(ctx context.Context, v routeView) ([]domain.Visit, error) {
	ids := v.route.CustomerIDs()
	if len(ids) == 0 {
		return []domain.Visit{}, nil
	}
	visits, err := s.visits.CustomerVisitsBetween(ctx, ids, v.dayStart, v.dayEnd)
	if err != nil {
		return nil, fmt.Errorf("visits today: %w", err)
	}
	return visits, nil
}

func cooldownKey(agentID, routeID string, t domain.AlertType, customerID string) string {
	parts := []string{"alert", "cooldown", agentID, routeID, string(t)}
	if customerID != "" {
		parts = append(parts, customerID)
	}
	return strings.Join(parts, ":")
}

// raise gates the alert through the cooldown, stores it and publishes it.
// It returns nil without error when the cooldown suppresses the alert.
func (s *Service) raise(ctx context.Context, a domain.Alert, key string) (*domain.Alert, error) {
	if window := s.thresholds().Cooldown; s.cooldown != nil && window > 0 {
		ok, err := s.cooldown.Acquire(ctx, key, window)
		switch {
		case err != nil:
			log.Printf("alert cooldown key=%s failed, raising anyway: %v", key, err)
		case !ok:
			s.metrics.AlertsSuppressed.Inc()
			return nil, nil
		}
	}

	a.ID = uuid.NewString()
	a.CreatedAt = s.now().UTC()
	if err := s.alerts.CreateAlert(ctx, a); err != nil {
		return nil, fmt.Errorf("raise %s alert for %s: %w", a.Type, a.AgentID, err)
	}
	s.metrics.AlertsRaised.Inc()

	if s.bus != nil {
		s.bus.Publish(events.AlertCreated{Alert: a})
	}
	return &a, nil
}
