package monitoring

import (
	"context"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/ports"
	"sync"
	"time"
)

var testNow = time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type memRouteRepo struct {
	mu      sync.Mutex
	routes  map[string]domain.AssignedRoute
	listErr error
}

func newMemRouteRepo(rs ...domain.AssignedRoute) *memRouteRepo {
	r := &memRouteRepo{routes: map[string]domain.AssignedRoute{}}
	for _, route := range rs {
		r.routes[route.ID] = route
	}
	return r
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
	return errors.New("not used")
}

func (r *memRouteRepo) ListActiveRoutes(ctx context.Context, planDate time.Time) ([]domain.AssignedRoute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []domain.AssignedRoute{}
	for _, route := range r.routes {
		out = append(out, route)
	}
	return out, nil
}

type memCustomerRepo struct {
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
	out := []domain.Customer{}
	for _, id := range ids {
		if c, ok := r.customers[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCustomerRepo) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return nil, errors.New("not used")
}

type memVisitRepo struct {
	mu     sync.Mutex
	visits []domain.Visit
	err    error
}

func (r *memVisitRepo) OpenVisit(ctx context.Context, agentID string) (*domain.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for i := len(r.visits) - 1; i >= 0; i-- {
		if v := r.visits[i]; v.AgentID == agentID && v.Open() {
			return &v, nil
		}
	}
	return nil, nil
}

func (r *memVisitRepo) AgentVisitsBetween(ctx context.Context, agentID string, from, to time.Time) ([]domain.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := []domain.Visit{}
	for _, v := range r.visits {
		if v.AgentID == agentID && !v.CheckInAt.Before(from) && v.CheckInAt.Before(to) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memVisitRepo) CustomerVisitsBetween(ctx context.Context, ids []string, from, to time.Time) ([]domain.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []domain.Visit{}
	for _, v := range r.visits {
		if want[v.CustomerID] && !v.CheckInAt.Before(from) && v.CheckInAt.Before(to) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memVisitRepo) CheckIn(ctx context.Context, v domain.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits = append(r.visits, v)
	return nil
}

func (r *memVisitRepo) CheckOut(ctx context.Context, visitID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.visits {
		if r.visits[i].ID == visitID && r.visits[i].Open() {
			if at.Before(r.visits[i].CheckInAt) {
				return domain.ErrInvalidInput
			}
			r.visits[i].CheckOutAt = &at
			r.visits[i].Status = domain.VisitCompleted
			return nil
		}
	}
	return domain.ErrNotFound
}

type memGpsRepo struct {
	mu      sync.Mutex
	latest  map[string]domain.GpsSample
	appends int
	err     error
}

func newMemGpsRepo(samples ...domain.GpsSample) *memGpsRepo {
	r := &memGpsRepo{latest: map[string]domain.GpsSample{}}
	for _, s := range samples {
		r.latest[s.AgentID] = s
	}
	return r
}

func (r *memGpsRepo) AppendSample(ctx context.Context, s domain.GpsSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.latest[s.AgentID] = s
	r.appends++
	return nil
}

func (r *memGpsRepo) LatestSample(ctx context.Context, agentID string) (*domain.GpsSample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	s, ok := r.latest[agentID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

type memPositionCache struct {
	mu     sync.Mutex
	latest map[string]domain.GpsSample
	err    error
}

func newMemPositionCache() *memPositionCache {
	return &memPositionCache{latest: map[string]domain.GpsSample{}}
}

func (c *memPositionCache) SetLatest(ctx context.Context, s domain.GpsSample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.latest[s.AgentID] = s
	return nil
}

func (c *memPositionCache) Latest(ctx context.Context, agentID string) (*domain.GpsSample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	s, ok := c.latest[agentID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

type memAlertRepo struct {
	mu        sync.Mutex
	alerts    []domain.Alert
	failTypes map[domain.AlertType]bool
}

func (r *memAlertRepo) CreateAlert(ctx context.Context, a domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failTypes[a.Type] {
		return errors.New("insert failed")
	}
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *memAlertRepo) ListAlerts(ctx context.Context, f ports.AlertFilter) ([]domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Alert(nil), r.alerts...), nil
}

func (r *memAlertRepo) MarkRead(ctx context.Context, alertID string) error {
	return errors.New("not used")
}

func (r *memAlertRepo) count(t domain.AlertType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.alerts {
		if a.Type == t {
			n++
		}
	}
	return n
}

type brokenSuppressor struct{}

func (brokenSuppressor) Acquire(ctx context.Context, key string, window time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func cust(id string, lat, lng float64) domain.Customer {
	return domain.Customer{ID: id, Name: "Customer " + id, Coordinates: &domain.Coordinates{Lat: lat, Lng: lng}}
}

func sample(agentID string, lat, lng float64, at time.Time) domain.GpsSample {
	return domain.GpsSample{AgentID: agentID, Coordinates: domain.Coordinates{Lat: lat, Lng: lng}, RecordedAt: at}
}

func ptrTime(t time.Time) *time.Time { return &t }

// route builds an active route for agent a1 with stops in the given order.
// arrivals[i] is the planned arrival of stop i; a zero time leaves it unset.
func route(id string, customerIDs []string, arrivals []time.Time) domain.AssignedRoute {
	stops := make([]domain.RouteStop, len(customerIDs))
	for i, c := range customerIDs {
		stops[i] = domain.RouteStop{RouteID: id, CustomerID: c, StopOrder: i + 1}
		if i < len(arrivals) && !arrivals[i].IsZero() {
			stops[i].PlannedArrival = ptrTime(arrivals[i])
		}
	}
	return domain.AssignedRoute{
		ID:       id,
		AgentID:  "a1",
		PlanDate: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC),
		Status:   domain.RouteStatusActive,
		Stops:    stops,
	}
}

type harness struct {
	routes    *memRouteRepo
	customers *memCustomerRepo
	visits    *memVisitRepo
	gps       *memGpsRepo
	alerts    *memAlertRepo
	svc       *Service
}

func newHarness(routes *memRouteRepo, customers *memCustomerRepo, gps *memGpsRepo, cooldown ports.AlertSuppressor) *harness {
	h := &harness{
		routes:    routes,
		customers: customers,
		visits:    &memVisitRepo{},
		gps:       gps,
		alerts:    &memAlertRepo{},
	}
	tracker := NewTracker(gps, h.visits, nil, time.Minute, nil).WithClock(fixedClock)
	h.svc = NewService(Deps{
		Routes:    routes,
		Customers: customers,
		Visits:    h.visits,
		Alerts:    h.alerts,
		Tracker:   tracker,
		Cooldown:  cooldown,
	}).WithClock(fixedClock)
	return h
}
