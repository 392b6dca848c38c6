package repositories

import (
	"context"
	"database/sql"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/ports"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.SQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := InitSchema(conn); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return conn
}

func TestSeedAndGetCustomers(t *testing.T) {
	conn := openTestDB(t)
	seed := filepath.Join(t.TempDir(), "customers.json")
	data := `[
		{"customer_id": "c1", "name": "Bakery", "lat": "40.4168", "lng": "-3.7038", "visit_minutes": 20, "avg_order_value": 150.5},
		{"customer_id": "c2", "name": "Kiosk", "lat": 40.42, "lng": -3.71, "priority": 3, "last_visit_at": "2026-05-01T10:00:00Z"},
		{"customer_id": "c3", "name": "Unmapped", "lat": "", "lng": null}
	]`
	if err := os.WriteFile(seed, []byte(data), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	if err := SeedCustomersFromJSON(conn, db.SQLite, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Seeding twice upserts instead of failing.
	if err := SeedCustomersFromJSON(conn, db.SQLite, seed); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	repo := NewSQLCustomerRepository(conn, db.SQLite)
	got, err := repo.GetCustomers(context.Background(), []string{"c3", "missing", "c1", "c2"})
	if err != nil {
		t.Fatalf("get customers: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 customers, got %d", len(got))
	}
	if got[0].ID != "c3" || got[1].ID != "c1" || got[2].ID != "c2" {
		t.Fatalf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[0].Coordinates != nil {
		t.Fatalf("expected unmapped customer without coordinates, got %+v", got[0].Coordinates)
	}
	if got[1].Coordinates == nil || got[1].Coordinates.Lat != 40.4168 || got[1].VisitMinutes != 20 {
		t.Fatalf("unexpected c1: %+v", got[1])
	}
	if got[2].LastVisitAt == nil || !got[2].LastVisitAt.Equal(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected c2 last visit: %v", got[2].LastVisitAt)
	}

	all, err := repo.ListCustomers(context.Background())
	if err != nil || len(all) != 3 {
		t.Fatalf("list customers = %d, %v", len(all), err)
	}
}

func TestSeedRejectsHalfCoordinates(t *testing.T) {
	conn := openTestDB(t)
	seed := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(seed, []byte(`[{"customer_id":"x","name":"X","lat":1}]`), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	if err := SeedCustomersFromJSON(conn, db.SQLite, seed); err == nil {
		t.Fatal("expected error for lat without lng")
	}
}

func TestRouteRepositoryRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	repo := NewSQLRouteRepository(conn, db.SQLite)
	ctx := context.Background()

	day := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	arrival := time.Date(2026, 6, 2, 9, 15, 0, 0, time.UTC)
	route := domain.AssignedRoute{
		ID:               "r1",
		AgentID:          "agent-1",
		PlanDate:         day,
		TotalDistanceKm:  12.5,
		EstimatedMinutes: 115,
		EfficiencyScore:  80,
		Stops: domain.NumberStops("r1", []domain.Location{{ID: "c1"}, {ID: "c2"}},
			[]time.Time{arrival, arrival.Add(time.Hour)}),
		CreatedAt: day.Add(7 * time.Hour),
	}

	if err := repo.CreateRoute(ctx, route); err != nil {
		t.Fatalf("create route: %v", err)
	}

	got, err := repo.GetRoute(ctx, "r1")
	if err != nil {
		t.Fatalf("get route: %v", err)
	}
	if got.AgentID != "agent-1" || got.Status != domain.RouteStatusActive || !got.PlanDate.Equal(day) {
		t.Fatalf("unexpected header: %+v", got)
	}
	if len(got.Stops) != 2 || got.Stops[1].CustomerID != "c2" || got.Stops[1].StopOrder != 2 {
		t.Fatalf("unexpected stops: %+v", got.Stops)
	}
	if got.Stops[0].PlannedArrival == nil || !got.Stops[0].PlannedArrival.Equal(arrival) {
		t.Fatalf("arrival = %v, want %v", got.Stops[0].PlannedArrival, arrival)
	}

	route.Stops = domain.NumberStops("r1", []domain.Location{{ID: "c2"}, {ID: "c1"}, {ID: "c3"}}, nil)
	route.TotalDistanceKm = 9
	if err := repo.ReorderStops(ctx, route); err != nil {
		t.Fatalf("reorder stops: %v", err)
	}

	got, err = repo.GetRoute(ctx, "r1")
	if err != nil {
		t.Fatalf("get route: %v", err)
	}
	if len(got.Stops) != 3 || got.Stops[0].CustomerID != "c2" || got.TotalDistanceKm != 9 {
		t.Fatalf("reorder not applied: %+v", got)
	}

	active, err := repo.ListActiveRoutes(ctx, day.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || len(active[0].Stops) != 3 {
		t.Fatalf("unexpected active routes: %+v", active)
	}

	none, err := repo.ListActiveRoutes(ctx, day.Add(24*time.Hour))
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no routes next day, got %d, %v", len(none), err)
	}
}

func TestRouteRepositoryNotFound(t *testing.T) {
	conn := openTestDB(t)
	repo := NewSQLRouteRepository(conn, db.SQLite)

	if _, err := repo.GetRoute(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	err := repo.ReorderStops(context.Background(), domain.AssignedRoute{ID: "nope"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on reorder, got %v", err)
	}
}

func TestRouteRepositoryRejectsBadStopOrder(t *testing.T) {
	conn := openTestDB(t)
	repo := NewSQLRouteRepository(conn, db.SQLite)

	err := repo.CreateRoute(context.Background(), domain.AssignedRoute{
		ID:      "r1",
		AgentID: "a",
		Stops:   []domain.RouteStop{{CustomerID: "c1", StopOrder: 2}},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestVisitRepository(t *testing.T) {
	conn := openTestDB(t)
	repo := NewSQLVisitRepository(conn, db.SQLite)
	ctx := context.Background()

	morning := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
	dayStart := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)

	done := domain.Visit{ID: "v1", AgentID: "a1", CustomerID: "c1", CheckInAt: morning}
	open := domain.Visit{
		ID:         "v2",
		AgentID:    "a1",
		CustomerID: "c2",
		CheckInAt:  morning.Add(time.Hour),
		CheckIn:    &domain.Coordinates{Lat: 40.1, Lng: -3.2},
	}
	other := domain.Visit{ID: "v3", AgentID: "a2", CustomerID: "c1", CheckInAt: morning.Add(-24 * time.Hour)}

	for _, v := range []domain.Visit{done, open, other} {
		if err := repo.CheckIn(ctx, v); err != nil {
			t.Fatalf("check in %s: %v", v.ID, err)
		}
	}
	if err := repo.CheckOut(ctx, "v1", morning.Add(30*time.Minute)); err != nil {
		t.Fatalf("check out: %v", err)
	}
	if err := repo.CheckOut(ctx, "v1", morning.Add(40*time.Minute)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second checkout: expected ErrNotFound, got %v", err)
	}

	got, err := repo.OpenVisit(ctx, "a1")
	if err != nil {
		t.Fatalf("open visit: %v", err)
	}
	if got == nil || got.ID != "v2" || got.CheckIn == nil || got.CheckIn.Lat != 40.1 {
		t.Fatalf("unexpected open visit: %+v", got)
	}

	none, err := repo.OpenVisit(ctx, "nobody")
	if err != nil || none != nil {
		t.Fatalf("expected no open visit, got %+v, %v", none, err)
	}

	today, err := repo.AgentVisitsBetween(ctx, "a1", dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("agent visits: %v", err)
	}
	if len(today) != 2 || !today[0].Completed() || today[1].Completed() {
		t.Fatalf("unexpected visits: %+v", today)
	}

	byCustomer, err := repo.CustomerVisitsBetween(ctx, []string{"c1"}, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("customer visits: %v", err)
	}
	if len(byCustomer) != 1 || byCustomer[0].ID != "v1" {
		t.Fatalf("unexpected customer visits: %+v", byCustomer)
	}
}

func TestVisitRepositoryRejectsEarlyCheckOut(t *testing.T) {
	conn := openTestDB(t)
	repo := NewSQLVisitRepository(conn, db.SQLite)
	ctx := context.Background()

	at := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
	if err := repo.CheckIn(ctx, domain.Visit{ID: "v1", AgentID: "a1", CustomerID: "c1", CheckInAt: at}); err != nil {
		t.Fatalf("check in: %v", err)
	}

	if err := repo.CheckOut(ctx, "v1", at.Add(-time.Minute)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("check out before check in: expected ErrInvalidInput, got %v", err)
	}
	open, err := repo.OpenVisit(ctx, "a1")
	if err != nil || open == nil || open.ID != "v1" {
		t.Fatalf("visit should still be open, got %+v, %v", open, err)
	}

	if err := repo.CheckOut(ctx, "v1", at); err != nil {
		t.Fatalf("check out at check in time: %v", err)
	}
	if err := repo.CheckOut(ctx, "missing", at); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown visit: expected ErrNotFound, got %v", err)
	}
}

func TestGpsRepository(t *testing.T) {
	conn := openTestDB(t)
	repo := NewSQLGpsRepository(conn, db.SQLite)
	ctx := context.Background()

	if s, err := repo.LatestSample(ctx, "a1"); err != nil || s != nil {
		t.Fatalf("expected no sample, got %+v, %v", s, err)
	}

	base := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
	speed := 32.5
	samples := []domain.GpsSample{
		{AgentID: "a1", Coordinates: domain.Coordinates{Lat: 1, Lng: 1}, RecordedAt: base},
		{AgentID: "a1", Coordinates: domain.Coordinates{Lat: 2, Lng: 2}, RecordedAt: base.Add(time.Minute), SpeedKmh: &speed},
		{AgentID: "a2", Coordinates: domain.Coordinates{Lat: 3, Lng: 3}, RecordedAt: base.Add(time.Hour)},
	}
	for _, s := range samples {
		if err := repo.AppendSample(ctx, s); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	latest, err := repo.LatestSample(ctx, "a1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Coordinates.Lat != 2 || latest.SpeedKmh == nil || *latest.SpeedKmh != speed {
		t.Fatalf("unexpected latest sample: %+v", latest)
	}
	if !latest.RecordedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("recorded_at = %v", latest.RecordedAt)
	}

	err = repo.AppendSample(ctx, domain.GpsSample{AgentID: "a1", IsVirtual: true, RecordedAt: base})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected virtual sample rejection, got %v", err)
	}
}

func TestAlertRepository(t *testing.T) {
	conn := openTestDB(t)
	repo := NewSQLAlertRepository(conn, db.SQLite)
	ctx := context.Background()

	base := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
	alerts := []domain.Alert{
		{
			ID: "al1", AgentID: "a1", RouteID: "r1", Type: domain.AlertRouteDeviation, Severity: domain.SeverityHigh,
			Message: "off route", Metadata: map[string]any{"distance_meters": 1200.0}, CreatedAt: base,
		},
		{
			ID: "al2", AgentID: "a1", Type: domain.AlertExtendedVisit, Severity: domain.SeverityMedium,
			Message: "long visit", CreatedAt: base.Add(time.Minute),
		},
		{
			ID: "al3", AgentID: "a2", RouteID: "r2", Type: domain.AlertSignificantDelay, Severity: domain.SeverityMedium,
			Message: "late", CreatedAt: base.Add(2 * time.Minute),
		},
	}
	for _, a := range alerts {
		if err := repo.CreateAlert(ctx, a); err != nil {
			t.Fatalf("create alert %s: %v", a.ID, err)
		}
	}

	got, err := repo.ListAlerts(ctx, ports.AlertFilter{AgentID: "a1"})
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(got) != 2 || got[0].ID != "al2" || got[1].ID != "al1" {
		t.Fatalf("unexpected alerts: %+v", got)
	}
	if got[0].RouteID != "" {
		t.Fatalf("expected empty route id, got %q", got[0].RouteID)
	}
	if d, ok := got[1].Metadata["distance_meters"].(float64); !ok || d != 1200 {
		t.Fatalf("unexpected metadata: %+v", got[1].Metadata)
	}

	if err := repo.MarkRead(ctx, "al1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := repo.MarkRead(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	unread, err := repo.ListAlerts(ctx, ports.AlertFilter{UnreadOnly: true, Limit: 10})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 2 {
		t.Fatalf("expected 2 unread alerts, got %d", len(unread))
	}
	for _, a := range unread {
		if a.ID == "al1" || a.Read {
			t.Fatalf("read alert listed as unread: %+v", a)
		}
	}
}
