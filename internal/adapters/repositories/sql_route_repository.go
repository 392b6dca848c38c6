package repositories

import (
	"context"
	"database/sql"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/platform/obs"
	"fmt"
	"time"
)

const planDateLayout = "2006-01-02"

// SQL-backed implementation of the RouteRepository port.
type SQLRouteRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLRouteRepository(conn *sql.DB, dialect db.Dialect) *SQLRouteRepository {
	return &SQLRouteRepository{DB: conn, Dialect: dialect}
}

// Persist a route header and its stops in one transaction.
func (s *SQLRouteRepository) CreateRoute(ctx context.Context, route domain.AssignedRoute) (err error) {
	defer obs.Time(ctx, "routes.Create")(&err)

	if s.DB == nil {
		return errors.New("sql route repository: DB is nil")
	}
	if route.ID == "" || route.AgentID == "" {
		return fmt.Errorf("create route: %w: route id and agent id are required", domain.ErrInvalidInput)
	}
	if err := domain.ValidateStopOrder(route.Stops); err != nil {
		return fmt.Errorf("create route %s: %w", route.ID, err)
	}

	status := route.Status
	if status == "" {
		status = domain.RouteStatusActive
	}
	createdAt := route.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create route %s: begin tx: %w", route.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	query := s.Dialect.Rebind(`
	INSERT INTO routes (
		route_id,
		agent_id,
		plan_date,
		status,
		total_distance_km,
		estimated_minutes,
		efficiency_score,
		created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`)
	_, err = tx.ExecContext(ctx, query,
		route.ID,
		route.AgentID,
		route.PlanDate.Format(planDateLayout),
		string(status),
		route.TotalDistanceKm,
		route.EstimatedMinutes,
		route.EfficiencyScore,
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create route %s: insert route: %w", route.ID, err)
	}

	if err := s.insertStops(ctx, tx, route.ID, route.Stops); err != nil {
		return fmt.Errorf("create route %s: %w", route.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create route %s: commit tx: %w", route.ID, err)
	}
	return nil
}

// Fetch a route header with its stops.
func (s *SQLRouteRepository) GetRoute(ctx context.Context, routeID string) (_ domain.AssignedRoute, err error) {
	defer obs.Time(ctx, "routes.Get")(&err)

	if s.DB == nil {
		return domain.AssignedRoute{}, errors.New("sql route repository: DB is nil")
	}

	query := s.Dialect.Rebind(`
	SELECT
		route_id,
		agent_id,
		plan_date,
		status,
		total_distance_km,
		estimated_minutes,
		efficiency_score,
		created_at
	FROM routes
	WHERE route_id = $1;
	`)
	route, err := scanRoute(s.DB.QueryRowContext(ctx, query, routeID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AssignedRoute{}, fmt.Errorf("get route %s: %w", routeID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.AssignedRoute{}, fmt.Errorf("get route %s: %w", routeID, err)
	}

	route.Stops, err = s.listStops(ctx, routeID)
	if err != nil {
		return domain.AssignedRoute{}, fmt.Errorf("get route %s: %w", routeID, err)
	}
	return route, nil
}

// Replace stops and metrics of an existing route.
func (s *SQLRouteRepository) ReorderStops(ctx context.Context, route domain.AssignedRoute) (err error) {
	defer obs.Time(ctx, "routes.ReorderStops")(&err)

	if s.DB == nil {
		return errors.New("sql route repository: DB is nil")
	}
	if err := domain.ValidateStopOrder(route.Stops); err != nil {
		return fmt.Errorf("reorder stops %s: %w", route.ID, err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reorder stops %s: begin tx: %w", route.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	update := s.Dialect.Rebind(`
	UPDATE routes
	SET total_distance_km = $1,
		estimated_minutes = $2,
		efficiency_score = $3
	WHERE route_id = $4;
	`)
	res, err := tx.ExecContext(ctx, update, route.TotalDistanceKm, route.EstimatedMinutes, route.EfficiencyScore, route.ID)
	if err != nil {
		return fmt.Errorf("reorder stops %s: update route: %w", route.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("reorder stops %s: %w", route.ID, domain.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, s.Dialect.Rebind(`DELETE FROM route_stops WHERE route_id = $1;`), route.ID); err != nil {
		return fmt.Errorf("reorder stops %s: delete stops: %w", route.ID, err)
	}

	if err := s.insertStops(ctx, tx, route.ID, route.Stops); err != nil {
		return fmt.Errorf("reorder stops %s: %w", route.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reorder stops %s: commit tx: %w", route.ID, err)
	}
	return nil
}

// Return active routes for the calendar day of planDate, with stops.
func (s *SQLRouteRepository) ListActiveRoutes(ctx context.Context, planDate time.Time) (_ []domain.AssignedRoute, err error) {
	defer obs.Time(ctx, "routes.ListActive")(&err)

	if s.DB == nil {
		return nil, errors.New("sql route repository: DB is nil")
	}

	query := s.Dialect.Rebind(`
	SELECT
		route_id,
		agent_id,
		plan_date,
		status,
		total_distance_km,
		estimated_minutes,
		efficiency_score,
		created_at
	FROM routes
	WHERE plan_date = $1
		AND status = $2
	ORDER BY agent_id, created_at;
	`)
	rows, err := s.DB.QueryContext(ctx, query, planDate.Format(planDateLayout), string(domain.RouteStatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active routes: query routes table: %w", err)
	}

	routes := []domain.AssignedRoute{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("list active routes: scan row: %w", err)
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list active routes: row iteration: %w", err)
	}
	rows.Close()

	// Stops are loaded after the header cursor is closed; sqlite runs on one connection.
	for i := range routes {
		routes[i].Stops, err = s.listStops(ctx, routes[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list active routes: %w", err)
		}
	}

	return routes, nil
}

func (s *SQLRouteRepository) insertStops(ctx context.Context, tx *sql.Tx, routeID string, stops []domain.RouteStop) error {
	if len(stops) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, s.Dialect.Rebind(`
	INSERT INTO route_stops (
		route_id,
		customer_id,
		stop_order,
		planned_arrival
	)
	VALUES ($1, $2, $3, $4);
	`))
	if err != nil {
		return fmt.Errorf("prepare stop insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stops {
		if _, err := stmt.ExecContext(ctx, routeID, st.CustomerID, st.StopOrder, nullTime(st.PlannedArrival)); err != nil {
			return fmt.Errorf("insert stop %d: %w", st.StopOrder, err)
		}
	}
	return nil
}

func (s *SQLRouteRepository) listStops(ctx context.Context, routeID string) ([]domain.RouteStop, error) {
	query := s.Dialect.Rebind(`
	SELECT
		customer_id,
		stop_order,
		planned_arrival
	FROM route_stops
	WHERE route_id = $1
	ORDER BY stop_order;
	`)
	rows, err := s.DB.QueryContext(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("list stops: query route_stops table: %w", err)
	}
	defer rows.Close()

	stops := []domain.RouteStop{}
	for rows.Next() {
		st := domain.RouteStop{RouteID: routeID}
		var arrival sql.NullTime
		if err := rows.Scan(&st.CustomerID, &st.StopOrder, &arrival); err != nil {
			return nil, fmt.Errorf("list stops: scan row: %w", err)
		}
		st.PlannedArrival = timePtr(arrival)
		stops = append(stops, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stops: row iteration: %w", err)
	}
	return stops, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (domain.AssignedRoute, error) {
	var (
		r        domain.AssignedRoute
		planDate string
		status   string
	)
	err := row.Scan(
		&r.ID,
		&r.AgentID,
		&planDate,
		&status,
		&r.TotalDistanceKm,
		&r.EstimatedMinutes,
		&r.EfficiencyScore,
		&r.CreatedAt,
	)
	if err != nil {
		return domain.AssignedRoute{}, err
	}

	r.PlanDate, err = time.Parse(planDateLayout, planDate)
	if err != nil {
		return domain.AssignedRoute{}, fmt.Errorf("parse plan_date %q: %w", planDate, err)
	}
	r.Status = domain.RouteStatus(status)
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}
