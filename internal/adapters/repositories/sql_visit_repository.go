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

// SQL-backed implementation of the VisitRepository port.
type SQLVisitRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLVisitRepository(conn *sql.DB, dialect db.Dialect) *SQLVisitRepository {
	return &SQLVisitRepository{DB: conn, Dialect: dialect}
}

const visitColumns = `
		visit_id,
		agent_id,
		customer_id,
		check_in_at,
		check_out_at,
		check_in_lat,
		check_in_lng,
		status`

// Return the agent's most recent visit that has not been checked out.
func (s *SQLVisitRepository) OpenVisit(ctx context.Context, agentID string) (_ *domain.Visit, err error) {
	defer obs.Time(ctx, "visits.Open")(&err)

	if s.DB == nil {
		return nil, errors.New("sql visit repository: DB is nil")
	}

	query := s.Dialect.Rebind(`SELECT` + visitColumns + `
	FROM visits
	WHERE agent_id = $1
		AND check_out_at IS NULL
		AND status = $2
	ORDER BY check_in_at DESC
	LIMIT 1;
	`)
	rows, err := s.DB.QueryContext(ctx, query, agentID, string(domain.VisitInProgress))
	if err != nil {
		return nil, fmt.Errorf("open visit for %s: query visits table: %w", agentID, err)
	}
	defer rows.Close()

	visits, err := scanVisits(rows, "open visit")
	if err != nil {
		return nil, err
	}
	if len(visits) == 0 {
		return nil, nil
	}
	return &visits[0], nil
}

func (s *SQLVisitRepository) AgentVisitsBetween(ctx context.Context, agentID string, from, to time.Time) (_ []domain.Visit, err error) {
	defer obs.Time(ctx, "visits.AgentBetween")(&err)

	if s.DB == nil {
		return nil, errors.New("sql visit repository: DB is nil")
	}

	query := s.Dialect.Rebind(`SELECT` + visitColumns + `
	FROM visits
	WHERE agent_id = $1
		AND check_in_at >= $2
		AND check_in_at < $3
	ORDER BY check_in_at;
	`)
	rows, err := s.DB.QueryContext(ctx, query, agentID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("agent visits for %s: query visits table: %w", agentID, err)
	}
	defer rows.Close()

	return scanVisits(rows, "agent visits")
}

func (s *SQLVisitRepository) CustomerVisitsBetween(ctx context.Context, customerIDs []string, from, to time.Time) (_ []domain.Visit, err error) {
	defer obs.Time(ctx, "visits.CustomerBetween")(&err)

	if s.DB == nil {
		return nil, errors.New("sql visit repository: DB is nil")
	}
	if len(customerIDs) == 0 {
		return []domain.Visit{}, nil
	}

	args := []any{from.UTC(), to.UTC()}
	for _, id := range customerIDs {
		args = append(args, id)
	}

	query := s.Dialect.Rebind(`SELECT` + visitColumns + `
	FROM visits
	WHERE check_in_at >= $1
		AND check_in_at < $2
		AND customer_id IN (` + db.Placeholders(3, len(customerIDs)) + `)
	ORDER BY check_in_at;
	`)
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("customer visits: query visits table: %w", err)
	}
	defer rows.Close()

	return scanVisits(rows, "customer visits")
}

func (s *SQLVisitRepository) CheckIn(ctx context.Context, v domain.Visit) (err error) {
	defer obs.Time(ctx, "visits.CheckIn")(&err)

	if s.DB == nil {
		return errors.New("sql visit repository: DB is nil")
	}
	if v.ID == "" || v.AgentID == "" || v.CustomerID == "" {
		return fmt.Errorf("check in: %w: visit id, agent id and customer id are required", domain.ErrInvalidInput)
	}

	status := v.Status
	if status == "" {
		status = domain.VisitInProgress
	}

	var lat, lng sql.NullFloat64
	if v.CheckIn != nil {
		lat = nullFloat(v.CheckIn.Lat, true)
		lng = nullFloat(v.CheckIn.Lng, true)
	}

	query := s.Dialect.Rebind(`
	INSERT INTO visits (` + visitColumns + `
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`)
	_, err = s.DB.ExecContext(ctx, query,
		v.ID,
		v.AgentID,
		v.CustomerID,
		v.CheckInAt.UTC(),
		nullTime(v.CheckOutAt),
		lat,
		lng,
		string(status),
	)
	if err != nil {
		return fmt.Errorf("check in visit %s: %w", v.ID, err)
	}
	return nil
}

func (s *SQLVisitRepository) CheckOut(ctx context.Context, visitID string, at time.Time) (err error) {
	defer obs.Time(ctx, "visits.CheckOut")(&err)

	if s.DB == nil {
		return errors.New("sql visit repository: DB is nil")
	}

	var (
		checkIn  time.Time
		checkOut sql.NullTime
	)
	lookup := s.Dialect.Rebind(`
	SELECT check_in_at, check_out_at
	FROM visits
	WHERE visit_id = $1;
	`)
	err = s.DB.QueryRowContext(ctx, lookup, visitID).Scan(&checkIn, &checkOut)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check out visit %s: %w", visitID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check out visit %s: lookup: %w", visitID, err)
	}
	if checkOut.Valid {
		return fmt.Errorf("check out visit %s: open visit %w", visitID, domain.ErrNotFound)
	}
	if at.Before(checkIn) {
		return fmt.Errorf("check out visit %s: %w: check-out before check-in", visitID, domain.ErrInvalidInput)
	}

	query := s.Dialect.Rebind(`
	UPDATE visits
	SET check_out_at = $1,
		status = $2
	WHERE visit_id = $3
		AND check_out_at IS NULL;
	`)
	res, err := s.DB.ExecContext(ctx, query, at.UTC(), string(domain.VisitCompleted), visitID)
	if err != nil {
		return fmt.Errorf("check out visit %s: %w", visitID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check out visit %s: rows affected: %w", visitID, err)
	}
	if n == 0 {
		return fmt.Errorf("check out visit %s: open visit %w", visitID, domain.ErrNotFound)
	}
	return nil
}

func scanVisits(rows *sql.Rows, op string) ([]domain.Visit, error) {
	visits := []domain.Visit{}
	for rows.Next() {
		var (
			v        domain.Visit
			checkOut sql.NullTime
			lat, lng sql.NullFloat64
			status   string
		)
		if err := rows.Scan(&v.ID, &v.AgentID, &v.CustomerID, &v.CheckInAt, &checkOut, &lat, &lng, &status); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		v.CheckInAt = v.CheckInAt.UTC()
		v.CheckOutAt = timePtr(checkOut)
		if lat.Valid && lng.Valid {
			v.CheckIn = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
		}
		v.Status = domain.VisitStatus(status)
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: row iteration: %w", op, err)
	}
	return visits, nil
}
