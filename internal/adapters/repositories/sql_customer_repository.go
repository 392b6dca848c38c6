package repositories

import (
	"context"
	"database/sql"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/platform/obs"
	"fmt"
)

// SQL-backed implementation of the CustomerRepository port.
type SQLCustomerRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLCustomerRepository(conn *sql.DB, dialect db.Dialect) *SQLCustomerRepository {
	return &SQLCustomerRepository{DB: conn, Dialect: dialect}
}

const customerColumns = `
		customer_id,
		name,
		lat,
		lng,
		visit_minutes,
		priority,
		visit_frequency_days,
		avg_order_value,
		last_visit_at`

// Return all customers ordered by id.
func (s *SQLCustomerRepository) ListCustomers(ctx context.Context) (_ []domain.Customer, err error) {
	defer obs.Time(ctx, "customers.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sql customer repository: DB is nil")
	}

	query := `SELECT` + customerColumns + `
	FROM customers
	ORDER BY customer_id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list customers: query customers table: %w", err)
	}
	defer rows.Close()

	return scanCustomers(rows, "list customers")
}

// Return the customers with the given ids in request order; unknown ids are omitted.
func (s *SQLCustomerRepository) GetCustomers(ctx context.Context, ids []string) (_ []domain.Customer, err error) {
	defer obs.Time(ctx, "customers.Get")(&err)

	if s.DB == nil {
		return nil, errors.New("sql customer repository: DB is nil")
	}
	if len(ids) == 0 {
		return []domain.Customer{}, nil
	}

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	query := s.Dialect.Rebind(`SELECT` + customerColumns + `
	FROM customers
	WHERE customer_id IN (` + db.Placeholders(1, len(ids)) + `);
	`)
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get customers: query customers table: %w", err)
	}
	defer rows.Close()

	found, err := scanCustomers(rows, "get customers")
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Customer, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	out := make([]domain.Customer, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
			delete(byID, id)
		}
	}
	return out, nil
}

func scanCustomers(rows *sql.Rows, op string) ([]domain.Customer, error) {
	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var (
			c        domain.Customer
			lat, lng sql.NullFloat64
			last     sql.NullTime
		)
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&lat,
			&lng,
			&c.VisitMinutes,
			&c.Priority,
			&c.VisitFrequencyDays,
			&c.AvgOrderValue,
			&last,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		if lat.Valid && lng.Valid {
			c.Coordinates = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
		}
		c.LastVisitAt = timePtr(last)
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: row iteration: %w", op, err)
	}

	return customers, nil
}
