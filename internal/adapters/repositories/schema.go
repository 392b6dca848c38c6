package repositories

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"field-route-service/internal/platform/db"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// InitSchema creates all tables and indexes. The DDL is valid for both
// postgres and sqlite; timestamps are stored in UTC.
func InitSchema(conn *sql.DB) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			customer_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			lat DOUBLE PRECISION NULL,
			lng DOUBLE PRECISION NULL,
			visit_minutes INTEGER NOT NULL DEFAULT 0,
			priority INTEGER NOT NULL DEFAULT 0,
			visit_frequency_days INTEGER NOT NULL DEFAULT 0,
			avg_order_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_visit_at TIMESTAMP NULL
		)`,
		`CREATE TABLE IF NOT EXISTS routes (
			route_id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			plan_date TEXT NOT NULL,
			status TEXT NOT NULL,
			total_distance_km DOUBLE PRECISION NOT NULL,
			estimated_minutes DOUBLE PRECISION NOT NULL,
			efficiency_score DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS route_stops (
			route_id TEXT NOT NULL REFERENCES routes(route_id) ON DELETE CASCADE,
			customer_id TEXT NOT NULL,
			stop_order INTEGER NOT NULL,
			planned_arrival TIMESTAMP NULL,
			PRIMARY KEY (route_id, stop_order)
		)`,
		`CREATE TABLE IF NOT EXISTS visits (
			visit_id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			check_in_at TIMESTAMP NOT NULL,
			check_out_at TIMESTAMP NULL,
			check_in_lat DOUBLE PRECISION NULL,
			check_in_lng DOUBLE PRECISION NULL,
			status TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS gps_samples (
			sample_id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			recorded_at TIMESTAMP NOT NULL,
			speed_kmh DOUBLE PRECISION NULL,
			heading DOUBLE PRECISION NULL,
			accuracy_m DOUBLE PRECISION NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			alert_id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			route_id TEXT NULL,
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_routes_plan_date_status ON routes(plan_date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_agent_check_in ON visits(agent_id, check_in_at)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_customer_check_in ON visits(customer_id, check_in_at)`,
		`CREATE INDEX IF NOT EXISTS idx_gps_samples_agent_recorded ON gps_samples(agent_id, recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_agent_created ON alerts(agent_id, created_at)`,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// decimal accepts a JSON number, a decimal string, an empty string or null.
type decimal struct {
	value float64
	valid bool
}

func (d *decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = decimal{}
		return nil
	}

	s := string(b)
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = strings.TrimSpace(unquoted)
		if s == "" {
			*d = decimal{}
			return nil
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decimal %q: %w", s, err)
	}
	*d = decimal{value: v, valid: true}
	return nil
}

type CustomerSeed struct {
	CustomerID         string     `json:"customer_id"`
	Name               string     `json:"name"`
	Lat                decimal    `json:"lat"`
	Lng                decimal    `json:"lng"`
	VisitMinutes       int        `json:"visit_minutes"`
	Priority           int        `json:"priority"`
	VisitFrequencyDays int        `json:"visit_frequency_days"`
	AvgOrderValue      float64    `json:"avg_order_value"`
	LastVisitAt        *time.Time `json:"last_visit_at"`
}

// Populate the customers table from a JSON file, replacing existing rows by id.
func SeedCustomersFromJSON(conn *sql.DB, dialect db.Dialect, jsonPath string) error {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed customers: read %q: %w", jsonPath, err)
	}

	var data []CustomerSeed
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("seed customers: parse json: %w", err)
	}

	for i, item := range data {
		if strings.TrimSpace(item.CustomerID) == "" {
			return fmt.Errorf("seed customers: item %d: customer_id cannot be empty", i+1)
		}
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("seed customers: item %d: name cannot be empty", i+1)
		}
		if item.Lat.valid != item.Lng.valid {
			return fmt.Errorf("seed customers: item %d: lat and lng must both be set or both be empty", i+1)
		}
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("seed customers: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := dialect.Rebind(`
	INSERT INTO customers (
		customer_id,
		name,
		lat,
		lng,
		visit_minutes,
		priority,
		visit_frequency_days,
		avg_order_value,
		last_visit_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (customer_id) DO UPDATE SET
		name = EXCLUDED.name,
		lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		visit_minutes = EXCLUDED.visit_minutes,
		priority = EXCLUDED.priority,
		visit_frequency_days = EXCLUDED.visit_frequency_days,
		avg_order_value = EXCLUDED.avg_order_value,
		last_visit_at = EXCLUDED.last_visit_at;
	`)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("seed customers: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range data {
		_, err := stmt.Exec(
			strings.TrimSpace(c.CustomerID),
			strings.TrimSpace(c.Name),
			nullFloat(c.Lat.value, c.Lat.valid),
			nullFloat(c.Lng.value, c.Lng.valid),
			c.VisitMinutes,
			c.Priority,
			c.VisitFrequencyDays,
			c.AvgOrderValue,
			nullTime(c.LastVisitAt),
		)
		if err != nil {
			return fmt.Errorf("seed customers: insert customer_id=%s: %w", c.CustomerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed customers: commit tx: %w", err)
	}

	return nil
}
