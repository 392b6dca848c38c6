package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"strings"
)

const defaultAlertLimit = 100

// SQL-backed implementation of the AlertRepository port.
type SQLAlertRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLAlertRepository(conn *sql.DB, dialect db.Dialect) *SQLAlertRepository {
	return &SQLAlertRepository{DB: conn, Dialect: dialect}
}

func (s *SQLAlertRepository) CreateAlert(ctx context.Context, a domain.Alert) (err error) {
	defer obs.Time(ctx, "alerts.Create")(&err)

	if s.DB == nil {
		return errors.New("sql alert repository: DB is nil")
	}
	if a.ID == "" || a.AgentID == "" {
		return fmt.Errorf("create alert: %w: alert id and agent id are required", domain.ErrInvalidInput)
	}

	meta := a.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("create alert %s: encode metadata: %w", a.ID, err)
	}

	query := s.Dialect.Rebind(`
	INSERT INTO alerts (
		alert_id,
		agent_id,
		route_id,
		alert_type,
		severity,
		message,
		metadata,
		is_read,
		created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`)
	_, err = s.DB.ExecContext(ctx, query,
		a.ID,
		a.AgentID,
		nullString(a.RouteID),
		string(a.Type),
		string(a.Severity),
		a.Message,
		string(metaJSON),
		a.Read,
		a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create alert %s: %w", a.ID, err)
	}
	return nil
}

// Return alerts newest first, filtered by agent and read flag.
func (s *SQLAlertRepository) ListAlerts(ctx context.Context, f ports.AlertFilter) (_ []domain.Alert, err error) {
	defer obs.Time(ctx, "alerts.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sql alert repository: DB is nil")
	}

	var (
		where []string
		args  []any
	)
	if f.AgentID != "" {
		args = append(args, f.AgentID)
		where = append(where, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	if f.UnreadOnly {
		args = append(args, false)
		where = append(where, fmt.Sprintf("is_read = $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	args = append(args, limit)

	query := `
	SELECT
		alert_id,
		agent_id,
		route_id,
		alert_type,
		severity,
		message,
		metadata,
		is_read,
		created_at
	FROM alerts`
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf("\n\tORDER BY created_at DESC, alert_id\n\tLIMIT $%d;", len(args))

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: query alerts table: %w", err)
	}
	defer rows.Close()

	alerts := []domain.Alert{}
	for rows.Next() {
		var (
			a                   domain.Alert
			routeID             sql.NullString
			alertType, severity string
			metaJSON            string
		)
		if err := rows.Scan(&a.ID, &a.AgentID, &routeID, &alertType, &severity, &a.Message, &metaJSON, &a.Read, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("list alerts: scan row: %w", err)
		}
		a.RouteID = routeID.String
		a.Type = domain.AlertType(alertType)
		a.Severity = domain.Severity(severity)
		a.CreatedAt = a.CreatedAt.UTC()
		if err := json.Unmarshal([]byte(metaJSON), &a.Metadata); err != nil {
			return nil, fmt.Errorf("list alerts: decode metadata of %s: %w", a.ID, err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list alerts: row iteration: %w", err)
	}
	return alerts, nil
}

func (s *SQLAlertRepository) MarkRead(ctx context.Context, alertID string) (err error) {
	defer obs.Time(ctx, "alerts.MarkRead")(&err)

	if s.DB == nil {
		return errors.New("sql alert repository: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, s.Dialect.Rebind(`UPDATE alerts SET is_read = $1 WHERE alert_id = $2;`), true, alertID)
	if err != nil {
		return fmt.Errorf("mark alert %s read: %w", alertID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark alert %s read: rows affected: %w", alertID, err)
	}
	if n == 0 {
		return fmt.Errorf("mark alert %s read: %w", alertID, domain.ErrNotFound)
	}
	return nil
}
