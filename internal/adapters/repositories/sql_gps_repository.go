package repositories

import (
	"context"
	"database/sql"
	"errors"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/platform/obs"
	"fmt"

	"github.com/google/uuid"
)

// SQL-backed implementation of the GpsSampleRepository port.
type SQLGpsRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLGpsRepository(conn *sql.DB, dialect db.Dialect) *SQLGpsRepository {
	return &SQLGpsRepository{DB: conn, Dialect: dialect}
}

// Append one sample to the agent's log. Virtual samples are never stored.
func (s *SQLGpsRepository) AppendSample(ctx context.Context, sample domain.GpsSample) (err error) {
	defer obs.Time(ctx, "gps.Append")(&err)

	if s.DB == nil {
		return errors.New("sql gps repository: DB is nil")
	}
	if sample.IsVirtual {
		return fmt.Errorf("append sample: %w: virtual samples are not persisted", domain.ErrInvalidInput)
	}

	query := s.Dialect.Rebind(`
	INSERT INTO gps_samples (
		sample_id,
		agent_id,
		lat,
		lng,
		recorded_at,
		speed_kmh,
		heading,
		accuracy_m
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`)
	_, err = s.DB.ExecContext(ctx, query,
		uuid.NewString(),
		sample.AgentID,
		sample.Coordinates.Lat,
		sample.Coordinates.Lng,
		sample.RecordedAt.UTC(),
		nullFloatPtr(sample.SpeedKmh),
		nullFloatPtr(sample.Heading),
		nullFloatPtr(sample.AccuracyM),
	)
	if err != nil {
		return fmt.Errorf("append sample for %s: %w", sample.AgentID, err)
	}
	return nil
}

// Return the newest sample for the agent, or nil when none exists.
func (s *SQLGpsRepository) LatestSample(ctx context.Context, agentID string) (_ *domain.GpsSample, err error) {
	defer obs.Time(ctx, "gps.Latest")(&err)

	if s.DB == nil {
		return nil, errors.New("sql gps repository: DB is nil")
	}

	query := s.Dialect.Rebind(`
	SELECT
		agent_id,
		lat,
		lng,
		recorded_at,
		speed_kmh,
		heading,
		accuracy_m
	FROM gps_samples
	WHERE agent_id = $1
	ORDER BY recorded_at DESC
	LIMIT 1;
	`)

	var (
		sample                    domain.GpsSample
		speed, heading, accuracyM sql.NullFloat64
	)
	err = s.DB.QueryRowContext(ctx, query, agentID).Scan(
		&sample.AgentID,
		&sample.Coordinates.Lat,
		&sample.Coordinates.Lng,
		&sample.RecordedAt,
		&speed,
		&heading,
		&accuracyM,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest sample for %s: %w", agentID, err)
	}

	sample.RecordedAt = sample.RecordedAt.UTC()
	sample.SpeedKmh = floatPtr(speed)
	sample.Heading = floatPtr(heading)
	sample.AccuracyM = floatPtr(accuracyM)
	return &sample, nil
}
