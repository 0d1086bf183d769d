package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// AvailabilityRepository is a PostgreSQL implementation of
// repository.AvailabilityRepository.
type AvailabilityRepository struct {
	q Querier
}

// NewAvailabilityRepository creates a new PostgreSQL availability
// repository.
func NewAvailabilityRepository(db *sql.DB) *AvailabilityRepository {
	return &AvailabilityRepository{q: db}
}

// Get retrieves a driver's availability record.
func (r *AvailabilityRepository) Get(ctx context.Context, driverID string) (*domain.DriverAvailability, error) {
	query := `
		SELECT driver_id, online, subscription_status,
			COALESCE(lat, 0), COALESCE(lng, 0), COALESCE(heading, 0), last_seen_at
		FROM driver_availability WHERE driver_id = $1
	`

	var rec domain.DriverAvailability
	var lastSeen sql.NullTime
	err := r.q.QueryRowContext(ctx, query, driverID).Scan(
		&rec.DriverID,
		&rec.Online,
		&rec.Subscription,
		&rec.Lat,
		&rec.Lng,
		&rec.Heading,
		&lastSeen,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if lastSeen.Valid {
		rec.LastSeenAt = lastSeen.Time
	}

	return &rec, nil
}

// RecordHeartbeat upserts the driver's position and marks them online.
// Subscription status is never touched here; it belongs to the
// subscription subsystem.
func (r *AvailabilityRepository) RecordHeartbeat(ctx context.Context, driverID string, lat, lng, heading float64, at time.Time) error {
	query := `
		INSERT INTO driver_availability (driver_id, online, subscription_status, lat, lng, heading, last_seen_at)
		VALUES ($1, TRUE, 'none', $2, $3, $4, $5)
		ON CONFLICT (driver_id) DO UPDATE
		SET online = TRUE, lat = $2, lng = $3, heading = $4, last_seen_at = $5
	`

	_, err := r.q.ExecContext(ctx, query, driverID, lat, lng, heading, at)
	return err
}

// SetOnline toggles the driver's online flag.
func (r *AvailabilityRepository) SetOnline(ctx context.Context, driverID string, online bool) error {
	query := `UPDATE driver_availability SET online = $1 WHERE driver_id = $2`

	result, err := r.q.ExecContext(ctx, query, online, driverID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
