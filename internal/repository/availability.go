package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// AvailabilityRepository defines the persistence operations for driver
// availability records. Subscription status is written by the external
// subscription-management subsystem; this service only reads it.
type AvailabilityRepository interface {
	// Get retrieves a driver's availability record.
	Get(ctx context.Context, driverID string) (*domain.DriverAvailability, error)

	// RecordHeartbeat upserts the driver's position, heading and
	// last-seen timestamp, and marks the driver online.
	RecordHeartbeat(ctx context.Context, driverID string, lat, lng, heading float64, at time.Time) error

	// SetOnline toggles the driver's online flag.
	SetOnline(ctx context.Context, driverID string, online bool) error
}
