package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// RideRepository defines the persistence operations for rides.
//
// Accept, AdvanceStatus and Cancel are conditional updates: the storage
// layer applies them only if the ride is still in the expected state, and
// returns ErrConflict otherwise. This is what makes the acceptance race
// safe across service instances.
type RideRepository interface {
	// Create persists a new pending ride. The storage layer enforces at
	// most one non-terminal ride per passenger; a racing second request
	// returns ErrConflict. When usage is non-nil the promotion-usage row
	// is written in the same transaction, so a promotion can never be
	// consumed twice even under concurrent requests; a second redemption
	// returns ErrDuplicate.
	Create(ctx context.Context, ride *domain.Ride, usage *domain.PromotionUsage) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// ListOpen retrieves all pending, unassigned rides in creation order.
	ListOpen(ctx context.Context) ([]*domain.Ride, error)

	// GetActiveByPassenger returns the passenger's non-terminal ride,
	// or nil if there is none.
	GetActiveByPassenger(ctx context.Context, passengerID string) (*domain.Ride, error)

	// GetActiveByDriver returns the driver's non-terminal ride, or nil.
	GetActiveByDriver(ctx context.Context, driverID string) (*domain.Ride, error)

	// Accept assigns the driver and moves the ride to accepted, only if
	// it is still pending with no driver. Exactly one concurrent caller
	// succeeds; the rest get ErrConflict.
	Accept(ctx context.Context, rideID, driverID string, at time.Time) error

	// AdvanceStatus moves the ride from one status to the next, only if
	// it currently holds from and is assigned to driverID.
	AdvanceStatus(ctx context.Context, rideID, driverID string, from, to domain.RideStatus, at time.Time) error

	// Cancel moves the ride to cancelled, only if it is non-terminal. The
	// record is kept for history.
	Cancel(ctx context.Context, rideID, cancelledBy string, at time.Time) error

	// UpdateDriverPosition denormalizes the driver's last-known position
	// onto an active ride record.
	UpdateDriverPosition(ctx context.Context, rideID string, lat, lng, heading float64) error
}
