package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

const rideColumns = `id, passenger_id, driver_id, pickup_text, pickup_lat, pickup_lng,
	destination_text, destination_lat, destination_lng, distance_km, fare, promotion_id,
	status, driver_lat, driver_lng, driver_heading,
	created_at, accepted_at, arrived_at, started_at, completed_at, cancelled_at, cancelled_by`

// activeStatuses is the SQL set of non-terminal ride states.
const activeStatuses = `('pending', 'accepted', 'arrived', 'in_progress')`

// activeRideIndex is the partial unique index enforcing at most one
// non-terminal ride per passenger:
//
//	CREATE UNIQUE INDEX rides_one_active_per_passenger
//	ON rides (passenger_id)
//	WHERE status IN ('pending', 'accepted', 'arrived', 'in_progress');
//
// The service pre-reads for a friendly error, but this index is what
// holds when two requests race past that read.
const activeRideIndex = "rides_one_active_per_passenger"

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	db *sql.DB
	q  Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{db: db, q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
// Create with a promotion usage is not available on a tx-scoped repository.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// Create persists a new pending ride. When usage is non-nil the usage row
// is inserted in the same transaction; a unique-constraint violation on
// (promotion_id, user_id) surfaces as repository.ErrDuplicate.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride, usage *domain.PromotionUsage) error {
	if usage == nil {
		return r.insertRide(ctx, r.q, ride)
	}

	if r.db == nil {
		return errors.New("ride creation with promotion requires a db-scoped repository")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.insertRide(ctx, tx, ride); err != nil {
		return err
	}

	if err = NewPromotionRepositoryWithTx(tx).InsertUsage(ctx, usage); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *RideRepository) insertRide(ctx context.Context, q Querier, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, passenger_id, pickup_text, pickup_lat, pickup_lng,
			destination_text, destination_lat, destination_lng, distance_km, fare,
			promotion_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var promotionID sql.NullString
	if ride.PromotionID != "" {
		promotionID = sql.NullString{String: ride.PromotionID, Valid: true}
	}

	_, err := q.ExecContext(ctx, query,
		ride.ID,
		ride.PassengerID,
		ride.PickupText,
		ride.PickupLat,
		ride.PickupLng,
		ride.DestinationText,
		ride.DestinationLat,
		ride.DestinationLng,
		ride.DistanceKm,
		ride.Fare,
		promotionID,
		ride.Status,
		ride.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == activeRideIndex {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// ListOpen retrieves all pending, unassigned rides in creation order.
func (r *RideRepository) ListOpen(ctx context.Context) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + `
		FROM rides
		WHERE status = 'pending' AND driver_id IS NULL
		ORDER BY created_at ASC`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// GetActiveByPassenger returns the passenger's non-terminal ride, or nil.
func (r *RideRepository) GetActiveByPassenger(ctx context.Context, passengerID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + `
		FROM rides
		WHERE passenger_id = $1 AND status IN ` + activeStatuses + `
		ORDER BY created_at DESC LIMIT 1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, passengerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ride, nil
}

// GetActiveByDriver returns the driver's non-terminal ride, or nil.
func (r *RideRepository) GetActiveByDriver(ctx context.Context, driverID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + `
		FROM rides
		WHERE driver_id = $1 AND status IN ` + activeStatuses + `
		ORDER BY created_at DESC LIMIT 1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, driverID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ride, nil
}

// Accept atomically assigns the driver, only if the ride is still pending
// with no driver. Two racing drivers cannot both match the conditional
// update, so exactly one wins.
func (r *RideRepository) Accept(ctx context.Context, rideID, driverID string, at time.Time) error {
	query := `
		UPDATE rides
		SET driver_id = $1, status = 'accepted', accepted_at = $2
		WHERE id = $3 AND status = 'pending' AND driver_id IS NULL
	`

	result, err := r.q.ExecContext(ctx, query, driverID, at, rideID)
	if err != nil {
		return err
	}
	return r.checkConditional(ctx, result, rideID)
}

// AdvanceStatus moves the ride forward, keyed on the expected current
// status and assigned driver to avoid lost updates.
func (r *RideRepository) AdvanceStatus(ctx context.Context, rideID, driverID string, from, to domain.RideStatus, at time.Time) error {
	column, ok := transitionColumn(to)
	if !ok {
		return repository.ErrConflict
	}

	query := fmt.Sprintf(`
		UPDATE rides
		SET status = $1, %s = $2
		WHERE id = $3 AND status = $4 AND driver_id = $5
	`, column)

	result, err := r.q.ExecContext(ctx, query, to, at, rideID, from, driverID)
	if err != nil {
		return err
	}
	return r.checkConditional(ctx, result, rideID)
}

// Cancel moves a non-terminal ride to cancelled, keeping the record.
func (r *RideRepository) Cancel(ctx context.Context, rideID, cancelledBy string, at time.Time) error {
	query := `
		UPDATE rides
		SET status = 'cancelled', cancelled_at = $1, cancelled_by = $2
		WHERE id = $3 AND status IN ` + activeStatuses

	result, err := r.q.ExecContext(ctx, query, at, cancelledBy, rideID)
	if err != nil {
		return err
	}
	return r.checkConditional(ctx, result, rideID)
}

// UpdateDriverPosition denormalizes the driver's last-known position onto
// an active ride. A no-op on terminal rides.
func (r *RideRepository) UpdateDriverPosition(ctx context.Context, rideID string, lat, lng, heading float64) error {
	query := `
		UPDATE rides
		SET driver_lat = $1, driver_lng = $2, driver_heading = $3
		WHERE id = $4 AND status IN ` + activeStatuses

	_, err := r.q.ExecContext(ctx, query, lat, lng, heading, rideID)
	return err
}

// checkConditional disambiguates a zero-row conditional update: the ride
// either does not exist (ErrNotFound) or was not in the expected state
// (ErrConflict).
func (r *RideRepository) checkConditional(ctx context.Context, result sql.Result, rideID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	err = r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM rides WHERE id = $1)`, rideID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

// transitionColumn maps a forward status to its timestamp column.
func transitionColumn(to domain.RideStatus) (string, bool) {
	switch to {
	case domain.RideStatusArrived:
		return "arrived_at", true
	case domain.RideStatusInProgress:
		return "started_at", true
	case domain.RideStatusCompleted:
		return "completed_at", true
	default:
		return "", false
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, promotionID, cancelledBy sql.NullString
	var driverLat, driverLng, driverHeading sql.NullFloat64
	var acceptedAt, arrivedAt, startedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.PassengerID,
		&driverID,
		&ride.PickupText,
		&ride.PickupLat,
		&ride.PickupLng,
		&ride.DestinationText,
		&ride.DestinationLat,
		&ride.DestinationLng,
		&ride.DistanceKm,
		&ride.Fare,
		&promotionID,
		&ride.Status,
		&driverLat,
		&driverLng,
		&driverHeading,
		&ride.CreatedAt,
		&acceptedAt,
		&arrivedAt,
		&startedAt,
		&completedAt,
		&cancelledAt,
		&cancelledBy,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		ride.DriverID = driverID.String
	}
	if promotionID.Valid {
		ride.PromotionID = promotionID.String
	}
	if cancelledBy.Valid {
		ride.CancelledBy = cancelledBy.String
	}
	if driverLat.Valid {
		ride.DriverLat = driverLat.Float64
	}
	if driverLng.Valid {
		ride.DriverLng = driverLng.Float64
	}
	if driverHeading.Valid {
		ride.DriverHeading = driverHeading.Float64
	}
	if acceptedAt.Valid {
		ride.AcceptedAt = acceptedAt.Time
	}
	if arrivedAt.Valid {
		ride.ArrivedAt = arrivedAt.Time
	}
	if startedAt.Valid {
		ride.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		ride.CompletedAt = completedAt.Time
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}

	return &ride, nil
}
