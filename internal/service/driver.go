package service

import (
	"context"
	"time"

	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// DriverService handles driver-side availability: location heartbeats
// and the online toggle. It never touches subscription status, which
// belongs to the subscription subsystem.
type DriverService struct {
	availabilityRepo repository.AvailabilityRepository
	rideRepo         repository.RideRepository
	locationStore    redis.LocationStoreInterface
	now              func() time.Time
}

// NewDriverService creates a new DriverService. locationStore may be nil.
func NewDriverService(
	availabilityRepo repository.AvailabilityRepository,
	rideRepo repository.RideRepository,
	locationStore redis.LocationStoreInterface,
) *DriverService {
	return &DriverService{
		availabilityRepo: availabilityRepo,
		rideRepo:         rideRepo,
		locationStore:    locationStore,
		now:              time.Now,
	}
}

// Heartbeat records the driver's position. Independent of status
// transitions: when the driver has an active ride, the position is also
// denormalized onto the ride record so passenger polling can render live
// position without a join.
func (s *DriverService) Heartbeat(ctx context.Context, driverID string, lat, lng, heading float64) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return ErrInvalidLocation
	}

	if err := s.availabilityRepo.RecordHeartbeat(ctx, driverID, lat, lng, heading, s.now()); err != nil {
		return err
	}

	if s.locationStore != nil {
		_ = s.locationStore.UpdateLocation(ctx, driverID, lat, lng)
	}

	active, err := s.rideRepo.GetActiveByDriver(ctx, driverID)
	if err != nil {
		return err
	}
	if active != nil {
		return s.rideRepo.UpdateDriverPosition(ctx, active.ID, lat, lng, heading)
	}
	return nil
}

// defaultNearbyRadiusKm bounds the nearby-drivers query when the caller
// does not supply a radius.
const defaultNearbyRadiusKm = 3.0

// NearbyDrivers returns drivers whose last heartbeat placed them within
// radiusKm of the given point, nearest first. Returns an empty slice when
// no geo index is configured.
func (s *DriverService) NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	if !isValidLatitude(lat) || !isValidLongitude(lng) {
		return nil, ErrInvalidLocation
	}
	if radiusKm <= 0 {
		radiusKm = defaultNearbyRadiusKm
	}
	if s.locationStore == nil {
		return []redis.DriverLocation{}, nil
	}
	return s.locationStore.FindNearbyDrivers(ctx, lat, lng, radiusKm)
}

// SetOnline toggles the driver's online flag. Going offline removes the
// driver from the geo index.
func (s *DriverService) SetOnline(ctx context.Context, driverID string, online bool) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	if err := s.availabilityRepo.SetOnline(ctx, driverID, online); err != nil {
		return err
	}

	if !online && s.locationStore != nil {
		_ = s.locationStore.RemoveLocation(ctx, driverID)
	}
	return nil
}
