package service

import (
	"context"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// FeedService serves the two polling read queries: the dispatch feed of
// open requests, and the active-ride lookup clients use to resume
// mid-flight trips after a restart.
type FeedService struct {
	rideRepo         repository.RideRepository
	availabilityRepo repository.AvailabilityRepository
}

// NewFeedService creates a new FeedService.
func NewFeedService(
	rideRepo repository.RideRepository,
	availabilityRepo repository.AvailabilityRepository,
) *FeedService {
	return &FeedService{
		rideRepo:         rideRepo,
		availabilityRepo: availabilityRepo,
	}
}

// OpenRequests returns all pending rides for an eligible driver, in
// creation order. Eligibility is re-read on every call so a suspended
// subscription takes effect within one polling interval.
func (s *FeedService) OpenRequests(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	rec, err := s.availabilityRepo.Get(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotEligible
		}
		return nil, err
	}
	if !Eligible(rec) {
		return nil, ErrDriverNotEligible
	}

	return s.rideRepo.ListOpen(ctx)
}

// ActiveRideFor returns the single non-terminal ride owned by the
// passenger or assigned to the driver, or nil when there is none.
func (s *FeedService) ActiveRideFor(ctx context.Context, userID string, role domain.Role) (*domain.Ride, error) {
	if userID == "" {
		return nil, ErrInvalidPassengerID
	}

	switch role {
	case domain.RolePassenger:
		return s.rideRepo.GetActiveByPassenger(ctx, userID)
	case domain.RoleDriver:
		return s.rideRepo.GetActiveByDriver(ctx, userID)
	default:
		return nil, ErrNotRideParticipant
	}
}
