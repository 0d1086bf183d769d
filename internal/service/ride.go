package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/events"
	"dispatch/internal/repository"
)

// RideService implements the ride lifecycle: request, accept, advance,
// cancel. All state transitions are conditional updates in the storage
// layer, so concurrent callers across service instances cannot corrupt
// the state machine.
type RideService struct {
	rideRepo         repository.RideRepository
	availabilityRepo repository.AvailabilityRepository
	publisher        events.Publisher
	now              func() time.Time
}

// NewRideService creates a new RideService. publisher may be nil.
func NewRideService(
	rideRepo repository.RideRepository,
	availabilityRepo repository.AvailabilityRepository,
	publisher events.Publisher,
) *RideService {
	return &RideService{
		rideRepo:         rideRepo,
		availabilityRepo: availabilityRepo,
		publisher:        publisher,
		now:              time.Now,
	}
}

// RequestRideInput contains the parameters for requesting a ride. Fare
// and distance come from the quote the client previewed; they are fixed
// at creation and never recomputed. PromotionID must already have passed
// PromotionService.Validate for this rider.
type RequestRideInput struct {
	PassengerID     string
	PickupText      string
	PickupLat       float64
	PickupLng       float64
	DestinationText string
	DestinationLat  float64
	DestinationLng  float64
	DistanceKm      float64
	Fare            float64
	PromotionID     string
}

// RequestRide creates a new pending ride. A passenger may have only one
// active ride at a time: the pre-read gives a friendly error on the
// common path, and the storage layer's uniqueness constraint closes the
// window when two requests race past it. When a promotion is applied,
// the usage row is written atomically with the ride, so the single-use
// invariant holds under concurrent requests.
func (s *RideService) RequestRide(ctx context.Context, in RequestRideInput) (*domain.Ride, error) {
	if err := validateRequest(in); err != nil {
		return nil, err
	}

	active, err := s.rideRepo.GetActiveByPassenger(ctx, in.PassengerID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrPassengerHasActiveRide
	}

	now := s.now()
	ride := &domain.Ride{
		ID:              uuid.New().String(),
		PassengerID:     in.PassengerID,
		PickupText:      in.PickupText,
		PickupLat:       in.PickupLat,
		PickupLng:       in.PickupLng,
		DestinationText: in.DestinationText,
		DestinationLat:  in.DestinationLat,
		DestinationLng:  in.DestinationLng,
		DistanceKm:      in.DistanceKm,
		Fare:            in.Fare,
		PromotionID:     in.PromotionID,
		Status:          domain.RideStatusPending,
		CreatedAt:       now,
	}

	var usage *domain.PromotionUsage
	if in.PromotionID != "" {
		usage = &domain.PromotionUsage{
			PromotionID: in.PromotionID,
			UserID:      in.PassengerID,
			RideID:      ride.ID,
			UsedAt:      now,
		}
	}

	if err := s.rideRepo.Create(ctx, ride, usage); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrPassengerHasActiveRide
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPromotionAlreadyUsed
		}
		return nil, err
	}

	s.publish(ctx, ride)
	return ride, nil
}

// AcceptRide assigns the calling driver to a pending ride. Exactly one
// of any set of racing drivers wins; the rest receive
// ErrRideAlreadyAccepted.
func (s *RideService) AcceptRide(ctx context.Context, driverID, rideID string) (*domain.Ride, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
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

	active, err := s.rideRepo.GetActiveByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrDriverHasActiveRide
	}

	if err := s.rideRepo.Accept(ctx, rideID, driverID, s.now()); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrRideAlreadyAccepted
		}
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ride)
	return ride, nil
}

// AdvanceStatus moves a ride one step forward: accepted to arrived,
// arrived to in_progress, in_progress to completed. Any other requested
// transition is rejected, as is a call from a driver the ride is not
// assigned to. A transition that races a cancellation loses cleanly:
// whichever write lands first wins.
func (s *RideService) AdvanceStatus(ctx context.Context, driverID, rideID string, newStatus domain.RideStatus) (*domain.Ride, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	from, ok := domain.PrevStatus(newStatus)
	if !ok {
		return nil, ErrInvalidTransition
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != driverID {
		return nil, ErrDriverNotAssigned
	}

	if err := s.rideRepo.AdvanceStatus(ctx, rideID, driverID, from, newStatus, s.now()); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	ride, err = s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ride)
	return ride, nil
}

// CancelRide cancels a non-terminal ride. Either party may cancel; the
// record is kept for history. Cancelling an in-progress ride finalizes
// it without a fare charge.
func (s *RideService) CancelRide(ctx context.Context, actorID string, role domain.Role, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	switch role {
	case domain.RolePassenger:
		if ride.PassengerID != actorID {
			return nil, ErrNotRideParticipant
		}
	case domain.RoleDriver:
		if ride.DriverID != actorID {
			return nil, ErrNotRideParticipant
		}
	default:
		return nil, ErrNotRideParticipant
	}

	if ride.Status.Terminal() {
		return nil, ErrRideNotActive
	}

	if err := s.rideRepo.Cancel(ctx, rideID, actorID, s.now()); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrRideNotActive
		}
		return nil, err
	}

	ride, err = s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ride)
	return ride, nil
}

// GetRide retrieves the current ride snapshot for polling clients.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	return s.rideRepo.GetByID(ctx, rideID)
}

// publish emits the ride's current state, best-effort.
func (s *RideService) publish(ctx context.Context, ride *domain.Ride) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.PublishRideEvent(ctx, events.RideEvent{
		RideID:      ride.ID,
		PassengerID: ride.PassengerID,
		DriverID:    ride.DriverID,
		Status:      string(ride.Status),
		Fare:        ride.Fare,
		OccurredAt:  s.now(),
	})
}

func validateRequest(in RequestRideInput) error {
	if in.PassengerID == "" {
		return ErrInvalidPassengerID
	}
	if in.PickupText == "" || !isValidLatitude(in.PickupLat) || !isValidLongitude(in.PickupLng) {
		return ErrInvalidPickup
	}
	if in.DestinationText == "" || !isValidLatitude(in.DestinationLat) || !isValidLongitude(in.DestinationLng) {
		return ErrInvalidDestination
	}
	if in.Fare < 0 || in.DistanceKm < 0 {
		return ErrInvalidFare
	}
	return nil
}
