package service

import "errors"

var (
	// ErrInvalidPassengerID is returned when the passenger ID is empty.
	ErrInvalidPassengerID = errors.New("invalid passenger id")

	// ErrInvalidDriverID is returned when the driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidRideID is returned when the ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidPickup is returned when pickup details are missing or the
	// coordinates are out of range.
	ErrInvalidPickup = errors.New("invalid pickup")

	// ErrInvalidDestination is returned when destination details are
	// missing or the coordinates are out of range.
	ErrInvalidDestination = errors.New("invalid destination")

	// ErrInvalidFare is returned when a negative fare or distance is
	// supplied on ride creation.
	ErrInvalidFare = errors.New("invalid fare")

	// ErrInvalidLocation is returned when heartbeat coordinates are out
	// of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrPassengerHasActiveRide is returned when a passenger requests a
	// ride while another of their rides is still active.
	ErrPassengerHasActiveRide = errors.New("passenger already has an active ride")

	// ErrDriverHasActiveRide is returned when a driver tries to accept
	// while already assigned to an active ride.
	ErrDriverHasActiveRide = errors.New("driver already has an active ride")

	// ErrRideAlreadyAccepted is returned when AcceptRide loses the race:
	// the ride is no longer pending or already has a driver.
	ErrRideAlreadyAccepted = errors.New("ride already accepted")

	// ErrInvalidTransition is returned when a requested status change is
	// not a valid forward transition from the ride's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRideNotActive is returned when cancelling a ride that already
	// reached a terminal status.
	ErrRideNotActive = errors.New("ride is not active")

	// ErrNotRideParticipant is returned when the actor is neither the
	// ride's passenger nor its assigned driver.
	ErrNotRideParticipant = errors.New("actor is not a participant of this ride")

	// ErrDriverNotAssigned is returned when a driver operates on a ride
	// assigned to someone else.
	ErrDriverNotAssigned = errors.New("driver not assigned to this ride")

	// ErrDriverNotEligible is returned when a driver without an active
	// subscription queries the dispatch feed or accepts a ride.
	ErrDriverNotEligible = errors.New("driver not eligible for dispatch")

	// ErrInvalidPromotionCode is returned when the promotion code is
	// empty.
	ErrInvalidPromotionCode = errors.New("invalid promotion code")

	// ErrPromotionInactive is returned when the promotion is disabled.
	ErrPromotionInactive = errors.New("promotion inactive")

	// ErrPromotionExpired is returned when the promotion expiry has
	// passed.
	ErrPromotionExpired = errors.New("promotion expired")

	// ErrPromotionAlreadyUsed is returned when the rider has already
	// redeemed the promotion.
	ErrPromotionAlreadyUsed = errors.New("promotion already used")

	// ErrRouteUnavailable is returned when no distance was supplied and
	// the routing oracle cannot resolve one.
	ErrRouteUnavailable = errors.New("route unavailable")
)
