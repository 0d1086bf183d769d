package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusPending    RideStatus = "pending"
	RideStatusAccepted   RideStatus = "accepted"
	RideStatusArrived    RideStatus = "arrived"
	RideStatusInProgress RideStatus = "in_progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed from s.
func (s RideStatus) Terminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// forwardTransitions maps each driver-advanceable status to its successor.
var forwardTransitions = map[RideStatus]RideStatus{
	RideStatusAccepted:   RideStatusArrived,
	RideStatusArrived:    RideStatusInProgress,
	RideStatusInProgress: RideStatusCompleted,
}

// NextStatus returns the single valid forward transition from s, or false
// if s has none (pending rides advance only via acceptance).
func NextStatus(s RideStatus) (RideStatus, bool) {
	next, ok := forwardTransitions[s]
	return next, ok
}

// PrevStatus returns the status a ride must currently hold for a driver
// to advance it to s.
func PrevStatus(s RideStatus) (RideStatus, bool) {
	for from, to := range forwardTransitions {
		if to == s {
			return from, true
		}
	}
	return "", false
}

// Role identifies which side of a ride an actor is on.
type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
)

// Ride represents one passenger trip request and its lifecycle record.
type Ride struct {
	ID          string
	PassengerID string
	DriverID    string // empty until a driver accepts

	PickupText      string
	PickupLat       float64
	PickupLng       float64
	DestinationText string
	DestinationLat  float64
	DestinationLng  float64
	DistanceKm      float64

	Fare        float64 // pre-discount fare, fixed at creation
	PromotionID string  // empty when no promotion was applied

	Status RideStatus

	// Last-known driver position, denormalized onto the ride while it is
	// active so passenger polling needs no join.
	DriverLat     float64
	DriverLng     float64
	DriverHeading float64

	CreatedAt   time.Time
	AcceptedAt  time.Time
	ArrivedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	CancelledAt time.Time
	CancelledBy string // actor id that cancelled, empty otherwise
}
