package domain

import "time"

// SubscriptionStatus represents a driver's subscription plan state.
// It is owned by the subscription-management subsystem; this service
// only reads it.
type SubscriptionStatus string

const (
	SubscriptionNone    SubscriptionStatus = "none"
	SubscriptionPending SubscriptionStatus = "pending"
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
	SubscriptionPaused  SubscriptionStatus = "paused"
)

// DriverAvailability is the per-driver dispatch record: online flag,
// subscription state and last reported position.
type DriverAvailability struct {
	DriverID     string
	Online       bool
	Subscription SubscriptionStatus
	Lat          float64
	Lng          float64
	Heading      float64
	LastSeenAt   time.Time
}
