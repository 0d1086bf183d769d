package service

import "dispatch/internal/domain"

// Eligible reports whether a driver may be served by the dispatch feed.
// Only an active subscription qualifies; the client-reported online flag
// does not override a suspended or lapsed plan. Callers must re-evaluate
// this on every feed query, never cache it, because subscription status
// changes asynchronously.
func Eligible(rec *domain.DriverAvailability) bool {
	return rec != nil && rec.Subscription == domain.SubscriptionActive
}
