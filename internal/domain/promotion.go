package domain

import "time"

// DiscountType represents how a promotion's value is applied.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Promotion is a redeemable discount code. Codes are unique
// case-insensitively.
type Promotion struct {
	ID        string
	Code      string
	Type      DiscountType
	Value     float64
	ExpiresAt time.Time
	Active    bool
}

// PromotionUsage records one redemption. The (PromotionID, UserID) pair
// is unique: a rider may redeem a given code at most once.
type PromotionUsage struct {
	PromotionID string
	UserID      string
	RideID      string
	UsedAt      time.Time
}
