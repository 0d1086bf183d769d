package repository

import (
	"context"

	"dispatch/internal/domain"
)

// ZoneRepository defines read access to the service-zone table. Zones are
// static reference data mutated only through admin tooling.
type ZoneRepository interface {
	// ListActive retrieves all active zones.
	ListActive(ctx context.Context) ([]*domain.Zone, error)
}

// FixedRouteRepository defines read access to the zone-to-zone contract
// fare table.
type FixedRouteRepository interface {
	// ListActive retrieves all active fixed routes.
	ListActive(ctx context.Context) ([]*domain.FixedRoute, error)
}

// SettingsRepository defines read access to the singleton fare settings.
type SettingsRepository interface {
	// Get retrieves the current fare settings.
	Get(ctx context.Context) (*domain.FareSettings, error)
}

// PromotionRepository defines the persistence operations for promotions
// and their usage ledger.
type PromotionRepository interface {
	// GetByCode retrieves a promotion by code, case-insensitively.
	GetByCode(ctx context.Context, code string) (*domain.Promotion, error)

	// HasUsage reports whether the user has already redeemed the
	// promotion.
	HasUsage(ctx context.Context, promotionID, userID string) (bool, error)
}
