package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// ZoneRepository is a PostgreSQL implementation of repository.ZoneRepository.
type ZoneRepository struct {
	q Querier
}

// NewZoneRepository creates a new PostgreSQL zone repository.
func NewZoneRepository(db *sql.DB) *ZoneRepository {
	return &ZoneRepository{q: db}
}

// ListActive retrieves all active zones.
func (r *ZoneRepository) ListActive(ctx context.Context) ([]*domain.Zone, error) {
	query := `SELECT id, name, center_lat, center_lng, radius_km, active FROM zones WHERE active ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []*domain.Zone
	for rows.Next() {
		var z domain.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.CenterLat, &z.CenterLng, &z.RadiusKm, &z.Active); err != nil {
			return nil, err
		}
		zones = append(zones, &z)
	}
	return zones, rows.Err()
}

// FixedRouteRepository is a PostgreSQL implementation of
// repository.FixedRouteRepository.
type FixedRouteRepository struct {
	q Querier
}

// NewFixedRouteRepository creates a new PostgreSQL fixed-route repository.
func NewFixedRouteRepository(db *sql.DB) *FixedRouteRepository {
	return &FixedRouteRepository{q: db}
}

// ListActive retrieves all active fixed routes.
func (r *FixedRouteRepository) ListActive(ctx context.Context) ([]*domain.FixedRoute, error) {
	query := `SELECT id, pickup_zone_id, destination_zone_id, price, active FROM fixed_routes WHERE active ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []*domain.FixedRoute
	for rows.Next() {
		var fr domain.FixedRoute
		if err := rows.Scan(&fr.ID, &fr.PickupZoneID, &fr.DestinationZoneID, &fr.Price, &fr.Active); err != nil {
			return nil, err
		}
		routes = append(routes, &fr)
	}
	return routes, rows.Err()
}

// SettingsRepository is a PostgreSQL implementation of
// repository.SettingsRepository. Fare settings live in a single row.
type SettingsRepository struct {
	q Querier
}

// NewSettingsRepository creates a new PostgreSQL settings repository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{q: db}
}

// Get retrieves the current fare settings.
func (r *SettingsRepository) Get(ctx context.Context) (*domain.FareSettings, error) {
	query := `
		SELECT base_fare, price_per_km, price_per_minute, minimum_fare,
			distance_unit, surge_enabled, surge_multiplier
		FROM fare_settings LIMIT 1
	`

	var s domain.FareSettings
	err := r.q.QueryRowContext(ctx, query).Scan(
		&s.BaseFare,
		&s.PricePerKm,
		&s.PricePerMinute,
		&s.MinimumFare,
		&s.DistanceUnit,
		&s.SurgeEnabled,
		&s.SurgeMultiplier,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &s, nil
}
