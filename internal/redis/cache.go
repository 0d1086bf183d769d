package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatch/internal/domain"
)

// ReferenceCache caches the read-mostly pricing reference data (fare
// settings, zones, fixed routes) in Redis. TTLs sit below the clients'
// polling interval so admin changes propagate within one poll; expiry
// is the only invalidation mechanism.
type ReferenceCache struct {
	client *redis.Client
}

// NewReferenceCache creates a new ReferenceCache.
func NewReferenceCache(client *redis.Client) *ReferenceCache {
	return &ReferenceCache{client: client}
}

// Cache TTL constants.
const (
	SettingsCacheTTL = 3 * time.Second
	ZonesCacheTTL    = 10 * time.Second
	RoutesCacheTTL   = 10 * time.Second
)

// Keys.
const (
	settingsCacheKey = "cache:fare_settings"
	zonesCacheKey    = "cache:zones:active"
	routesCacheKey   = "cache:fixed_routes:active"
)

// GetSettings retrieves cached fare settings. Returns nil on cache miss.
func (c *ReferenceCache) GetSettings(ctx context.Context) (*domain.FareSettings, error) {
	data, err := c.client.Get(ctx, settingsCacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var settings domain.FareSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SetSettings stores fare settings in cache.
func (c *ReferenceCache) SetSettings(ctx context.Context, settings *domain.FareSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, settingsCacheKey, data, SettingsCacheTTL).Err()
}

// GetZones retrieves cached active zones. Returns nil on cache miss.
func (c *ReferenceCache) GetZones(ctx context.Context) ([]*domain.Zone, error) {
	data, err := c.client.Get(ctx, zonesCacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var zones []*domain.Zone
	if err := json.Unmarshal(data, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// SetZones stores the active zone set in cache.
func (c *ReferenceCache) SetZones(ctx context.Context, zones []*domain.Zone) error {
	data, err := json.Marshal(zones)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, zonesCacheKey, data, ZonesCacheTTL).Err()
}

// GetFixedRoutes retrieves cached active fixed routes. Returns nil on
// cache miss.
func (c *ReferenceCache) GetFixedRoutes(ctx context.Context) ([]*domain.FixedRoute, error) {
	data, err := c.client.Get(ctx, routesCacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var routes []*domain.FixedRoute
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

// SetFixedRoutes stores the active fixed-route set in cache.
func (c *ReferenceCache) SetFixedRoutes(ctx context.Context, routes []*domain.FixedRoute) error {
	data, err := json.Marshal(routes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, routesCacheKey, data, RoutesCacheTTL).Err()
}
