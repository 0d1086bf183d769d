package service

import (
	"context"
	"math"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/routing"
)

// QuoteInput carries the route facts a fare is computed from. Distance
// and duration come from the routing oracle; the engine never derives
// them itself.
type QuoteInput struct {
	PickupLat      float64
	PickupLng      float64
	DestinationLat float64
	DestinationLng float64
	DistanceKm     float64
	DurationMin    float64
}

// Fare is the result of a fare computation.
type Fare struct {
	// Amount is the pre-discount fare. This is what gets persisted on
	// the ride.
	Amount float64

	// Discount and Charged reflect an applied promotion; without one,
	// Charged equals Amount and Discount is zero.
	Discount float64
	Charged  float64

	// FixedRoute marks a zone-to-zone contract fare.
	FixedRoute        bool
	PickupZoneID      string
	DestinationZoneID string
}

// ComputeFare is a pure function turning route facts into a fare under
// the given settings, zone tables and optional promotion.
//
// A matching active fixed route for the ordered zone pair is a contract
// fare: it bypasses metered pricing entirely and is neither surged nor
// rounded. Metered fares are floored at the minimum fare before surge
// and rounded up to the next whole currency unit after it.
func ComputeFare(in QuoteInput, settings *domain.FareSettings, zones []*domain.Zone, routes []*domain.FixedRoute, promo *domain.Promotion) Fare {
	var fare Fare

	pickupZone := geo.MatchZone(in.PickupLat, in.PickupLng, zones)
	destZone := geo.MatchZone(in.DestinationLat, in.DestinationLng, zones)
	if pickupZone != nil {
		fare.PickupZoneID = pickupZone.ID
	}
	if destZone != nil {
		fare.DestinationZoneID = destZone.ID
	}

	if pickupZone != nil && destZone != nil {
		if route := matchFixedRoute(pickupZone.ID, destZone.ID, routes); route != nil {
			fare.Amount = route.Price
			fare.FixedRoute = true
			fare.Charged = applyDiscount(fare.Amount, promo)
			fare.Discount = round2(fare.Amount - fare.Charged)
			return fare
		}
	}

	distance := in.DistanceKm
	if distance < 0 {
		distance = 0
	}
	if settings.DistanceUnit == domain.DistanceUnitMeters {
		distance *= 1000
	}

	duration := in.DurationMin
	if duration < 0 {
		duration = 0
	}

	metered := settings.BaseFare + distance*settings.PricePerKm + duration*settings.PricePerMinute
	if metered < settings.MinimumFare {
		metered = settings.MinimumFare
	}
	if settings.SurgeEnabled {
		metered *= settings.SurgeMultiplier
	}

	fare.Amount = math.Ceil(metered)
	fare.Charged = applyDiscount(fare.Amount, promo)
	fare.Discount = round2(fare.Amount - fare.Charged)
	return fare
}

// matchFixedRoute returns the active route for the ordered zone pair,
// or nil.
func matchFixedRoute(pickupZoneID, destZoneID string, routes []*domain.FixedRoute) *domain.FixedRoute {
	for _, route := range routes {
		if route.Active && route.PickupZoneID == pickupZoneID && route.DestinationZoneID == destZoneID {
			return route
		}
	}
	return nil
}

// applyDiscount returns the charged amount after the promotion, never
// below zero, rounded to two decimals.
func applyDiscount(amount float64, promo *domain.Promotion) float64 {
	if promo == nil {
		return amount
	}

	var discount float64
	switch promo.Type {
	case domain.DiscountPercentage:
		discount = amount * promo.Value / 100
	case domain.DiscountFixed:
		discount = promo.Value
	}

	charged := amount - discount
	if charged < 0 {
		charged = 0
	}
	return round2(charged)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FareService serves advisory fare quotes. The authoritative fare is the
// one persisted when the ride is created; quotes are never stored.
type FareService struct {
	settingsRepo repository.SettingsRepository
	zoneRepo     repository.ZoneRepository
	routeRepo    repository.FixedRouteRepository
	cache        *redis.ReferenceCache
	oracle       routing.Oracle
}

// NewFareService creates a new FareService. cache and oracle may be nil.
func NewFareService(
	settingsRepo repository.SettingsRepository,
	zoneRepo repository.ZoneRepository,
	routeRepo repository.FixedRouteRepository,
	cache *redis.ReferenceCache,
	oracle routing.Oracle,
) *FareService {
	return &FareService{
		settingsRepo: settingsRepo,
		zoneRepo:     zoneRepo,
		routeRepo:    routeRepo,
		cache:        cache,
		oracle:       oracle,
	}
}

// Quote computes an advisory fare for the given route. When the caller
// supplies no distance and an oracle is configured, the route is
// resolved through it.
func (s *FareService) Quote(ctx context.Context, in QuoteInput, promo *domain.Promotion) (Fare, error) {
	if !isValidLatitude(in.PickupLat) || !isValidLongitude(in.PickupLng) {
		return Fare{}, ErrInvalidPickup
	}
	if !isValidLatitude(in.DestinationLat) || !isValidLongitude(in.DestinationLng) {
		return Fare{}, ErrInvalidDestination
	}

	if in.DistanceKm <= 0 {
		if s.oracle == nil {
			return Fare{}, ErrRouteUnavailable
		}
		distanceKm, durationMin, err := s.oracle.Route(ctx, in.PickupLat, in.PickupLng, in.DestinationLat, in.DestinationLng)
		if err != nil {
			return Fare{}, ErrRouteUnavailable
		}
		in.DistanceKm = distanceKm
		in.DurationMin = durationMin
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return Fare{}, err
	}
	zones, err := s.loadZones(ctx)
	if err != nil {
		return Fare{}, err
	}
	routes, err := s.loadFixedRoutes(ctx)
	if err != nil {
		return Fare{}, err
	}

	return ComputeFare(in, settings, zones, routes, promo), nil
}

// loadSettings is cache-aside: cache errors fall through to the
// repository.
func (s *FareService) loadSettings(ctx context.Context) (*domain.FareSettings, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetSettings(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetSettings(ctx, settings)
	}
	return settings, nil
}

func (s *FareService) loadZones(ctx context.Context) ([]*domain.Zone, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetZones(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	zones, err := s.zoneRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetZones(ctx, zones)
	}
	return zones, nil
}

func (s *FareService) loadFixedRoutes(ctx context.Context) ([]*domain.FixedRoute, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFixedRoutes(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	routes, err := s.routeRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetFixedRoutes(ctx, routes)
	}
	return routes, nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
