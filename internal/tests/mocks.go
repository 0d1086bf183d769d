package tests

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/events"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository. Its
// Accept, AdvanceStatus and Cancel methods apply the same conditional
// semantics as the real storage layer under a single mutex, so races
// exercised against it resolve the way they would against Postgres.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride
	order []string // insertion order, for ListOpen

	// usage mirrors the UNIQUE(promotion_id, user_id) constraint.
	usage map[string]bool

	// Counters for verification
	CreateCallCount  int32
	AcceptCallCount  int32
	AdvanceCallCount int32
	CancelCallCount  int32

	// Error injection
	CreateError  error
	AcceptError  error
	AdvanceError error
	CancelError  error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
		usage: make(map[string]bool),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
	m.order = append(m.order, ride.ID)
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride, usage *domain.PromotionUsage) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Mirror the partial unique index on active rides per passenger.
	for _, id := range m.order {
		if r := m.rides[id]; r.PassengerID == ride.PassengerID && !r.Status.Terminal() {
			return repository.ErrConflict
		}
	}
	if usage != nil {
		key := usage.PromotionID + ":" + usage.UserID
		if m.usage[key] {
			return repository.ErrDuplicate
		}
		m.usage[key] = true
	}
	copy := *ride
	m.rides[ride.ID] = &copy
	m.order = append(m.order, ride.ID)
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) ListOpen(ctx context.Context) ([]*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Ride, 0)
	for _, id := range m.order {
		r := m.rides[id]
		if r.Status == domain.RideStatusPending && r.DriverID == "" {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockRideRepository) GetActiveByPassenger(ctx context.Context, passengerID string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		r := m.rides[id]
		if r.PassengerID == passengerID && !r.Status.Terminal() {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockRideRepository) GetActiveByDriver(ctx context.Context, driverID string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		r := m.rides[id]
		if r.DriverID == driverID && !r.Status.Terminal() {
			copy := *r
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockRideRepository) Accept(ctx context.Context, rideID, driverID string, at time.Time) error {
	atomic.AddInt32(&m.AcceptCallCount, 1)
	if m.AcceptError != nil {
		return m.AcceptError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusPending || ride.DriverID != "" {
		return repository.ErrConflict
	}
	ride.DriverID = driverID
	ride.Status = domain.RideStatusAccepted
	ride.AcceptedAt = at
	return nil
}

func (m *MockRideRepository) AdvanceStatus(ctx context.Context, rideID, driverID string, from, to domain.RideStatus, at time.Time) error {
	atomic.AddInt32(&m.AdvanceCallCount, 1)
	if m.AdvanceError != nil {
		return m.AdvanceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	if ride.Status != from || ride.DriverID != driverID {
		return repository.ErrConflict
	}
	ride.Status = to
	switch to {
	case domain.RideStatusArrived:
		ride.ArrivedAt = at
	case domain.RideStatusInProgress:
		ride.StartedAt = at
	case domain.RideStatusCompleted:
		ride.CompletedAt = at
	}
	return nil
}

func (m *MockRideRepository) Cancel(ctx context.Context, rideID, cancelledBy string, at time.Time) error {
	atomic.AddInt32(&m.CancelCallCount, 1)
	if m.CancelError != nil {
		return m.CancelError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	if ride.Status.Terminal() {
		return repository.ErrConflict
	}
	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = at
	ride.CancelledBy = cancelledBy
	return nil
}

func (m *MockRideRepository) UpdateDriverPosition(ctx context.Context, rideID string, lat, lng, heading float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	ride.DriverLat = lat
	ride.DriverLng = lng
	ride.DriverHeading = heading
	return nil
}

// GetRide returns the ride by ID (for test assertions).
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

// CountRides returns the number of rides.
func (m *MockRideRepository) CountRides() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rides)
}

// CountUsage returns the number of recorded promotion redemptions.
func (m *MockRideRepository) CountUsage() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.usage)
}

// ──────────────────────────────────────────────
// MOCK AVAILABILITY REPOSITORY
// ──────────────────────────────────────────────

// MockAvailabilityRepository is a mock implementation of
// AvailabilityRepository.
type MockAvailabilityRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.DriverAvailability

	// Counters for verification
	HeartbeatCallCount int32

	// Error injection
	GetError       error
	HeartbeatError error
}

// NewMockAvailabilityRepository creates a new mock availability repository.
func NewMockAvailabilityRepository() *MockAvailabilityRepository {
	return &MockAvailabilityRepository{
		records: make(map[string]*domain.DriverAvailability),
	}
}

// AddRecord adds an availability record to the mock repository.
func (m *MockAvailabilityRepository) AddRecord(rec *domain.DriverAvailability) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.DriverID] = rec
}

func (m *MockAvailabilityRepository) Get(ctx context.Context, driverID string) (*domain.DriverAvailability, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[driverID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *rec
	return &copy, nil
}

func (m *MockAvailabilityRepository) RecordHeartbeat(ctx context.Context, driverID string, lat, lng, heading float64, at time.Time) error {
	atomic.AddInt32(&m.HeartbeatCallCount, 1)
	if m.HeartbeatError != nil {
		return m.HeartbeatError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[driverID]
	if !ok {
		rec = &domain.DriverAvailability{DriverID: driverID}
		m.records[driverID] = rec
	}
	rec.Lat = lat
	rec.Lng = lng
	rec.Heading = heading
	rec.LastSeenAt = at
	rec.Online = true
	return nil
}

func (m *MockAvailabilityRepository) SetOnline(ctx context.Context, driverID string, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[driverID]
	if !ok {
		return repository.ErrNotFound
	}
	rec.Online = online
	return nil
}

// GetRecord returns the record for assertions.
func (m *MockAvailabilityRepository) GetRecord(driverID string) *domain.DriverAvailability {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[driverID]
}

// ──────────────────────────────────────────────
// MOCK PROMOTION REPOSITORY
// ──────────────────────────────────────────────

// MockPromotionRepository is a mock implementation of PromotionRepository.
type MockPromotionRepository struct {
	mu         sync.RWMutex
	promotions map[string]*domain.Promotion // by lowercase code
	usage      map[string]bool              // "promoID:userID"

	// Error injection
	GetByCodeError error
	HasUsageError  error
}

// NewMockPromotionRepository creates a new mock promotion repository.
func NewMockPromotionRepository() *MockPromotionRepository {
	return &MockPromotionRepository{
		promotions: make(map[string]*domain.Promotion),
		usage:      make(map[string]bool),
	}
}

// AddPromotion adds a promotion to the mock repository.
func (m *MockPromotionRepository) AddPromotion(p *domain.Promotion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promotions[strings.ToLower(p.Code)] = p
}

// MarkUsed records a redemption for HasUsage checks.
func (m *MockPromotionRepository) MarkUsed(promotionID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[promotionID+":"+userID] = true
}

func (m *MockPromotionRepository) GetByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	if m.GetByCodeError != nil {
		return nil, m.GetByCodeError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.promotions[strings.ToLower(code)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (m *MockPromotionRepository) HasUsage(ctx context.Context, promotionID, userID string) (bool, error) {
	if m.HasUsageError != nil {
		return false, m.HasUsageError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usage[promotionID+":"+userID], nil
}

// ──────────────────────────────────────────────
// MOCK PRICING REPOSITORIES
// ──────────────────────────────────────────────

// MockSettingsRepository is a mock implementation of SettingsRepository.
type MockSettingsRepository struct {
	mu       sync.RWMutex
	settings *domain.FareSettings

	// Error injection
	GetError error
}

// NewMockSettingsRepository creates a mock settings repository with the
// given settings.
func NewMockSettingsRepository(settings *domain.FareSettings) *MockSettingsRepository {
	return &MockSettingsRepository{settings: settings}
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*domain.FareSettings, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	copy := *m.settings
	return &copy, nil
}

// SetSettings replaces the settings (for test setup).
func (m *MockSettingsRepository) SetSettings(settings *domain.FareSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
}

// MockZoneRepository is a mock implementation of ZoneRepository.
type MockZoneRepository struct {
	mu    sync.RWMutex
	zones []*domain.Zone
}

// NewMockZoneRepository creates a mock zone repository.
func NewMockZoneRepository(zones ...*domain.Zone) *MockZoneRepository {
	return &MockZoneRepository{zones: zones}
}

func (m *MockZoneRepository) ListActive(ctx context.Context) ([]*domain.Zone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Zone, 0, len(m.zones))
	for _, z := range m.zones {
		if z.Active {
			copy := *z
			result = append(result, &copy)
		}
	}
	return result, nil
}

// MockFixedRouteRepository is a mock implementation of FixedRouteRepository.
type MockFixedRouteRepository struct {
	mu     sync.RWMutex
	routes []*domain.FixedRoute
}

// NewMockFixedRouteRepository creates a mock fixed-route repository.
func NewMockFixedRouteRepository(routes ...*domain.FixedRoute) *MockFixedRouteRepository {
	return &MockFixedRouteRepository{routes: routes}
}

func (m *MockFixedRouteRepository) ListActive(ctx context.Context) ([]*domain.FixedRoute, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.FixedRoute, 0, len(m.routes))
	for _, r := range m.routes {
		if r.Active {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations []redis.DriverLocation

	// Counters
	UpdateLocationCallCount int32

	// Error injection
	UpdateLocationError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make([]redis.DriverLocation, 0),
	}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.DriverID == driverID {
			m.locations[i].Lat = lat
			m.locations[i].Lng = lng
			return nil
		}
	}
	m.locations = append(m.locations, redis.DriverLocation{
		DriverID: driverID,
		Lat:      lat,
		Lng:      lng,
	})
	return nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Return all locations (mock doesn't do real geo filtering).
	result := make([]redis.DriverLocation, len(m.locations))
	copy(result, m.locations)
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.DriverID == driverID {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return nil
}

// HasLocation checks if a driver location exists.
func (m *MockLocationStore) HasLocation(driverID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, loc := range m.locations {
		if loc.DriverID == driverID {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published ride events.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.RideEvent

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishRideEvent(ctx context.Context, event events.RideEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// Events returns a copy of the published events.
func (m *MockPublisher) Events() []events.RideEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.RideEvent, len(m.events))
	copy(result, m.events)
	return result
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
