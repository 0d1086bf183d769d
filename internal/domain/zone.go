package domain

// Zone is a circular geofence used for contract-fare matching.
type Zone struct {
	ID        string
	Name      string
	CenterLat float64
	CenterLng float64
	RadiusKm  float64
	Active    bool
}

// FixedRoute is a priced, directed zone pair that bypasses metered pricing.
// At most one active route exists per ordered pair.
type FixedRoute struct {
	ID                string
	PickupZoneID      string
	DestinationZoneID string
	Price             float64
	Active            bool
}
