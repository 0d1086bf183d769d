package geo

import (
	"math"

	"dispatch/internal/domain"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two coordinates
// in kilometers.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLng := (lng2 - lng1) * (math.Pi / 180.0)

	lat1Rad := lat1 * (math.Pi / 180.0)
	lat2Rad := lat2 * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// MatchZone returns the active zone containing the coordinate, or nil.
// When a point falls inside overlapping zones the smallest radius wins,
// then the lexicographically lowest zone id, so resolution is
// deterministic across processes.
func MatchZone(lat, lng float64, zones []*domain.Zone) *domain.Zone {
	var best *domain.Zone
	for _, z := range zones {
		if !z.Active {
			continue
		}
		if Haversine(lat, lng, z.CenterLat, z.CenterLng) > z.RadiusKm {
			continue
		}
		if best == nil ||
			z.RadiusKm < best.RadiusKm ||
			(z.RadiusKm == best.RadiusKm && z.ID < best.ID) {
			best = z
		}
	}
	return best
}
