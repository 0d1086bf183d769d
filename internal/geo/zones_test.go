package geo

import (
	"math"
	"testing"

	"dispatch/internal/domain"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// Bangalore city center to Mysore, roughly 130km.
	d := Haversine(12.9716, 77.5946, 12.2958, 76.6394)
	if d < 125 || d > 135 {
		t.Errorf("expected ~130km, got %.2f", d)
	}
}

func TestHaversine_ZeroForSamePoint(t *testing.T) {
	d := Haversine(12.9716, 77.5946, 12.9716, 77.5946)
	if math.Abs(d) > 1e-9 {
		t.Errorf("expected 0, got %v", d)
	}
}

func TestMatchZone_ContainmentAndMiss(t *testing.T) {
	zones := []*domain.Zone{
		{ID: "z1", Name: "CBD", CenterLat: 12.9716, CenterLng: 77.5946, RadiusKm: 2, Active: true},
	}

	if z := MatchZone(12.9720, 77.5950, zones); z == nil || z.ID != "z1" {
		t.Fatalf("expected z1, got %v", z)
	}

	// ~130km away, well outside the 2km radius.
	if z := MatchZone(12.2958, 76.6394, zones); z != nil {
		t.Errorf("expected no match, got %s", z.ID)
	}
}

func TestMatchZone_IgnoresInactiveZones(t *testing.T) {
	zones := []*domain.Zone{
		{ID: "z1", CenterLat: 12.9716, CenterLng: 77.5946, RadiusKm: 2, Active: false},
	}

	if z := MatchZone(12.9716, 77.5946, zones); z != nil {
		t.Errorf("expected no match for inactive zone, got %s", z.ID)
	}
}

func TestMatchZone_OverlapPrefersSmallestRadiusThenLowestID(t *testing.T) {
	testCases := []struct {
		name  string
		zones []*domain.Zone
		want  string
	}{
		{
			name: "smaller radius wins",
			zones: []*domain.Zone{
				{ID: "big", CenterLat: 12.97, CenterLng: 77.59, RadiusKm: 10, Active: true},
				{ID: "small", CenterLat: 12.97, CenterLng: 77.59, RadiusKm: 3, Active: true},
			},
			want: "small",
		},
		{
			name: "equal radius falls back to lowest id",
			zones: []*domain.Zone{
				{ID: "zb", CenterLat: 12.97, CenterLng: 77.59, RadiusKm: 5, Active: true},
				{ID: "za", CenterLat: 12.97, CenterLng: 77.59, RadiusKm: 5, Active: true},
			},
			want: "za",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			z := MatchZone(12.97, 77.59, tc.zones)
			if z == nil {
				t.Fatal("expected a match")
			}
			if z.ID != tc.want {
				t.Errorf("expected %s, got %s", tc.want, z.ID)
			}
		})
	}
}
