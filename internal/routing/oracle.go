// Package routing adapts the external routing oracle. The dispatch
// engine treats distance and duration as opaque external facts; this
// package only fetches them when a caller has not supplied its own.
package routing

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"
)

// ErrNoRoute is returned when the oracle finds no route between the
// coordinates.
var ErrNoRoute = errors.New("no route found")

// Oracle supplies driving distance and duration for a coordinate pair.
type Oracle interface {
	Route(ctx context.Context, pickupLat, pickupLng, destLat, destLng float64) (distanceKm, durationMin float64, err error)
}

// GoogleOracle resolves routes through the Google Maps Directions API.
type GoogleOracle struct {
	client *maps.Client
}

// NewGoogleOracle creates an oracle with the given API key.
func NewGoogleOracle(apiKey string) (*GoogleOracle, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleOracle{client: client}, nil
}

// Route returns the driving distance (km) and duration (minutes) between
// two coordinates.
func (o *GoogleOracle) Route(ctx context.Context, pickupLat, pickupLng, destLat, destLng float64) (float64, float64, error) {
	req := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", pickupLat, pickupLng),
		Destination: fmt.Sprintf("%f,%f", destLat, destLng),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := o.client.Directions(ctx, req)
	if err != nil {
		return 0, 0, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, 0, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	return float64(leg.Distance.Meters) / 1000.0, leg.Duration.Minutes(), nil
}

var _ Oracle = (*GoogleOracle)(nil)
