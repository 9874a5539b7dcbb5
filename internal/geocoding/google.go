package geocoding

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-tracker-client/internal/common"
	"github.com/i474232898/weather-tracker-client/internal/transport"
)

// The geocoder library keeps its API key in a package variable.
var googleKeyMu sync.Mutex

// Google implements Backend on the Google Geocoding API.
type Google struct {
	apiKey  string
	circuit *gobreaker.CircuitBreaker
}

func NewGoogle(apiKey string) *Google {
	return &Google{
		apiKey:  apiKey,
		circuit: transport.NewCircuitBreaker("google-geocoder"),
	}
}

func (g *Google) Name() string {
	return "google"
}

func (g *Google) Search(ctx context.Context, query string) (*Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := g.circuit.Execute(func() (interface{}, error) {
		googleKeyMu.Lock()
		defer googleKeyMu.Unlock()
		geocoder.ApiKey = g.apiKey
		return geocoder.Geocoding(geocoder.Address{City: query})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrResolutionUnavailable, err)
	}

	loc, ok := result.(geocoder.Location)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type", common.ErrResolutionUnavailable)
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return nil, nil
	}
	return &Match{Latitude: loc.Latitude, Longitude: loc.Longitude, DisplayName: query}, nil
}

func (g *Google) Reverse(ctx context.Context, lat, lon float64) (*Reverse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := g.circuit.Execute(func() (interface{}, error) {
		googleKeyMu.Lock()
		defer googleKeyMu.Unlock()
		geocoder.ApiKey = g.apiKey
		return geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrResolutionUnavailable, err)
	}

	addresses, ok := result.([]geocoder.Address)
	if !ok || len(addresses) == 0 {
		return nil, fmt.Errorf("%w: no address for %s", common.ErrResolutionUnavailable, common.FormatCoordinates(lat, lon))
	}

	first := addresses[0]
	return &Reverse{
		Address:     Address{City: first.City, County: first.County},
		DisplayName: first.FormattedAddress,
	}, nil
}
