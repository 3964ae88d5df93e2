package clients

import (
	"context"
	"fmt"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/neexbeast/geoweather/internal/location"
)

// GoogleGeocoder resolves coordinates with the Google Maps Geocoding API.
// The underlying library keeps its API key in a package variable, so only one
// key can be in use per process.
type GoogleGeocoder struct {
	breaker *gobreaker.CircuitBreaker
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleGeocoder sets the library API key and returns a geocoder using it.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{
		breaker: newBreaker("google-geocoding"),
		reverse: geocoder.GeocodingReverse,
	}
}

// ReverseLookup returns place candidates for the coordinates, best match first.
// The library call is not context aware; ctx only bounds how long we wait for it.
func (g *GoogleGeocoder) ReverseLookup(ctx context.Context, lat, lon float64) ([]location.Place, error) {
	type result struct {
		addrs []geocoder.Address
		err   error
	}
	done := make(chan result, 1)

	go func() {
		v, err := g.breaker.Execute(func() (interface{}, error) {
			return g.reverse(geocoder.Location{Latitude: lat, Longitude: lon})
		})
		addrs, _ := v.([]geocoder.Address)
		done <- result{addrs: addrs, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("google reverse geocode for %f,%f: %w", lat, lon, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("google reverse geocode for %f,%f: %w", lat, lon, r.err)
		}
		return placesFromAddresses(r.addrs), nil
	}
}

func placesFromAddresses(addrs []geocoder.Address) []location.Place {
	out := make([]location.Place, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, location.Place{Name: a.City, State: a.State, Country: a.Country})
	}
	return out
}
