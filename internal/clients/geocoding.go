package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/neexbeast/geoweather/internal/location"
)

const owmReverseDefaultURL = "https://api.openweathermap.org/geo/1.0/reverse"

// GeocodingClient resolves coordinates to place names with OpenWeatherMap reverse geocoding.
type GeocodingClient struct {
	apiKey  string
	baseURL string
	limit   int
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewGeocodingClient constructs a GeocodingClient with the given API key.
func NewGeocodingClient(apiKey string) *GeocodingClient {
	return NewGeocodingClientWithURL(owmReverseDefaultURL, apiKey)
}

// NewGeocodingClientWithURL constructs a GeocodingClient pointing at a custom base URL (for tests).
func NewGeocodingClientWithURL(baseURL, apiKey string) *GeocodingClient {
	return &GeocodingClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		limit:   1,
		client:  newHTTPClient(),
		breaker: newBreaker("openweathermap-geo"),
	}
}

type owmReverseEntry struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// ReverseLookup returns place candidates for the coordinates, best match first.
// An empty slice means the provider knows nothing at that position.
func (c *GeocodingClient) ReverseLookup(ctx context.Context, lat, lon float64) ([]location.Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("appid", c.apiKey)

	var raw []owmReverseEntry
	if err := guardedGet(ctx, c.breaker, c.client, c.baseURL+"?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("openweathermap reverse geocode for %f,%f: %w", lat, lon, err)
	}

	out := make([]location.Place, 0, len(raw))
	for _, e := range raw {
		out = append(out, location.Place{Name: e.Name, State: e.State, Country: e.Country})
	}
	return out, nil
}
