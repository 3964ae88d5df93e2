package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"
)

const (
	owmCurrentDefaultURL  = "https://api.openweathermap.org/data/2.5/weather"
	owmForecastDefaultURL = "https://api.openweathermap.org/data/2.5/forecast"
)

// WeatherClient fetches current conditions and the 5-day forecast from OpenWeatherMap.
// Payloads are returned verbatim.
type WeatherClient struct {
	apiKey      string
	currentURL  string
	forecastURL string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
}

// NewWeatherClient constructs a WeatherClient with the given API key.
func NewWeatherClient(apiKey string) *WeatherClient {
	return NewWeatherClientWithURLs(owmCurrentDefaultURL, owmForecastDefaultURL, apiKey)
}

// NewWeatherClientWithURLs constructs a WeatherClient pointing at custom URLs (for tests).
func NewWeatherClientWithURLs(currentURL, forecastURL, apiKey string) *WeatherClient {
	return &WeatherClient{
		apiKey:      apiKey,
		currentURL:  currentURL,
		forecastURL: forecastURL,
		client:      newHTTPClient(),
		breaker:     newBreaker("openweathermap"),
	}
}

func (c *WeatherClient) endpoint(base string, lat, lon float64) string {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	return base + "?" + q.Encode()
}

// Current fetches current conditions for the coordinates.
func (c *WeatherClient) Current(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := guardedGet(ctx, c.breaker, c.client, c.endpoint(c.currentURL, lat, lon), &raw); err != nil {
		return nil, fmt.Errorf("openweathermap current for %f,%f: %w", lat, lon, err)
	}
	return raw, nil
}

// Forecast fetches the multi-day forecast for the coordinates.
func (c *WeatherClient) Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := guardedGet(ctx, c.breaker, c.client, c.endpoint(c.forecastURL, lat, lon), &raw); err != nil {
		return nil, fmt.Errorf("openweathermap forecast for %f,%f: %w", lat, lon, err)
	}
	return raw, nil
}
