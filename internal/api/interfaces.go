package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/neexbeast/geoweather/internal/location"
	"github.com/neexbeast/geoweather/internal/weather"
)

// LocationService defines the location operations needed by handlers.
type LocationService interface {
	Snapshot() location.Record
	IsValid(maxAge time.Duration) bool
	Acquire(ctx context.Context) (location.Record, error)
	SetManual(ctx context.Context, lat, lon float64, name string) (location.Record, error)
}

// WeatherService defines the weather operations needed by handlers.
type WeatherService interface {
	Snapshot() weather.Record
	FetchAll(ctx context.Context) (current, forecast json.RawMessage)
}

// FixReceiver accepts device reports for the push locator.
type FixReceiver interface {
	Submit(fix location.Fix) error
	Fail(err error)
	SetPermission(granted bool)
}
