package location

import (
	"context"
	"time"
)

// Source records where the current coordinates came from.
type Source string

const (
	SourceNone   Source = "none"
	SourceAuto   Source = "auto"
	SourceManual Source = "manual"
)

// Record is the canonical location of the device.
// Latitude and Longitude are either both nil or both set.
type Record struct {
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
	Accuracy     *float64   `json:"accuracy"`
	LocationName *string    `json:"locationName"`
	Source       Source     `json:"source"`
	LastUpdate   *time.Time `json:"lastUpdate"`
}

// HasCoordinates reports whether both coordinates are set.
func (r Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// clone returns a deep copy so callers never alias the state's pointers.
func (r Record) clone() Record {
	out := Record{Source: r.Source}
	out.Latitude = copyPtr(r.Latitude)
	out.Longitude = copyPtr(r.Longitude)
	out.Accuracy = copyPtr(r.Accuracy)
	out.LocationName = copyPtr(r.LocationName)
	out.LastUpdate = copyPtr(r.LastUpdate)
	return out
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Fix is a single reported position with its accuracy radius in meters.
type Fix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// FixOptions are passed to the Locator for every one-shot request.
type FixOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	AllowCached  bool
}

// Place is a reverse geocoding candidate.
type Place struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Locator yields one position fix or fails with one of the acquisition sentinels.
type Locator interface {
	GetFix(ctx context.Context, opts FixOptions) (Fix, error)
}

// Geocoder resolves coordinates to an ordered list of place candidates.
type Geocoder interface {
	ReverseLookup(ctx context.Context, lat, lon float64) ([]Place, error)
}

// Store is the durable key/value storage the state is persisted to.
// Load reports false when nothing is stored under key.
type Store interface {
	Load(ctx context.Context, key string, dst any) (bool, error)
	Save(ctx context.Context, key string, v any) error
}
