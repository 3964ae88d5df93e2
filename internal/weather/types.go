package weather

import (
	"context"
	"encoding/json"
	"time"
)

// Record caches the last fetched payloads. Payloads are opaque provider JSON.
type Record struct {
	Current    json.RawMessage `json:"current"`
	Forecast   json.RawMessage `json:"forecast"`
	LastUpdate *time.Time      `json:"lastUpdate"`
}

func (r Record) clone() Record {
	out := Record{
		Current:  cloneRaw(r.Current),
		Forecast: cloneRaw(r.Forecast),
	}
	if r.LastUpdate != nil {
		t := *r.LastUpdate
		out.LastUpdate = &t
	}
	return out
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}

// Client fetches provider payloads for a coordinate pair.
type Client interface {
	Current(ctx context.Context, lat, lon float64) (json.RawMessage, error)
	Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error)
}

// Coordinates supplies the position weather is fetched for.
// *location.State satisfies this interface.
type Coordinates interface {
	Coordinates() (lat, lon float64, ok bool)
}

// Store is the durable key/value storage the record is persisted to.
type Store interface {
	Load(ctx context.Context, key string, dst any) (bool, error)
	Save(ctx context.Context, key string, v any) error
}
