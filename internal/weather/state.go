package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/geoweather/internal/metrics"
)

// StoreKey is the persistent store key holding the weather record.
const StoreKey = "weatherData"

type payloadKind string

const (
	kindCurrent  payloadKind = "current"
	kindForecast payloadKind = "forecast"
)

// State caches current and forecast weather for the coordinates held by its Coordinates source.
// Fetch failures are logged and leave the cache untouched; they are never returned.
type State struct {
	mu  sync.RWMutex
	rec Record

	// saveMu orders writes to the store. The record is read while holding it,
	// so the last Save always carries the latest payloads.
	saveMu sync.Mutex

	coords  Coordinates
	client  Client
	store   Store
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewState constructs a State with an empty record.
func NewState(coords Coordinates, client Client, store Store, m *metrics.Metrics, log *slog.Logger) *State {
	return &State{
		coords:  coords,
		client:  client,
		store:   store,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// SetClock replaces the time source (for tests).
func (s *State) SetClock(now func() time.Time) {
	s.now = now
}

// Snapshot returns a copy of the cached record.
func (s *State) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.clone()
}

// FetchCurrent fetches and caches current conditions.
// Returns nil when no coordinates are known or the fetch fails.
func (s *State) FetchCurrent(ctx context.Context) json.RawMessage {
	return s.fetch(ctx, kindCurrent)
}

// FetchForecast fetches and caches the multi-day forecast.
// Returns nil when no coordinates are known or the fetch fails.
func (s *State) FetchForecast(ctx context.Context) json.RawMessage {
	return s.fetch(ctx, kindForecast)
}

// FetchAll fetches both payloads concurrently and returns whatever succeeded.
// Each half commits independently, so a failure of one keeps the other's previous payload.
func (s *State) FetchAll(ctx context.Context) (current, forecast json.RawMessage) {
	var g errgroup.Group

	g.Go(func() error {
		current = s.FetchCurrent(ctx)
		return nil
	})
	g.Go(func() error {
		forecast = s.FetchForecast(ctx)
		return nil
	})

	_ = g.Wait()
	return current, forecast
}

func (s *State) fetch(ctx context.Context, kind payloadKind) (payload json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("weather fetch panicked", "kind", kind, "recover", r)
			s.metrics.WeatherFetch(string(kind), "error")
			payload = nil
		}
	}()

	lat, lon, ok := s.coords.Coordinates()
	if !ok {
		s.log.Debug("weather fetch skipped, no coordinates", "kind", kind)
		return nil
	}

	var err error
	switch kind {
	case kindCurrent:
		payload, err = s.client.Current(ctx, lat, lon)
	case kindForecast:
		payload, err = s.client.Forecast(ctx, lat, lon)
	}
	if err != nil {
		s.metrics.WeatherFetch(string(kind), "error")
		s.log.Warn("weather fetch failed", "kind", kind, "lat", lat, "lon", lon, "err", err)
		return nil
	}

	now := s.now()
	s.mu.Lock()
	switch kind {
	case kindCurrent:
		s.rec.Current = cloneRaw(payload)
	case kindForecast:
		s.rec.Forecast = cloneRaw(payload)
	}
	s.rec.LastUpdate = &now
	s.mu.Unlock()

	s.metrics.WeatherFetch(string(kind), "ok")
	if err := s.save(ctx); err != nil {
		s.metrics.StoreFailure(StoreKey)
		s.log.Warn("persisting weather failed", "kind", kind, "err", err)
	}

	return payload
}

// Restore replaces the in-memory record with the stored one, without validation.
// When nothing is stored the record is left as is.
func (s *State) Restore(ctx context.Context) error {
	var rec Record
	found, err := s.store.Load(ctx, StoreKey, &rec)
	if err != nil {
		return fmt.Errorf("restoring weather: %w", err)
	}
	if !found {
		return nil
	}

	rec.Current = dropNull(rec.Current)
	rec.Forecast = dropNull(rec.Forecast)

	s.mu.Lock()
	s.rec = rec
	s.mu.Unlock()
	return nil
}

// dropNull maps a stored JSON null back to an absent payload.
func dropNull(b json.RawMessage) json.RawMessage {
	if string(b) == "null" {
		return nil
	}
	return b
}

// Persist writes the current record to the store.
func (s *State) Persist(ctx context.Context) error {
	if err := s.save(ctx); err != nil {
		return fmt.Errorf("persisting weather: %w", err)
	}
	return nil
}

func (s *State) save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.store.Save(ctx, StoreKey, s.Snapshot())
}
