package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/neexbeast/geoweather/internal/metrics"
	"github.com/neexbeast/geoweather/internal/refresh"
)

// StoreKey is the persistent store key holding the location record.
const StoreKey = "userLocation"

const (
	DefaultAccuracyThreshold  = 50.0
	DefaultAcquisitionTimeout = 20 * time.Second
	DefaultRefreshInterval    = 5 * time.Minute
	DefaultValidityWindow     = 5 * time.Minute
)

// Config tunes acquisition. Zero fields take the defaults above.
type Config struct {
	AccuracyThreshold  float64
	AcquisitionTimeout time.Duration
	RefreshInterval    time.Duration
	ValidityWindow     time.Duration
	// SingleFlight coalesces concurrent Acquire calls onto one fix.
	// Off by default: overlapping acquisitions race and the last commit wins.
	SingleFlight bool
}

func (c Config) withDefaults() Config {
	if c.AccuracyThreshold <= 0 {
		c.AccuracyThreshold = DefaultAccuracyThreshold
	}
	if c.AcquisitionTimeout <= 0 {
		c.AcquisitionTimeout = DefaultAcquisitionTimeout
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.ValidityWindow <= 0 {
		c.ValidityWindow = DefaultValidityWindow
	}
	return c
}

// State owns the single authoritative location record.
// All mutation goes through its methods.
type State struct {
	mu        sync.RWMutex
	rec       Record
	listeners []func(Record)

	cfg      Config
	locator  Locator
	geocoder Geocoder
	store    Store
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time

	group singleflight.Group
	tasks sync.WaitGroup
}

// NewState constructs a State holding an empty record.
// locator may be nil, in which case every acquisition fails with ErrUnsupported.
func NewState(cfg Config, locator Locator, geocoder Geocoder, store Store, m *metrics.Metrics, log *slog.Logger) *State {
	return &State{
		rec:      Record{Source: SourceNone},
		cfg:      cfg.withDefaults(),
		locator:  locator,
		geocoder: geocoder,
		store:    store,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// SetClock replaces the time source (for tests).
func (s *State) SetClock(now func() time.Time) {
	s.now = now
}

// Config returns the effective configuration.
func (s *State) Config() Config {
	return s.cfg
}

// OnCommit registers fn to be called after every committed coordinate change.
// fn runs on the committing goroutine and must not block.
func (s *State) OnCommit(fn func(Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns a copy of the current record.
func (s *State) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.clone()
}

// Coordinates returns the current coordinates, ok is false when none are set.
func (s *State) Coordinates() (lat, lon float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.rec.HasCoordinates() {
		return 0, 0, false
	}
	return *s.rec.Latitude, *s.rec.Longitude, true
}

// Acquire requests a fresh high-accuracy fix and commits it when its accuracy
// is within the threshold. On any failure the record is left untouched.
// A successful commit is persisted before returning; naming runs in the background.
func (s *State) Acquire(ctx context.Context) (Record, error) {
	if !s.cfg.SingleFlight {
		return s.acquire(ctx)
	}

	v, err, _ := s.group.Do("acquire", func() (any, error) {
		return s.acquire(ctx)
	})
	if err != nil {
		return Record{}, err
	}
	return v.(Record).clone(), nil
}

func (s *State) acquire(ctx context.Context) (Record, error) {
	if s.locator == nil {
		s.metrics.Acquisition("unsupported")
		return Record{}, &AcquisitionError{Kind: ErrUnsupported}
	}

	fix, err := s.locator.GetFix(ctx, FixOptions{
		HighAccuracy: true,
		Timeout:      s.cfg.AcquisitionTimeout,
		AllowCached:  false,
	})
	if err != nil {
		acqErr := classify(err)
		s.metrics.Acquisition(outcome(acqErr.Kind))
		s.log.Warn("location acquisition failed", "kind", acqErr.Kind, "err", err)
		return Record{}, acqErr
	}

	if fix.Accuracy > s.cfg.AccuracyThreshold {
		s.metrics.Acquisition("accuracy_rejected")
		s.log.Warn("location fix rejected", "accuracy", fix.Accuracy, "threshold", s.cfg.AccuracyThreshold)
		return Record{}, &AccuracyError{Accuracy: fix.Accuracy, Threshold: s.cfg.AccuracyThreshold}
	}

	accuracy := fix.Accuracy
	rec := s.commit(fix.Latitude, fix.Longitude, &accuracy, SourceAuto, nil, false)
	s.metrics.Acquisition("ok")
	s.log.Info("location updated", "lat", fix.Latitude, "lon", fix.Longitude, "accuracy", fix.Accuracy)

	s.persist(context.WithoutCancel(ctx), rec)
	s.goReverseGeocode(ctx)
	s.notify(rec)

	return rec, nil
}

// SetManual commits user-entered coordinates with source manual.
// No accuracy gate applies. An empty name is resolved by reverse geocoding.
func (s *State) SetManual(ctx context.Context, lat, lon float64, name string) (Record, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Record{}, fmt.Errorf("coordinates out of range: %f, %f", lat, lon)
	}

	var namePtr *string
	if name != "" {
		namePtr = &name
	}
	rec := s.commit(lat, lon, nil, SourceManual, namePtr, true)
	s.log.Info("location set manually", "lat", lat, "lon", lon)

	s.persist(context.WithoutCancel(ctx), rec)
	if namePtr == nil {
		s.goReverseGeocode(ctx)
	}
	s.notify(rec)

	return rec, nil
}

// commit writes coordinates and stamps LastUpdate in one step.
// The previous name is kept until naming replaces it, unless replaceName is set.
func (s *State) commit(lat, lon float64, accuracy *float64, source Source, name *string, replaceName bool) Record {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.Latitude = &lat
	s.rec.Longitude = &lon
	s.rec.Accuracy = accuracy
	if replaceName {
		s.rec.LocationName = name
	}
	s.rec.Source = source
	s.rec.LastUpdate = &now
	return s.rec.clone()
}

func (s *State) notify(rec Record) {
	s.mu.RLock()
	listeners := append([]func(Record){}, s.listeners...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(rec.clone())
	}
}

func (s *State) goReverseGeocode(ctx context.Context) {
	bg := context.WithoutCancel(ctx)
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("reverse geocode panicked", "recover", r)
			}
		}()
		s.ReverseGeocode(bg)
	}()
}

// Wait blocks until background naming started by Acquire or SetManual has finished.
func (s *State) Wait() {
	s.tasks.Wait()
}

// ReverseGeocode resolves the current coordinates to a display name.
// It never fails: on lookup error or an empty result the name falls back to
// the coordinates formatted to four decimals. A candidate with no usable
// components leaves the name unset.
func (s *State) ReverseGeocode(ctx context.Context) {
	lat, lon, ok := s.Coordinates()
	if !ok {
		return
	}

	var (
		places []Place
		err    error
	)
	if s.geocoder == nil {
		err = errors.New("no geocoder configured")
	} else {
		places, err = s.geocoder.ReverseLookup(ctx, lat, lon)
	}

	var name string
	switch {
	case err != nil:
		s.log.Warn("reverse geocode failed, using coordinates", "lat", lat, "lon", lon, "err", err)
		name = FormatCoordinates(lat, lon)
		s.metrics.Naming("fallback")
	case len(places) == 0:
		s.log.Warn("reverse geocode returned no places, using coordinates", "lat", lat, "lon", lon)
		name = FormatCoordinates(lat, lon)
		s.metrics.Naming("fallback")
	default:
		name = PlaceName(places[0])
		if name == "" {
			s.log.Warn("reverse geocode resolved no name components", "lat", lat, "lon", lon)
			s.metrics.Naming("unresolved")
		} else {
			s.metrics.Naming("ok")
		}
	}

	// An unresolved name clears whatever name belonged to earlier coordinates.
	var namePtr *string
	if name != "" {
		namePtr = &name
	}

	s.mu.Lock()
	s.rec.LocationName = namePtr
	rec := s.rec.clone()
	s.mu.Unlock()

	s.persist(ctx, rec)
}

// IsValid reports whether the record has coordinates younger than maxAge.
// A record with coordinates but no LastUpdate counts as valid.
func (s *State) IsValid(maxAge time.Duration) bool {
	rec := s.Snapshot()
	if !rec.HasCoordinates() {
		return false
	}
	if rec.LastUpdate == nil {
		return true
	}
	return s.now().Sub(*rec.LastUpdate) < maxAge
}

// StartAutoRefresh re-acquires the location every RefreshInterval until the
// returned Refresher is stopped. Failed ticks are logged and the schedule continues.
func (s *State) StartAutoRefresh(ctx context.Context) (*refresh.Refresher, error) {
	r := refresh.New("location", s.cfg.RefreshInterval, func(ctx context.Context) error {
		_, err := s.Acquire(ctx)
		return err
	}, s.log)

	if err := r.Start(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Restore replaces the in-memory record with the stored one, without validation.
// When nothing is stored the record is left as is.
func (s *State) Restore(ctx context.Context) error {
	var rec Record
	found, err := s.store.Load(ctx, StoreKey, &rec)
	if err != nil {
		return fmt.Errorf("restoring location: %w", err)
	}
	if !found {
		return nil
	}

	s.mu.Lock()
	s.rec = rec
	s.mu.Unlock()
	return nil
}

// Persist writes the current record to the store.
func (s *State) Persist(ctx context.Context) error {
	if err := s.store.Save(ctx, StoreKey, s.Snapshot()); err != nil {
		return fmt.Errorf("persisting location: %w", err)
	}
	return nil
}

// persist writes rec and logs instead of failing the caller.
func (s *State) persist(ctx context.Context, rec Record) {
	if err := s.store.Save(ctx, StoreKey, rec); err != nil {
		s.metrics.StoreFailure(StoreKey)
		s.log.Warn("persisting location failed", "err", err)
	}
}

func outcome(kind error) string {
	switch kind {
	case ErrPermissionDenied:
		return "denied"
	case ErrTimeout:
		return "timeout"
	case ErrPositionUnavailable:
		return "unavailable"
	case ErrUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}
