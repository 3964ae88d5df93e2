// Package locator provides the Locator that feeds location.State with fixes
// reported by a device over the API.
package locator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/neexbeast/geoweather/internal/location"
)

// Error codes a device may report instead of a fix.
var errorCodes = map[string]error{
	"permission_denied":    location.ErrPermissionDenied,
	"timeout":              location.ErrTimeout,
	"position_unavailable": location.ErrPositionUnavailable,
	"unsupported":          location.ErrUnsupported,
	"unknown":              location.ErrUnknown,
}

// ParseErrorCode maps a reported error code onto its acquisition sentinel.
func ParseErrorCode(code string) (error, bool) {
	err, ok := errorCodes[code]
	return err, ok
}

type result struct {
	fix location.Fix
	err error
}

// PushLocator hands each GetFix call the next fix (or failure) a device reports.
// Reports that arrive while nobody is waiting only update the cached fix.
type PushLocator struct {
	mu      sync.Mutex
	last    *location.Fix
	waiters map[chan result]struct{}
	denied  bool
}

// NewPushLocator constructs a PushLocator with no cached fix.
func NewPushLocator() *PushLocator {
	return &PushLocator{waiters: make(map[chan result]struct{})}
}

// SetPermission records whether the device currently grants location access.
// While denied, GetFix fails immediately with ErrPermissionDenied.
func (p *PushLocator) SetPermission(granted bool) {
	p.mu.Lock()
	p.denied = !granted
	p.mu.Unlock()
	if !granted {
		p.broadcast(result{err: location.ErrPermissionDenied})
	}
}

// Submit records a fix and delivers it to every pending GetFix.
func (p *PushLocator) Submit(fix location.Fix) error {
	if err := validate(fix); err != nil {
		return err
	}

	p.mu.Lock()
	p.last = &fix
	p.mu.Unlock()

	p.broadcast(result{fix: fix})
	return nil
}

// Fail delivers err to every pending GetFix. It does not touch the cached fix.
func (p *PushLocator) Fail(err error) {
	p.broadcast(result{err: err})
}

// Pending reports how many GetFix calls are waiting for a report.
func (p *PushLocator) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}

func (p *PushLocator) broadcast(r result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.waiters {
		ch <- r
		delete(p.waiters, ch)
	}
}

// GetFix waits for the next reported fix, bounded by opts.Timeout and ctx.
// With AllowCached the last reported fix is returned immediately when there is one.
func (p *PushLocator) GetFix(ctx context.Context, opts location.FixOptions) (location.Fix, error) {
	p.mu.Lock()
	if p.denied {
		p.mu.Unlock()
		return location.Fix{}, location.ErrPermissionDenied
	}
	if opts.AllowCached && p.last != nil {
		fix := *p.last
		p.mu.Unlock()
		return fix, nil
	}
	ch := make(chan result, 1)
	p.waiters[ch] = struct{}{}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.waiters, ch)
		p.mu.Unlock()
	}()

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case r := <-ch:
		return r.fix, r.err
	case <-timeout:
		return location.Fix{}, fmt.Errorf("no fix within %s: %w", opts.Timeout, location.ErrTimeout)
	case <-ctx.Done():
		return location.Fix{}, fmt.Errorf("waiting for fix: %w", ctx.Err())
	}
}

func validate(fix location.Fix) error {
	switch {
	case math.IsNaN(fix.Latitude) || fix.Latitude < -90 || fix.Latitude > 90:
		return fmt.Errorf("latitude out of range: %v", fix.Latitude)
	case math.IsNaN(fix.Longitude) || fix.Longitude < -180 || fix.Longitude > 180:
		return fmt.Errorf("longitude out of range: %v", fix.Longitude)
	case math.IsNaN(fix.Accuracy) || fix.Accuracy < 0:
		return fmt.Errorf("accuracy must be a non-negative number: %v", fix.Accuracy)
	}
	return nil
}
