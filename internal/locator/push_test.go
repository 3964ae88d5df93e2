package locator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/geoweather/internal/location"
	"github.com/neexbeast/geoweather/internal/locator"
)

var klFix = location.Fix{Latitude: 3.1390, Longitude: 101.6869, Accuracy: 12}

func fresh(timeout time.Duration) location.FixOptions {
	return location.FixOptions{HighAccuracy: true, Timeout: timeout}
}

// getFixAsync starts GetFix and waits until it is registered as pending.
func getFixAsync(t *testing.T, p *locator.PushLocator, opts location.FixOptions) <-chan error {
	t.Helper()
	before := p.Pending()
	done := make(chan error, 1)
	var fix location.Fix
	go func() {
		var err error
		fix, err = p.GetFix(context.Background(), opts)
		if err == nil && fix != klFix {
			err = errors.New("unexpected fix")
		}
		done <- err
	}()
	require.Eventually(t, func() bool { return p.Pending() > before }, time.Second, time.Millisecond)
	return done
}

func TestPushLocator_DeliversSubmittedFix(t *testing.T) {
	p := locator.NewPushLocator()
	done := getFixAsync(t, p, fresh(time.Second))

	require.NoError(t, p.Submit(klFix))
	require.NoError(t, <-done)
	assert.Equal(t, 0, p.Pending())
}

func TestPushLocator_DeliversToAllWaiters(t *testing.T) {
	p := locator.NewPushLocator()
	first := getFixAsync(t, p, fresh(time.Second))
	second := getFixAsync(t, p, fresh(time.Second))

	require.NoError(t, p.Submit(klFix))
	require.NoError(t, <-first)
	require.NoError(t, <-second)
}

func TestPushLocator_Timeout(t *testing.T) {
	p := locator.NewPushLocator()

	_, err := p.GetFix(context.Background(), fresh(30*time.Millisecond))
	require.Error(t, err)
	assert.True(t, errors.Is(err, location.ErrTimeout))
	assert.Equal(t, 0, p.Pending(), "timed out waiters are removed")
}

func TestPushLocator_ContextCancelled(t *testing.T) {
	p := locator.NewPushLocator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.GetFix(ctx, fresh(time.Second))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPushLocator_IgnoresCacheForFreshRequests(t *testing.T) {
	p := locator.NewPushLocator()
	require.NoError(t, p.Submit(klFix))

	_, err := p.GetFix(context.Background(), fresh(30*time.Millisecond))
	assert.True(t, errors.Is(err, location.ErrTimeout), "a fresh request must wait for a new report")
}

func TestPushLocator_AllowCachedReturnsLastFix(t *testing.T) {
	p := locator.NewPushLocator()
	require.NoError(t, p.Submit(klFix))

	fix, err := p.GetFix(context.Background(), location.FixOptions{AllowCached: true, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, klFix, fix)
}

func TestPushLocator_FailDeliversError(t *testing.T) {
	p := locator.NewPushLocator()
	done := getFixAsync(t, p, fresh(time.Second))

	p.Fail(location.ErrPositionUnavailable)
	assert.True(t, errors.Is(<-done, location.ErrPositionUnavailable))
}

func TestPushLocator_PermissionDenied(t *testing.T) {
	p := locator.NewPushLocator()
	done := getFixAsync(t, p, fresh(time.Second))

	p.SetPermission(false)
	assert.True(t, errors.Is(<-done, location.ErrPermissionDenied), "pending waiters see the revocation")

	_, err := p.GetFix(context.Background(), fresh(time.Second))
	assert.True(t, errors.Is(err, location.ErrPermissionDenied))

	p.SetPermission(true)
	done = getFixAsync(t, p, fresh(time.Second))
	require.NoError(t, p.Submit(klFix))
	require.NoError(t, <-done)
}

func TestPushLocator_SubmitValidates(t *testing.T) {
	p := locator.NewPushLocator()

	require.Error(t, p.Submit(location.Fix{Latitude: 91}))
	require.Error(t, p.Submit(location.Fix{Longitude: -180.5}))
	require.Error(t, p.Submit(location.Fix{Accuracy: -1}))
}

func TestParseErrorCode(t *testing.T) {
	err, ok := locator.ParseErrorCode("permission_denied")
	require.True(t, ok)
	assert.Equal(t, location.ErrPermissionDenied, err)

	_, ok = locator.ParseErrorCode("bogus")
	assert.False(t, ok)
}

func TestPushLocator_DrivesLocationState(t *testing.T) {
	p := locator.NewPushLocator()
	s := location.NewState(location.Config{AcquisitionTimeout: time.Second}, p, nil, nopStore{}, nil, discardLogger())

	go func() {
		for p.Pending() == 0 {
			time.Sleep(time.Millisecond)
		}
		_ = p.Submit(klFix)
	}()

	rec, err := s.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, location.SourceAuto, rec.Source)
	s.Wait()
}
