package refresh_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/geoweather/internal/refresh"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRefresher_RunsRepeatedly(t *testing.T) {
	var runs atomic.Int32
	r := refresh.New("test", 20*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, discardLogger())

	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(r.Stop)

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestRefresher_FailuresDoNotStopSchedule(t *testing.T) {
	var runs atomic.Int32
	r := refresh.New("failing", 20*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	}, discardLogger())

	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(r.Stop)

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestRefresher_WaitsOneIntervalBeforeFirstRun(t *testing.T) {
	var runs atomic.Int32
	r := refresh.New("slow", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	}, discardLogger())

	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestRefresher_StopHaltsRuns(t *testing.T) {
	var runs atomic.Int32
	r := refresh.New("stopped", 20*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, discardLogger())

	require.NoError(t, r.Start(context.Background()))
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	r.Stop()
	after := runs.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestRefresher_StopWaitsForRunningTask(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	r := refresh.New("blocking", 20*time.Millisecond, func(context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}, discardLogger())

	require.NoError(t, r.Start(context.Background()))

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("task never started")
	}

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a run was still in progress")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the run finished")
	}

	assert.NotPanics(t, r.Stop)
}

func TestRefresher_CancelledContextStillRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawCancelled atomic.Bool
	var runs atomic.Int32
	r := refresh.New("detached", 20*time.Millisecond, func(ctx context.Context) error {
		if ctx.Err() != nil {
			sawCancelled.Store(true)
		}
		runs.Add(1)
		return nil
	}, discardLogger())

	require.NoError(t, r.Start(ctx))
	t.Cleanup(r.Stop)

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, sawCancelled.Load())
}

func TestRefresher_RejectsNonPositiveInterval(t *testing.T) {
	r := refresh.New("bad", 0, func(context.Context) error { return nil }, discardLogger())
	require.Error(t, r.Start(context.Background()))
}
