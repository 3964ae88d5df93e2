package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Task is one periodic unit of work. A returned error is logged and does not stop the schedule.
type Task func(ctx context.Context) error

// Refresher runs a Task on a fixed interval until stopped.
// Ticks are not serialized: a slow task may overlap with the next tick.
type Refresher struct {
	scheduler *gocron.Scheduler
	name      string
	interval  time.Duration
	task      Task
	log       *slog.Logger
	ctx       context.Context

	mu      sync.Mutex
	stopped bool
	running sync.WaitGroup
}

// New constructs a Refresher. Nothing runs until Start is called.
func New(name string, interval time.Duration, task Task, log *slog.Logger) *Refresher {
	return &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		name:      name,
		interval:  interval,
		task:      task,
		log:       log,
	}
}

// Start schedules the task. The first run happens one interval after Start.
// Runs receive ctx stripped of its cancellation; only Stop ends the schedule.
func (r *Refresher) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return errors.New("refresh interval must be positive")
	}

	r.ctx = context.WithoutCancel(ctx)

	_, err := r.scheduler.Every(r.interval).WaitForSchedule().Do(r.run)
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", r.name, err)
	}

	r.scheduler.StartAsync()
	r.log.Info("auto refresh started", "task", r.name, "interval", r.interval)
	return nil
}

func (r *Refresher) run() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.running.Add(1)
	r.mu.Unlock()
	defer r.running.Done()

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("auto refresh panicked", "task", r.name, "recover", rec)
		}
	}()

	if err := r.task(r.ctx); err != nil {
		r.log.Warn("auto refresh failed", "task", r.name, "err", err)
	}
}

// Stop stops scheduling new runs and waits for a run in progress to return.
// Runs already started are not cancelled. Stop is safe to call more than once.
func (r *Refresher) Stop() {
	r.mu.Lock()
	already := r.stopped
	r.stopped = true
	r.mu.Unlock()

	r.scheduler.Stop()
	r.running.Wait()
	if !already {
		r.log.Info("auto refresh stopped", "task", r.name)
	}
}
