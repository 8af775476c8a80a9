// Package scheduler runs periodic background work: the notification check
// and the affiliate cache janitor.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context) error

// Job runs a Task on start, on every tick and on every manual trigger.
// Runs never overlap: a trigger that arrives while a run is in flight is
// dropped.
type Job struct {
	name          string
	task          Task
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
	running       atomic.Bool
}

// NewJob creates a job. manualTrigger may be nil.
func NewJob(
	name string,
	task Task,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *Job {
	return &Job{
		name:          name,
		task:          task,
		logger:        log.With(logger.String("job", name)),
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs the task once immediately, then periodically in the background.
// A failing first run is logged, not returned.
func (j *Job) Start(ctx context.Context) error {
	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Warn("initial run failed", logger.Error(err))
	}

	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.runLogged(ctx)
			case <-j.manualTrigger:
				j.logger.Info("manual run triggered")
				j.runLogged(ctx)
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the job. It is safe to call more than once.
func (j *Job) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

// RunOnce runs the task now unless a run is already in flight, in which
// case it returns false without waiting.
func (j *Job) RunOnce(ctx context.Context) (bool, error) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Debug("run already in progress, skipping")
		return false, nil
	}
	defer j.running.Store(false)

	return true, j.task(ctx)
}

// Running reports whether a run is in flight.
func (j *Job) Running() bool {
	return j.running.Load()
}

func (j *Job) runLogged(ctx context.Context) {
	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Error("run failed", logger.Error(err))
	}
}
