package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/MrSnakeDoc/shelfwatch/internal/notify"
)

// DefaultNotifyInterval matches an hourly check.
const DefaultNotifyInterval = time.Hour

// NotifyRunner is the engine as seen by the scheduler.
type NotifyRunner interface {
	Run(ctx context.Context) (notify.Report, error)
}

// NewNotifyJob wraps the notification engine in a periodic job.
func NewNotifyJob(
	engine NotifyRunner,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *Job {
	if interval <= 0 {
		interval = DefaultNotifyInterval
	}
	task := func(ctx context.Context) error {
		report, err := engine.Run(ctx)
		if err != nil {
			return err
		}
		log.Debug("notification check finished",
			logger.String("outcome", report.Outcome),
			logger.Int("due", report.Due),
			logger.Int("delivered", report.Delivered))
		return nil
	}
	return NewJob("notify-check", task, log, interval, manualTrigger)
}
