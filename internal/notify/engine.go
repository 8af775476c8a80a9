package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/MrSnakeDoc/shelfwatch/internal/metrics"
)

// Store is the slice of the item store the engine needs.
type Store interface {
	GetItems(ctx context.Context) ([]domain.Item, error)
	GetAppSettings(ctx context.Context) (domain.AppSettings, error)
	MarkNotified(ctx context.Context, seen domain.Item, status domain.Status) (bool, error)
}

// Run outcomes, also used as metric labels.
const (
	OutcomeDisabled  = "disabled"
	OutcomeNoConsent = "no_permission"
	OutcomeIdle      = "idle"
	OutcomeDelivered = "delivered"
	OutcomePartial   = "partial"
	OutcomeFailed    = "failed"
	OutcomeError     = "error"
)

// Report summarizes one engine run.
type Report struct {
	Outcome   string `json:"outcome"`
	Digest    bool   `json:"digest"`
	Due       int    `json:"due"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
	Marked    int    `json:"marked"`
}

// Engine evaluates all items and delivers what is due.
type Engine struct {
	mu       sync.Mutex
	store    Store
	notifier Notifier
	log      logger.Logger
	metrics  metrics.Recorder
	loc      *time.Location
	now      func() time.Time
}

// NewEngine creates a notification engine. rec, loc and now may be nil.
func NewEngine(
	store Store,
	notifier Notifier,
	log logger.Logger,
	rec metrics.Recorder,
	loc *time.Location,
	now func() time.Time,
) *Engine {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:    store,
		notifier: notifier,
		log:      log,
		metrics:  rec,
		loc:      loc,
		now:      now,
	}
}

// Run performs one check. Runs are serialized; a second caller waits for
// the first to finish and then sees its markers.
//
// Delivery failures are logged and counted, and leave the affected items
// unmarked so the next run retries them. Only store failures are returned.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report, err := e.run(ctx)
	if err != nil {
		report.Outcome = OutcomeError
	}
	e.metrics.RecordNotifyRun(report.Outcome)
	return report, err
}

func (e *Engine) run(ctx context.Context) (Report, error) {
	settings, err := e.store.GetAppSettings(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read settings: %w", err)
	}
	if !settings.NotificationsEnabled {
		return Report{Outcome: OutcomeDisabled}, nil
	}
	if !e.notifier.PermissionGranted(ctx) {
		return Report{Outcome: OutcomeNoConsent}, nil
	}

	items, err := e.store.GetItems(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read items: %w", err)
	}

	now := e.now()
	e.recordCounts(items, now)

	due := Decide(items, settings, now, e.loc)
	report := Report{Digest: settings.DigestModeEnabled, Due: len(due)}
	if len(due) == 0 {
		report.Outcome = OutcomeIdle
		return report, nil
	}

	if settings.DigestModeEnabled {
		err = e.deliverDigest(ctx, due, &report)
	} else {
		err = e.deliverEach(ctx, due, &report)
	}
	if err != nil {
		return report, err
	}

	switch {
	case report.Failed == 0:
		report.Outcome = OutcomeDelivered
	case report.Delivered == 0:
		report.Outcome = OutcomeFailed
	default:
		report.Outcome = OutcomePartial
	}

	e.log.Info("notification check complete",
		logger.Int("due", report.Due),
		logger.Int("delivered", report.Delivered),
		logger.Int("failed", report.Failed),
		logger.Bool("digest", report.Digest))
	return report, nil
}

func (e *Engine) deliverDigest(ctx context.Context, due []Due, report *Report) error {
	msg := DigestMessage(due)
	if err := e.notifier.Deliver(ctx, msg); err != nil {
		e.metrics.RecordDelivery("digest", false)
		e.log.Warn("digest delivery failed",
			logger.String("tag", msg.Tag),
			logger.Error(err))
		report.Failed = len(due)
		return nil
	}
	e.metrics.RecordDelivery("digest", true)
	report.Delivered = len(due)

	for _, d := range due {
		if err := e.mark(ctx, d, report); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) deliverEach(ctx context.Context, due []Due, report *Report) error {
	for _, d := range due {
		msg := ItemMessage(d)
		if err := e.notifier.Deliver(ctx, msg); err != nil {
			e.metrics.RecordDelivery("individual", false)
			e.log.Warn("notification delivery failed",
				logger.String("item_id", d.Item.ID),
				logger.String("tag", msg.Tag),
				logger.Error(err))
			report.Failed++
			continue
		}
		e.metrics.RecordDelivery("individual", true)
		report.Delivered++

		if err := e.mark(ctx, d, report); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) mark(ctx context.Context, d Due, report *Report) error {
	changed, err := e.store.MarkNotified(ctx, d.Item, d.Status)
	if err != nil {
		return fmt.Errorf("failed to mark item %s: %w", d.Item.ID, err)
	}
	if changed {
		report.Marked++
		e.metrics.RecordItemsMarked(1)
	}
	return nil
}

func (e *Engine) recordCounts(items []domain.Item, now time.Time) {
	counts := CountByStatus(items, now, e.loc)
	labels := make(map[string]int, len(counts))
	for status, n := range counts {
		labels[string(status)] = n
	}
	e.metrics.RecordItemsByStatus(labels)
}
