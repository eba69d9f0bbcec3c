// Package retention removes persisted events once they are older than the
// configured retention window. The local store is a short-lived ingestion
// record, not an archive; the provider remains the system of record.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/netzet-lab/klaviyo-bridge/internal/core/storage"
)

type Purger struct {
	store    storage.EventStore
	schedule string
	maxAge   time.Duration
	logger   *slog.Logger
	cron     *cron.Cron
	nowFn    func() time.Time
}

func NewPurger(store storage.EventStore, schedule string, maxAge time.Duration, logger *slog.Logger) *Purger {
	if store == nil {
		panic("retention: store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Purger{
		store:    store,
		schedule: schedule,
		maxAge:   maxAge,
		logger:   logger,
		nowFn:    time.Now,
	}
}

// Start schedules the purge job and begins running it. The returned error
// only reflects an invalid cron expression; runtime purge failures are
// logged and never stop the scheduler.
func (p *Purger) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(p.schedule, func() {
		p.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	p.cron = c
	c.Start()
	p.logger.Info("[Retention] purger started", "schedule", p.schedule, "maxAge", p.maxAge)
	return nil
}

// Stop halts the scheduler and waits for any in-flight purge to finish.
func (p *Purger) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
	p.logger.Info("[Retention] purger stopped")
}

// RunOnce deletes every event older than the retention window. Failures are
// logged and swallowed so a transient database error never takes down the
// service.
func (p *Purger) RunOnce(ctx context.Context) {
	cutoff := p.nowFn().UTC().Add(-p.maxAge)
	deleted, err := p.store.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("[Retention] purge failed", "cutoff", cutoff, "error", err)
		return
	}
	p.logger.Info("[Retention] purge completed", "cutoff", cutoff, "deleted", deleted)
}
