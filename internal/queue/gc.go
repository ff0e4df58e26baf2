package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// GarbageCollector runs periodic purges, removing stored login events older than retention.
type GarbageCollector struct {
	purger    Purger
	interval  time.Duration
	retention time.Duration
	log       *zap.Logger
}

// NewGarbageCollector creates a new garbage collector. A nil purger makes every run a no-op.
func NewGarbageCollector(purger Purger, interval, retention time.Duration, log *zap.Logger) *GarbageCollector {
	if log == nil {
		log = zap.NewNop()
	}
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		log:       log,
	}
}

// Start runs the GC loop until ctx is cancelled.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := gc.collect(ctx); err != nil {
				gc.log.Error("login_event_retention_purge_failed", zap.Error(err))
			}
		}
	}
}

func (gc *GarbageCollector) collect(ctx context.Context) error {
	if gc.purger == nil || gc.retention <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	if n > 0 {
		gc.log.Info("purged_expired_login_events",
			zap.Int("count", n),
			zap.Duration("retention", gc.retention))
	}
	return nil
}

// EventDeleter removes stored events older than a retention period.
type EventDeleter interface {
	DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// RepositoryPurger adapts an EventDeleter to Purger.
type RepositoryPurger struct {
	Repo EventDeleter
}

// PurgeOlderThan implements Purger.
func (p RepositoryPurger) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	n, err := p.Repo.DeleteOlderThan(ctx, retention)
	return int(n), err
}
