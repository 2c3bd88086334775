package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger removes resolved tickets older than a cutoff.
type Purger interface {
	PurgeResolved(ctx context.Context, olderThan time.Duration) (int, error)
}

// RetentionWorker periodically drops resolved approval tickets. Pending
// tickets are never touched.
type RetentionWorker struct {
	purger    Purger
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
}

// NewRetentionWorker builds a worker. A zero retention disables purging.
func NewRetentionWorker(purger Purger, retention, interval time.Duration, logger *zap.Logger) *RetentionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionWorker{
		purger:    purger,
		retention: retention,
		interval:  interval,
		logger:    logger.With(zap.String("component", "retention")),
	}
}

// Run sweeps once at start and then on every tick until ctx is done.
func (w *RetentionWorker) Run(ctx context.Context) error {
	if w.retention <= 0 {
		w.logger.Info("retention disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RetentionWorker) sweep(ctx context.Context) {
	removed, err := w.purger.PurgeResolved(ctx, w.retention)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("retention sweep failed", zap.Error(err))
		}
		return
	}
	if removed > 0 {
		w.logger.Info("purged resolved tickets", zap.Int("removed", removed), zap.Duration("older_than", w.retention))
	}
}
