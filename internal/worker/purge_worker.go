package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KinuGra/tosho-2509-back/internal/auth"
	"github.com/KinuGra/tosho-2509-back/internal/repository"
)

// PurgeWorker periodically drops verification records that expired more than
// retention ago. Stores with native expiry report zero removals.
type PurgeWorker struct {
	codes     repository.VerificationRepository
	interval  time.Duration
	retention time.Duration
	now       auth.Clock
	logger    *zap.Logger
}

// NewPurgeWorker builds the worker.
func NewPurgeWorker(codes repository.VerificationRepository, interval, retention time.Duration, clock auth.Clock, logger *zap.Logger) *PurgeWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if clock == nil {
		clock = auth.SystemClock
	}
	return &PurgeWorker{codes: codes, interval: interval, retention: retention, now: clock, logger: logger}
}

// Run purges once per interval until ctx is done.
func (w *PurgeWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single purge pass.
func (w *PurgeWorker) RunOnce(ctx context.Context) int64 {
	removed, err := w.codes.Purge(ctx, w.now().Add(-w.retention))
	if err != nil {
		w.logger.Warn("purge verification records", zap.Error(err))
		return 0
	}
	if removed > 0 {
		w.logger.Info("purged verification records", zap.Int64("removed", removed))
	}
	return removed
}
