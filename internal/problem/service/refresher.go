package service

import (
	"context"
	"time"

	"leetbot/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultRefreshInterval = 7 * 24 * time.Hour

// Refresher runs RefreshAll on a fixed cadence. The cadence carries no
// mutual exclusion with on-demand fetches; upserts keyed by frontend id keep
// concurrent writes convergent.
type Refresher struct {
	service  *ProblemService
	interval time.Duration
}

// NewRefresher creates a refresher with the given interval.
// A non-positive interval falls back to weekly.
func NewRefresher(service *ProblemService, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Refresher{service: service, interval: interval}
}

// Run refreshes once immediately, then on every tick until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "refresher stopped")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	logger.Info(ctx, "starting scheduled problem cache refresh")
	start := time.Now()
	stored, err := r.service.RefreshAll(ctx)
	if err != nil {
		logger.Error(ctx, "scheduled refresh failed", zap.Error(err))
		return
	}
	logger.Info(ctx, "scheduled refresh finished",
		zap.Int("stored", stored), zap.Duration("took", time.Since(start)))
}
