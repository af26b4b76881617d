package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/internal/catalog"
	"github.com/Checker-Finance/marketeye/internal/pipeline"
)

// Refresher is the refresh operation the job drives.
type Refresher interface {
	Refresh(ctx context.Context) (*pipeline.Result, error)
}

// CatalogRefresher rebuilds the catalog immediately on Start and then on
// every tick. A failed run is simply retried on the next tick.
type CatalogRefresher struct {
	logger   *zap.Logger
	svc      Refresher
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCatalogRefresher constructs a background job that runs periodically.
func NewCatalogRefresher(logger *zap.Logger, svc Refresher, interval time.Duration) *CatalogRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogRefresher{
		logger:   logger,
		svc:      svc,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the refresh loop until Stop is called or ctx is done.
func (r *CatalogRefresher) Start(ctx context.Context) {
	r.logger.Info("catalog_refresher.started", zap.Duration("interval", r.interval))
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.stopCh:
			r.logger.Info("catalog_refresher.stopped (manual stop)")
			return
		case <-ctx.Done():
			r.logger.Info("catalog_refresher.stopped (context canceled)")
			return
		}
	}
}

// Stop gracefully halts the refresher. It is safe to call more than once.
func (r *CatalogRefresher) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *CatalogRefresher) runOnce(ctx context.Context) {
	start := time.Now()
	r.logger.Info("catalog_refresher.running")

	res, err := r.svc.Refresh(ctx)
	switch {
	case errors.Is(err, catalog.ErrRefreshInProgress):
		r.logger.Info("catalog_refresher.skipped (refresh in progress)")
		return
	case err != nil:
		r.logger.Error("catalog_refresher.refresh_failed", zap.Error(err))
		return
	}

	r.logger.Info("catalog_refresher.success",
		zap.String("run_id", res.RunID.String()),
		zap.Int("products", len(res.Products)),
		zap.Duration("duration", time.Since(start)))
}
