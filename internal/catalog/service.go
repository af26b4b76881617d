// Package catalog owns the refresh cycle: run the pipeline, publish the
// result in memory, persist it and announce it.
package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/internal/metrics"
	"github.com/Checker-Finance/marketeye/internal/pipeline"
	"github.com/Checker-Finance/marketeye/internal/publisher"
	"github.com/Checker-Finance/marketeye/internal/stats"
	"github.com/Checker-Finance/marketeye/internal/store"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

// ErrRefreshInProgress is returned when Refresh is called while another
// refresh is running.
var ErrRefreshInProgress = errors.New("catalog refresh already in progress")

// Runner produces a catalog. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Store is the persistence the service writes each catalog to.
type Store interface {
	SaveCatalog(ctx context.Context, products []model.Product) error
	SaveStats(ctx context.Context, st stats.Statistics) error
}

// Snapshotter writes an offline copy of the catalog.
type Snapshotter interface {
	Write(ctx context.Context, products []model.Product) error
}

type Options struct {
	// BackupDir receives JSON/CSV backups and the text report when Backup is set.
	BackupDir string
	Backup    bool
	Currency  string
}

type Service struct {
	runner    Runner
	holder    *Holder
	store     Store
	snapshot  Snapshotter
	publisher publisher.EventPublisher
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
	running   atomic.Bool
}

// NewService wires a refresh cycle. store and snapshot may be nil; a nil
// publisher discards events.
func NewService(runner Runner, holder *Holder, st Store, snapshot Snapshotter, pub publisher.EventPublisher,
	opts Options, logger *zap.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if pub == nil {
		pub = publisher.Nop{}
	}
	if opts.Currency == "" {
		opts.Currency = "MAD"
	}
	return &Service{
		runner:    runner,
		holder:    holder,
		store:     st,
		snapshot:  snapshot,
		publisher: pub,
		opts:      opts,
		logger:    logger,
		now:       now,
	}
}

func (s *Service) Holder() *Holder { return s.holder }

// Running reports whether a refresh is in progress.
func (s *Service) Running() bool { return s.running.Load() }

// Refresh runs one full cycle. The in-memory catalog is replaced only when
// the pipeline succeeds; persistence and publishing failures are logged and
// counted but do not fail the refresh.
func (s *Service) Refresh(ctx context.Context) (*pipeline.Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	res, err := s.runner.Run(ctx)
	if err != nil {
		metrics.IncError("catalog", "pipeline_failed")
		s.logger.Error("catalog.refresh_failed", zap.Error(err))
		return nil, err
	}
	log := s.logger.With(zap.String("run_id", res.RunID.String()))

	st := stats.Compute(res.Products, s.now())
	report := stats.RenderReport(st, s.opts.Currency)
	s.holder.Set(NewSnapshot(res.RunID, res.FinishedAt, res.Products, st, report))
	metrics.SetCatalogSize(st.TotalProducts, st.TotalOffers)

	s.persist(ctx, log, res, st, report)

	if err := s.publisher.PublishCatalogBuilt(ctx, res.Event()); err != nil {
		metrics.IncError("catalog", "publish_failed")
		log.Warn("catalog.publish_failed", zap.Error(err))
	}

	metrics.SetLastRefresh(s.now())
	metrics.ObserveDuration(metrics.StageDuration, start, "refresh")
	log.Info("catalog.refreshed",
		zap.Int("products", st.TotalProducts),
		zap.Int("offers", st.TotalOffers),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

func (s *Service) persist(ctx context.Context, log *zap.Logger, res *pipeline.Result, st stats.Statistics, report string) {
	fail := func(reason string, err error) {
		metrics.IncError("catalog", reason)
		log.Warn("catalog."+reason, zap.Error(err))
	}

	if s.store != nil {
		if err := s.store.SaveCatalog(ctx, res.Products); err != nil {
			fail("store_failed", err)
		}
		if err := s.store.SaveStats(ctx, st); err != nil {
			fail("stats_store_failed", err)
		}
	}
	if s.snapshot != nil {
		if err := s.snapshot.Write(ctx, res.Products); err != nil {
			fail("snapshot_failed", err)
		}
	}
	if !s.opts.Backup {
		return
	}
	if path, err := store.WriteJSONBackup(s.opts.BackupDir, res.Products, s.now()); err != nil {
		fail("backup_failed", err)
	} else {
		log.Info("catalog.backup_written", zap.String("path", path))
	}
	if _, err := store.WriteCSV(s.opts.BackupDir, res.Products); err != nil {
		fail("csv_failed", err)
	}
	if _, err := store.WriteReport(s.opts.BackupDir, report, st, s.now()); err != nil {
		fail("report_failed", err)
	}
}
