// Package pipeline runs one batch: discover raw files, normalize every
// listing per source, then merge and deduplicate into the catalog.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Checker-Finance/marketeye/internal/merge"
	"github.com/Checker-Finance/marketeye/internal/metrics"
	"github.com/Checker-Finance/marketeye/internal/source"
	"github.com/Checker-Finance/marketeye/internal/source/avito"
	"github.com/Checker-Finance/marketeye/internal/source/electroplanet"
	"github.com/Checker-Finance/marketeye/internal/source/jumia"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

// Config controls where a run reads from and how it merges.
type Config struct {
	RawDir string
	// Partitions > 1 merges concurrently, partitioned by product_id.
	Partitions int
}

// SourceSummary counts what one source contributed to a run.
type SourceSummary struct {
	Files        int `json:"files"`
	FileErrors   int `json:"file_errors"`
	Listings     int `json:"listings"`
	SkippedLines int `json:"skipped_lines"`
	Records      int `json:"records"`
	Failures     int `json:"failures"`
}

// Result is the outcome of one run.
type Result struct {
	RunID      uuid.UUID                      `json:"run_id"`
	StartedAt  time.Time                      `json:"started_at"`
	FinishedAt time.Time                      `json:"finished_at"`
	Products   []model.Product                `json:"products"`
	PerSource  map[model.Source]SourceSummary `json:"per_source"`
	Dedup      merge.DedupStats               `json:"dedup"`
}

// OfferCount is the number of offers across all products.
func (r *Result) OfferCount() int {
	n := 0
	for _, p := range r.Products {
		n += len(p.Offers)
	}
	return n
}

// FailedRecords is the number of listings that could not be normalized.
func (r *Result) FailedRecords() int {
	n := 0
	for _, s := range r.PerSource {
		n += s.Failures
	}
	return n
}

// Event summarizes the run for downstream consumers.
func (r *Result) Event() model.CatalogBuiltEvent {
	sources := make(map[model.Source]int, len(r.PerSource))
	for src, s := range r.PerSource {
		sources[src] = s.Records
	}
	return model.CatalogBuiltEvent{
		RunID:         r.RunID,
		Products:      len(r.Products),
		Offers:        r.OfferCount(),
		Sources:       sources,
		FailedRecords: r.FailedRecords(),
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
	}
}

// Pipeline is reusable across runs; each Run starts from empty state.
type Pipeline struct {
	cfg         Config
	normalizers []source.Normalizer
	logger      *zap.Logger
	now         func() time.Time
}

// DefaultNormalizers returns the three marketplace normalizers sharing kit.
func DefaultNormalizers(kit *source.Kit) []source.Normalizer {
	return []source.Normalizer{
		avito.New(kit),
		jumia.New(kit),
		electroplanet.New(kit),
	}
}

func New(cfg Config, normalizers []source.Normalizer, logger *zap.Logger, now func() time.Time) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Pipeline{cfg: cfg, normalizers: normalizers, logger: logger, now: now}
}

type sourceOutput struct {
	records []*model.CanonicalRecord
	summary SourceSummary
}

// Run executes one batch. Only an unreadable raw directory or a cancelled
// context fails the run; bad files and bad listings are logged and skipped.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.New(),
		StartedAt: p.now(),
		PerSource: make(map[model.Source]SourceSummary, len(p.normalizers)),
	}
	log := p.logger.With(zap.String("run_id", res.RunID.String()))

	info, err := os.Stat(p.cfg.RawDir)
	if err != nil {
		return nil, fmt.Errorf("raw data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("raw data dir %s is not a directory", p.cfg.RawDir)
	}

	files, err := source.Discover(p.cfg.RawDir, p.normalizers)
	if err != nil {
		return nil, err
	}
	log.Info("pipeline.started", zap.String("raw_dir", p.cfg.RawDir), zap.Int("sources", len(files)))

	start := time.Now()
	outputs := make([]sourceOutput, len(p.normalizers))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range p.normalizers {
		g.Go(func() error {
			out, err := p.runSource(gctx, n, files[n.Source()], log)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	metrics.ObserveDuration(metrics.StageDuration, start, "normalize")

	var records []*model.CanonicalRecord
	for _, src := range model.AllSources() {
		for i, n := range p.normalizers {
			if n.Source() == src {
				records = append(records, outputs[i].records...)
				res.PerSource[src] = outputs[i].summary
			}
		}
	}

	start = time.Now()
	products, err := merge.MergePartitioned(ctx, records, p.cfg.Partitions, log, p.now)
	if err != nil {
		return nil, err
	}
	res.Products, res.Dedup = merge.Deduplicate(products, log)
	metrics.ObserveDuration(metrics.StageDuration, start, "merge")

	res.FinishedAt = p.now()
	log.Info("pipeline.completed",
		zap.Int("records", len(records)),
		zap.Int("products", len(res.Products)),
		zap.Int("offers", res.OfferCount()),
		zap.Int("failed_records", res.FailedRecords()))
	return res, nil
}

func (p *Pipeline) runSource(ctx context.Context, n source.Normalizer, paths []string, log *zap.Logger) (sourceOutput, error) {
	var out sourceOutput
	src := n.Source()
	log = log.With(zap.String("source", string(src)))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.summary.Files++

		loaded, err := n.Extract(ctx, path)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, err
			}
			out.summary.FileErrors++
			metrics.IncFile(string(src), "error")
			log.Warn("pipeline.file_failed", zap.String("path", path), zap.Error(err))
			continue
		}
		metrics.IncFile(string(src), "ok")
		metrics.AddSkippedLines(string(src), loaded.SkippedLines)
		out.summary.SkippedLines += loaded.SkippedLines
		out.summary.Listings += len(loaded.Listings)

		for _, raw := range loaded.Listings {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			rec, err := source.SafeTransform(n, raw)
			if err != nil {
				out.summary.Failures++
				metrics.IncRecord(string(src), "failed")
				log.Warn("pipeline.record_failed", zap.String("path", path), zap.Error(err))
				continue
			}
			metrics.IncRecord(string(src), "ok")
			out.records = append(out.records, rec)
		}
	}

	out.summary.Records = len(out.records)
	log.Info("pipeline.source_done",
		zap.Int("files", out.summary.Files),
		zap.Int("listings", out.summary.Listings),
		zap.Int("records", out.summary.Records),
		zap.Int("failures", out.summary.Failures))
	return out, nil
}
