// Package merge folds canonical records into catalog products.
package merge

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Checker-Finance/marketeye/pkg/model"
)

// Engine accumulates records keyed by product_id. It is not safe for
// concurrent use; MergePartitioned gives each goroutine its own Engine.
type Engine struct {
	logger   *zap.Logger
	now      func() time.Time
	products map[string]*model.Product
	order    []string
	merged   int
}

// NewEngine creates an empty engine. now stamps last_updated on merges.
func NewEngine(logger *zap.Logger, now func() time.Time) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		logger:   logger,
		now:      now,
		products: make(map[string]*model.Product),
	}
}

// Add folds one record into the catalog.
//
// The first record of a product_id becomes the product (deep-copied).
// Later records contribute their offer unless one with the same
// (source, url) is already present, fill specification keys that are
// missing or empty, add their source, and replace the product name only
// with one that has strictly more characters.
func (e *Engine) Add(rec *model.CanonicalRecord) {
	p, ok := e.products[rec.ProductID]
	if !ok {
		np := rec.ToProduct()
		e.products[rec.ProductID] = &np
		e.order = append(e.order, rec.ProductID)
		return
	}
	e.merged++

	key := rec.Offer.Key()
	dup := false
	for _, o := range p.Offers {
		if o.Key() == key {
			dup = true
			break
		}
	}
	if !dup {
		p.Offers = append(p.Offers, rec.Offer.Clone())
	}

	for k, v := range rec.Specifications {
		if v != "" && p.Specifications[k] == "" {
			p.Specifications[k] = v
		}
	}

	for _, s := range rec.Metadata.Sources {
		if !p.Metadata.HasSource(s) {
			p.Metadata.Sources = append(p.Metadata.Sources, s)
		}
	}

	if utf8.RuneCountInString(rec.ProductName) > utf8.RuneCountInString(p.ProductName) {
		p.ProductName = rec.ProductName
	}
	p.Metadata.LastUpdated = e.now()
}

// Products returns the merged products in first-seen order. The engine
// keeps ownership of nothing it returns.
func (e *Engine) Products() []model.Product {
	out := make([]model.Product, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.products[id].Clone())
	}
	return out
}

// Merge is a one-shot fold of records into products.
func (e *Engine) Merge(records []*model.CanonicalRecord) []model.Product {
	for _, rec := range records {
		e.Add(rec)
	}
	products := e.Products()
	e.logger.Info("merge.completed",
		zap.Int("records", len(records)),
		zap.Int("products", len(products)),
		zap.Int("merged_records", e.merged))
	return products
}

// MergePartitioned merges records in n partitions concurrently. Records are
// routed by a hash of product_id, so every record of a product lands in
// the same partition and partitions never need merging with each other.
// Within a partition records keep their input order. n <= 1 merges on the
// calling goroutine.
func MergePartitioned(ctx context.Context, records []*model.CanonicalRecord, n int, logger *zap.Logger, now func() time.Time) ([]model.Product, error) {
	if n <= 1 {
		return NewEngine(logger, now).Merge(records), nil
	}

	parts := make([][]*model.CanonicalRecord, n)
	for _, rec := range records {
		i := xxhash.Sum64String(rec.ProductID) % uint64(n)
		parts[i] = append(parts[i], rec)
	}

	results := make([][]model.Product, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := range parts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = NewEngine(logger, now).Merge(parts[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.Product
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
