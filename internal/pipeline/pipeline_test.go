package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/marketeye/internal/source"
	"github.com/Checker-Finance/marketeye/internal/taxonomy"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

const (
	jumiaFixture = `[
  {"title": "Samsung Galaxy S24 Ultra", "brand": "Samsung", "price": "13,499.00 Dhs", "product_url": "/samsung-galaxy-s24-ultra-123.html"},
  {"title": "Xiaomi Redmi Note 13", "price": 2199, "url": "https://www.jumia.ma/redmi-note-13.html"}
]`
	electroplanetFixture = `{"name": "SAMSUNG Smartphone Galaxy S24 Ultra 12Go 256Go Noir", "brand": "SAMSUNG", "price": "12 999 DH", "product_url": "https://www.electroplanet.ma/s24-ultra", "specifications": {"Modèle": "S24 Ultra"}}
`
	avitoFixture = `{"brand": "SAMSUNG", "model": "S24 ULTRA", "title": "Samsung S24 ULTRA - 512 GB", "price": "7800 DH", "condition": "NEUF", "url": "https://www.avito.ma/fr/rabat/s24.htm"}
{"brand": "SAMSUNG", "model": "S24 ULTRA", "title": "Samsung S24 ULTRA - 512 GB", "price": "7800 DH", "condition": "NEUF", "url": "https://www.avito.ma/fr/rabat/s24.htm"}
this is not json
{"price": "100 DH"}
`
)

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"jumia_products.json":         jumiaFixture,
		"electroplanet_products.json": electroplanetFixture,
		"avito_ads.jsonl":             avitoFixture,
		"notes.txt":                   "ignored",
		"unrelated.json":              `[{"title": "nobody reads me"}]`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func newTestPipeline(dir string, partitions int) *Pipeline {
	kit := source.NewKit(taxonomy.Default(), clock, nil)
	return New(Config{RawDir: dir, Partitions: partitions}, DefaultNormalizers(kit), nil, clock)
}

func findProduct(t *testing.T, products []model.Product, id string) model.Product {
	t.Helper()
	for _, p := range products {
		if p.ProductID == id {
			return p
		}
	}
	t.Fatalf("product %s not found", id)
	return model.Product{}
}

func TestRun_EndToEnd(t *testing.T) {
	dir := writeFixtures(t)

	res, err := newTestPipeline(dir, 1).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Products, 2)
	s24 := findProduct(t, res.Products, "samsung_s24ultra")
	assert.Len(t, s24.Offers, 3, "one offer per source, duplicate avito ad merged away")
	assert.ElementsMatch(t,
		[]model.Source{model.SourceAvito, model.SourceJumia, model.SourceElectroplanet},
		s24.Metadata.Sources)
	assert.Equal(t, model.SourceAvito, s24.Offers[0].Source, "avito records are merged first")

	avito := res.PerSource[model.SourceAvito]
	assert.Equal(t, 1, avito.Files)
	assert.Equal(t, 3, avito.Listings)
	assert.Equal(t, 1, avito.SkippedLines)
	assert.Equal(t, 2, avito.Records)
	assert.Equal(t, 1, avito.Failures)

	assert.Equal(t, 2, res.PerSource[model.SourceJumia].Records)
	assert.Equal(t, 1, res.PerSource[model.SourceElectroplanet].Records)
	assert.Equal(t, 1, res.FailedRecords())
	assert.Equal(t, 4, res.OfferCount())

	evt := res.Event()
	assert.Equal(t, res.RunID, evt.RunID)
	assert.Equal(t, 2, evt.Products)
	assert.Equal(t, 4, evt.Offers)
	assert.Equal(t, 2, evt.Sources[model.SourceAvito])
}

func TestRun_Idempotent(t *testing.T) {
	dir := writeFixtures(t)
	p := newTestPipeline(dir, 1)

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Products, second.Products)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_PartitionedMatchesSequential(t *testing.T) {
	dir := writeFixtures(t)

	seq, err := newTestPipeline(dir, 1).Run(context.Background())
	require.NoError(t, err)
	par, err := newTestPipeline(dir, 3).Run(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, seq.Products, par.Products)
}

func TestRun_MissingRawDir(t *testing.T) {
	_, err := newTestPipeline(filepath.Join(t.TempDir(), "missing"), 1).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_EmptyRawDir(t *testing.T) {
	res, err := newTestPipeline(t.TempDir(), 1).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.Zero(t, res.FailedRecords())
}

func TestRun_BrokenFileSkipped(t *testing.T) {
	dir := writeFixtures(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jumia_broken.json"), []byte(`[{"title": `), 0o644))

	res, err := newTestPipeline(dir, 1).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.PerSource[model.SourceJumia].FileErrors)
	assert.Equal(t, 2, res.PerSource[model.SourceJumia].Records)
}

func TestRun_Cancelled(t *testing.T) {
	dir := writeFixtures(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestPipeline(dir, 1).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}
