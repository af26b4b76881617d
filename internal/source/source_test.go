package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/marketeye/internal/taxonomy"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

// --- stub normalizer ---

type stubNormalizer struct {
	src      model.Source
	patterns []string
	fn       func(model.RawListing) (*model.CanonicalRecord, error)
}

func (s *stubNormalizer) Source() model.Source { return s.src }
func (s *stubNormalizer) Patterns() []string   { return s.patterns }
func (s *stubNormalizer) Extract(ctx context.Context, path string) (*LoadResult, error) {
	return LoadFile(ctx, path, nil)
}
func (s *stubNormalizer) Transform(raw model.RawListing) (*model.CanonicalRecord, error) {
	return s.fn(raw)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// --- LoadFile ---

func TestLoadFile_JSONArray(t *testing.T) {
	path := writeFile(t, t.TempDir(), "jumia.json", `[{"title": "A", "price": 12.5}, "oops", {"title": "B"}]`)

	res, err := LoadFile(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, res.Listings, 2)
	assert.Equal(t, 1, res.SkippedLines)
	assert.Equal(t, "A", res.Listings[0].String("title"))
	assert.Equal(t, "12.5", res.Listings[0].String("price"))
}

func TestLoadFile_NDJSONSkipsBadLines(t *testing.T) {
	content := "{\"title\": \"A\"}\n\n{broken\n[1,2]\n{\"title\": \"B\"} trailing\n{\"title\": \"C\"}\n"
	path := writeFile(t, t.TempDir(), "avito.jsonl", content)

	res, err := LoadFile(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, res.Listings, 2)
	assert.Equal(t, "A", res.Listings[0].String("title"))
	assert.Equal(t, "C", res.Listings[1].String("title"))
	assert.Equal(t, 3, res.SkippedLines)
}

func TestLoadFile_EmptyAndBOM(t *testing.T) {
	dir := t.TempDir()

	res, err := LoadFile(context.Background(), writeFile(t, dir, "empty.json", "  \n"), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Listings)

	res, err = LoadFile(context.Background(), writeFile(t, dir, "bom.json", "\xEF\xBB\xBF[{\"title\": \"A\"}]"), nil)
	require.NoError(t, err)
	assert.Len(t, res.Listings, 1)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(context.Background(), filepath.Join(dir, "missing.json"), nil)
	assert.Error(t, err)

	_, err = LoadFile(context.Background(), writeFile(t, dir, "broken.json", `[{"title": "A"`), nil)
	assert.Error(t, err)
}

// --- Discover ---

func TestDiscover_AssignsEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"jumia_android_phones.json",
		"electroplanet_products.json",
		"avito_ads.jsonl",
		"ads_backup.ndjson",
		"notes.txt",
		"random.json",
	} {
		writeFile(t, dir, name, "[]")
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "avito_dir.json"), 0o755))

	tax := taxonomy.Default()
	normalizers := []Normalizer{
		&stubNormalizer{src: model.SourceAvito, patterns: tax.SourcePatterns(model.SourceAvito)},
		&stubNormalizer{src: model.SourceJumia, patterns: tax.SourcePatterns(model.SourceJumia)},
		&stubNormalizer{src: model.SourceElectroplanet, patterns: tax.SourcePatterns(model.SourceElectroplanet)},
	}

	files, err := Discover(dir, normalizers)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "ads_backup.ndjson"),
		filepath.Join(dir, "avito_ads.jsonl"),
	}, files[model.SourceAvito])
	assert.Equal(t, []string{filepath.Join(dir, "jumia_android_phones.json")}, files[model.SourceJumia])
	assert.Equal(t, []string{filepath.Join(dir, "electroplanet_products.json")}, files[model.SourceElectroplanet])
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}

// --- SafeTransform ---

func TestSafeTransform(t *testing.T) {
	ok := &stubNormalizer{src: model.SourceJumia, fn: func(model.RawListing) (*model.CanonicalRecord, error) {
		return &model.CanonicalRecord{ProductID: "x"}, nil
	}}
	rec, err := SafeTransform(ok, model.RawListing{})
	require.NoError(t, err)
	assert.Equal(t, "x", rec.ProductID)

	failing := &stubNormalizer{src: model.SourceJumia, fn: func(model.RawListing) (*model.CanonicalRecord, error) {
		return nil, ErrUnidentifiable
	}}
	_, err = SafeTransform(failing, model.RawListing{"title": "Mystery phone"})
	var te *TransformError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "Mystery phone", te.Ref)
	assert.ErrorIs(t, err, ErrUnidentifiable)

	panicking := &stubNormalizer{src: model.SourceAvito, fn: func(model.RawListing) (*model.CanonicalRecord, error) {
		panic("boom")
	}}
	_, err = SafeTransform(panicking, model.RawListing{"ad_id": 42})
	require.True(t, errors.As(err, &te))
	assert.Equal(t, model.SourceAvito, te.Source)
	assert.Equal(t, "42", te.Ref)
	assert.Contains(t, err.Error(), "boom")

	empty := &stubNormalizer{src: model.SourceAvito, fn: func(model.RawListing) (*model.CanonicalRecord, error) {
		return nil, nil
	}}
	_, err = SafeTransform(empty, model.RawListing{})
	assert.Error(t, err)
}

// --- Kit ---

func TestKitRecord_CopiesContainers(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	kit := NewKit(taxonomy.Default(), func() time.Time { return now }, nil)

	specs := map[string]string{"storage": "128GB"}
	loc := &model.Location{City: "Fes"}
	rec, err := kit.Record(Listing{
		Title: "  Galaxy   A54 ",
		Brand: "Samsung",
		Model: "A54",
		Specs: specs,
		Offer: model.Offer{Source: model.SourceAvito, URL: "u", Location: loc},
	})
	require.NoError(t, err)

	specs["storage"] = "changed"
	loc.City = "changed"

	assert.Equal(t, "128GB", rec.Specifications["storage"])
	assert.Equal(t, "Fes", rec.Offer.Location.City)
	assert.Equal(t, "Galaxy A54", rec.ProductName)
	assert.Equal(t, "samsung_a54", rec.ProductID)
	assert.Equal(t, "MAD", rec.Offer.Currency)
	assert.Equal(t, now, rec.Metadata.CreatedAt)
}

func TestKitRecord_NameWithoutTitle(t *testing.T) {
	kit := NewKit(taxonomy.Default(), nil, nil)

	rec, err := kit.Record(Listing{Brand: "Apple", Model: "IPHONE 13", Offer: model.Offer{Source: model.SourceJumia}})
	require.NoError(t, err)
	assert.Equal(t, "Apple IPHONE 13", rec.ProductName)

	_, err = kit.Record(Listing{Brand: model.UnknownValue, Model: model.UnknownValue})
	assert.ErrorIs(t, err, ErrUnidentifiable)
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://www.jumia.ma/p.html", AbsoluteURL("https://www.jumia.ma/", "/p.html"))
	assert.Equal(t, "https://cdn.x/p", AbsoluteURL("https://www.jumia.ma", "https://cdn.x/p"))
	assert.Equal(t, "//cdn.x/p", AbsoluteURL("https://www.jumia.ma", "//cdn.x/p"))
	assert.Equal(t, "", AbsoluteURL("https://www.jumia.ma", ""))
}
