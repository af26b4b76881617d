package merge

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/marketeye/pkg/model"
)

var (
	t0       = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mergedAt = time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return mergedAt }

func record(id string, src model.Source, url string, price float64, name string, specs map[string]string) *model.CanonicalRecord {
	if specs == nil {
		specs = map[string]string{}
	}
	return &model.CanonicalRecord{
		ProductID:      id,
		Brand:          "Samsung",
		Model:          "S24 ULTRA",
		ProductName:    name,
		Category:       model.DefaultCategory,
		Specifications: specs,
		Offer: model.Offer{
			Source:    src,
			Price:     price,
			Currency:  "MAD",
			Condition: model.ConditionNew,
			URL:       url,
		},
		Metadata: model.Metadata{Sources: []model.Source{src}, CreatedAt: t0, LastUpdated: t0},
	}
}

func TestMerge_TwoSourcesOneProduct(t *testing.T) {
	a := record("samsung_s24ultra", model.SourceJumia, "https://jumia/1", 13499, "Samsung Galaxy S24 Ultra", map[string]string{"storage": "256GB"})
	b := record("samsung_s24ultra", model.SourceElectroplanet, "https://electro/1", 12999, "SAMSUNG Smartphone Galaxy S24 Ultra 256Go", map[string]string{"storage": "512GB", "ram": "12GB"})

	products := NewEngine(nil, fixedClock).Merge([]*model.CanonicalRecord{a, b})
	require.Len(t, products, 1)

	p := products[0]
	assert.Len(t, p.Offers, 2)
	assert.ElementsMatch(t, []model.Source{model.SourceJumia, model.SourceElectroplanet}, p.Metadata.Sources)
	assert.Equal(t, "256GB", p.Specifications["storage"], "first non-empty value wins")
	assert.Equal(t, "12GB", p.Specifications["ram"], "missing keys are filled")
	assert.Equal(t, "SAMSUNG Smartphone Galaxy S24 Ultra 256Go", p.ProductName, "longer name replaces")
	assert.Equal(t, t0, p.Metadata.CreatedAt)
	assert.Equal(t, mergedAt, p.Metadata.LastUpdated)
}

func TestMerge_SameSourceAndURLKeptOnce(t *testing.T) {
	a := record("samsung_s24ultra", model.SourceAvito, "https://avito/1", 7800, "S24", nil)
	b := record("samsung_s24ultra", model.SourceAvito, "https://avito/1", 7500, "S24", nil)

	products := NewEngine(nil, fixedClock).Merge([]*model.CanonicalRecord{a, b})
	require.Len(t, products, 1)
	require.Len(t, products[0].Offers, 1)
	assert.Equal(t, 7800.0, products[0].Offers[0].Price)
}

func TestMerge_ShorterNameAndEmptySpecsIgnored(t *testing.T) {
	a := record("x", model.SourceJumia, "u1", 1, "Long product name", map[string]string{"color": ""})
	b := record("x", model.SourceAvito, "u2", 2, "Short", map[string]string{"color": "Noir", "ram": ""})

	p := NewEngine(nil, fixedClock).Merge([]*model.CanonicalRecord{a, b})[0]
	assert.Equal(t, "Long product name", p.ProductName)
	assert.Equal(t, "Noir", p.Specifications["color"], "empty existing value is filled")
	assert.Empty(t, p.Specifications["ram"])
}

func TestMerge_NameLengthCountsCharacters(t *testing.T) {
	// "Téléphone" is 9 characters but 11 bytes.
	a := record("samsung_s24ultra", model.SourceJumia, "https://jumia/1", 13499, "Téléphone", nil)
	b := record("samsung_s24ultra", model.SourceAvito, "https://avito/1", 12000, "Telephones", nil)
	c := record("samsung_s24ultra", model.SourceElectroplanet, "https://electro/1", 12999, "Téléphonë", nil)

	products := NewEngine(nil, fixedClock).Merge([]*model.CanonicalRecord{a, b, c})
	require.Len(t, products, 1)
	assert.Equal(t, "Telephones", products[0].ProductName)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	a := record("x", model.SourceJumia, "u1", 1, "A", map[string]string{"storage": "128GB"})
	b := record("x", model.SourceAvito, "u2", 2, "B", map[string]string{"ram": "8GB"})

	p := NewEngine(nil, fixedClock).Merge([]*model.CanonicalRecord{a, b})[0]

	assert.NotContains(t, a.Specifications, "ram", "first record's map must not be mutated by later merges")
	assert.Equal(t, []model.Source{model.SourceJumia}, a.Metadata.Sources)

	p.Specifications["storage"] = "changed"
	assert.Equal(t, "128GB", a.Specifications["storage"])
}

func TestMerge_IdempotentAndOrderIndependent(t *testing.T) {
	recs := []*model.CanonicalRecord{
		record("a", model.SourceJumia, "u1", 1, "Alpha", map[string]string{"storage": "64GB"}),
		record("b", model.SourceAvito, "u2", 2, "Beta", nil),
		record("a", model.SourceElectroplanet, "u3", 3, "Alpha One", map[string]string{"ram": "4GB"}),
		record("b", model.SourceAvito, "u2", 2, "Beta", nil),
	}

	first := NewEngine(nil, fixedClock).Merge(recs)
	second := NewEngine(nil, fixedClock).Merge(recs)
	assert.Equal(t, first, second)

	reversed := make([]*model.CanonicalRecord, len(recs))
	for i, r := range recs {
		reversed[len(recs)-1-i] = r
	}
	rev := NewEngine(nil, fixedClock).Merge(reversed)

	byID := func(ps []model.Product) map[string]model.Product {
		m := map[string]model.Product{}
		for _, p := range ps {
			m[p.ProductID] = p
		}
		return m
	}
	f, r := byID(first), byID(rev)
	require.Len(t, r, len(f))
	for id, p := range f {
		q := r[id]
		assert.ElementsMatch(t, p.Metadata.Sources, q.Metadata.Sources, id)
		assert.ElementsMatch(t, p.Offers, q.Offers, id)
		assert.Equal(t, p.ProductName, q.ProductName, id)
	}
}

func TestMergePartitioned_MatchesSequential(t *testing.T) {
	var recs []*model.CanonicalRecord
	ids := []string{"apple_iphone13", "samsung_s24", "xiaomi_note13", "google_pixel8", "honor_x8"}
	for i := 0; i < 40; i++ {
		id := ids[i%len(ids)]
		src := model.AllSources()[i%3]
		recs = append(recs, record(id, src, id+"/"+string(src), float64(i), id, nil))
	}

	seq := NewEngine(nil, fixedClock).Merge(recs)
	par, err := MergePartitioned(context.Background(), recs, 4, nil, fixedClock)
	require.NoError(t, err)

	sortByID := func(ps []model.Product) {
		sort.Slice(ps, func(i, j int) bool { return ps[i].ProductID < ps[j].ProductID })
	}
	sortByID(seq)
	sortByID(par)
	assert.Equal(t, seq, par)
}

func TestMergePartitioned_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MergePartitioned(ctx, []*model.CanonicalRecord{record("a", model.SourceJumia, "u", 1, "A", nil)}, 2, nil, fixedClock)
	assert.ErrorIs(t, err, context.Canceled)
}
