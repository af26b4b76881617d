package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/marketeye/internal/stats"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

func TestHolder_Empty(t *testing.T) {
	h := NewHolder()

	assert.Nil(t, h.Current())
	_, ok := h.Product("x")
	assert.False(t, ok)
	assert.Empty(t, h.Products(Filter{}))
}

func TestHolder_ProductsAndFilters(t *testing.T) {
	res := sampleResult()
	h := NewHolder()
	h.Set(NewSnapshot(res.RunID, res.FinishedAt, res.Products, stats.Compute(res.Products, fixedNow), ""))

	assert.Len(t, h.Products(Filter{}), 2)

	bySamsung := h.Products(Filter{Brand: "samsung"})
	require.Len(t, bySamsung, 1)
	assert.Equal(t, "samsung_s24ultra", bySamsung[0].ProductID)

	assert.Len(t, h.Products(Filter{Source: model.SourceAvito}), 2)
	assert.Len(t, h.Products(Filter{Source: model.SourceJumia}), 1)
	assert.Empty(t, h.Products(Filter{Brand: "Apple", Source: model.SourceJumia}))
}

func TestHolder_ReturnsCopies(t *testing.T) {
	res := sampleResult()
	h := NewHolder()
	h.Set(NewSnapshot(res.RunID, res.FinishedAt, res.Products, stats.Statistics{}, ""))

	p, ok := h.Product("apple_iphone13")
	require.True(t, ok)
	p.Offers[0].Price = 1

	again, _ := h.Product("apple_iphone13")
	assert.Equal(t, 4500.0, again.Offers[0].Price)
}
