// Package stats summarizes a catalog for the API, the report and storage.
package stats

import (
	"cmp"
	"slices"
	"time"

	"github.com/Checker-Finance/marketeye/pkg/model"
)

// Count is one bucket of a distribution.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// PriceStats covers offers with a positive price only.
type PriceStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// Statistics describes one catalog. Distributions are sorted by descending
// count, ties by key.
type Statistics struct {
	TotalProducts         int        `json:"total_products"`
	TotalOffers           int        `json:"total_offers"`
	Price                 PriceStats `json:"price_stats"`
	BrandDistribution     []Count    `json:"brand_distribution"`
	SourceDistribution    []Count    `json:"source_distribution"`
	ConditionDistribution []Count    `json:"condition_distribution"`
	GeneratedAt           time.Time  `json:"generated_at"`
}

// Empty reports whether the statistics describe an empty catalog.
func (s Statistics) Empty() bool { return s.TotalProducts == 0 }

// Compute derives statistics from products. Brands are counted per product;
// sources and conditions per offer.
func Compute(products []model.Product, now time.Time) Statistics {
	st := Statistics{TotalProducts: len(products), GeneratedAt: now}

	brands := map[string]int{}
	sources := map[string]int{}
	conditions := map[string]int{}
	var sum float64

	for _, p := range products {
		brands[p.Brand]++
		for _, o := range p.Offers {
			st.TotalOffers++
			sources[string(o.Source)]++
			conditions[string(o.Condition)]++

			if o.Price <= 0 {
				continue
			}
			if st.Price.Count == 0 || o.Price < st.Price.Min {
				st.Price.Min = o.Price
			}
			if o.Price > st.Price.Max {
				st.Price.Max = o.Price
			}
			sum += o.Price
			st.Price.Count++
		}
	}
	if st.Price.Count > 0 {
		st.Price.Avg = sum / float64(st.Price.Count)
	}

	st.BrandDistribution = distribution(brands)
	st.SourceDistribution = distribution(sources)
	st.ConditionDistribution = distribution(conditions)
	return st
}

func distribution(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}
