package merge

import (
	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/pkg/model"
)

// DedupStats summarizes one Deduplicate pass.
type DedupStats struct {
	OffersRemoved   int `json:"offers_removed"`
	ProductsDropped int `json:"products_dropped"`
}

// Deduplicate removes, within each product, offers repeating an earlier
// offer's (source, price, url), and drops products left without offers.
// The input is not modified.
func Deduplicate(products []model.Product, logger *zap.Logger) ([]model.Product, DedupStats) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var stats DedupStats
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		seen := make(map[model.StrictOfferKey]struct{}, len(p.Offers))
		kept := make([]model.Offer, 0, len(p.Offers))
		for _, o := range p.Offers {
			k := o.StrictKey()
			if _, dup := seen[k]; dup {
				stats.OffersRemoved++
				continue
			}
			seen[k] = struct{}{}
			kept = append(kept, o.Clone())
		}
		if len(kept) == 0 {
			stats.ProductsDropped++
			continue
		}
		cp := p.Clone()
		cp.Offers = kept
		out = append(out, cp)
	}

	logger.Info("merge.dedup_completed",
		zap.Int("products", len(out)),
		zap.Int("offers_removed", stats.OffersRemoved),
		zap.Int("products_dropped", stats.ProductsDropped))
	return out, stats
}
