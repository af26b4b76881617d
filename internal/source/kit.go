package source

import (
	"maps"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/internal/metrics"
	"github.com/Checker-Finance/marketeye/internal/normalize"
	"github.com/Checker-Finance/marketeye/internal/taxonomy"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

// Kit bundles the taxonomy-backed resolvers shared by every normalizer.
// It holds no per-listing state.
type Kit struct {
	Taxonomy   *taxonomy.Taxonomy
	Brands     *normalize.BrandResolver
	Conditions *normalize.ConditionClassifier
	Logger     *zap.Logger
	now        func() time.Time
}

// NewKit wires resolvers around tax. now defaults to time.Now (UTC).
func NewKit(tax *taxonomy.Taxonomy, now func() time.Time, logger *zap.Logger) *Kit {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Kit{
		Taxonomy:   tax,
		Brands:     normalize.NewBrandResolver(tax),
		Conditions: normalize.NewConditionClassifier(tax),
		Logger:     logger,
		now:        now,
	}
}

// Listing is the source-independent result of reading one raw listing.
type Listing struct {
	Title string
	Brand string
	Model string
	Specs map[string]string
	Offer model.Offer
}

// Price parses a raw price and counts listings whose price could not be read.
func (k *Kit) Price(src model.Source, v any) float64 {
	p, ok := normalize.ParsePrice(v)
	if !ok {
		metrics.IncPriceUnparsed(string(src))
	}
	return p
}

// SetSpec stores value under key unless it is empty or a placeholder.
func (k *Kit) SetSpec(specs map[string]string, key, value string) {
	value = normalize.CollapseSpaces(value)
	if value == "" || k.Taxonomy.IsBrandSentinel(value) {
		return
	}
	specs[key] = value
}

// SetSpecIfAbsent is SetSpec that never replaces an existing value.
func (k *Kit) SetSpecIfAbsent(specs map[string]string, key, value string) {
	if specs[key] != "" {
		return
	}
	k.SetSpec(specs, key, value)
}

// Record builds the canonical record for l. The record gets its own copies
// of every container in l.
func (k *Kit) Record(l Listing) (*model.CanonicalRecord, error) {
	title := normalize.CollapseSpaces(l.Title)
	if title == "" && l.Brand == model.UnknownValue {
		return nil, ErrUnidentifiable
	}

	name := title
	if name == "" {
		name = l.Brand
		if l.Model != model.UnknownValue {
			name += " " + l.Model
		}
	}

	offer := l.Offer.Clone()
	if offer.Currency == "" {
		offer.Currency = k.Taxonomy.Currency()
	}

	specs := make(map[string]string, len(l.Specs))
	maps.Copy(specs, l.Specs)

	now := k.now()
	return &model.CanonicalRecord{
		ProductID:      normalize.ProductID(l.Brand, l.Model, title),
		Brand:          l.Brand,
		Model:          l.Model,
		ProductName:    name,
		Category:       model.DefaultCategory,
		Specifications: specs,
		Offer:          offer,
		Metadata: model.Metadata{
			Sources:     []model.Source{offer.Source},
			CreatedAt:   now,
			LastUpdated: now,
		},
	}, nil
}

// AbsoluteURL prefixes site-relative links with base.
func AbsoluteURL(base, link string) string {
	link = strings.TrimSpace(link)
	if strings.HasPrefix(link, "/") && !strings.HasPrefix(link, "//") {
		return strings.TrimSuffix(base, "/") + link
	}
	return link
}
