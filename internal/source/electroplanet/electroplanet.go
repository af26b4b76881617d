// Package electroplanet normalizes Electroplanet.ma catalog products (retail, sold new).
package electroplanet

import (
	"context"
	"strings"

	"github.com/Checker-Finance/marketeye/internal/normalize"
	"github.com/Checker-Finance/marketeye/internal/source"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

const (
	siteRoot   = "https://www.electroplanet.ma"
	sellerType = "RETAILER"

	labelBrand = "Marque"
	labelModel = "Modèle"
)

// specLabels maps Electroplanet's French specification labels to canonical keys.
var specLabels = []struct{ label, key string }{
	{"Capacité de stockage interne", "storage"},
	{"Capacité de la RAM", "ram"},
	{labelBrand, "brand"},
	{labelModel, "model"},
	{"Résolution de la caméra arrière (numerique)", "camera"},
	{"Famille de processeur", "processor"},
	{"Afficher le nom du marketing technologique", "screen_tech"},
	{"Écran Gorilla Glass", "gorilla_glass"},
}

// Normalizer turns Electroplanet products into canonical records.
type Normalizer struct {
	kit    *source.Kit
	models *normalize.ModelResolver
}

func New(kit *source.Kit) *Normalizer {
	return &Normalizer{
		kit:    kit,
		models: normalize.NewModelResolver(kit.Taxonomy, false),
	}
}

func (n *Normalizer) Source() model.Source { return model.SourceElectroplanet }

func (n *Normalizer) Patterns() []string {
	return n.kit.Taxonomy.SourcePatterns(model.SourceElectroplanet)
}

func (n *Normalizer) Extract(ctx context.Context, path string) (*source.LoadResult, error) {
	return source.LoadFile(ctx, path, n.kit.Logger)
}

// Transform maps one product to a canonical record. The model comes from
// the "Modèle" specification when present, otherwise from the product name.
func (n *Normalizer) Transform(raw model.RawListing) (*model.CanonicalRecord, error) {
	table := foldLabels(raw.Map("specifications"))

	title := raw.String("name")
	if title == "" {
		title = raw.String("title")
	}
	brandField := raw.String("brand")
	if brandField == "" {
		brandField = table[foldLabel(labelBrand)]
	}
	modelField := table[foldLabel(labelModel)]

	brand := n.kit.Brands.Resolve(brandField, title, modelField)
	modelName := n.models.Resolve(modelField, title, brand)

	specs := make(map[string]string)
	for _, sl := range specLabels {
		v := table[foldLabel(sl.label)]
		if sl.key == "storage" || sl.key == "ram" {
			v = normalize.NormalizeCapacity(v)
		}
		n.kit.SetSpec(specs, sl.key, v)
	}
	storage, ram := normalize.ExtractCapacities(title)
	n.kit.SetSpecIfAbsent(specs, "storage", storage)
	n.kit.SetSpecIfAbsent(specs, "ram", ram)

	scrapedAt := raw.String("detailed_scraped_at")
	if scrapedAt == "" {
		scrapedAt = raw.String("scraped_at")
	}
	reviews := model.RawListing(raw.Map("reviews_summary"))

	offer := model.Offer{
		Source:        model.SourceElectroplanet,
		Price:         n.kit.Price(model.SourceElectroplanet, raw.Value("price")),
		OriginalPrice: normalize.Price(raw.Value("old_price")),
		Condition:     n.kit.Conditions.Classify(raw.String("condition"), model.ConditionNew),
		URL:           source.AbsoluteURL(siteRoot, raw.String("product_url")),
		SellerType:    sellerType,
		SellerName:    string(model.SourceElectroplanet),
		Rating:        normalize.ParseRating(reviews.Value("average_rating")),
		ReviewsCount:  normalize.ParseCount(reviews.Value("total_reviews")),
		ScrapedAt:     scrapedAt,
	}

	return n.kit.Record(source.Listing{
		Title: title,
		Brand: brand,
		Model: modelName,
		Specs: specs,
		Offer: offer,
	})
}

// foldLabels indexes a specification table by folded label so accent and
// case variants of the same label match.
func foldLabels(table map[string]any) map[string]string {
	out := make(map[string]string, len(table))
	for label, v := range table {
		out[foldLabel(label)] = strings.TrimSpace(model.Stringify(v))
	}
	return out
}

func foldLabel(label string) string {
	return strings.ToLower(normalize.CollapseSpaces(normalize.FoldAccents(label)))
}
