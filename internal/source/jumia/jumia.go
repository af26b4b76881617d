// Package jumia normalizes Jumia.ma catalog products (retail, sold new).
package jumia

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/Checker-Finance/marketeye/internal/normalize"
	"github.com/Checker-Finance/marketeye/internal/source"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

const (
	siteRoot   = "https://www.jumia.ma"
	sellerType = "RETAILER"
)

// specKeys maps words of Jumia spec labels (lower-case, accent-free) to
// canonical keys. First match wins.
var specKeys = []struct {
	re  *regexp.Regexp
	key string
}{
	{regexp.MustCompile(`\bram\b`), "ram"},
	{regexp.MustCompile(`\bstockage\b`), "storage"},
	{regexp.MustCompile(`\bstorage\b`), "storage"},
	{regexp.MustCompile(`\becran\b`), "screen_size"},
	{regexp.MustCompile(`\bscreen\b`), "screen_size"},
	{regexp.MustCompile(`\bcouleur\b`), "color"},
	{regexp.MustCompile(`\bcolou?r\b`), "color"},
	{regexp.MustCompile(`\bbatterie\b`), "battery"},
	{regexp.MustCompile(`\bbattery\b`), "battery"},
	{regexp.MustCompile(`\bprocesseur\b`), "processor"},
	{regexp.MustCompile(`\bprocessor\b`), "processor"},
}

// Normalizer turns Jumia products into canonical records.
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

func (n *Normalizer) Source() model.Source { return model.SourceJumia }

func (n *Normalizer) Patterns() []string { return n.kit.Taxonomy.SourcePatterns(model.SourceJumia) }

func (n *Normalizer) Extract(ctx context.Context, path string) (*source.LoadResult, error) {
	return source.LoadFile(ctx, path, n.kit.Logger)
}

// Transform maps one product to a canonical record.
func (n *Normalizer) Transform(raw model.RawListing) (*model.CanonicalRecord, error) {
	title := raw.String("title")
	if title == "" {
		title = raw.String("name")
	}
	brand := n.kit.Brands.Resolve(raw.String("brand"), title, raw.String("model"))
	modelName := n.models.Resolve(raw.String("model"), title, brand)

	specs := n.specifications(raw, title)

	sellerName := raw.String("seller")
	if sellerName == "" {
		sellerName = string(model.SourceJumia)
	}
	link := raw.String("product_url")
	if link == "" {
		link = raw.String("url")
	}

	offer := model.Offer{
		Source:        model.SourceJumia,
		Price:         n.kit.Price(model.SourceJumia, raw.Value("price")),
		OriginalPrice: normalize.Price(raw.Value("old_price")),
		Condition:     n.kit.Conditions.Classify(raw.String("condition"), model.ConditionNew),
		URL:           source.AbsoluteURL(siteRoot, link),
		SellerType:    sellerType,
		SellerName:    sellerName,
		Rating:        normalize.ParseRating(raw.Value("rating")),
		ReviewsCount:  normalize.ParseCount(raw.Value("reviews_count_text")),
		ScrapedAt:     raw.String("scraped_at"),
	}

	return n.kit.Record(source.Listing{
		Title: title,
		Brand: brand,
		Model: modelName,
		Specs: specs,
		Offer: offer,
	})
}

// specifications reads sizes from the title and description, then lets the
// structured spec table override them.
func (n *Normalizer) specifications(raw model.RawListing, title string) map[string]string {
	specs := make(map[string]string)

	text := title + " " + normalize.HTMLText(raw.String("description"))
	storage, ram := normalize.ExtractCapacities(text)
	n.kit.SetSpec(specs, "storage", storage)
	n.kit.SetSpec(specs, "ram", ram)
	n.kit.SetSpec(specs, "screen_size", normalize.ExtractScreenSize(text))

	table := raw.Map("specs")
	labels := make([]string, 0, len(table))
	for label := range table {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	for _, label := range labels {
		key := specKey(label)
		if key == "" {
			continue
		}
		v := model.Stringify(table[label])
		if key == "storage" || key == "ram" {
			v = normalize.NormalizeCapacity(v)
		}
		n.kit.SetSpec(specs, key, v)
	}
	return specs
}

func specKey(label string) string {
	l := strings.ToLower(normalize.FoldAccents(label))
	for _, sk := range specKeys {
		if sk.re.MatchString(l) {
			return sk.key
		}
	}
	return ""
}
