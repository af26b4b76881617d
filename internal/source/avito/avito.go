// Package avito normalizes Avito.ma classified ads (peer-to-peer, mostly used phones).
package avito

import (
	"context"
	"strings"

	"github.com/Checker-Finance/marketeye/internal/normalize"
	"github.com/Checker-Finance/marketeye/internal/source"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

const (
	siteHost          = "avito.ma"
	siteRoot          = "https://www.avito.ma/"
	defaultSellerType = "PRIVATE"
)

// direct raw fields copied into specifications, in order
var specFields = []string{"storage", "ram", "battery_health", "color", "condition"}

// Normalizer turns Avito ads into canonical records.
type Normalizer struct {
	kit    *source.Kit
	models *normalize.ModelResolver
}

// New builds the Avito normalizer. Avito titles carry tier words
// inconsistently, so qualifiers are stripped from title-derived models.
func New(kit *source.Kit) *Normalizer {
	return &Normalizer{
		kit:    kit,
		models: normalize.NewModelResolver(kit.Taxonomy, true),
	}
}

func (n *Normalizer) Source() model.Source { return model.SourceAvito }

func (n *Normalizer) Patterns() []string { return n.kit.Taxonomy.SourcePatterns(model.SourceAvito) }

func (n *Normalizer) Extract(ctx context.Context, path string) (*source.LoadResult, error) {
	return source.LoadFile(ctx, path, n.kit.Logger)
}

// Transform maps one ad to a canonical record.
func (n *Normalizer) Transform(raw model.RawListing) (*model.CanonicalRecord, error) {
	title := raw.String("title")
	brand := n.kit.Brands.Resolve(raw.String("brand"), title, raw.String("model"))
	modelName := n.models.Resolve(raw.String("model"), title, brand)

	specs := make(map[string]string)
	for _, f := range specFields {
		v := raw.String(f)
		if f == "storage" || f == "ram" {
			v = normalize.NormalizeCapacity(v)
		}
		n.kit.SetSpec(specs, f, v)
	}
	storage, ram := normalize.ExtractCapacities(title)
	n.kit.SetSpecIfAbsent(specs, "storage", storage)
	n.kit.SetSpecIfAbsent(specs, "ram", ram)

	offer := model.Offer{
		Source:     model.SourceAvito,
		Price:      n.kit.Price(model.SourceAvito, raw.Value("price")),
		Condition:  n.kit.Conditions.Classify(raw.String("condition"), model.ConditionUsed),
		URL:        adURL(raw),
		SellerType: sellerType(raw.String("seller_type")),
		SellerName: raw.String("seller_name"),
		Location:   location(raw),
		ScrapedAt:  raw.String("list_time"),
	}

	return n.kit.Record(source.Listing{
		Title: title,
		Brand: brand,
		Model: modelName,
		Specs: specs,
		Offer: offer,
	})
}

// adURL keeps a genuine Avito link, rebuilds one from the ad id, or falls
// back to the site root.
func adURL(raw model.RawListing) string {
	if u := raw.String("url"); strings.Contains(u, siteHost) {
		return u
	}
	if id := raw.String("ad_id"); id != "" {
		return siteRoot + "vi/" + id + ".htm"
	}
	return siteRoot
}

func sellerType(v string) string {
	if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
		return v
	}
	return defaultSellerType
}

func location(raw model.RawListing) *model.Location {
	city, area := raw.String("city"), raw.String("area")
	if city == "" && area == "" {
		return nil
	}
	return &model.Location{City: city, Area: area}
}
