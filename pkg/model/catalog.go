package model

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Source identifies one of the marketplaces listings are collected from.
type Source string

const (
	SourceJumia         Source = "Jumia"
	SourceElectroplanet Source = "Electroplanet"
	SourceAvito         Source = "Avito"
)

// AllSources returns every known source in batch processing order.
func AllSources() []Source {
	return []Source{SourceAvito, SourceJumia, SourceElectroplanet}
}

// ParseSource matches a source name case-insensitively.
func ParseSource(s string) (Source, bool) {
	for _, src := range AllSources() {
		if strings.EqualFold(string(src), s) {
			return src, true
		}
	}
	return "", false
}

// Condition is the normalized state of the item being offered.
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsed        Condition = "used"
	ConditionGood        Condition = "good"
	ConditionFair        Condition = "fair"
	ConditionPoor        Condition = "poor"
	ConditionLikeNew     Condition = "like_new"
	ConditionRefurbished Condition = "refurbished"
)

// Valid reports whether c is one of the known conditions.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionUsed, ConditionGood, ConditionFair,
		ConditionPoor, ConditionLikeNew, ConditionRefurbished:
		return true
	}
	return false
}

const (
	DefaultCategory = "Smartphone"
	UnknownValue    = "Unknown"
)

// Location is the seller's location, only known for peer-to-peer listings.
type Location struct {
	City string `json:"city,omitempty"`
	Area string `json:"area,omitempty"`
}

// Offer is one seller's listing of a product.
type Offer struct {
	Source        Source    `json:"source"`
	Price         float64   `json:"price"`
	OriginalPrice float64   `json:"original_price,omitempty"`
	Currency      string    `json:"currency"`
	Condition     Condition `json:"condition"`
	URL           string    `json:"url"`
	SellerType    string    `json:"seller_type,omitempty"`
	SellerName    string    `json:"seller_name,omitempty"`
	Location      *Location `json:"location,omitempty"`
	Rating        float64   `json:"rating,omitempty"`
	ReviewsCount  int       `json:"reviews_count,omitempty"`
	ScrapedAt     string    `json:"scraped_at,omitempty"`
}

// OfferKey identifies an offer within a product for merging.
type OfferKey struct {
	Source Source
	URL    string
}

// StrictOfferKey identifies an exact duplicate offer.
type StrictOfferKey struct {
	Source Source
	Price  float64
	URL    string
}

func (o Offer) Key() OfferKey { return OfferKey{Source: o.Source, URL: o.URL} }

func (o Offer) StrictKey() StrictOfferKey {
	return StrictOfferKey{Source: o.Source, Price: o.Price, URL: o.URL}
}

// Clone returns a copy of o that shares no pointers with it.
func (o Offer) Clone() Offer {
	if o.Location != nil {
		loc := *o.Location
		o.Location = &loc
	}
	return o
}

// Metadata tracks where a product came from and when it was touched.
type Metadata struct {
	Sources     []Source  `json:"sources"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// HasSource reports whether s already contributed to the product.
func (m Metadata) HasSource(s Source) bool {
	return slices.Contains(m.Sources, s)
}

// CanonicalRecord is a single normalized listing: one product identity, one offer.
type CanonicalRecord struct {
	ProductID      string            `json:"product_id"`
	Brand          string            `json:"brand"`
	Model          string            `json:"model"`
	ProductName    string            `json:"product_name"`
	Category       string            `json:"category"`
	Specifications map[string]string `json:"specifications"`
	Offer          Offer             `json:"offer"`
	Metadata       Metadata          `json:"metadata"`
}

// ToProduct converts the record into a one-offer Product with its own copies
// of every map and slice.
func (r *CanonicalRecord) ToProduct() Product {
	return Product{
		ProductID:      r.ProductID,
		Brand:          r.Brand,
		Model:          r.Model,
		ProductName:    r.ProductName,
		Category:       r.Category,
		Specifications: cloneSpecs(r.Specifications),
		Offers:         []Offer{r.Offer.Clone()},
		Metadata: Metadata{
			Sources:     slices.Clone(r.Metadata.Sources),
			CreatedAt:   r.Metadata.CreatedAt,
			LastUpdated: r.Metadata.LastUpdated,
		},
	}
}

// Product is a canonical catalog entry aggregating offers from one or more sources.
type Product struct {
	ProductID      string            `json:"product_id"`
	Brand          string            `json:"brand"`
	Model          string            `json:"model"`
	ProductName    string            `json:"product_name"`
	Category       string            `json:"category"`
	Specifications map[string]string `json:"specifications"`
	Offers         []Offer           `json:"offers"`
	Metadata       Metadata          `json:"metadata"`
}

// Clone deep-copies p.
func (p Product) Clone() Product {
	out := p
	out.Specifications = cloneSpecs(p.Specifications)
	out.Offers = make([]Offer, len(p.Offers))
	for i, o := range p.Offers {
		out.Offers[i] = o.Clone()
	}
	out.Metadata.Sources = slices.Clone(p.Metadata.Sources)
	return out
}

// HasOfferFrom reports whether any offer of p comes from s.
func (p Product) HasOfferFrom(s Source) bool {
	for _, o := range p.Offers {
		if o.Source == s {
			return true
		}
	}
	return false
}

func cloneSpecs(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	maps.Copy(out, in)
	return out
}
