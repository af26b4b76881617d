package normalize

import (
	"strings"

	"github.com/Checker-Finance/marketeye/internal/taxonomy"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

// BrandResolver maps noisy brand evidence to a canonical brand name.
type BrandResolver struct {
	tax *taxonomy.Taxonomy
}

func NewBrandResolver(tax *taxonomy.Taxonomy) *BrandResolver {
	return &BrandResolver{tax: tax}
}

// Resolve tries, in order: the explicit brand field, the title, then the
// model field. An explicit brand that matches no alias is kept title-cased.
// With no evidence at all the result is "Unknown".
func (r *BrandResolver) Resolve(brandField, title, modelField string) string {
	if b := strings.TrimSpace(brandField); !r.tax.IsBrandSentinel(b) {
		if canon, ok := r.tax.LookupBrand(b); ok {
			return canon
		}
		return TitleCase(b)
	}
	if canon, ok := r.tax.LookupBrand(title); ok {
		return canon
	}
	if !r.tax.IsModelSentinel(modelField) {
		if canon, ok := r.tax.LookupBrand(modelField); ok {
			return canon
		}
	}
	return model.UnknownValue
}
