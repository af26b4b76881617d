package normalize

import (
	"regexp"
	"strings"

	"github.com/Checker-Finance/marketeye/internal/taxonomy"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

// Tried in order against the upper-cased, brand-stripped title.
var modelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Z]+\s*\d+\s*[A-Z]*\s*\d*\s*[A-Z]*`), // S24 ULTRA, A14 5G
	regexp.MustCompile(`\d+\s*[A-Z]+\s*\d*`),                   // 12 PRO MAX
	regexp.MustCompile(`[A-Z]+\s*\d+`),                         // NOTE 12
	regexp.MustCompile(`\d+\s*[A-Z]{2,}`),                      // 256GB
}

var nonModelChars = regexp.MustCompile(`[^A-Za-z0-9\s]`)

// ModelResolver extracts a canonical model designation from a listing.
type ModelResolver struct {
	tax             *taxonomy.Taxonomy
	stripQualifiers bool
	qualifierRegex  *regexp.Regexp
}

// NewModelResolver builds a resolver. With stripQualifiers, tier words such
// as ULTRA or PRO are removed from title-derived models (explicit model
// fields are never stripped).
func NewModelResolver(tax *taxonomy.Taxonomy, stripQualifiers bool) *ModelResolver {
	r := &ModelResolver{tax: tax, stripQualifiers: stripQualifiers}
	if q := tax.Qualifiers(); stripQualifiers && len(q) > 0 {
		for i := range q {
			q[i] = regexp.QuoteMeta(q[i])
		}
		r.qualifierRegex = regexp.MustCompile(`\b(?:` + strings.Join(q, "|") + `)\b`)
	}
	return r
}

// CleanModel upper-cases s, drops punctuation and collapses whitespace.
func CleanModel(s string) string {
	s = nonModelChars.ReplaceAllString(FoldAccents(s), "")
	return strings.ToUpper(CollapseSpaces(s))
}

// Resolve returns the explicit model field when usable, otherwise the
// first pattern match in the title, otherwise up to three meaningful
// title words, otherwise "Unknown".
func (r *ModelResolver) Resolve(modelField, title, brand string) string {
	if !r.tax.IsModelSentinel(modelField) {
		if m := CleanModel(modelField); m != "" {
			return m
		}
	}

	t := strings.ToUpper(FoldAccents(title))
	if brand != "" && brand != model.UnknownValue {
		t = strings.ReplaceAll(t, strings.ToUpper(brand), " ")
	}

	for _, re := range modelPatterns {
		m := re.FindString(t)
		if m == "" {
			continue
		}
		if r.qualifierRegex != nil {
			m = r.qualifierRegex.ReplaceAllString(m, " ")
		}
		if m = CollapseSpaces(m); len(m) > 1 {
			return m
		}
	}

	words := strings.Fields(t)
	if len(words) > 3 {
		words = words[:3]
	}
	var kept []string
	for _, w := range words {
		w = CleanModel(w)
		if len(w) > 2 && !isDigits(w) {
			kept = append(kept, w)
		}
	}
	if len(kept) > 0 {
		return strings.Join(kept, " ")
	}
	return model.UnknownValue
}
