package normalize

import (
	"regexp"
	"strings"

	"github.com/Checker-Finance/marketeye/internal/taxonomy"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

type conditionRule struct {
	re        *regexp.Regexp
	condition model.Condition
}

// ConditionClassifier maps free-text condition descriptions to model.Condition.
type ConditionClassifier struct {
	tax   *taxonomy.Taxonomy
	rules []conditionRule
}

func NewConditionClassifier(tax *taxonomy.Taxonomy) *ConditionClassifier {
	c := &ConditionClassifier{tax: tax}
	for _, syn := range tax.Conditions() {
		// anchored at a word start so "bon" matches "bonne" but not "carbon"
		c.rules = append(c.rules, conditionRule{
			re:        regexp.MustCompile(`\b` + regexp.QuoteMeta(syn.Phrase)),
			condition: syn.Condition,
		})
	}
	return c
}

// Classify returns the first synonym found in raw, or def when raw is
// empty, a placeholder, or unrecognized.
func (c *ConditionClassifier) Classify(raw string, def model.Condition) model.Condition {
	if c.tax.IsBrandSentinel(raw) {
		return def
	}
	s := strings.ToLower(CollapseSpaces(FoldAccents(raw)))
	for _, r := range c.rules {
		if r.re.MatchString(s) {
			return r.condition
		}
	}
	return def
}
