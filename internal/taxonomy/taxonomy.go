// Package taxonomy holds the reference tables every normalizer shares:
// brand aliases, sentinel values, model qualifiers, condition synonyms and
// source file patterns. A Taxonomy is built once and never mutated, so it
// can be handed to any number of concurrent readers.
package taxonomy

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Checker-Finance/marketeye/pkg/model"
)

// BrandAlias maps an upper-case token to a canonical brand name.
type BrandAlias struct {
	Token string `yaml:"token"`
	Brand string `yaml:"brand"`
}

// ConditionSynonym maps a lower-case, accent-free phrase to a condition.
type ConditionSynonym struct {
	Phrase    string          `yaml:"phrase"`
	Condition model.Condition `yaml:"condition"`
}

// Taxonomy is the immutable lookup configuration.
type Taxonomy struct {
	brandAliases   []BrandAlias
	brandSentinels map[string]struct{}
	modelSentinels map[string]struct{}
	qualifiers     []string
	conditions     []ConditionSynonym
	currency       string
	patterns       map[model.Source][]string
}

// File is the YAML layout accepted by Load. Omitted sections keep the defaults.
type File struct {
	BrandAliases   []BrandAlias              `yaml:"brand_aliases"`
	BrandSentinels []string                  `yaml:"brand_sentinels"`
	ModelSentinels []string                  `yaml:"model_sentinels"`
	Qualifiers     []string                  `yaml:"qualifiers"`
	Conditions     []ConditionSynonym        `yaml:"conditions"`
	Currency       string                    `yaml:"currency"`
	SourcePatterns map[model.Source][]string `yaml:"source_patterns"`
}

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	t, err := New(defaultFile())
	if err != nil {
		panic("taxonomy: invalid built-in table: " + err.Error())
	}
	return t
}

func defaultFile() File {
	return File{
		// Declaration order is precedence: the first token found wins.
		BrandAliases: []BrandAlias{
			{"APPLE", "Apple"},
			{"IPHONE", "Apple"},
			{"SAMSUNG", "Samsung"},
			{"SAMSNG", "Samsung"},
			{"SAMSUUNG", "Samsung"},
			{"GALAXY", "Samsung"},
			{"XIAOMI", "Xiaomi"},
			{"REDMI", "Xiaomi"},
			{"POCO", "Xiaomi"},
			{"HUAWEI", "Huawei"},
			{"HAUWEI", "Huawei"},
			{"HONOR", "Honor"},
			{"OPPO", "Oppo"},
			{"REALME", "Realme"},
			{"ONEPLUS", "OnePlus"},
			{"NOKIA", "Nokia"},
			{"TECNO", "Tecno"},
			{"INFINIX", "Infinix"},
			{"VIVO", "Vivo"},
			{"MOTOROLA", "Motorola"},
			{"MOTO", "Motorola"},
			{"GOOGLE", "Google"},
			{"SONY", "Sony"},
			{"LG", "LG"},
		},
		BrandSentinels: []string{"", "NULL", "NONE", "UNKNOWN", "INCONNU"},
		ModelSentinels: []string{"", "NULL", "NONE", "UNKNOWN"},
		Qualifiers:     []string{"ULTRA", "PRO", "PLUS", "MAX", "MINI", "LITE"},
		// Most specific phrases first: "comme neuf" must not fall into "neuf".
		Conditions: []ConditionSynonym{
			{"comme neuf", model.ConditionLikeNew},
			{"like new", model.ConditionLikeNew},
			{"reconditionne", model.ConditionRefurbished},
			{"refurbished", model.ConditionRefurbished},
			{"neuf", model.ConditionNew},
			{"nouveau", model.ConditionNew},
			{"new", model.ConditionNew},
			{"excellent", model.ConditionGood},
			{"bon", model.ConditionGood},
			{"good", model.ConditionGood},
			{"moyen", model.ConditionFair},
			{"acceptable", model.ConditionFair},
			{"fair", model.ConditionFair},
			{"mauvais", model.ConditionPoor},
			{"endommage", model.ConditionPoor},
			{"poor", model.ConditionPoor},
			{"occasion", model.ConditionUsed},
			{"used", model.ConditionUsed},
		},
		Currency: "MAD",
		SourcePatterns: map[model.Source][]string{
			model.SourceJumia:         {"jumia", "android", "product"},
			model.SourceElectroplanet: {"electroplanet", "electro"},
			model.SourceAvito:         {"avito", "ads"},
		},
	}
}

// New validates f and builds a Taxonomy from it. Empty sections of f are
// filled from the built-in defaults.
func New(f File) (*Taxonomy, error) {
	def := defaultFile()
	if len(f.BrandAliases) == 0 {
		f.BrandAliases = def.BrandAliases
	}
	if f.BrandSentinels == nil {
		f.BrandSentinels = def.BrandSentinels
	}
	if f.ModelSentinels == nil {
		f.ModelSentinels = def.ModelSentinels
	}
	if f.Qualifiers == nil {
		f.Qualifiers = def.Qualifiers
	}
	if len(f.Conditions) == 0 {
		f.Conditions = def.Conditions
	}
	if f.Currency == "" {
		f.Currency = def.Currency
	}
	if f.SourcePatterns == nil {
		f.SourcePatterns = def.SourcePatterns
	}

	t := &Taxonomy{
		brandSentinels: upperSet(f.BrandSentinels),
		modelSentinels: upperSet(f.ModelSentinels),
		currency:       f.Currency,
		patterns:       make(map[model.Source][]string, len(f.SourcePatterns)),
	}
	for i, a := range f.BrandAliases {
		tok := strings.ToUpper(strings.TrimSpace(a.Token))
		if tok == "" || strings.TrimSpace(a.Brand) == "" {
			return nil, fmt.Errorf("brand alias %d: token and brand are required", i)
		}
		t.brandAliases = append(t.brandAliases, BrandAlias{Token: tok, Brand: strings.TrimSpace(a.Brand)})
	}
	for _, q := range f.Qualifiers {
		if q = strings.ToUpper(strings.TrimSpace(q)); q != "" {
			t.qualifiers = append(t.qualifiers, q)
		}
	}
	for i, c := range f.Conditions {
		if !c.Condition.Valid() {
			return nil, fmt.Errorf("condition synonym %d (%q): unknown condition %q", i, c.Phrase, c.Condition)
		}
		phrase := strings.ToLower(strings.TrimSpace(c.Phrase))
		if phrase == "" {
			return nil, fmt.Errorf("condition synonym %d: empty phrase", i)
		}
		t.conditions = append(t.conditions, ConditionSynonym{Phrase: phrase, Condition: c.Condition})
	}
	for name, pats := range f.SourcePatterns {
		src, ok := model.ParseSource(string(name))
		if !ok {
			return nil, fmt.Errorf("source patterns: unknown source %q", name)
		}
		for _, p := range pats {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				t.patterns[src] = append(t.patterns[src], p)
			}
		}
	}
	return t, nil
}

// Load reads a YAML taxonomy file.
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}
	return New(f)
}

// WithSourcePatterns returns a copy of t whose file patterns for src are replaced.
// Empty pats leaves t unchanged.
func (t *Taxonomy) WithSourcePatterns(src model.Source, pats []string) *Taxonomy {
	if len(pats) == 0 {
		return t
	}
	cp := *t
	cp.patterns = maps.Clone(t.patterns)
	cp.patterns[src] = slices.Clone(pats)
	return &cp
}

// BrandAliases returns the ordered alias table.
func (t *Taxonomy) BrandAliases() []BrandAlias { return slices.Clone(t.brandAliases) }

// LookupBrand scans s (any case) for the first alias token, in declaration order.
func (t *Taxonomy) LookupBrand(s string) (string, bool) {
	up := strings.ToUpper(s)
	for _, a := range t.brandAliases {
		if strings.Contains(up, a.Token) {
			return a.Brand, true
		}
	}
	return "", false
}

// IsBrandSentinel reports whether s is a placeholder meaning "no brand".
func (t *Taxonomy) IsBrandSentinel(s string) bool {
	_, ok := t.brandSentinels[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

// IsModelSentinel reports whether s is a placeholder meaning "no model".
func (t *Taxonomy) IsModelSentinel(s string) bool {
	_, ok := t.modelSentinels[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

// Qualifiers returns the upper-case model qualifier words.
func (t *Taxonomy) Qualifiers() []string { return slices.Clone(t.qualifiers) }

// Conditions returns the ordered condition synonym table.
func (t *Taxonomy) Conditions() []ConditionSynonym { return slices.Clone(t.conditions) }

// Currency is the currency every offer is quoted in.
func (t *Taxonomy) Currency() string { return t.currency }

// SourcePatterns returns the filename substrings that identify src's raw files.
func (t *Taxonomy) SourcePatterns(src model.Source) []string {
	return slices.Clone(t.patterns[src])
}

func upperSet(vals []string) map[string]struct{} {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[strings.ToUpper(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}
