package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	capacityValueRegex = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*(tb|to|gb|go|mb|mo)$`)
	capacityTokenRegex = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(tb|to|gb|go|mb|mo)\b(\s*(?:de\s+)?ram)?`)
	screenRegex        = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:"|''|\x{201D}|pouces?|inch(?:es)?)`)
	ratingOutOfRegex   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:out of|sur|/)\s*\d+`)
	firstNumberRegex   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	firstIntegerRegex  = regexp.MustCompile(`\d+`)
	clauseBreakRegex   = regexp.MustCompile(`[,;|\n]|\s-\s|\.\s`)
)

// expansionMarkers introduce memory-card sizes, which are not storage.
var expansionMarkers = []string{"microsd", "micro sd", "micro-sd", "carte", "extensible"}

var capacityUnits = map[string]string{
	"TB": "TB", "TO": "TB",
	"GB": "GB", "GO": "GB",
	"MB": "MB", "MO": "MB",
}

// NormalizeCapacity renders storage/memory sizes uniformly ("512 Go" → "512GB").
// Values that are not a plain size are returned trimmed and unchanged.
func NormalizeCapacity(v string) string {
	v = CollapseSpaces(v)
	m := capacityValueRegex.FindStringSubmatch(v)
	if m == nil {
		return v
	}
	return formatCapacity(m[1], m[2])
}

func formatCapacity(num, unit string) string {
	return strings.ReplaceAll(num, ",", ".") + capacityUnits[strings.ToUpper(unit)]
}

func capacityInGB(num, unit string) float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", "."), 64)
	if err != nil {
		return 0
	}
	switch capacityUnits[strings.ToUpper(unit)] {
	case "TB":
		return f * 1024
	case "MB":
		return f / 1024
	}
	return f
}

// ExtractCapacities finds storage and RAM sizes in free text. A size
// followed by "RAM" is memory; the largest other size is storage.
// Sizes in a clause about memory cards ("microSD jusqu'à 1To") are skipped.
func ExtractCapacities(text string) (storage, ram string) {
	folded := FoldAccents(text)
	var best float64
	for _, idx := range capacityTokenRegex.FindAllStringSubmatchIndex(folded, -1) {
		num, unit := folded[idx[2]:idx[3]], folded[idx[4]:idx[5]]
		if idx[6] >= 0 && strings.TrimSpace(folded[idx[6]:idx[7]]) != "" {
			if ram == "" {
				ram = formatCapacity(num, unit)
			}
			continue
		}
		if inExpansionClause(folded[:idx[0]]) {
			continue
		}
		if gb := capacityInGB(num, unit); gb > best {
			best = gb
			storage = formatCapacity(num, unit)
		}
	}
	return storage, ram
}

// inExpansionClause reports whether the clause ending at the end of prefix
// mentions a memory card.
func inExpansionClause(prefix string) bool {
	if locs := clauseBreakRegex.FindAllStringIndex(prefix, -1); len(locs) > 0 {
		prefix = prefix[locs[len(locs)-1][1]:]
	}
	prefix = strings.ToLower(prefix)
	for _, m := range expansionMarkers {
		if strings.Contains(prefix, m) {
			return true
		}
	}
	return false
}

// ExtractScreenSize finds a diagonal such as `6,7"` or "6.1 pouces" and
// returns it as `6.7"`.
func ExtractScreenSize(text string) string {
	m := screenRegex.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], ",", ".") + `"`
}

// ParseRating reads ratings like 4.5, "4.5 out of 5" or "4/5".
func ParseRating(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, _ := val.Float64()
		return f
	case string:
		s := strings.ReplaceAll(val, ",", ".")
		if m := ratingOutOfRegex.FindStringSubmatch(s); m != nil {
			f, _ := strconv.ParseFloat(m[1], 64)
			return f
		}
		if m := firstNumberRegex.FindString(s); m != "" {
			f, _ := strconv.ParseFloat(m, 64)
			return f
		}
	}
	return 0
}

// ParseCount reads review counts like 12 or "(1 234 avis)".
func ParseCount(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case json.Number:
		i, _ := val.Int64()
		return int(i)
	case string:
		s := strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "").Replace(val)
		if m := firstIntegerRegex.FindString(s); m != "" {
			i, _ := strconv.Atoi(m)
			return i
		}
	}
	return 0
}
