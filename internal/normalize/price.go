package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var priceRunRegex = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Price returns the numeric value of a raw price field, or the 0.0
// sentinel when it is absent or unparsable.
func Price(v any) float64 {
	p, _ := ParsePrice(v)
	return p
}

// ParsePrice converts a raw price field to a non-negative float.
// ok is false when v is absent or carries no digits, so callers can tell
// "unparsed" apart from a real zero.
//
// Text is reduced to digits, ',' and '.'. When both separators appear the
// last one is the decimal separator ("4.500,00" → 4500, "1,200.50" → 1200.5);
// a lone comma is a thousands separator ("4,500" → 4500).
func ParsePrice(v any) (price float64, ok bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return clampPrice(val), true
	case float32:
		return clampPrice(float64(val)), true
	case int:
		return clampPrice(float64(val)), true
	case int64:
		return clampPrice(float64(val)), true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return clampPrice(f), true
		}
		return parsePriceText(val.String())
	case string:
		return parsePriceText(val)
	default:
		return 0, false
	}
}

func parsePriceText(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	lastComma := strings.LastIndexByte(cleaned, ',')
	lastDot := strings.LastIndexByte(cleaned, '.')
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case lastComma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	run := priceRunRegex.FindString(cleaned)
	if run == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(run)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return clampPrice(f), true
}

func clampPrice(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
