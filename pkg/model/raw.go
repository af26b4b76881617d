package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawListing is one scraped listing exactly as it was decoded from a source file.
// Field layout differs per source; normalizers read it through the helpers below.
type RawListing map[string]any

// Value returns the raw field value, or nil when absent.
func (r RawListing) Value(key string) any {
	if r == nil {
		return nil
	}
	return r[key]
}

// Has reports whether key is present with a non-null value.
func (r RawListing) Has(key string) bool {
	return r.Value(key) != nil
}

// String returns the field rendered as trimmed text. Numbers keep their
// exact decimal form; absent and null fields yield "".
func (r RawListing) String(key string) string {
	return strings.TrimSpace(Stringify(r.Value(key)))
}

// Map returns a nested object field, or nil.
func (r RawListing) Map(key string) map[string]any {
	if m, ok := r.Value(key).(map[string]any); ok {
		return m
	}
	return nil
}

// Stringify renders a decoded JSON value as text.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
