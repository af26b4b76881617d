package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	nonIDChars      = regexp.MustCompile(`[^a-z0-9]`)
	titleModelToken = regexp.MustCompile(`\b[a-z]+\d+\w*\b`)
)

// CleanID lower-cases s and keeps only [a-z0-9].
func CleanID(s string) string {
	return nonIDChars.ReplaceAllString(strings.ToLower(s), "")
}

// ProductID derives the catalog identity of a listing. It is "brand_model"
// when a model is known, "brand_<first word+digits title token>" when not,
// and "brand_title_<8 hex of md5(title)>" as the last resort, so distinct
// unidentifiable listings never collapse onto one product.
func ProductID(brand, modelName, title string) string {
	b := CleanID(brand)
	if b == "" {
		b = "unknown"
	}
	if m := CleanID(modelName); m != "" && m != "unknown" {
		return b + "_" + m
	}
	if tok := CleanID(titleModelToken.FindString(strings.ToLower(title))); tok != "" {
		return b + "_" + tok
	}
	sum := md5.Sum([]byte(title))
	return b + "_title_" + hex.EncodeToString(sum[:])[:8]
}
