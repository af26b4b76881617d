package normalize

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldAccents strips diacritics ("reconditionné" → "reconditionne").
func FoldAccents(s string) string {
	// transformers carry state, so one chain per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CollapseSpaces trims s and squeezes every whitespace run to one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TitleCase capitalizes each word ("TCL mobile" → "Tcl Mobile").
func TitleCase(s string) string {
	return cases.Title(language.Und).String(CollapseSpaces(s))
}

// HTMLText returns the visible text of an HTML fragment. Plain text is
// only whitespace-collapsed.
func HTMLText(s string) string {
	if !strings.Contains(s, "<") {
		return CollapseSpaces(s)
	}
	// pad tags so text from adjacent blocks does not run together
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(strings.ReplaceAll(s, "<", " <")))
	if err != nil {
		return CollapseSpaces(s)
	}
	doc.Find("script, style").Remove()
	return CollapseSpaces(doc.Text())
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
