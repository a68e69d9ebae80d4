// Package slug turns free text into URL slugs.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var rxNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Clean lower-cases s, strips accents and joins the remaining [a-z0-9] runs
// with single hyphens. "Café del Mar!" becomes "cafe-del-mar".
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	// A transform.Chain is stateful, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	return strings.Trim(rxNonAlnum.ReplaceAllString(folded, "-"), "-")
}
