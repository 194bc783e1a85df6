package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// combiningMarks matches the Combining Diacritical Marks block (U+0300..U+036F).
var combiningMarks = runes.Predicate(func(r rune) bool {
	return r >= 0x0300 && r <= 0x036f
})

var upper = cases.Upper(language.Und)

// NormalizeString strips accents, upper-cases, trims and collapses inner
// whitespace so that "  Casa  Bonita  " and "casa bonita" compare equal.
// It is the form stored in the titleNormalized/descriptionNormalized fields.
func NormalizeString(s string) string {
	if s == "" {
		return ""
	}

	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(combiningMarks)), s)
	if err != nil {
		stripped = s
	}

	return strings.Join(strings.Fields(upper.String(stripped)), " ")
}
