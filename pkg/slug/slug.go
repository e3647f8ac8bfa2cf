package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugRegexp  = regexp.MustCompile(`[^a-z0-9]+`)
	spaceRegexp = regexp.MustCompile(`\s+`)
)

// Fold lower-cases s, strips combining accents, collapses runs of whitespace
// into a single space and trims the result.
//
// Examples:
//   - "  Lógo   24 " → "logo 24"
//   - "Niñería" → "nineria"
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.TrimSpace(spaceRegexp.ReplaceAllString(folded, " "))
}

// Generate creates a URL-friendly slug from the given name.
// Accented Latin characters are folded to their ASCII base letter.
//
// Examples:
//   - "Bolígrafos y Lápices" → "boligrafos-y-lapices"
//   - "Logo 24 HS" → "logo-24-hs"
//   - "Hello   World!" → "hello-world"
func Generate(name string) string {
	slug := Fold(name)

	// Replace any non-alphanumeric characters with hyphens
	slug = slugRegexp.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}
