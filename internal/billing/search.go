package billing

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold normalises a name for matching: diacritics removed, lowercased.
// Merchant data is largely Vietnamese, so a plain lowercase comparison
// would miss "Hường" when searching for "huong".
func Fold(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	// đ/Đ are standalone letters, not combining marks.
	return strings.ReplaceAll(out, "đ", "d")
}

// Slugify produces a URL-safe identifier from a customer name.
func Slugify(s string) string {
	folded := Fold(s)
	var b strings.Builder
	lastDash := true
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
