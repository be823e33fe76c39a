// Package slug derives URL-safe identifiers from content titles.
package slug

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented letters and drops the combining marks so
// "Amélie" becomes "Amelie" before filtering.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make returns the slug for title. A year greater than zero is appended as
// "-year". The result only contains [a-z0-9-] and never starts or ends with a
// hyphen. A blank title yields "". Uniqueness is not checked here; the store
// rejects duplicates.
func Make(title string, year int) string {
	base := Base(title)
	if base == "" || year <= 0 {
		return base
	}
	return base + "-" + strconv.Itoa(year)
}

// fallback names titles with no ASCII letters or digits, e.g. "দেবী", by a
// hash of the normalized title so different scripts do not collide.
func fallback(title string) string {
	title = norm.NFC.String(strings.TrimSpace(title))
	if title == "" {
		return ""
	}
	return fmt.Sprintf("title-%08x", xxhash.Sum64String(title)>>32)
}

// Base slugs title without a year suffix.
func Base(title string) string {
	if b := base(title); b != "" {
		return b
	}
	return fallback(title)
}

func base(title string) string {
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || r == '_' || unicode.IsSpace(r):
			pendingHyphen = true
		default:
			// Apostrophes and other punctuation are dropped without
			// introducing a separator: "Schindler's" -> "schindlers".
		}
	}
	return b.String()
}
