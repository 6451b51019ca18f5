package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases text and collapses every whitespace run (including
// newlines) into a single space. Stored banned words and all comparisons use
// this canonical form, so matching is always normalized-substring matching.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// IsObfuscated reports whether text is dense combining-mark ("Zalgo") spam.
// The text is NFD-decomposed so accented characters split into a base rune
// plus combining marks, then marks and base runes are counted separately.
// Both conditions must hold: at least minMarks marks, and a marks-to-base
// ratio of at least ratioThreshold. The dual condition keeps legitimate
// accented text below the bar.
func IsObfuscated(text string, minMarks int, ratioThreshold float64) bool {
	if text == "" {
		return false
	}

	marks := 0
	base := 0
	for _, r := range norm.NFD.String(text) {
		if unicode.In(r, unicode.Mn, unicode.Mc, unicode.Me) {
			marks++
		} else {
			base++
		}
	}

	if marks < minMarks {
		return false
	}
	if base == 0 {
		return marks > 0
	}
	return float64(marks)/float64(base) >= ratioThreshold
}
