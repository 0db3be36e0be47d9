package validation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold returns the canonical comparison key for an identifier or free-text
// finding: trimmed, NFC-normalised and Unicode case-folded. Two strings that
// differ only by case or by Unicode composition ("Taşikardi", "TAŞIKARDI",
// "tas\u0327ikardi") share a key. Turkish capital İ folds to plain i, so
// "İleus" and "ileus" meet; dotless ı stays distinct.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// A Caser keeps state, so one is built per call.
	folded := cases.Fold().String(norm.NFC.String(s))
	// cases.Fold maps İ to i + U+0307 COMBINING DOT ABOVE
	folded = strings.ReplaceAll(folded, "i\u0307", "i")
	return norm.NFC.String(folded)
}
