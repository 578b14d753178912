// Package normalize produces the canonical artist-name forms used for
// deduplication. Two names refer to the same artist iff their Keys are equal.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold strips diacritics from a name, leaving the base characters.
// "Björk" becomes "Bjork", "Céline" becomes "Celine".
func Fold(name string) string {
	// The chain keeps internal state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		return name
	}
	return folded
}

// Key returns the deduplication identity for an artist name:
// diacritic-stripped, lower-cased, and trimmed.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(Fold(name)))
}
