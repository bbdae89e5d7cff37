package lexicon

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// punctuation is replaced by spaces before tokenizing.
const punctuation = `¿?¡!.,;:(){}[]"'`

// Simplify lowercases s and strips combining diacritical marks, so "Ó" becomes "o".
// Punctuation and spacing are left as they are.
func Simplify(s string) string {
	lower := strings.ToLower(s)
	// transformers are stateful; build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, lower)
	if err != nil {
		return lower
	}
	return out
}

// Fold simplifies s, replaces punctuation with spaces and collapses whitespace runs.
func Fold(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, Simplify(s))
	return strings.Join(strings.Fields(s), " ")
}

// ContainsPhrase reports whether folded text contains phrase on word boundaries.
// Both arguments must already be folded.
func ContainsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}
