package keyword

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// Splits free-form chat text in to lower-case tokens, with unicode
// normalization and accent folding, for matching against curated term lists.
//
// Works like a simple NLP tokenizer: punctuation is dropped, combining marks
// are stripped, and the result is split on whitespace. This keeps lexicon
// matching robust against trivial obfuscation (accents, zero-width marks).
func TokenizeText(text string) []string {
	// the transform chain carries state, so build it per call
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	bare := strings.ToLower(nonTokenChars.ReplaceAllString(text, " "))
	folded, _, err := transform.String(normFunc, bare)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		folded = bare
	}
	return strings.Fields(folded)
}
