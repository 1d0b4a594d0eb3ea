// Text normalization and token matching primitives for the fast
// (lexicon) classification path.
package keyword

import (
	"regexp"
	"slices"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^\pL\pN]+`)

// Takes an arbitrary string and returns a lower-case version with all
// non-letter, non-digit characters removed. Used to normalize curated terms
// and candidate tokens to a common form before comparison.
func Slugify(orig string) string {
	return strings.ToLower(nonSlugChars.ReplaceAllString(orig, ""))
}

// Helper to check a single token against a list of tokens
func TokenInSet(tok string, set []string) bool {
	return slices.Contains(set, tok)
}
