package classify

import (
	"context"
	"fmt"

	"github.com/jonathanwhen/chaperone/moderation/keyword"
	"github.com/jonathanwhen/chaperone/moderation/setstore"
)

// Deterministic high-precision detector backed by a curated term set. Cheap
// enough to run on every message; a hit returns maximum confidence.
type LexiconDetector struct {
	Sets setstore.SetStore
	// which named set in the store holds the curated terms
	SetName string
}

func (d *LexiconDetector) Name() string {
	return MethodLexicon
}

func (d *LexiconDetector) Evaluate(ctx context.Context, text string) (Verdict, error) {
	var detected []string
	for _, tok := range keyword.TokenizeText(text) {
		hit, err := d.Sets.InSet(ctx, d.SetName, keyword.Slugify(tok))
		if err != nil {
			return Verdict{}, fmt.Errorf("checking term set: %w", err)
		}
		if hit && !keyword.TokenInSet(tok, detected) {
			detected = append(detected, tok)
		}
	}
	if len(detected) == 0 {
		return Verdict{
			Method:      MethodLexicon,
			Explanation: "no curated terms detected",
		}, nil
	}
	return Verdict{
		Flagged:       true,
		Confidence:    1.0,
		Category:      "slurs",
		Explanation:   fmt.Sprintf("found %d curated terms", len(detected)),
		DetectedTerms: detected,
		Method:        MethodLexicon,
	}, nil
}
