package classify

import (
	"context"
	"fmt"
	"testing"

	"github.com/jonathanwhen/chaperone/moderation/setstore"

	"github.com/stretchr/testify/assert"
)

type stubDetector struct {
	name    string
	verdict Verdict
	err     error
	calls   int
}

func (d *stubDetector) Name() string { return d.name }

func (d *stubDetector) Evaluate(ctx context.Context, text string) (Verdict, error) {
	d.calls++
	return d.verdict, d.err
}

func TestAdapterFastPathShortCircuit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fast := &stubDetector{
		name: MethodLexicon,
		verdict: Verdict{
			Flagged:       true,
			Confidence:    1.0,
			Category:      "slurs",
			DetectedTerms: []string{"badword"},
			Method:        MethodLexicon,
		},
	}
	slow := &stubDetector{name: MethodToxicityAPI}

	adapter := NewAdapter(nil, fast, slow)
	v := adapter.Evaluate(ctx, "some text with badword")
	assert.True(v.Flagged)
	assert.Equal(1.0, v.Confidence)
	assert.Equal(MethodLexicon, v.Method)
	// slow path never consulted on a fast-path hit
	assert.Equal(0, slow.calls)
}

func TestAdapterFallsThroughToSlowPath(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fast := &stubDetector{
		name:    MethodLexicon,
		verdict: Verdict{Method: MethodLexicon, Explanation: "no curated terms detected"},
	}
	slow := &stubDetector{
		name: MethodToxicityAPI,
		verdict: Verdict{
			Flagged:     true,
			Confidence:  0.95,
			Category:    "TOXICITY",
			Method:      MethodToxicityAPI,
			Explanation: "highest toxicity attribute score: 0.95",
		},
	}

	adapter := NewAdapter(nil, fast, slow)
	v := adapter.Evaluate(ctx, "subtle nastiness")
	assert.True(v.Flagged)
	assert.Equal(0.95, v.Confidence)
	assert.Equal(MethodToxicityAPI, v.Method)
	// the negative fast verdict rides along for audit
	if assert.Len(v.SubVerdicts, 1) {
		assert.Equal(MethodLexicon, v.SubVerdicts[0].Method)
		assert.False(v.SubVerdicts[0].Flagged)
	}
}

func TestAdapterDegradesOnSlowPathFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fast := &stubDetector{
		name:    MethodLexicon,
		verdict: Verdict{Method: MethodLexicon},
	}
	slow := &stubDetector{
		name: MethodToxicityAPI,
		err:  fmt.Errorf("connection timed out"),
	}

	adapter := NewAdapter(nil, fast, slow)
	v := adapter.Evaluate(ctx, "anything")
	assert.False(v.Flagged)
	assert.NotEmpty(v.Explanation)
	assert.Contains(v.Explanation, "connection timed out")
}

func TestAdapterNoSlowDetector(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fast := &stubDetector{
		name:    MethodLexicon,
		verdict: Verdict{Method: MethodLexicon, Explanation: "no curated terms detected"},
	}

	adapter := NewAdapter(nil, fast, nil)
	v := adapter.Evaluate(ctx, "clean text")
	assert.False(v.Flagged)
	assert.Equal(MethodLexicon, v.Method)
}

func TestLexiconDetector(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	sets := setstore.NewMemSetStore()
	assert.NoError(sets.AddToSet(ctx, "slurs", []string{"badword", "worseword"}))
	det := &LexiconDetector{Sets: sets, SetName: "slurs"}

	v, err := det.Evaluate(ctx, "this is fine")
	assert.NoError(err)
	assert.False(v.Flagged)

	v, err = det.Evaluate(ctx, "you total BadWord, badword!")
	assert.NoError(err)
	assert.True(v.Flagged)
	assert.Equal(1.0, v.Confidence)
	assert.Equal([]string{"badword"}, v.DetectedTerms)

	// obfuscation with accents still matches after folding
	v, err = det.Evaluate(ctx, "bädword")
	assert.NoError(err)
	assert.True(v.Flagged)
}

func TestToxicityClientNotConfigured(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	c := NewToxicityClient("")
	v, err := c.Evaluate(ctx, "whatever")
	assert.NoError(err)
	assert.False(v.Flagged)
	assert.NotEmpty(v.Explanation)
}

func TestLLMClientNotConfigured(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	c := NewLLMClient("", "")
	v, err := c.Evaluate(ctx, "whatever")
	assert.NoError(err)
	assert.False(v.Flagged)
	assert.NotEmpty(v.Explanation)
}
