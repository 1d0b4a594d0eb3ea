// Text classification for the moderation core.
//
// This package normalizes the output of one or more pluggable detectors in to
// a single Verdict. Detection backends (lexicon matching, an external
// toxicity-scoring API, an LLM classifier) are interchangeable behind the
// Detector interface; the Adapter layers a cheap deterministic check in front
// of a slower probabilistic one and never lets a backend failure escape as an
// error to the surrounding moderation flow.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	MethodLexicon     = "lexicon"
	MethodToxicityAPI = "toxicity-api"
	MethodLLM         = "llm"
)

// Normalized output of a single text evaluation. Immutable once produced.
type Verdict struct {
	Flagged       bool
	Confidence    float64
	Category      string
	Explanation   string
	DetectedTerms []string
	Method        string
	// per-detector results, populated when more than one backend was consulted
	SubVerdicts []Verdict
}

type Detector interface {
	Name() string
	Evaluate(ctx context.Context, text string) (Verdict, error)
}

// Runs the fast deterministic detector first and short-circuits on a flag;
// otherwise falls through to the slow probabilistic detector. The slow path
// may suspend on network I/O for an arbitrary time; callers must not hold
// locks across Evaluate.
type Adapter struct {
	Logger *slog.Logger
	Fast   Detector
	Slow   Detector
}

func NewAdapter(logger *slog.Logger, fast, slow Detector) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		Logger: logger,
		Fast:   fast,
		Slow:   slow,
	}
}

// Evaluates text and always returns a usable verdict. A failing backend
// degrades to an unflagged verdict carrying the failure explanation; it never
// returns an error, so classification problems cannot stall the moderation
// pipeline.
func (a *Adapter) Evaluate(ctx context.Context, text string) Verdict {
	var fastVerdict Verdict
	if a.Fast != nil {
		v, err := a.Fast.Evaluate(ctx, text)
		if err != nil {
			// the fast path is local and deterministic; a failure here is
			// unexpected but still non-fatal
			a.Logger.Warn("fast classification failed", "detector", a.Fast.Name(), "err", err)
			v = Verdict{
				Method:      a.Fast.Name(),
				Explanation: fmt.Sprintf("detector error: %v", err),
			}
		}
		if v.Flagged {
			classificationVerdicts.WithLabelValues(v.Method, "flagged").Inc()
			return v
		}
		fastVerdict = v
	}

	if a.Slow == nil {
		classificationVerdicts.WithLabelValues(fastVerdict.Method, "clean").Inc()
		return fastVerdict
	}

	start := time.Now()
	v, err := a.Slow.Evaluate(ctx, text)
	classificationDuration.WithLabelValues(a.Slow.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		a.Logger.Warn("slow classification failed", "detector", a.Slow.Name(), "err", err)
		classificationErrors.WithLabelValues(a.Slow.Name()).Inc()
		v = Verdict{
			Method:      a.Slow.Name(),
			Explanation: fmt.Sprintf("detector error: %v", err),
		}
	}
	// keep the (negative) fast result around for audit
	if a.Fast != nil {
		v.SubVerdicts = append(v.SubVerdicts, fastVerdict)
	}
	outcome := "clean"
	if v.Flagged {
		outcome = "flagged"
	}
	classificationVerdicts.WithLabelValues(v.Method, outcome).Inc()
	return v
}
