package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var defaultToxicityHost = "https://commentanalyzer.googleapis.com"

// the attributes we ask the scoring API to evaluate
var toxicityAttributes = []string{
	"TOXICITY",
	"SEVERE_TOXICITY",
	"IDENTITY_ATTACK",
	"INSULT",
	"PROFANITY",
	"THREAT",
}

// Client for an external comment-analysis API which scores text across a set
// of toxicity attributes.
//
// schema: https://developers.perspectiveapi.com/s/about-the-api-methods
type ToxicityClient struct {
	Client *http.Client
	Host   string
	APIKey string
	// score above which the verdict is flagged
	Threshold float64
}

func NewToxicityClient(apiKey string) *ToxicityClient {
	return &ToxicityClient{
		Client:    robustHTTPClient(),
		Host:      defaultToxicityHost,
		APIKey:    apiKey,
		Threshold: 0.7,
	}
}

func (c *ToxicityClient) Name() string {
	return MethodToxicityAPI
}

type toxicityRequest struct {
	Comment             toxicityComment              `json:"comment"`
	Languages           []string                     `json:"languages"`
	RequestedAttributes map[string]map[string]any    `json:"requestedAttributes"`
	DoNotStore          bool                         `json:"doNotStore"`
}

type toxicityComment struct {
	Text string `json:"text"`
}

type toxicityResponse struct {
	AttributeScores map[string]toxicityAttrScore `json:"attributeScores"`
}

type toxicityAttrScore struct {
	SummaryScore toxicityScore `json:"summaryScore"`
}

type toxicityScore struct {
	Value float64 `json:"value"`
}

func (c *ToxicityClient) Evaluate(ctx context.Context, text string) (Verdict, error) {
	if c.APIKey == "" {
		// not configured is a degraded state, not a failure
		return Verdict{
			Method:      MethodToxicityAPI,
			Explanation: "toxicity API key not configured",
		}, nil
	}

	start := time.Now()
	defer func() {
		classificationDuration.WithLabelValues(MethodToxicityAPI).Observe(time.Since(start).Seconds())
	}()

	attrs := make(map[string]map[string]any, len(toxicityAttributes))
	for _, a := range toxicityAttributes {
		attrs[a] = map[string]any{}
	}
	reqBody := toxicityRequest{
		Comment:             toxicityComment{Text: text},
		Languages:           []string{"en"},
		RequestedAttributes: attrs,
		DoNotStore:          true,
	}
	b, err := json.Marshal(&reqBody)
	if err != nil {
		return Verdict{}, fmt.Errorf("encoding toxicity request: %w", err)
	}

	url := fmt.Sprintf("%s/v1alpha1/comments:analyze?key=%s", c.Host, c.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(b))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("toxicity API request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Verdict{}, fmt.Errorf("toxicity API request failed, status=%d: %s", resp.StatusCode, string(body))
	}

	var out toxicityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Verdict{}, fmt.Errorf("decoding toxicity response: %w", err)
	}
	if len(out.AttributeScores) == 0 {
		return Verdict{}, fmt.Errorf("toxicity response missing attribute scores")
	}

	var top float64
	var topAttr string
	for attr, sc := range out.AttributeScores {
		if sc.SummaryScore.Value > top {
			top = sc.SummaryScore.Value
			topAttr = attr
		}
	}

	v := Verdict{
		Flagged:     top > c.Threshold,
		Confidence:  top,
		Explanation: fmt.Sprintf("highest toxicity attribute score: %.2f", top),
		Method:      MethodToxicityAPI,
	}
	if v.Flagged {
		v.Category = topAttr
	}
	return v, nil
}
