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

var defaultLLMHost = "https://api.openai.com"

const llmSystemPrompt = "You're a content mod assistant. Analyze the text for abusive content. Respond in JSON with these fields: abuse_detected (boolean), confidence_score (number 0-1), category (string or null), explanation (string)."

// Client for a chat-completions style LLM API used as a probabilistic
// classifier. The model is instructed to respond with a strict JSON object.
type LLMClient struct {
	Client *http.Client
	Host   string
	APIKey string
	Model  string
}

func NewLLMClient(apiKey, model string) *LLMClient {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	return &LLMClient{
		Client: robustHTTPClient(),
		Host:   defaultLLMHost,
		APIKey: apiKey,
		Model:  model,
	}
}

func (c *LLMClient) Name() string {
	return MethodLLM
}

type llmChatRequest struct {
	Model          string           `json:"model"`
	Messages       []llmChatMessage `json:"messages"`
	ResponseFormat llmRespFormat    `json:"response_format"`
	Temperature    float64          `json:"temperature"`
	MaxTokens      int              `json:"max_tokens"`
}

type llmChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type llmRespFormat struct {
	Type string `json:"type"`
}

type llmChatResponse struct {
	Choices []struct {
		Message llmChatMessage `json:"message"`
	} `json:"choices"`
}

// the JSON contract the model is prompted to follow
type llmVerdict struct {
	AbuseDetected   bool    `json:"abuse_detected"`
	ConfidenceScore float64 `json:"confidence_score"`
	Category        string  `json:"category"`
	Explanation     string  `json:"explanation"`
}

func (c *LLMClient) Evaluate(ctx context.Context, text string) (Verdict, error) {
	if c.APIKey == "" {
		return Verdict{
			Method:      MethodLLM,
			Explanation: "LLM API key not configured",
		}, nil
	}

	start := time.Now()
	defer func() {
		classificationDuration.WithLabelValues(MethodLLM).Observe(time.Since(start).Seconds())
	}()

	reqBody := llmChatRequest{
		Model: c.Model,
		Messages: []llmChatMessage{
			{Role: "system", Content: llmSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Check this text for abusive content: '%s'", text)},
		},
		ResponseFormat: llmRespFormat{Type: "json_object"},
		Temperature:    0.1,
		MaxTokens:      300,
	}
	b, err := json.Marshal(&reqBody)
	if err != nil {
		return Verdict{}, fmt.Errorf("encoding LLM request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.Host+"/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("LLM API request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Verdict{}, fmt.Errorf("LLM API request failed, status=%d: %s", resp.StatusCode, string(body))
	}

	var out llmChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Verdict{}, fmt.Errorf("decoding LLM response: %w", err)
	}
	if len(out.Choices) == 0 {
		return Verdict{}, fmt.Errorf("LLM response contained no choices")
	}

	var lv llmVerdict
	if err := json.Unmarshal([]byte(out.Choices[0].Message.Content), &lv); err != nil {
		return Verdict{}, fmt.Errorf("LLM response was not the expected JSON: %w", err)
	}

	return Verdict{
		Flagged:     lv.AbuseDetected,
		Confidence:  lv.ConfidenceScore,
		Category:    lv.Category,
		Explanation: lv.Explanation,
		Method:      MethodLLM,
	}, nil
}
