package classify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToxicityClientScoring(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("POST", r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"attributeScores": {"TOXICITY": {"summaryScore": {"value": 0.91}}, "INSULT": {"summaryScore": {"value": 0.42}}}}`))
	}))
	defer srv.Close()

	c := NewToxicityClient("test-key")
	c.Host = srv.URL
	v, err := c.Evaluate(ctx, "some nasty text")
	assert.NoError(err)
	assert.True(v.Flagged)
	assert.Equal(0.91, v.Confidence)
	assert.Equal("TOXICITY", v.Category)
}

func TestToxicityClientBelowThreshold(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"attributeScores": {"TOXICITY": {"summaryScore": {"value": 0.3}}}}`))
	}))
	defer srv.Close()

	c := NewToxicityClient("test-key")
	c.Host = srv.URL
	v, err := c.Evaluate(ctx, "mild text")
	assert.NoError(err)
	assert.False(v.Flagged)
	assert.Equal("", v.Category)
}

func TestToxicityClientMalformedResponse(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
	}))
	defer srv.Close()

	c := NewToxicityClient("test-key")
	c.Host = srv.URL
	_, err := c.Evaluate(ctx, "whatever")
	assert.Error(err)
}

func TestLLMClientVerdictParsing(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "{\"abuse_detected\": true, \"confidence_score\": 0.88, \"category\": \"harassment\", \"explanation\": \"targeted insult\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewLLMClient("test-key", "test-model")
	c.Host = srv.URL
	v, err := c.Evaluate(ctx, "some text")
	assert.NoError(err)
	assert.True(v.Flagged)
	assert.Equal(0.88, v.Confidence)
	assert.Equal("harassment", v.Category)
	assert.Equal("targeted insult", v.Explanation)
}
