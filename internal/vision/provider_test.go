package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest(model string) Request {
	return Request{
		ImageID:     "img-1",
		ImageURL:    "https://example.com/img-1.jpg",
		CameraName:  "North Gate",
		CapturedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Prompt:      "Is the gate open?",
		Model:       model,
		Temperature: 0.3,
		MaxTokens:   500,
	}
}

func TestOpenAIProvider_AnalyzeImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{
					"content": `{"gate_visible": true, "gate_open": true, "confidence": 0.95}`,
				}},
			},
			"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 40},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", server.URL)
	resp := p.AnalyzeImage(context.Background(), testRequest("gpt-4o-mini"))

	require.False(t, resp.Failed())
	assert.Equal(t, "openai", resp.Provider)
	assert.True(t, resp.Parsed.Bool("gate_open"))
	assert.InDelta(t, 0.95, resp.Confidence, 1e-9)
	assert.Equal(t, 120, resp.InputTokens)
	assert.Equal(t, 40, resp.OutputTokens)
}

func TestOpenAIProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "rate limit exceeded"},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", server.URL)
	resp := p.AnalyzeImage(context.Background(), testRequest("gpt-4o-mini"))

	require.True(t, resp.Failed())
	assert.Contains(t, resp.Err.Error(), "rate limit exceeded")
	assert.Zero(t, resp.InputTokens)
}

func TestOpenAIProvider_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p := NewOpenAIProvider("test-key", server.URL)
	resp := p.AnalyzeImage(ctx, testRequest("gpt-4o-mini"))

	require.True(t, resp.Failed())
}

func TestGeminiProvider_AnalyzeImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-1.5-flash:generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{
						{"text": "```json\n{\"water_level\": \"LOW\", \"confidence\": 0.82}\n```"},
					},
				}},
			},
			"usageMetadata": map[string]int{"promptTokenCount": 200, "candidatesTokenCount": 60},
		})
	}))
	defer server.Close()

	p := NewGeminiProvider("test-key", server.URL)
	resp := p.AnalyzeImage(context.Background(), testRequest("gemini-1.5-flash"))

	require.False(t, resp.Failed())
	assert.Equal(t, "gemini", resp.Provider)
	assert.Equal(t, "LOW", resp.Parsed.String("water_level"))
	assert.InDelta(t, 0.82, resp.Confidence, 1e-9)
	assert.Equal(t, 200, resp.InputTokens)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewOpenAIProvider("k", ""))

	p, err := registry.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = registry.Get("gemini")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}
