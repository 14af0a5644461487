package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider calls the chat-completions endpoint with an image_url
// content part and a JSON response format.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type openAIContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL    string `json:"url"`
		Detail string `json:"detail,omitempty"`
	} `json:"image_url,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *OpenAIProvider) AnalyzeImage(ctx context.Context, req Request) *Response {
	started := time.Now()

	imagePart := openAIContentPart{Type: "image_url"}
	imagePart.ImageURL = &struct {
		URL    string `json:"url"`
		Detail string `json:"detail,omitempty"`
	}{URL: req.ImageURL, Detail: "low"}

	body := openAIRequest{
		Model: req.Model,
		Messages: []openAIMessage{
			{
				Role:    "system",
				Content: "You are an AI assistant analyzing ranch camera images. Always respond with valid JSON.",
			},
			{
				Role: "user",
				Content: []openAIContentPart{
					{
						Type: "text",
						Text: fmt.Sprintf("Camera: %s\nTime: %s\n\n%s",
							req.CameraName, req.CapturedAt.Format(time.RFC3339), req.Prompt),
					},
					imagePart,
				},
			},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	body.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(body)
	if err != nil {
		return failedResponse(p.Name(), req.Model, started, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return failedResponse(p.Name(), req.Model, started, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return failedResponse(p.Name(), req.Model, started, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return failedResponse(p.Name(), req.Model, started, err)
	}

	var decoded openAIResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return failedResponse(p.Name(), req.Model, started,
			fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err))
	}
	if decoded.Error != nil {
		return failedResponse(p.Name(), req.Model, started,
			fmt.Errorf("openai error: %s", decoded.Error.Message))
	}
	if len(decoded.Choices) == 0 {
		return failedResponse(p.Name(), req.Model, started,
			fmt.Errorf("openai returned no choices (status %d)", resp.StatusCode))
	}

	raw := decoded.Choices[0].Message.Content
	parsed, confidence := parseModelOutput(raw)

	return &Response{
		Provider:     p.Name(),
		Model:        req.Model,
		RawText:      raw,
		Parsed:       parsed,
		Confidence:   confidence,
		InputTokens:  decoded.Usage.PromptTokens,
		OutputTokens: decoded.Usage.CompletionTokens,
		Duration:     time.Since(started),
	}
}
