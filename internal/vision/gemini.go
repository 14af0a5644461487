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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider calls the generateContent endpoint with a file part and a
// JSON response mime type.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGeminiProvider(apiKey, baseURL string) *GeminiProvider {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

type geminiRequest struct {
	Contents []struct {
		Parts []geminiPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature      float64 `json:"temperature"`
		MaxOutputTokens  int     `json:"maxOutputTokens"`
		ResponseMimeType string  `json:"responseMimeType"`
	} `json:"generationConfig"`
}

type geminiPart struct {
	Text     string `json:"text,omitempty"`
	FileData *struct {
		MimeType string `json:"mimeType"`
		FileURI  string `json:"fileUri"`
	} `json:"fileData,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *GeminiProvider) AnalyzeImage(ctx context.Context, req Request) *Response {
	started := time.Now()

	prompt := fmt.Sprintf("Camera: %s\nTime: %s\n\n%s\n\nRemember to respond with valid JSON only.",
		req.CameraName, req.CapturedAt.Format(time.RFC3339), req.Prompt)

	imagePart := geminiPart{}
	imagePart.FileData = &struct {
		MimeType string `json:"mimeType"`
		FileURI  string `json:"fileUri"`
	}{MimeType: "image/jpeg", FileURI: req.ImageURL}

	var body geminiRequest
	body.Contents = append(body.Contents, struct {
		Parts []geminiPart `json:"parts"`
	}{Parts: []geminiPart{{Text: prompt}, imagePart}})
	body.GenerationConfig.Temperature = req.Temperature
	body.GenerationConfig.MaxOutputTokens = req.MaxTokens
	body.GenerationConfig.ResponseMimeType = "application/json"

	payload, err := json.Marshal(body)
	if err != nil {
		return failedResponse(p.Name(), req.Model, started, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, req.Model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return failedResponse(p.Name(), req.Model, started, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return failedResponse(p.Name(), req.Model, started, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return failedResponse(p.Name(), req.Model, started, err)
	}

	var decoded geminiResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return failedResponse(p.Name(), req.Model, started,
			fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err))
	}
	if decoded.Error != nil {
		return failedResponse(p.Name(), req.Model, started,
			fmt.Errorf("gemini error: %s", decoded.Error.Message))
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return failedResponse(p.Name(), req.Model, started,
			fmt.Errorf("gemini returned empty response (status %d)", resp.StatusCode))
	}

	raw := decoded.Candidates[0].Content.Parts[0].Text
	parsed, confidence := parseModelOutput(raw)

	return &Response{
		Provider:     p.Name(),
		Model:        req.Model,
		RawText:      raw,
		Parsed:       parsed,
		Confidence:   confidence,
		InputTokens:  decoded.UsageMetadata.PromptTokenCount,
		OutputTokens: decoded.UsageMetadata.CandidatesTokenCount,
		Duration:     time.Since(started),
	}
}
