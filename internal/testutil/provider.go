package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/rancheye/analysis_server/internal/model"
	"github.com/rancheye/analysis_server/internal/vision"
)

// FakeProvider returns scripted responses in order and records the requests
// it saw. Used wherever tests need a vision provider without network calls.
type FakeProvider struct {
	ProviderName string
	Responses    []*vision.Response

	mu       sync.Mutex
	calls    int
	Requests []vision.Request
}

func NewFakeProvider(name string, responses ...*vision.Response) *FakeProvider {
	return &FakeProvider{ProviderName: name, Responses: responses}
}

func (f *FakeProvider) Name() string {
	return f.ProviderName
}

func (f *FakeProvider) AnalyzeImage(_ context.Context, req vision.Request) *vision.Response {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, req)
	idx := f.calls
	f.calls++

	if idx >= len(f.Responses) {
		// Repeat the last scripted response rather than panicking.
		idx = len(f.Responses) - 1
	}
	resp := f.Responses[idx]
	resp.Provider = f.ProviderName
	resp.Model = req.Model
	return resp
}

// CallCount reports how many invocations the fake served.
func (f *FakeProvider) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// OKResponse builds a successful scripted response.
func OKResponse(parsed model.JSONMap, confidence float64, inputTokens, outputTokens int) *vision.Response {
	return &vision.Response{
		RawText:      "scripted",
		Parsed:       parsed,
		Confidence:   confidence,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Duration:     25 * time.Millisecond,
	}
}

// FailedResponse builds a scripted provider failure.
func FailedResponse(err error) *vision.Response {
	return &vision.Response{
		Parsed:   model.JSONMap{},
		Duration: 10 * time.Millisecond,
		Err:      err,
	}
}
