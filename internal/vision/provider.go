// Package vision wraps the third-party image-analysis APIs behind a uniform
// provider interface. Providers are pass-throughs: one image reference plus a
// prompt in, raw text plus parsed JSON and token counts out.
package vision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rancheye/analysis_server/internal/model"
)

var ErrProviderNotFound = errors.New("vision provider not configured")

// Request is one analysis invocation.
type Request struct {
	ImageID     string
	ImageURL    string
	CameraName  string
	CapturedAt  time.Time
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Response carries everything the orchestrator records about an invocation.
// A failed call still returns a Response (with Err set) so processing time is
// preserved for the audit trail.
type Response struct {
	Provider     string
	Model        string
	RawText      string
	Parsed       model.JSONMap
	Confidence   float64
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
	Err          error
}

// Failed reports whether the invocation produced no usable output.
func (r *Response) Failed() bool {
	return r.Err != nil
}

// Provider is the uniform capability exposed by each vision API.
type Provider interface {
	Name() string
	AnalyzeImage(ctx context.Context, req Request) *Response
}

// Registry holds the providers built from config, keyed by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// failedResponse is the shared error-path constructor.
func failedResponse(provider, model string, started time.Time, err error) *Response {
	return &Response{
		Provider: provider,
		Model:    model,
		Parsed:   map[string]interface{}{},
		Duration: time.Since(started),
		Err:      err,
	}
}
