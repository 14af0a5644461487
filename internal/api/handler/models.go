package handler

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rancheye/analysis_server/internal/pkg/response"
	"github.com/rancheye/analysis_server/internal/pricing"
	"github.com/rancheye/analysis_server/internal/vision"
)

// ModelsHandler lists the providers this deployment can route to, with
// per-model pricing where known.
type ModelsHandler struct {
	registry *vision.Registry
}

func NewModelsHandler(registry *vision.Registry) *ModelsHandler {
	return &ModelsHandler{registry: registry}
}

type modelInfo struct {
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	InputPer1K  *float64 `json:"input_per_1k,omitempty"`
	OutputPer1K *float64 `json:"output_per_1k,omitempty"`
}

// knownModels is the advertised model list per provider. Operators may still
// configure models outside this list; they are billed at the default rate.
var knownModels = map[string][]string{
	"openai": {"gpt-4o", "gpt-4o-mini", "gpt-4-turbo"},
	"gemini": {"gemini-1.5-flash", "gemini-1.5-pro", "gemini-2.0-flash-exp", "gemini-2.5-pro"},
}

// List returns configured providers and their known models.
// GET /api/v1/models
func (h *ModelsHandler) List(c *gin.Context) {
	providers := h.registry.Names()
	sort.Strings(providers)

	var models []modelInfo
	for _, provider := range providers {
		for _, m := range knownModels[provider] {
			info := modelInfo{Provider: provider, Model: m}
			if rate, ok := pricing.Lookup(provider, m); ok {
				in, out := rate.InputPer1K, rate.OutputPer1K
				info.InputPer1K = &in
				info.OutputPer1K = &out
			}
			models = append(models, info)
		}
	}

	response.Success(c, gin.H{
		"providers": providers,
		"models":    models,
	})
}

// parsePositiveInt is shared by query-param parsing across handlers.
func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("not positive: %d", n)
	}
	return n, nil
}
