package vision

import (
	"log"

	"github.com/rancheye/analysis_server/config"
)

// BuildRegistry constructs providers from config. Providers without an API
// key are skipped with a warning so a partial deployment still runs.
func BuildRegistry(configs []config.ProviderConfig) *Registry {
	registry := NewRegistry()

	for _, pc := range configs {
		if pc.APIKey == "" {
			log.Printf("vision: provider %s has no api key, skipping", pc.Name)
			continue
		}

		switch pc.Name {
		case "openai":
			registry.Register(NewOpenAIProvider(pc.APIKey, pc.BaseURL))
		case "gemini":
			registry.Register(NewGeminiProvider(pc.APIKey, pc.BaseURL))
		default:
			log.Printf("vision: unknown provider %s, skipping", pc.Name)
		}
	}

	return registry
}
