// Package pricing converts token usage into estimated spend. Rates are a
// static table; estimation must never fail, so unknown models fall back to a
// conservative default and log a pricing gap.
package pricing

import (
	"log"
	"sync"
)

// Rate is the cost per 1K tokens, split by direction.
type Rate struct {
	InputPer1K  float64
	OutputPer1K float64
}

type key struct {
	provider string
	model    string
}

// defaultRate is deliberately expensive (gpt-4-turbo class) so a pricing gap
// overestimates rather than underestimates spend.
var defaultRate = Rate{InputPer1K: 0.01, OutputPer1K: 0.03}

var rates = map[key]Rate{
	{"openai", "gpt-4o"}:               {InputPer1K: 0.0025, OutputPer1K: 0.01},
	{"openai", "gpt-4o-mini"}:          {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	{"openai", "gpt-4-turbo"}:          {InputPer1K: 0.01, OutputPer1K: 0.03},
	{"openai", "gpt-4-vision-preview"}: {InputPer1K: 0.01, OutputPer1K: 0.03},
	{"gemini", "gemini-1.5-flash"}:     {InputPer1K: 0.0001, OutputPer1K: 0.0004},
	{"gemini", "gemini-1.5-pro"}:       {InputPer1K: 0.00125, OutputPer1K: 0.005},
	{"gemini", "gemini-2.0-flash-exp"}: {InputPer1K: 0, OutputPer1K: 0}, // free preview
	{"gemini", "gemini-2.5-pro"}:       {InputPer1K: 0.00125, OutputPer1K: 0.01},
	{"gemini", "gemini-pro-vision"}:    {InputPer1K: 0.00125, OutputPer1K: 0.005},
	{"anthropic", "claude-3-5-sonnet"}: {InputPer1K: 0.003, OutputPer1K: 0.015},
	{"anthropic", "claude-3-haiku"}:    {InputPer1K: 0.00025, OutputPer1K: 0.00125},
}

// warnedGaps keeps the pricing-gap warning to one line per unknown model.
var (
	warnedMu   sync.Mutex
	warnedGaps = map[key]struct{}{}
)

// Lookup returns the rate for a provider/model pair and whether it was found.
func Lookup(provider, model string) (Rate, bool) {
	r, ok := rates[key{provider, model}]
	return r, ok
}

// Price computes the cost of one invocation. Unknown models use the default
// rate and log a warning; Price never returns an error because cost
// estimation must never block result recording.
func Price(provider, model string, inputTokens, outputTokens int) float64 {
	rate, ok := rates[key{provider, model}]
	if !ok {
		rate = defaultRate
		k := key{provider, model}
		warnedMu.Lock()
		if _, seen := warnedGaps[k]; !seen {
			warnedGaps[k] = struct{}{}
			log.Printf("pricing: no rate for %s/%s, using default %.4f/%.4f per 1K",
				provider, model, rate.InputPer1K, rate.OutputPer1K)
		}
		warnedMu.Unlock()
	}
	return float64(inputTokens)/1000*rate.InputPer1K + float64(outputTokens)/1000*rate.OutputPer1K
}
