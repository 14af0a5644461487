package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseModelOutput_PlainJSON(t *testing.T) {
	parsed, confidence := parseModelOutput(`{"gate_visible": true, "gate_open": false, "confidence": 0.92}`)

	assert.True(t, parsed.Bool("gate_visible"))
	assert.False(t, parsed.Bool("gate_open"))
	assert.InDelta(t, 0.92, confidence, 1e-9)
}

func TestParseModelOutput_MarkdownFences(t *testing.T) {
	raw := "```json\n{\"water_level\": \"LOW\", \"confidence\": 0.8}\n```"
	parsed, confidence := parseModelOutput(raw)

	assert.Equal(t, "LOW", parsed.String("water_level"))
	assert.InDelta(t, 0.8, confidence, 1e-9)
}

func TestParseModelOutput_JSONEmbeddedInProse(t *testing.T) {
	raw := "Here is my assessment: {\"feed_level\": \"EMPTY\", \"confidence\": 0.7} based on the image."
	parsed, confidence := parseModelOutput(raw)

	assert.Equal(t, "EMPTY", parsed.String("feed_level"))
	assert.InDelta(t, 0.7, confidence, 1e-9)
}

func TestParseModelOutput_MissingConfidenceDefaults(t *testing.T) {
	parsed, confidence := parseModelOutput(`{"gate_visible": true}`)

	assert.True(t, parsed.Bool("gate_visible"))
	assert.InDelta(t, 0.5, confidence, 1e-9)
}

func TestParseModelOutput_Unparseable(t *testing.T) {
	parsed, confidence := parseModelOutput("the gate appears to be open")

	assert.Zero(t, confidence)
	assert.Equal(t, "failed to parse JSON response", parsed.String("error"))
	assert.Equal(t, "the gate appears to be open", parsed.String("raw"))
}
