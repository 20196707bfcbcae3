package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisense/agrisense/agent"
)

func newTestSynthesizer(svc *fakeLLM, opts ...Option) *Synthesizer {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	if svc == nil {
		return NewSynthesizer(nil, config, testLogger(), nil)
	}
	return NewSynthesizer(svc, config, testLogger(), nil)
}

func TestSynthesizeGeneralChatPassthrough(t *testing.T) {
	s := newTestSynthesizer(nil)
	responses := []AgentResponse{{
		AgentName: agent.GeneralChatName,
		Success:   true,
		Data:      agent.Output{"response": "Hello! How can I help your farm today?"},
	}}

	got := s.Synthesize(context.Background(), "hi", responses, nil)
	assert.Equal(t, "Hello! How can I help your farm today?", got.Answer)
	assert.Empty(t, got.Recommendations)
	assert.Empty(t, got.Warnings)
}

// A single successful agent skips the LLM entirely.
func TestSynthesizeSingleSuccessDeterministic(t *testing.T) {
	svc := &fakeLLM{responses: []string{`{"response": "should not be used"}`}}
	s := newTestSynthesizer(svc)

	responses := []AgentResponse{{
		AgentName: "soil_health",
		Success:   true,
		Data: agent.Output{
			"response":        "Your soil needs more organic matter",
			"recommendations": []string{"Add compost before sowing"},
		},
	}}

	got := s.Synthesize(context.Background(), "soil advice", responses, nil)
	assert.Zero(t, svc.calls)
	assert.Contains(t, got.Answer, "Your soil needs more organic matter.")
	assert.Contains(t, got.Answer, "I recommend add compost before sowing.")
	assert.Equal(t, []string{"Add compost before sowing"}, got.Recommendations)
}

func TestSynthesizeLowLLMMode(t *testing.T) {
	svc := &fakeLLM{responses: []string{`{"response": "should not be used"}`}}
	s := newTestSynthesizer(svc, WithLowLLMMode(true))

	responses := []AgentResponse{
		{AgentName: "a", Success: true, Data: agent.Output{"response": "First finding"}},
		{AgentName: "b", Success: true, Data: agent.Output{"response": "Second finding"}},
	}

	got := s.Synthesize(context.Background(), "q", responses, nil)
	assert.Zero(t, svc.calls)
	assert.Contains(t, got.Answer, "First finding.")
	assert.Contains(t, got.Answer, "Second finding.")
}

func TestSynthesizeViaLLM(t *testing.T) {
	svc := &fakeLLM{responses: []string{`{
		"response": "Plant wheat after the first rains.",
		"recommendations": ["Use certified seed"],
		"warnings": ["Avoid waterlogged plots"],
		"insights": ["Wheat demand is rising"]
	}`}}
	s := newTestSynthesizer(svc)

	responses := []AgentResponse{
		{AgentName: "crop_selector", Success: true, Data: agent.Output{"response": "Wheat suits your region"}},
		{AgentName: "market_intelligence", Success: true, Data: agent.Output{"response": "Prices are firm"}},
	}

	got := s.Synthesize(context.Background(), "what to plant", responses, nil)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "Plant wheat after the first rains.", got.Answer)
	assert.Equal(t, []string{"Use certified seed"}, got.Recommendations)
	assert.Equal(t, []string{"Avoid waterlogged plots"}, got.Warnings)
	assert.Equal(t, []string{"Wheat demand is rising"}, got.Insights)
	assert.Equal(t, []string{"crop_selector", "market_intelligence"}, got.Metadata["agents_used"])
}

// Duplicate recommendations from different agents appear once.
func TestSynthesizeObservesLLMRequests(t *testing.T) {
	svc := &fakeLLM{responses: []string{`{"response": "combined answer"}`}}
	rec := &recordingLLMMetrics{}
	s := NewSynthesizer(svc, DefaultConfig(), testLogger(), rec)

	responses := []AgentResponse{
		{AgentName: "a", Success: true, Data: agent.Output{"response": "one"}},
		{AgentName: "b", Success: true, Data: agent.Output{"response": "two"}},
	}

	got := s.Synthesize(context.Background(), "q", responses, nil)
	assert.Equal(t, "combined answer", got.Answer)
	require.Equal(t, []string{"synthesis"}, rec.tasks)
	assert.Equal(t, []bool{true}, rec.ok)
}

func TestSynthesizeDeduplicatesLists(t *testing.T) {
	s := newTestSynthesizer(nil)

	responses := []AgentResponse{
		{AgentName: "soil_health", Success: true, Data: agent.Output{
			"response":        "Soil looks depleted",
			"recommendations": []string{"Apply balanced NPK fertilizer"},
		}},
		{AgentName: "fertilizer_advisor", Success: true, Data: agent.Output{
			"response":        "Nutrients are low",
			"recommendations": []string{"Apply balanced NPK fertilizer", "Split the urea dose"},
		}},
	}

	got := s.Synthesize(context.Background(), "fertilizer help", responses, nil)
	assert.Equal(t, []string{"Apply balanced NPK fertilizer", "Split the urea dose"}, got.Recommendations)
}

func TestSynthesizeCapsLists(t *testing.T) {
	s := newTestSynthesizer(nil)

	many := []string{"r1", "r2", "r3", "r4", "r5", "r6", "r7"}
	warns := []string{"w1", "w2", "w3", "w4", "w5"}
	responses := []AgentResponse{
		{AgentName: "a", Success: true, Data: agent.Output{"response": "x", "recommendations": many, "warnings": warns}},
		{AgentName: "b", Success: true, Data: agent.Output{"response": "y"}},
	}

	got := s.Synthesize(context.Background(), "q", responses, nil)
	assert.Len(t, got.Recommendations, 5)
	assert.Len(t, got.Warnings, 3)
}

// Unparsable LLM output falls back to deterministic assembly, never an
// error or empty answer.
func TestSynthesizeUnparsableFallsBack(t *testing.T) {
	svc := &fakeLLM{responses: []string{"Sure! Here are my thoughts, with no JSON at all."}}
	s := newTestSynthesizer(svc)

	responses := []AgentResponse{
		{AgentName: "a", Success: true, Data: agent.Output{"response": "Alpha insight"}},
		{AgentName: "b", Success: true, Data: agent.Output{"response": "Beta insight"}},
	}

	got := s.Synthesize(context.Background(), "q", responses, nil)
	assert.Equal(t, 1, svc.calls)
	assert.Contains(t, got.Answer, "Alpha insight.")
	assert.Contains(t, got.Answer, "Beta insight.")
}

func TestSynthesizeLLMErrorFallsBack(t *testing.T) {
	svc := &fakeLLM{err: errors.New("model overloaded")}
	s := newTestSynthesizer(svc)

	responses := []AgentResponse{
		{AgentName: "a", Success: true, Data: agent.Output{"response": "Alpha"}},
		{AgentName: "b", Success: true, Data: agent.Output{"response": "Beta"}},
	}

	got := s.Synthesize(context.Background(), "q", responses, nil)
	assert.NotEmpty(t, got.Answer)
}

// All agents failing still yields a usable apology with failure metadata.
func TestSynthesizeAllFailed(t *testing.T) {
	s := newTestSynthesizer(nil)

	responses := []AgentResponse{
		{AgentName: "a", Success: false, Error: "boom", Data: agent.Output{}},
		{AgentName: "b", Success: false, Error: "bust", Data: agent.Output{}},
	}

	got := s.Synthesize(context.Background(), "q", responses, nil)
	assert.Contains(t, got.Answer, "don't have enough specific details")
	assert.Equal(t, 0.4, got.Metadata["confidence"])
	assert.Equal(t, []string{"a", "b"}, got.Metadata["agents_failed"])
}

func TestSynthesizeAllFailedSkipsLLM(t *testing.T) {
	svc := &fakeLLM{responses: []string{`{"response": "should never be asked"}`}}
	s := newTestSynthesizer(svc)

	responses := []AgentResponse{
		{AgentName: "a", Success: false, Error: "boom", Data: agent.Output{}},
		{AgentName: "b", Success: false, Error: "bust", Data: agent.Output{}},
	}

	got := s.Synthesize(context.Background(), "q", responses, nil)
	assert.Equal(t, 0, svc.calls)
	assert.Contains(t, got.Answer, "don't have enough specific details")
}

func TestSynthesizeWeatherOpening(t *testing.T) {
	s := newTestSynthesizer(nil)

	responses := []AgentResponse{
		{AgentName: "weather_watcher", Success: true, Data: agent.Output{
			"temperature": 31.0,
			"condition":   "sunny",
			"response":    "Clear skies for the next three days",
		}},
		{AgentName: "irrigation_planner", Success: true, Data: agent.Output{
			"response": "Irrigate in the early morning",
		}},
	}

	got := s.Synthesize(context.Background(), "q", responses, map[string]any{})
	assert.Contains(t, got.Answer, "With the current sunny conditions and 31°C temperature,")
	assert.Contains(t, got.Answer, "Irrigate in the early morning.")
}

func TestSynthesisPromptIncludesLocale(t *testing.T) {
	svc := &fakeLLM{responses: []string{`{"response": "ok"}`}}
	s := newTestSynthesizer(svc)

	responses := []AgentResponse{
		{AgentName: "a", Success: true, Data: agent.Output{"response": "x"}},
		{AgentName: "b", Success: true, Data: agent.Output{"response": "y"}},
	}

	_ = s.Synthesize(context.Background(), "q", responses, map[string]any{"locale": "hi-IN"})
	require.NotEmpty(t, svc.lastMsgs)
	assert.Contains(t, svc.lastMsgs[0].Content, `locale "hi-IN"`)

	svc2 := &fakeLLM{responses: []string{`{"response": "ok"}`}}
	s2 := newTestSynthesizer(svc2)
	_ = s2.Synthesize(context.Background(), "q", responses, map[string]any{"locale": "en-US"})
	require.NotEmpty(t, svc2.lastMsgs)
	assert.NotContains(t, svc2.lastMsgs[0].Content, "IMPORTANT: Write the entire response")
}
