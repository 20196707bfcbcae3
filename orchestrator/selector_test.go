package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisense/agrisense/agent"
)

func fullStubRegistry() *agent.Registry {
	reg := agent.NewRegistry()
	for _, spec := range agent.Catalog {
		if err := reg.Register(namedStub(spec.Name, nil)); err != nil {
			panic(err)
		}
	}
	return reg
}

func newTestSelector(reg *agent.Registry, svc *fakeLLM) *Selector {
	config := DefaultConfig()
	if svc == nil {
		return NewSelector(reg, nil, config, testLogger(), nil)
	}
	return NewSelector(reg, svc, config, testLogger(), nil)
}

func TestSelectByStrategy(t *testing.T) {
	reg := fullStubRegistry()
	s := newTestSelector(reg, nil)

	tests := []struct {
		strategy string
		want     []string
	}{
		{"weather_only", []string{"weather_watcher"}},
		{"growth", []string{"growth_stage_monitor"}},
		{"both", []string{"weather_watcher", "growth_stage_monitor"}},
		{"soil_health", []string{"soil_health"}},
		{"comprehensive", []string{"weather_watcher", "soil_health", "irrigation_planner", "fertilizer_advisor", "market_intelligence"}},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			got := s.Select(context.Background(), "anything at all", map[string]any{"strategy": tt.strategy}, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectStrategyNestedAndAuto(t *testing.T) {
	reg := fullStubRegistry()
	s := newTestSelector(reg, nil)

	nested := map[string]any{"routing": map[string]any{"strategy": "Market_Only"}}
	assert.Equal(t, []string{"market_intelligence"}, s.Select(context.Background(), "irrelevant gibberish", nested, nil))

	// "auto" falls through the chain; with no keywords, payload, or LLM the
	// default pair answers.
	auto := s.Select(context.Background(), "zz qq ww", map[string]any{"strategy": "auto"}, nil)
	assert.Equal(t, []string{"crop_selector", "farmer_coach"}, auto)
}

func TestSelectByKeywords(t *testing.T) {
	reg := fullStubRegistry()
	s := newTestSelector(reg, nil)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			"pest symptoms",
			"my tomato leaves are yellowing with spots",
			[]string{"pest_disease_diagnostic"},
		},
		{
			"weather and irrigation",
			"should I irrigate before the rain tomorrow",
			[]string{"weather_watcher", "irrigation_planner", "task_scheduler"},
		},
		{
			"crop and soil",
			"which crop suits my soil",
			[]string{"crop_selector", "soil_health"},
		},
		{
			"word boundary respected",
			"my crops need attention",
			[]string{"crop_selector"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Select(context.Background(), tt.query, nil, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Keyword selection caps at the configured maximum even when many rules
// fire.
func TestSelectKeywordCap(t *testing.T) {
	reg := fullStubRegistry()
	s := newTestSelector(reg, nil)

	got := s.Select(context.Background(), "crop seed weather growth irrigation fertilizer soil pest", nil, nil)
	assert.Len(t, got, 5)
	assert.Equal(t, []string{"crop_selector", "seed_selection", "weather_watcher", "growth_stage_monitor", "irrigation_planner"}, got)
}

func TestSelectByPayload(t *testing.T) {
	reg := fullStubRegistry()
	s := newTestSelector(reg, nil)
	query := "zz qq ww" // no keyword hits

	t.Run("location and crop", func(t *testing.T) {
		ctx := map[string]any{
			"location": map[string]any{"latitude": 18.52, "longitude": 73.85},
			"crop":     "cotton",
		}
		got := s.Select(context.Background(), query, ctx, nil)
		assert.Equal(t, []string{"weather_watcher", "growth_stage_monitor", "irrigation_planner", "fertilizer_advisor", "soil_health"}, got)
	})

	t.Run("location only", func(t *testing.T) {
		ctx := map[string]any{"location": map[string]any{"lat": 18.52, "lon": 73.85}}
		got := s.Select(context.Background(), query, ctx, nil)
		assert.Equal(t, []string{"weather_watcher"}, got)
	})

	t.Run("crop only", func(t *testing.T) {
		ctx := map[string]any{"crop_data": map[string]any{"name": "wheat"}}
		got := s.Select(context.Background(), query, ctx, nil)
		assert.Equal(t, []string{"growth_stage_monitor", "soil_health"}, got)
	})

	t.Run("zero coordinates are not a location", func(t *testing.T) {
		ctx := map[string]any{"location": map[string]any{"latitude": 0.0, "longitude": 0.0}}
		got := s.Select(context.Background(), query, ctx, nil)
		assert.Equal(t, []string{"crop_selector", "farmer_coach"}, got)
	})
}

func TestSelectByLLM(t *testing.T) {
	reg := fullStubRegistry()
	query := "zz qq ww"

	t.Run("parses array", func(t *testing.T) {
		svc := &fakeLLM{responses: []string{`["yield_predictor", "market_intelligence"]`}}
		s := newTestSelector(reg, svc)
		got := s.Select(context.Background(), query, nil, nil)
		assert.Equal(t, []string{"yield_predictor", "market_intelligence"}, got)
	})

	t.Run("fenced array with unknown name filtered", func(t *testing.T) {
		svc := &fakeLLM{responses: []string{"```json\n[\"weather_watcher\", \"no_such_agent\"]\n```"}}
		s := newTestSelector(reg, svc)
		got := s.Select(context.Background(), query, nil, nil)
		assert.Equal(t, []string{"weather_watcher"}, got)
	})

	t.Run("llm error falls back to default", func(t *testing.T) {
		svc := &fakeLLM{err: errors.New("rate limited")}
		s := newTestSelector(reg, svc)
		got := s.Select(context.Background(), query, nil, nil)
		assert.Equal(t, []string{"crop_selector", "farmer_coach"}, got)
	})

	t.Run("garbage output falls back to default", func(t *testing.T) {
		svc := &fakeLLM{responses: []string{"I think the weather agent would be nice"}}
		s := newTestSelector(reg, svc)
		got := s.Select(context.Background(), query, nil, nil)
		assert.Equal(t, []string{"crop_selector", "farmer_coach"}, got)
	})

	t.Run("prompt carries catalog and history", func(t *testing.T) {
		svc := &fakeLLM{responses: []string{`["farmer_coach"]`}}
		s := newTestSelector(reg, svc)
		history := []ChatTurn{
			{Role: "user", Content: "I grow cotton"},
			{Role: "assistant", Content: "Noted."},
		}
		_ = s.Select(context.Background(), query, nil, history)
		require.NotEmpty(t, svc.lastMsgs)
		prompt := svc.lastMsgs[len(svc.lastMsgs)-1].Content
		assert.Contains(t, prompt, "crop_selector")
		assert.Contains(t, prompt, "Farmer: I grow cotton")
		assert.Contains(t, prompt, "Assistant: Noted.")
	})
}

// Selection always returns registered agent names, never empty, for any
// query.
func TestSelectByLLMObservesRequests(t *testing.T) {
	reg := fullStubRegistry()
	query := "zz qq ww"

	t.Run("successful call", func(t *testing.T) {
		svc := &fakeLLM{responses: []string{`["pest_detector"]`}}
		rec := &recordingLLMMetrics{}
		s := NewSelector(reg, svc, DefaultConfig(), testLogger(), rec)

		got := s.Select(context.Background(), query, nil, nil)
		assert.Equal(t, []string{"pest_detector"}, got)
		require.Equal(t, []string{"selection"}, rec.tasks)
		assert.Equal(t, []bool{true}, rec.ok)
	})

	t.Run("failed call", func(t *testing.T) {
		svc := &fakeLLM{err: errors.New("rate limited")}
		rec := &recordingLLMMetrics{}
		s := NewSelector(reg, svc, DefaultConfig(), testLogger(), rec)

		s.Select(context.Background(), query, nil, nil)
		require.Equal(t, []string{"selection"}, rec.tasks)
		assert.Equal(t, []bool{false}, rec.ok)
	})
}

func TestSelectAlwaysNonEmpty(t *testing.T) {
	reg := fullStubRegistry()
	s := newTestSelector(reg, nil)

	for _, query := range []string{"", "   ", "zzz", "what should I do"} {
		got := s.Select(context.Background(), query, nil, nil)
		require.NotEmpty(t, got, "query %q", query)
		for _, name := range got {
			assert.True(t, reg.Has(name))
		}
	}
}

func TestSelectDefaultFiltersUnregistered(t *testing.T) {
	// Registry missing crop_selector: the default list drops it instead of
	// handing back an unknown name.
	reg := newStubRegistry(namedStub("farmer_coach", nil))
	s := newTestSelector(reg, nil)

	got := s.Select(context.Background(), "zz qq ww", nil, nil)
	assert.Equal(t, []string{"farmer_coach"}, got)
}
