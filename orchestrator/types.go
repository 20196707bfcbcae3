// Package orchestrator routes a free-text farmer query to the relevant
// advisory agents and merges their outputs into one answer. The pipeline is
// classify, select, execute, synthesize; each stage degrades rather than
// fails when its inputs are poor.
package orchestrator

import (
	"time"

	"github.com/agrisense/agrisense/agent"
)

// Query is one immutable advisory request.
type Query struct {
	Text      string         `json:"query"`
	Context   map[string]any `json:"context,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
}

// ChatTurn is one prior conversation exchange passed into selection and
// synthesis prompts. Role is "user" or "assistant".
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// IntentType labels what the farmer is asking for.
type IntentType string

const (
	IntentCropPlanning       IntentType = "crop_planning"
	IntentPestDiseaseDiag    IntentType = "pest_disease_diagnosis"
	IntentYieldOptimization  IntentType = "yield_optimization"
	IntentTaskScheduling     IntentType = "task_scheduling"
	IntentMarketAnalysis     IntentType = "market_analysis"
	IntentSoilHealth         IntentType = "soil_health"
	IntentWeatherQuery       IntentType = "weather_query"
	IntentFertilizerAdvice   IntentType = "fertilizer_advice"
	IntentIrrigationPlanning IntentType = "irrigation_planning"
	IntentHarvestPlanning    IntentType = "harvest_planning"
	IntentRiskManagement     IntentType = "risk_management"
	IntentFarmerSupport      IntentType = "farmer_support"
	IntentGeneralQuery       IntentType = "general_query"

	// IntentGeneralConversation short-circuits the pipeline: greetings and
	// small talk never reach domain agents.
	IntentGeneralConversation IntentType = "general_conversation"
)

// IntentResult is the classifier's output. Confidence is always in [0,1]
// and Intent is always a valid label.
type IntentResult struct {
	Intent     IntentType     `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities,omitempty"`
	Query      string         `json:"query"`
	Language   string         `json:"language"`
}

// AgentResponse is the outcome of one agent invocation, success or failure.
// Exactly one is produced per requested agent.
type AgentResponse struct {
	AgentName     string       `json:"agent_name"`
	Success       bool         `json:"success"`
	Data          agent.Output `json:"data,omitempty"`
	Error         string       `json:"error,omitempty"`
	ExecutionTime float64      `json:"execution_time"`
}

// SynthesizedAnswer is the merged final result. The list fields hold no
// duplicates and preserve first-seen order across agents.
type SynthesizedAnswer struct {
	Answer          string         `json:"answer"`
	Recommendations []string       `json:"recommendations"`
	Warnings        []string       `json:"warnings"`
	Insights        []string       `json:"insights"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Result is the full per-request payload returned to callers.
type Result struct {
	Query           string            `json:"query"`
	Success         bool              `json:"success"`
	Answer          SynthesizedAnswer `json:"answer"`
	NaturalLanguage string            `json:"natural_language"`
	AgentResponses  []AgentResponse   `json:"agent_responses,omitempty"`
	Intent          IntentResult      `json:"intent"`
	SessionID       string            `json:"session_id,omitempty"`
	TraceID         string            `json:"trace_id"`
	ExecutionTime   float64           `json:"execution_time"`
}

// Config tunes the orchestration pipeline.
type Config struct {
	// MaxAgents bounds how many agents one query may fan out to.
	MaxAgents int

	// AgentTimeout bounds each individual agent invocation.
	AgentTimeout time.Duration

	// MaxParallelTasks bounds concurrent task execution on the graph path.
	MaxParallelTasks int

	// LowLLMMode forces deterministic synthesis to conserve quota.
	LowLLMMode bool

	// ForceSynthesis runs LLM synthesis even for a single successful agent.
	ForceSynthesis bool

	// DefaultAgents is the final selection fallback.
	DefaultAgents []string

	// HistoryTurns is how many recent conversation turns are passed to the
	// LLM selection and synthesis prompts.
	HistoryTurns int
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAgents:        5,
		AgentTimeout:     30 * time.Second,
		MaxParallelTasks: 4,
		DefaultAgents:    []string{"crop_selector", "farmer_coach"},
		HistoryTurns:     6,
	}
}

// Option adjusts a Config.
type Option func(*Config)

// WithMaxAgents overrides the agent fan-out cap.
func WithMaxAgents(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAgents = n
		}
	}
}

// WithAgentTimeout overrides the per-agent timeout.
func WithAgentTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.AgentTimeout = d
		}
	}
}

// WithMaxParallelTasks overrides the graph-path concurrency limit.
func WithMaxParallelTasks(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxParallelTasks = n
		}
	}
}

// WithLowLLMMode toggles deterministic-only synthesis.
func WithLowLLMMode(enabled bool) Option {
	return func(c *Config) { c.LowLLMMode = enabled }
}

// WithForceSynthesis toggles LLM synthesis for single-agent results.
func WithForceSynthesis(enabled bool) Option {
	return func(c *Config) { c.ForceSynthesis = enabled }
}

// WithDefaultAgents overrides the selection fallback set.
func WithDefaultAgents(names ...string) Option {
	return func(c *Config) {
		if len(names) > 0 {
			c.DefaultAgents = names
		}
	}
}
