package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/agrisense/agrisense/agent"
	"github.com/agrisense/agrisense/core/llm"
)

// Selector chooses which agents handle a query. Strategies form a fallback
// chain, first non-empty result wins:
//
//	explicit strategy token -> keyword match -> payload inference ->
//	LLM-assisted selection -> fixed default
//
// Every strategy's output is filtered against the registry and capped, so
// an unknown name from any source is dropped silently rather than failing
// the request.
type Selector struct {
	registry *agent.Registry
	llm      llm.Service
	config   *Config
	logger   *slog.Logger
	metrics  LLMMetrics
}

// LLMMetrics receives per-call LLM request observations, labeled by the
// pipeline task that issued the call.
type LLMMetrics interface {
	ObserveLLMRequest(task string, success bool)
}

type nopLLMMetrics struct{}

func (nopLLMMetrics) ObserveLLMRequest(string, bool) {}

// NewSelector builds an agent selector. svc may be nil, which disables the
// LLM-assisted strategy. metrics may be nil.
func NewSelector(registry *agent.Registry, svc llm.Service, config *Config, logger *slog.Logger, metrics LLMMetrics) *Selector {
	if metrics == nil {
		metrics = nopLLMMetrics{}
	}
	return &Selector{registry: registry, llm: svc, config: config, logger: logger, metrics: metrics}
}

// strategyTable maps explicit strategy tokens from the request context to
// fixed agent sets. "auto" is absent on purpose: it means continue down the
// chain.
var strategyTable = map[string][]string{
	"weather":                {"weather_watcher"},
	"weather_only":           {"weather_watcher"},
	"growth":                 {"growth_stage_monitor"},
	"growth_only":            {"growth_stage_monitor"},
	"irrigation":             {"irrigation_planner"},
	"irrigation_only":        {"irrigation_planner"},
	"fertilizer":             {"fertilizer_advisor"},
	"fertilizer_only":        {"fertilizer_advisor"},
	"soil":                   {"soil_health"},
	"soil_health":            {"soil_health"},
	"soil_health_only":       {"soil_health"},
	"market":                 {"market_intelligence"},
	"market_only":            {"market_intelligence"},
	"tasks":                  {"task_scheduler"},
	"task_scheduler":         {"task_scheduler"},
	"task_scheduling":        {"task_scheduler"},
	"both":                   {"weather_watcher", "growth_stage_monitor"},
	"comprehensive":          {"weather_watcher", "soil_health", "irrigation_planner", "fertilizer_advisor", "market_intelligence", "task_scheduler"},
	"comprehensive_analysis": {"weather_watcher", "soil_health", "irrigation_planner", "fertilizer_advisor", "market_intelligence", "task_scheduler"},
}

// keywordRule appends its agent when any keyword matches as a whole word.
// Rule order fixes the priority of the selected agents.
type keywordRule struct {
	agent    string
	keywords []string
}

var keywordRules = []keywordRule{
	{"crop_selector", []string{"crop", "crops", "plant", "sow", "kharif", "rabi", "season"}},
	{"seed_selection", []string{"seed", "seeds", "variety", "varieties", "hybrid", "gmo"}},
	{"weather_watcher", []string{"weather", "rain", "rainfall", "temperature", "forecast", "humidity", "wind", "storm", "drought"}},
	{"growth_stage_monitor", []string{"growth", "stage", "seedling", "vegetative", "flowering", "maturity", "harvest", "crop health", "plant health"}},
	{"irrigation_planner", []string{"irrigation", "irrigate", "watering", "drip", "sprinkler", "pump"}},
	{"fertilizer_advisor", []string{"fertilizer", "nutrient", "npk", "urea", "dap", "mop", "compost", "manure"}},
	{"soil_health", []string{"soil", "ph", "salinity", "organic matter", "soil test"}},
	{"pest_disease_diagnostic", []string{"pest", "disease", "fungus", "blight", "leaf spot", "insect", "spots", "yellow", "yellowing", "wilting", "curl", "mosaic", "rot"}},
	{"market_intelligence", []string{"market", "price", "sell", "mandi", "apmc", "profit", "revenue"}},
	{"task_scheduler", []string{"task", "schedule", "plan", "today", "tomorrow", "weekly", "daily", "reminder"}},
	{"crop_insurance_risk", []string{"insurance", "risk", "claim"}},
	{"yield_predictor", []string{"yield", "production", "quantity", "quintal", "ton"}},
	{"profit_optimization", []string{"profit", "loss", "margin", "income", "revenue", "cost", "expense", "budget"}},
}

// Select resolves the agent list for a query. history carries recent
// conversation turns for the LLM strategy, formatted as role/content pairs.
func (s *Selector) Select(ctx context.Context, query string, reqContext map[string]any, history []ChatTurn) []string {
	if selected := s.byStrategy(reqContext); len(selected) > 0 {
		s.logger.Debug("selector: strategy match", "agents", selected)
		return selected
	}
	if selected := s.byKeywords(query); len(selected) > 0 {
		s.logger.Debug("selector: keyword match", "agents", selected)
		return selected
	}
	if selected := s.byPayload(reqContext); len(selected) > 0 {
		s.logger.Debug("selector: payload inference", "agents", selected)
		return selected
	}
	if selected := s.byLLM(ctx, query, reqContext, history); len(selected) > 0 {
		s.logger.Debug("selector: llm selection", "agents", selected)
		return selected
	}

	s.logger.Debug("selector: default fallback", "agents", s.config.DefaultAgents)
	return s.safeList(s.config.DefaultAgents, 2)
}

// safeList drops empties, duplicates, and unregistered names while
// preserving first occurrence, then caps the result.
func (s *Selector) safeList(names []string, max int) []string {
	if max <= 0 {
		max = s.config.MaxAgents
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		if !s.registry.Has(name) {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
		if len(out) >= max {
			break
		}
	}
	return out
}

func strategyFromContext(reqContext map[string]any) string {
	if reqContext == nil {
		return ""
	}
	strategy, _ := reqContext["strategy"].(string)
	if strategy == "" {
		if routing, ok := reqContext["routing"].(map[string]any); ok {
			strategy, _ = routing["strategy"].(string)
		}
	}
	return strings.ToLower(strings.TrimSpace(strategy))
}

func (s *Selector) byStrategy(reqContext map[string]any) []string {
	strategy := strategyFromContext(reqContext)
	if strategy == "" || strategy == "auto" {
		return nil
	}
	agents, ok := strategyTable[strategy]
	if !ok {
		return nil
	}
	return s.safeList(agents, s.config.MaxAgents)
}

func (s *Selector) byKeywords(query string) []string {
	q := strings.ToLower(query)
	if strings.TrimSpace(q) == "" {
		return nil
	}

	var selected []string
	for _, rule := range keywordRules {
		for _, keyword := range rule.keywords {
			if wordMatch(q, keyword) {
				selected = append(selected, rule.agent)
				break
			}
		}
	}
	return s.safeList(selected, s.config.MaxAgents)
}

func wordMatch(query, keyword string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
	return re.MatchString(query)
}

// hasRoutingPayload reports whether the request context carries any of the
// structured fields byPayload inspects. Payload-bearing requests must not
// hit the route cache.
func hasRoutingPayload(reqContext map[string]any) bool {
	if reqContext == nil {
		return false
	}
	return reqContext["location"] != nil || reqContext["crop"] != nil || reqContext["crop_data"] != nil
}

func (s *Selector) byPayload(reqContext map[string]any) []string {
	if reqContext == nil {
		return nil
	}

	hasLocation := false
	if loc, ok := reqContext["location"].(map[string]any); ok {
		hasLocation = (truthy(loc["latitude"]) && truthy(loc["longitude"])) ||
			(truthy(loc["lat"]) && truthy(loc["lon"]))
	}

	crop := reqContext["crop"]
	if crop == nil {
		crop = reqContext["crop_data"]
	}
	hasCrop := truthy(crop)

	switch {
	case hasLocation && hasCrop:
		return s.safeList([]string{"weather_watcher", "growth_stage_monitor", "irrigation_planner", "fertilizer_advisor", "soil_health"}, s.config.MaxAgents)
	case hasLocation:
		return s.safeList([]string{"weather_watcher"}, s.config.MaxAgents)
	case hasCrop:
		return s.safeList([]string{"growth_stage_monitor", "soil_health"}, s.config.MaxAgents)
	}
	return nil
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	case int:
		return val != 0
	case map[string]any:
		return len(val) > 0
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

// byLLM asks the model to pick agents given the catalog and recent history.
// Any failure, from the call itself to unparsable output, yields nil so the
// chain falls through to the default.
func (s *Selector) byLLM(ctx context.Context, query string, reqContext map[string]any, history []ChatTurn) []string {
	if s.llm == nil {
		return nil
	}

	prompt := s.buildSelectionPrompt(query, reqContext, history)
	response, err := s.llm.Chat(ctx, []llm.Message{llm.UserMessage(prompt)})
	s.metrics.ObserveLLMRequest("selection", err == nil)
	if err != nil {
		s.logger.Warn("selector: llm selection failed", "error", err)
		return nil
	}

	names, err := llm.ExtractJSONArray(response)
	if err != nil {
		s.logger.Warn("selector: unparsable llm selection", "error", err)
		return nil
	}
	return s.safeList(names, s.config.MaxAgents)
}

func (s *Selector) buildSelectionPrompt(query string, reqContext map[string]any, history []ChatTurn) string {
	var b strings.Builder
	b.WriteString("You are the routing coordinator of AgriSense, an agricultural expert system. ")
	b.WriteString("Analyze the farmer's query and decide which specialized agents should handle it.\n\n")
	b.WriteString("Available Agents:\n")
	for _, spec := range s.registry.Specs() {
		tools := "None"
		if len(spec.Tools) > 0 {
			tools = strings.Join(spec.Tools, ", ")
		}
		fmt.Fprintf(&b, "- %s: %s (Tools: %s)\n", spec.Name, spec.Description, tools)
	}

	if len(history) > 0 {
		b.WriteString("\nConversation History:\n")
		for _, turn := range history {
			role := "Assistant"
			if turn.Role == "user" {
				role = "Farmer"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, turn.Content)
		}
	}

	fmt.Fprintf(&b, "\nFarmer's Query: %q\n", query)
	if len(reqContext) > 0 {
		fmt.Fprintf(&b, "Context keys: %s\n", strings.Join(mapKeys(reqContext), ", "))
	}
	fmt.Fprintf(&b, `
Select the most relevant agents (1-%d maximum). If the user asks a follow-up question, use the history to understand the full context.

Respond with a JSON array of agent names (use the exact agent keys from the list above):
["agent1", "agent2"]

If a query is about a specific sub-domain like seeds, irrigation, pests, or fertilizer, select the corresponding specialized agent instead of the general crop_selector.`, s.config.MaxAgents)
	return b.String()
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
