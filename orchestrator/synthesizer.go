package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agrisense/agrisense/agent"
	"github.com/agrisense/agrisense/core/llm"
)

// Display caps applied after deduplication.
const (
	maxRecommendations = 5
	maxWarnings        = 3
	maxInsights        = 3
)

// Synthesizer merges per-agent outputs into one answer. Fast paths avoid
// LLM calls when they add nothing: a lone general-chat response passes
// through verbatim, a single successful domain agent gets deterministic
// assembly, and low-LLM mode forces the deterministic path always.
// LLM synthesis failures of any kind fall back to deterministic assembly;
// synthesis never returns an error to the caller.
type Synthesizer struct {
	llm     llm.Service
	config  *Config
	logger  *slog.Logger
	metrics LLMMetrics
}

// NewSynthesizer builds a response synthesizer. svc may be nil, which
// forces the deterministic path. metrics may be nil.
func NewSynthesizer(svc llm.Service, config *Config, logger *slog.Logger, metrics LLMMetrics) *Synthesizer {
	if metrics == nil {
		metrics = nopLLMMetrics{}
	}
	return &Synthesizer{llm: svc, config: config, logger: logger, metrics: metrics}
}

// Synthesize merges agent responses for one query. reqContext may carry a
// "locale" hint for the output language.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, responses []AgentResponse, reqContext map[string]any) SynthesizedAnswer {
	// Lone general-chat output passes through untouched.
	if len(responses) == 1 && responses[0].AgentName == agent.GeneralChatName && responses[0].Success {
		return SynthesizedAnswer{
			Answer:          responses[0].Data.Text(),
			Recommendations: []string{},
			Warnings:        []string{},
			Insights:        []string{},
			Metadata:        s.metadata(responses),
		}
	}

	successful := 0
	for _, r := range responses {
		if r.Success {
			successful++
		}
	}

	// With zero successes the prompt would carry only error blocks, so the
	// LLM round trip is skipped along with the single-success fast path.
	if successful == 0 || (successful == 1 && !s.config.ForceSynthesis) || s.config.LowLLMMode || s.llm == nil {
		return s.deterministic(query, responses)
	}

	answer, ok := s.viaLLM(ctx, query, responses, reqContext)
	if !ok {
		return s.deterministic(query, responses)
	}
	return answer
}

// viaLLM formats each successful agent's output as a labeled block and asks
// for one cohesive prose answer plus the three string lists.
func (s *Synthesizer) viaLLM(ctx context.Context, query string, responses []AgentResponse, reqContext map[string]any) (SynthesizedAnswer, bool) {
	prompt := s.buildSynthesisPrompt(query, responses, reqContext)

	raw, err := s.llm.Chat(ctx, []llm.Message{llm.UserMessage(prompt)})
	s.metrics.ObserveLLMRequest("synthesis", err == nil)
	if err != nil {
		s.logger.Warn("synthesizer: llm synthesis failed", "error", err)
		return SynthesizedAnswer{}, false
	}

	var parsed struct {
		Response        string   `json:"response"`
		Answer          string   `json:"answer"`
		Recommendations []string `json:"recommendations"`
		Warnings        []string `json:"warnings"`
		Insights        []string `json:"insights"`
	}
	if err := llm.ExtractJSON(raw, &parsed); err != nil {
		s.logger.Warn("synthesizer: unparsable synthesis output", "error", err)
		return SynthesizedAnswer{}, false
	}

	answerText := parsed.Response
	if answerText == "" {
		answerText = parsed.Answer
	}
	if answerText == "" {
		return SynthesizedAnswer{}, false
	}

	// Agent-sourced lists are merged behind the LLM's own, so agent detail
	// survives a terse synthesis.
	recs, warns, insights := collectLists(responses)
	return SynthesizedAnswer{
		Answer:          answerText,
		Recommendations: capList(dedupe(append(parsed.Recommendations, recs...)), maxRecommendations),
		Warnings:        capList(dedupe(append(parsed.Warnings, warns...)), maxWarnings),
		Insights:        capList(dedupe(append(parsed.Insights, insights...)), maxInsights),
		Metadata:        s.metadata(responses),
	}, true
}

func (s *Synthesizer) buildSynthesisPrompt(query string, responses []AgentResponse, reqContext map[string]any) string {
	var blocks strings.Builder
	for _, r := range responses {
		if !r.Success {
			fmt.Fprintf(&blocks, "--- Agent: %s ---\nError: %s\n\n", r.AgentName, r.Error)
			continue
		}
		text := r.Data.Text()
		if text == "" && len(r.Data) > 0 {
			if enc, err := json.Marshal(r.Data); err == nil {
				text = string(enc)
			}
		}
		fmt.Fprintf(&blocks, "--- Agent: %s ---\n%s\n\n", r.AgentName, text)
	}

	languageInstruction := ""
	locale := localeFromContext(reqContext)
	if locale != "" {
		languageInstruction = fmt.Sprintf("\nIMPORTANT: Write the entire response in the language for locale %q.\n", locale)
	}

	return fmt.Sprintf(`You are AgriSense, a master agricultural consultant.
User Query: %q

We have gathered insights from specialized agents:
%s
TASK:
Synthesize these inputs into a single, cohesive, expert-level natural language response.

CRITICAL INSTRUCTIONS:
1. Pure conversational style. Write like a human expert talking to a farmer. No Markdown tables or data grids.
2. Preserve specific numbers, dates, prices, and names woven naturally into sentences.
3. Unified voice. Never say "the yield agent said". Speak as one expert system.
4. No fluff. If an agent provided a specific warning or risk, include it.
%s
Response Format (JSON):
{
"response": "the synthesized answer",
"recommendations": ["list", "of", "key", "actions"],
"warnings": ["critical", "warnings"],
"insights": ["key", "insights"]
}`, query, blocks.String(), languageInstruction)
}

// localeFromContext returns the caller's locale when it is non-English.
func localeFromContext(reqContext map[string]any) string {
	if reqContext == nil {
		return ""
	}
	locale, _ := reqContext["locale"].(string)
	switch strings.ToLower(locale) {
	case "", "en", "en-us", "en-in", "none":
		return ""
	}
	return locale
}

// deterministic builds a natural-language answer by concatenating what the
// surviving agents said, with light contextual glue from weather data.
func (s *Synthesizer) deterministic(query string, responses []AgentResponse) SynthesizedAnswer {
	var sentences []string

	// A weather reading, when present, makes a contextual opening line.
	for _, r := range responses {
		if !r.Success || !strings.Contains(strings.ToLower(r.AgentName), "weather") {
			continue
		}
		temp := r.Data["temperature"]
		if temp == nil {
			temp = r.Data["current_temp"]
		}
		condition, _ := r.Data["condition"].(string)
		if condition == "" {
			condition, _ = r.Data["weather"].(string)
		}
		if temp != nil && condition != "" {
			sentences = append(sentences, fmt.Sprintf("With the current %s conditions and %v°C temperature,", condition, temp))
		}
		break
	}

	for _, r := range responses {
		if !r.Success {
			continue
		}
		if text := r.Data.Text(); text != "" {
			text = strings.TrimSpace(text)
			if !strings.HasSuffix(text, ".") {
				text += "."
			}
			sentences = append(sentences, text)
		}
		if recs := r.Data.Strings("recommendations"); len(recs) > 0 {
			if rec := cleanRecommendation(recs[0]); rec != "" {
				sentences = append(sentences, fmt.Sprintf("I recommend %s.", lowerFirst(rec)))
			}
		}
	}

	if len(sentences) <= 1 {
		sentences = append(sentences, "I don't have enough specific details to give you a complete answer. Please share your crop type and location so I can help you better.")
	}

	recs, warns, insights := collectLists(responses)
	return SynthesizedAnswer{
		Answer:          strings.Join(sentences, " "),
		Recommendations: capList(dedupe(recs), maxRecommendations),
		Warnings:        capList(dedupe(warns), maxWarnings),
		Insights:        capList(dedupe(insights), maxInsights),
		Metadata:        s.metadata(responses),
	}
}

func (s *Synthesizer) metadata(responses []AgentResponse) map[string]any {
	var used, failed []string
	for _, r := range responses {
		if r.Success {
			used = append(used, r.AgentName)
		} else {
			failed = append(failed, r.AgentName)
		}
	}
	confidence := 0.4
	if len(used) > 0 {
		confidence = 0.6
	}
	meta := map[string]any{
		"agents_used": used,
		"confidence":  confidence,
	}
	if len(failed) > 0 {
		meta["agents_failed"] = failed
	}
	return meta
}

// collectLists gathers recommendation/warning/insight strings from every
// data-bearing response, in response order.
func collectLists(responses []AgentResponse) (recs, warns, insights []string) {
	for _, r := range responses {
		if len(r.Data) == 0 {
			continue
		}
		recs = append(recs, r.Data.Strings("recommendations")...)
		warns = append(warns, r.Data.Strings("warnings")...)
		insights = append(insights, r.Data.Strings("insights")...)
	}
	return recs, warns, insights
}

// dedupe removes exact duplicates preserving first-seen order.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func capList(items []string, max int) []string {
	if len(items) > max {
		return items[:max]
	}
	return items
}

// cleanRecommendation strips redundant "recommended crop:" style prefixes.
func cleanRecommendation(rec string) string {
	rec = strings.TrimSpace(rec)
	lower := strings.ToLower(rec)
	for _, prefix := range []string{"recommended crop:", "recommendation:"} {
		if idx := strings.Index(lower, prefix); idx >= 0 {
			return strings.TrimSpace(rec[idx+len(prefix):])
		}
	}
	return rec
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
