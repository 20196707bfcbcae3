package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/agrisense/agrisense/core/llm"
)

// Advisor is an LLM-backed domain agent parameterized by a catalog spec.
// Every catalog entry is served by one Advisor instance sharing a single
// llm.Service; the spec's description and tool list shape its persona.
type Advisor struct {
	spec   Spec
	llm    llm.Service
	logger *slog.Logger
}

// NewAdvisor builds an advisor for the given catalog spec.
func NewAdvisor(spec Spec, svc llm.Service, logger *slog.Logger) *Advisor {
	return &Advisor{spec: spec, llm: svc, logger: logger}
}

// NewCatalogAdvisors instantiates one advisor per catalog entry and
// registers them all.
func NewCatalogAdvisors(reg *Registry, svc llm.Service, logger *slog.Logger) error {
	for _, spec := range Catalog {
		if err := reg.Register(NewAdvisor(spec, svc, logger)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Advisor) Name() string { return a.spec.Name }

// Handle asks the LLM for structured advice and parses it into an Output.
// A response that cannot be parsed as JSON is still usable: the raw text
// becomes the answer.
func (a *Advisor) Handle(ctx context.Context, input Input) (Output, error) {
	query := input.Query()
	if query == "" {
		return nil, errors.New("advisor: empty query")
	}

	start := time.Now()
	messages := []llm.Message{
		llm.SystemPrompt(a.systemPrompt()),
		llm.UserMessage(a.userPrompt(query, input)),
	}

	raw, err := a.llm.Chat(ctx, messages)
	if err != nil {
		return nil, errors.Wrapf(err, "advisor %s", a.spec.Name)
	}

	out := a.parseResponse(raw)
	a.logger.Debug("advisor: handled query",
		"agent", a.spec.Name,
		"duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (a *Advisor) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %s agent of an agricultural advisory platform.\n", a.spec.Name)
	fmt.Fprintf(&b, "Role: %s\n", a.spec.Description)
	if len(a.spec.Tools) > 0 {
		fmt.Fprintf(&b, "You reason with data from: %s.\n", strings.Join(a.spec.Tools, ", "))
	}
	b.WriteString(`Respond with a JSON object:
{
  "answer": "direct, practical advice for the farmer",
  "recommendations": ["actionable recommendation", ...],
  "warnings": ["risk or caveat", ...]
}
Stay within your role. Be concrete and brief.`)
	return b.String()
}

func (a *Advisor) userPrompt(query string, input Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", query)
	if ents, ok := input["entities"].(map[string]any); ok && len(ents) > 0 {
		if enc, err := json.Marshal(ents); err == nil {
			fmt.Fprintf(&b, "Extracted entities: %s\n", enc)
		}
	}
	if fctx, ok := input["context"].(map[string]any); ok && len(fctx) > 0 {
		if enc, err := json.Marshal(fctx); err == nil {
			fmt.Fprintf(&b, "Farm context: %s\n", enc)
		}
	}
	return b.String()
}

func (a *Advisor) parseResponse(raw string) Output {
	var parsed struct {
		Answer          string   `json:"answer"`
		Response        string   `json:"response"`
		Recommendations []string `json:"recommendations"`
		Warnings        []string `json:"warnings"`
	}
	if err := llm.ExtractJSON(raw, &parsed); err != nil {
		return Output{"response": strings.TrimSpace(raw)}
	}

	out := Output{}
	switch {
	case parsed.Answer != "":
		out["response"] = parsed.Answer
	case parsed.Response != "":
		out["response"] = parsed.Response
	default:
		out["response"] = strings.TrimSpace(raw)
	}
	if len(parsed.Recommendations) > 0 {
		out["recommendations"] = parsed.Recommendations
	}
	if len(parsed.Warnings) > 0 {
		out["warnings"] = parsed.Warnings
	}
	return out
}
