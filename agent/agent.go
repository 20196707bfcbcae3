// Package agent defines the domain-agent contract consumed by the
// orchestrator and the registry that creates agent instances by name.
//
// A concrete agent wraps either deterministic heuristics or an LLM call; the
// orchestration core depends only on the Handle call/return shape plus the
// failure contract: an agent returns an error on unrecoverable failure and
// must complete (or fail) within the coordinator's timeout.
package agent

import "context"

// Input is the loosely-typed payload an agent receives. Well-known keys:
// "query", "intent", "entities", "context", "session_id", "workflow_id".
type Input map[string]any

// Output is the loosely-typed payload an agent returns. The synthesizer
// understands "response"/"answer", "recommendations", "warnings" and
// "insights" keys; all are optional.
type Output map[string]any

// Agent is the single capability every domain agent exposes.
type Agent interface {
	// Name returns the agent's registry key.
	Name() string

	// Handle processes one advisory request. Implementations must honor ctx
	// cancellation and return an error rather than panic on failure.
	Handle(ctx context.Context, input Input) (Output, error)
}

// Strings extracts a []string from an output value, tolerating both
// []string and []any encodings (the latter appears after JSON round-trips).
func (o Output) Strings(key string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Text returns the agent's primary prose output, checking the keys the
// synthesizer accepts in order.
func (o Output) Text() string {
	for _, key := range []string{"response", "answer", "message"} {
		if s, ok := o[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Query returns the raw query text from an input, if present.
func (in Input) Query() string {
	if s, ok := in["query"].(string); ok {
		return s
	}
	return ""
}
