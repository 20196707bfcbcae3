package orchestrator

import "time"

// EventType tags a streaming pipeline event.
type EventType string

const (
	// EventStart opens the stream once routing begins.
	EventStart EventType = "start"

	// EventAgentsSelected reports which agents will run.
	EventAgentsSelected EventType = "agents_selected"

	// EventAgentResult carries one agent's outcome as it completes.
	EventAgentResult EventType = "agent_result"

	// EventAnswer carries the final synthesized result.
	EventAnswer EventType = "answer"

	// EventComplete closes a successful stream.
	EventComplete EventType = "complete"

	// EventError terminates the stream; no further events follow.
	EventError EventType = "error"
)

// Event is one incremental update on the streaming path. Exactly one of the
// payload fields is set depending on Type.
type Event struct {
	Type      EventType      `json:"type"`
	TraceID   string         `json:"trace_id"`
	Timestamp time.Time      `json:"timestamp"`
	Agents    []string       `json:"agents,omitempty"`
	Agent     *AgentResponse `json:"agent,omitempty"`
	Result    *Result        `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}
