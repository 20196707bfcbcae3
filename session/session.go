// Package session owns per-farmer conversation state: a bounded rolling
// history of turns plus merged farm attributes. A session is keyed by its
// id, expires after an inactivity TTL, and is only ever read or written
// through the Manager.
package session

import "time"

// Default retention bounds.
const (
	DefaultTTL        = 24 * time.Hour
	DefaultMaxHistory = 50
)

// Turn is one conversation exchange entry. Role is "user" or "assistant".
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the conversation state for one farmer.
type Session struct {
	ID             string         `json:"id"`
	FarmAttributes map[string]any `json:"farm_attributes,omitempty"`
	History        []Turn         `json:"history,omitempty"`
	WorkflowIDs    []string       `json:"workflow_ids,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivity   time.Time      `json:"last_activity"`
}

// AppendTurn adds a turn and trims history to the newest max entries.
func (s *Session) AppendTurn(turn Turn, max int) {
	s.History = append(s.History, turn)
	if max > 0 && len(s.History) > max {
		s.History = s.History[len(s.History)-max:]
	}
	s.LastActivity = turn.Timestamp
}

// MergeAttributes overlays attrs onto the session's farm attributes.
func (s *Session) MergeAttributes(attrs map[string]any) {
	if len(attrs) == 0 {
		return
	}
	if s.FarmAttributes == nil {
		s.FarmAttributes = make(map[string]any, len(attrs))
	}
	for k, v := range attrs {
		s.FarmAttributes[k] = v
	}
}

// TrackWorkflow records a workflow id once.
func (s *Session) TrackWorkflow(workflowID string) {
	for _, id := range s.WorkflowIDs {
		if id == workflowID {
			return
		}
	}
	s.WorkflowIDs = append(s.WorkflowIDs, workflowID)
}

// Expired reports whether the session passed its inactivity TTL at now.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastActivity) > ttl
}
