// Package workflow executes agents as a dependency-ordered task graph.
// It serves intents whose agents must run in sequence, soil analysis before
// fertilizer advice for example. Unlike the flat execution path, the graph
// path is all-or-nothing: one failed task fails the whole workflow because
// dependents cannot safely run on a failed predecessor's output.
package workflow

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/agrisense/agrisense/agent"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// IsTerminal reports whether the task will not transition again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Priority orders tasks competing in the ready queue.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Task is one node of a workflow graph. Dependencies and dependents hold
// task ids. Mutable state is guarded so the scheduler's workers can report
// progress while status snapshots are taken.
type Task struct {
	ID           string
	AgentName    string
	Priority     Priority
	Dependencies []string
	Dependents   []string
	Input        agent.Input

	mu            sync.RWMutex
	status        Status
	output        agent.Output
	errMsg        string
	executionTime time.Duration
}

// NewTask creates a pending task.
func NewTask(id, agentName string, priority Priority, input agent.Input) *Task {
	return &Task{
		ID:        id,
		AgentName: agentName,
		Priority:  priority,
		Input:     input,
		status:    StatusPending,
	}
}

// Status returns the current status.
func (t *Task) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Output returns the task's result payload.
func (t *Task) Output() agent.Output {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.output
}

// Err returns the failure or skip reason, empty when none.
func (t *Task) Err() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.errMsg
}

// ExecutionTime returns how long the task ran.
func (t *Task) ExecutionTime() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.executionTime
}

// MarkRunning transitions PENDING to RUNNING.
func (t *Task) MarkRunning() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return errors.Errorf("workflow: task %s is %s, cannot start", t.ID, t.status)
	}
	t.status = StatusRunning
	return nil
}

// Complete transitions RUNNING to COMPLETED with the agent's output.
func (t *Task) Complete(output agent.Output, elapsed time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return errors.Errorf("workflow: task %s is %s, cannot complete", t.ID, t.status)
	}
	t.status = StatusCompleted
	t.output = output
	t.executionTime = elapsed
	return nil
}

// Fail transitions RUNNING to FAILED with a reason.
func (t *Task) Fail(reason string, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusFailed
	t.errMsg = reason
	t.executionTime = elapsed
}

// Skip marks a still-pending task as skipped.
func (t *Task) Skip(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusPending {
		t.status = StatusSkipped
		t.errMsg = reason
	}
}

// Snapshot is an immutable view of a task for status reporting.
type Snapshot struct {
	ID            string  `json:"id"`
	Agent         string  `json:"agent"`
	Status        Status  `json:"status"`
	Priority      string  `json:"priority"`
	ExecutionTime float64 `json:"execution_time,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Snapshot captures the task's current state.
func (t *Task) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		ID:            t.ID,
		Agent:         t.AgentName,
		Status:        t.status,
		Priority:      t.Priority.String(),
		ExecutionTime: t.executionTime.Seconds(),
		Error:         t.errMsg,
	}
}
