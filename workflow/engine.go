package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/agrisense/agrisense/agent"
)

// Config tunes graph execution.
type Config struct {
	// MaxParallelTasks bounds how many tasks run at once.
	MaxParallelTasks int

	// TaskTimeout bounds each individual task.
	TaskTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{MaxParallelTasks: 4, TaskTimeout: 30 * time.Second}
}

// Workflow is a built task graph awaiting or undergoing execution.
type Workflow struct {
	ID     string
	Intent string
	Tasks  map[string]*Task
	order  []string
}

// Result is the outcome of one workflow execution.
type Result struct {
	WorkflowID    string         `json:"workflow_id"`
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	Output        map[string]any `json:"output"`
	Tasks         []Snapshot     `json:"tasks"`
	ExecutionTime float64        `json:"execution_time"`
}

// StatusReport is a point-in-time view of a workflow for callers polling
// progress.
type StatusReport struct {
	WorkflowID   string         `json:"workflow_id"`
	Intent       string         `json:"intent"`
	StatusCounts map[Status]int `json:"status_counts"`
	TotalTasks   int            `json:"total_tasks"`
	Tasks        []Snapshot     `json:"tasks"`
}

// Engine builds workflows from per-intent templates and executes them in
// dependency order. Ready tasks are dispatched highest priority first; a
// semaphore bounds parallelism. One task failure fails the whole workflow
// and skips everything not yet started.
type Engine struct {
	registry *agent.Registry
	config   Config
	logger   *slog.Logger

	mu     sync.RWMutex
	active map[string]*Workflow
}

// NewEngine builds a workflow engine over the agent registry.
func NewEngine(registry *agent.Registry, config Config, logger *slog.Logger) *Engine {
	if config.MaxParallelTasks <= 0 {
		config.MaxParallelTasks = DefaultConfig().MaxParallelTasks
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = DefaultConfig().TaskTimeout
	}
	return &Engine{
		registry: registry,
		config:   config,
		logger:   logger,
		active:   make(map[string]*Workflow),
	}
}

// Create instantiates the workflow template for intent with each task
// receiving a copy of the shared input. Template steps whose agent is not
// registered are dropped along with edges to them.
func (e *Engine) Create(intent string, input agent.Input) (*Workflow, error) {
	steps, ok := templates[intent]
	if !ok {
		return nil, errors.Errorf("workflow: no template for intent %q", intent)
	}

	wf := &Workflow{
		ID:     fmt.Sprintf("workflow_%s_%s", intent, shortuuid.New()),
		Intent: intent,
		Tasks:  make(map[string]*Task),
	}

	agentToTask := make(map[string]string)
	for i, step := range steps {
		if !e.registry.Has(step.Agent) {
			e.logger.Warn("workflow: template agent not registered, dropping",
				"workflow_id", wf.ID, "agent", step.Agent)
			continue
		}
		taskID := fmt.Sprintf("%s_task_%d", wf.ID, i)
		taskInput := make(agent.Input, len(input))
		for k, v := range input {
			taskInput[k] = v
		}
		taskInput["workflow_id"] = wf.ID

		task := NewTask(taskID, step.Agent, step.Priority, taskInput)
		wf.Tasks[taskID] = task
		wf.order = append(wf.order, taskID)
		agentToTask[step.Agent] = taskID
	}
	if len(wf.Tasks) == 0 {
		return nil, errors.Errorf("workflow: template for %q has no registered agents", intent)
	}

	// Resolve agent-name dependencies to task ids and wire dependents.
	for _, step := range steps {
		taskID, ok := agentToTask[step.Agent]
		if !ok || wf.Tasks[taskID] == nil {
			continue
		}
		task := wf.Tasks[taskID]
		for _, depAgent := range step.DependsOn {
			depID, ok := agentToTask[depAgent]
			if !ok {
				continue
			}
			task.Dependencies = append(task.Dependencies, depID)
			wf.Tasks[depID].Dependents = append(wf.Tasks[depID].Dependents, taskID)
		}
	}

	e.mu.Lock()
	e.active[wf.ID] = wf
	e.mu.Unlock()

	e.logger.Info("workflow: created",
		"workflow_id", wf.ID, "intent", intent, "task_count", len(wf.Tasks))
	return wf, nil
}

type taskEvent struct {
	id     string
	failed bool
	errMsg string
}

// Execute runs the workflow to completion. The returned Result is never
// nil; scheduling problems such as dependency cycles surface as a failed
// result, not an error.
func (e *Engine) Execute(ctx context.Context, wf *Workflow) *Result {
	start := time.Now()

	inDegree := make(map[string]int, len(wf.Tasks))
	for id, task := range wf.Tasks {
		inDegree[id] = len(task.Dependencies)
	}

	events := make(chan taskEvent, len(wf.Tasks))
	sem := semaphore.NewWeighted(int64(e.config.MaxParallelTasks))
	var aborted atomic.Bool

	launched := make(map[string]bool, len(wf.Tasks))
	running := 0
	terminal := 0
	failReason := ""

	// Launch every ready task, highest priority first. The semaphore's FIFO
	// waiter order keeps actual execution close to priority order.
	dispatch := func() {
		var ready []*Task
		for _, id := range wf.order {
			if inDegree[id] == 0 && !launched[id] {
				ready = append(ready, wf.Tasks[id])
			}
		}
		sort.SliceStable(ready, func(i, j int) bool {
			return ready[i].Priority > ready[j].Priority
		})
		for _, task := range ready {
			launched[task.ID] = true
			running++
			go e.runTask(ctx, sem, &aborted, task, events)
		}
	}

	abort := func(reason string) {
		if failReason == "" {
			failReason = reason
		}
		aborted.Store(true)
		// Tasks never handed to a worker are skipped outright.
		for _, id := range wf.order {
			task := wf.Tasks[id]
			if !launched[id] && task.Status() == StatusPending {
				task.Skip(fmt.Sprintf("skipped due to workflow failure: %s", reason))
				launched[id] = true
				terminal++
			}
		}
	}

	dispatch()
	doneCh := ctx.Done()
	for terminal < len(wf.Tasks) {
		if running == 0 {
			// Nothing in flight and tasks remain: the graph has a cycle.
			abort(fmt.Sprintf("cycle detected or deadlock: %d/%d tasks completed", terminal, len(wf.Tasks)))
			continue
		}

		select {
		case <-doneCh:
			// In-flight workers unwind via their contexts; keep draining.
			abort(ctx.Err().Error())
			doneCh = nil
		case ev := <-events:
			running--
			terminal++
			if ev.failed {
				e.logger.Warn("workflow: task failed, aborting",
					"workflow_id", wf.ID, "task_id", ev.id, "error", ev.errMsg)
				abort(fmt.Sprintf("task %s failed: %s", ev.id, ev.errMsg))
				continue
			}
			if aborted.Load() {
				continue
			}
			for _, depID := range wf.Tasks[ev.id].Dependents {
				inDegree[depID]--
			}
			dispatch()
		}
	}

	elapsed := time.Since(start)
	result := &Result{
		WorkflowID:    wf.ID,
		Success:       failReason == "",
		Error:         failReason,
		Output:        e.collectOutput(wf),
		Tasks:         e.snapshots(wf),
		ExecutionTime: elapsed.Seconds(),
	}

	if result.Success {
		e.logger.Info("workflow: completed",
			"workflow_id", wf.ID, "duration_ms", elapsed.Milliseconds(), "task_count", len(wf.Tasks))
	} else {
		e.logger.Error("workflow: failed",
			"workflow_id", wf.ID, "duration_ms", elapsed.Milliseconds(), "error", failReason)
	}
	return result
}

func (e *Engine) runTask(ctx context.Context, sem *semaphore.Weighted, aborted *atomic.Bool, task *Task, events chan<- taskEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("workflow: panic in task", "task_id", task.ID, "panic", r)
			task.Fail(fmt.Sprintf("panic: %v", r), 0)
			events <- taskEvent{id: task.ID, failed: true, errMsg: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		task.Skip("canceled before start")
		events <- taskEvent{id: task.ID}
		return
	}
	defer sem.Release(1)

	if aborted.Load() {
		task.Skip("workflow aborted")
		events <- taskEvent{id: task.ID}
		return
	}
	if err := task.MarkRunning(); err != nil {
		events <- taskEvent{id: task.ID}
		return
	}

	start := time.Now()
	a, err := e.registry.Get(task.AgentName)
	if err != nil {
		task.Fail(err.Error(), time.Since(start))
		events <- taskEvent{id: task.ID, failed: true, errMsg: err.Error()}
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, e.config.TaskTimeout)
	defer cancel()

	out, err := a.Handle(taskCtx, task.Input)
	elapsed := time.Since(start)
	if err != nil {
		task.Fail(err.Error(), elapsed)
		events <- taskEvent{id: task.ID, failed: true, errMsg: err.Error()}
		return
	}

	if err := task.Complete(out, elapsed); err != nil {
		events <- taskEvent{id: task.ID, failed: true, errMsg: err.Error()}
		return
	}
	e.logger.Info("workflow: task completed",
		"task_id", task.ID, "agent", task.AgentName, "duration_ms", elapsed.Milliseconds())
	events <- taskEvent{id: task.ID}
}

// collectOutput aggregates completed task outputs the way the synthesizer
// expects: per-agent payloads plus merged recommendation/warning lists.
func (e *Engine) collectOutput(wf *Workflow) map[string]any {
	completed, failed := 0, 0
	agentOutputs := make(map[string]any)
	var recommendations, warnings []string

	for _, id := range wf.order {
		task := wf.Tasks[id]
		switch task.Status() {
		case StatusCompleted:
			completed++
			out := task.Output()
			agentOutputs[task.AgentName] = out
			recommendations = append(recommendations, out.Strings("recommendations")...)
			warnings = append(warnings, out.Strings("warnings")...)
		case StatusFailed:
			failed++
		}
	}

	return map[string]any{
		"workflow_summary": map[string]any{
			"total_tasks":     len(wf.Tasks),
			"completed_tasks": completed,
			"failed_tasks":    failed,
		},
		"agent_outputs":   agentOutputs,
		"recommendations": recommendations,
		"warnings":        warnings,
	}
}

func (e *Engine) snapshots(wf *Workflow) []Snapshot {
	out := make([]Snapshot, 0, len(wf.Tasks))
	for _, id := range wf.order {
		out = append(out, wf.Tasks[id].Snapshot())
	}
	return out
}

// Status reports a workflow's current task states, nil when unknown.
func (e *Engine) Status(workflowID string) *StatusReport {
	e.mu.RLock()
	wf, ok := e.active[workflowID]
	e.mu.RUnlock()
	if !ok {
		return nil
	}

	counts := make(map[Status]int)
	for _, task := range wf.Tasks {
		counts[task.Status()]++
	}
	return &StatusReport{
		WorkflowID:   wf.ID,
		Intent:       wf.Intent,
		StatusCounts: counts,
		TotalTasks:   len(wf.Tasks),
		Tasks:        e.snapshots(wf),
	}
}

// Cleanup drops a finished workflow from the active set.
func (e *Engine) Cleanup(workflowID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.active[workflowID]; ok {
		delete(e.active, workflowID)
		e.logger.Debug("workflow: cleaned up", "workflow_id", workflowID)
	}
}
