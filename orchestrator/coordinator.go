package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agrisense/agrisense/agent"
)

// Coordinator executes a flat agent list concurrently. Every agent gets its
// own timeout and failure boundary: a panic, error, or timeout in one agent
// becomes a failed AgentResponse for that agent only and never aborts its
// siblings. The result always holds exactly one response per requested
// name, in request order.
type Coordinator struct {
	registry *agent.Registry
	config   *Config
	logger   *slog.Logger
	metrics  ExecMetrics
}

// ExecMetrics receives per-agent execution observations. Implementations
// must be safe for concurrent use.
type ExecMetrics interface {
	ObserveAgentExecution(agentName string, duration time.Duration, success bool)
}

type nopExecMetrics struct{}

func (nopExecMetrics) ObserveAgentExecution(string, time.Duration, bool) {}

// NewCoordinator builds an execution coordinator. metrics may be nil.
func NewCoordinator(registry *agent.Registry, config *Config, logger *slog.Logger, metrics ExecMetrics) *Coordinator {
	if metrics == nil {
		metrics = nopExecMetrics{}
	}
	return &Coordinator{registry: registry, config: config, logger: logger, metrics: metrics}
}

// Execute fans out to all named agents at once and joins the results. Total
// wall-clock time is bounded by the slowest agent, not the sum.
func (c *Coordinator) Execute(ctx context.Context, agentNames []string, input agent.Input) []AgentResponse {
	return c.ExecuteFunc(ctx, agentNames, input, nil)
}

// ExecuteFunc is Execute with a per-completion callback for streaming
// callers. onResult runs on worker goroutines as responses arrive, in no
// particular order; it must be safe for concurrent use.
func (c *Coordinator) ExecuteFunc(ctx context.Context, agentNames []string, input agent.Input, onResult func(AgentResponse)) []AgentResponse {
	responses := make([]AgentResponse, len(agentNames))

	var wg sync.WaitGroup
	for i, name := range agentNames {
		wg.Add(1)
		go func(idx int, agentName string) {
			defer wg.Done()
			resp := c.executeOne(ctx, agentName, input)
			responses[idx] = resp
			if onResult != nil {
				onResult(resp)
			}
		}(i, name)
	}
	wg.Wait()

	return responses
}

// executeOne runs a single agent under its own deadline and converts every
// failure mode, including panics, into a failed response.
func (c *Coordinator) executeOne(ctx context.Context, agentName string, input agent.Input) (resp AgentResponse) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("coordinator: panic in agent execution",
				"agent", agentName, "panic", r)
			resp = c.failed(agentName, fmt.Sprintf("panic: %v", r), start)
		}
	}()

	a, err := c.registry.Get(agentName)
	if err != nil {
		return c.failed(agentName, err.Error(), start)
	}

	execCtx, cancel := context.WithTimeout(ctx, c.config.AgentTimeout)
	defer cancel()

	type handleResult struct {
		out agent.Output
		err error
	}
	done := make(chan handleResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- handleResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := a.Handle(execCtx, input)
		done <- handleResult{out: out, err: err}
	}()

	select {
	case <-execCtx.Done():
		msg := fmt.Sprintf("agent %s execution timed out after %s", agentName, c.config.AgentTimeout)
		if ctx.Err() != nil {
			msg = fmt.Sprintf("agent %s canceled: %v", agentName, ctx.Err())
		}
		c.logger.Warn("coordinator: agent timed out", "agent", agentName, "timeout", c.config.AgentTimeout)
		return c.failed(agentName, msg, start)
	case result := <-done:
		elapsed := time.Since(start)
		if result.err != nil {
			c.logger.Error("coordinator: agent failed",
				"agent", agentName,
				"error", result.err,
				"duration_ms", elapsed.Milliseconds())
			c.metrics.ObserveAgentExecution(agentName, elapsed, false)
			return AgentResponse{
				AgentName:     agentName,
				Success:       false,
				Data:          agent.Output{},
				Error:         result.err.Error(),
				ExecutionTime: elapsed.Seconds(),
			}
		}
		c.logger.Info("coordinator: agent completed",
			"agent", agentName,
			"duration_ms", elapsed.Milliseconds())
		c.metrics.ObserveAgentExecution(agentName, elapsed, true)
		return AgentResponse{
			AgentName:     agentName,
			Success:       true,
			Data:          result.out,
			ExecutionTime: elapsed.Seconds(),
		}
	}
}

func (c *Coordinator) failed(agentName, errMsg string, start time.Time) AgentResponse {
	elapsed := time.Since(start)
	c.metrics.ObserveAgentExecution(agentName, elapsed, false)
	return AgentResponse{
		AgentName:     agentName,
		Success:       false,
		Data:          agent.Output{},
		Error:         errMsg,
		ExecutionTime: elapsed.Seconds(),
	}
}
