package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisense/agrisense/agent"
)

func newTestCoordinator(reg *agent.Registry, opts ...Option) *Coordinator {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return NewCoordinator(reg, config, testLogger(), nil)
}

func TestExecuteAllSucceed(t *testing.T) {
	reg := newStubRegistry(
		namedStub("weather_watcher", agent.Output{"temperature": 31.0}),
		namedStub("soil_health", nil),
	)
	c := newTestCoordinator(reg)

	got := c.Execute(context.Background(), []string{"weather_watcher", "soil_health"}, agent.Input{"query": "q"})
	require.Len(t, got, 2)

	// Responses come back in request order regardless of completion order.
	assert.Equal(t, "weather_watcher", got[0].AgentName)
	assert.Equal(t, "soil_health", got[1].AgentName)
	for _, r := range got {
		assert.True(t, r.Success)
		assert.Empty(t, r.Error)
		assert.GreaterOrEqual(t, r.ExecutionTime, 0.0)
	}
	assert.Equal(t, 31.0, got[0].Data["temperature"])
}

// One agent failing never disturbs the others' results.
func TestExecutePartialFailure(t *testing.T) {
	reg := newStubRegistry(
		namedStub("crop_selector", nil),
		&stubAgent{name: "market_intelligence", err: errors.New("upstream api down")},
		namedStub("farmer_coach", nil),
	)
	c := newTestCoordinator(reg)

	got := c.Execute(context.Background(), []string{"crop_selector", "market_intelligence", "farmer_coach"}, agent.Input{})
	require.Len(t, got, 3)

	assert.True(t, got[0].Success)
	assert.False(t, got[1].Success)
	assert.Contains(t, got[1].Error, "upstream api down")
	assert.True(t, got[2].Success)
}

func TestExecuteUnknownAgent(t *testing.T) {
	reg := newStubRegistry(namedStub("crop_selector", nil))
	c := newTestCoordinator(reg)

	got := c.Execute(context.Background(), []string{"crop_selector", "ghost_agent"}, agent.Input{})
	require.Len(t, got, 2)
	assert.True(t, got[0].Success)
	assert.False(t, got[1].Success)
	assert.NotEmpty(t, got[1].Error)
}

// A slow agent hits its own deadline; fast agents in the same batch finish
// normally.
func TestExecuteTimeoutIsolation(t *testing.T) {
	reg := newStubRegistry(
		&stubAgent{name: "slow", delay: 2 * time.Second, output: agent.Output{}},
		namedStub("fast", nil),
	)
	c := newTestCoordinator(reg, WithAgentTimeout(50*time.Millisecond))

	start := time.Now()
	got := c.Execute(context.Background(), []string{"slow", "fast"}, agent.Input{})
	elapsed := time.Since(start)

	require.Len(t, got, 2)
	assert.False(t, got[0].Success)
	assert.Contains(t, got[0].Error, "timed out")
	assert.True(t, got[1].Success)
	assert.Less(t, elapsed, time.Second)
}

func TestExecutePanicIsolation(t *testing.T) {
	reg := newStubRegistry(
		&stubAgent{name: "panicky", panics: true},
		namedStub("steady", nil),
	)
	c := newTestCoordinator(reg)

	got := c.Execute(context.Background(), []string{"panicky", "steady"}, agent.Input{})
	require.Len(t, got, 2)
	assert.False(t, got[0].Success)
	assert.NotEmpty(t, got[0].Error)
	assert.True(t, got[1].Success)
}

func TestExecuteEmptySelection(t *testing.T) {
	c := newTestCoordinator(newStubRegistry())
	got := c.Execute(context.Background(), nil, agent.Input{})
	assert.Empty(t, got)
}

func TestExecuteFuncStreamsResults(t *testing.T) {
	reg := newStubRegistry(
		namedStub("crop_selector", nil),
		namedStub("soil_health", nil),
	)
	c := newTestCoordinator(reg)

	var mu sync.Mutex
	var streamed []string
	got := c.ExecuteFunc(context.Background(), []string{"crop_selector", "soil_health"}, agent.Input{}, func(r AgentResponse) {
		mu.Lock()
		streamed = append(streamed, r.AgentName)
		mu.Unlock()
	})

	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"crop_selector", "soil_health"}, streamed)
}

func TestExecuteContextCancelled(t *testing.T) {
	reg := newStubRegistry(&stubAgent{name: "slow", delay: 5 * time.Second, output: agent.Output{}})
	c := newTestCoordinator(reg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	got := c.Execute(ctx, []string{"slow"}, agent.Input{})
	require.Len(t, got, 1)
	assert.False(t, got[0].Success)
	assert.Less(t, time.Since(start), time.Second)
}
