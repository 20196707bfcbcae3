package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/agrisense/agrisense/agent"
	"github.com/agrisense/agrisense/core/llm"
)

func testLogger() *slog.Logger { return slog.Default() }

// recordingLLMMetrics captures ObserveLLMRequest calls for assertion.
type recordingLLMMetrics struct {
	mu    sync.Mutex
	tasks []string
	ok    []bool
}

func (m *recordingLLMMetrics) ObserveLLMRequest(task string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	m.ok = append(m.ok, success)
}

// fakeLLM returns canned responses in order and records prompts for
// assertion. A nil responses slice means every call errors.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	calls     int
	lastMsgs  []llm.Message
	err       error
}

func (f *fakeLLM) Chat(_ context.Context, msgs []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMsgs = msgs
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no canned response")
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *fakeLLM) ChatStream(ctx context.Context, msgs []llm.Message) (<-chan string, <-chan error) {
	chunks := make(chan string, 1)
	errs := make(chan error, 1)
	resp, err := f.Chat(ctx, msgs)
	if err != nil {
		errs <- err
	} else {
		chunks <- resp
	}
	close(chunks)
	close(errs)
	return chunks, errs
}

// stubAgent returns a fixed output or error, optionally after a delay.
type stubAgent struct {
	name   string
	output agent.Output
	err    error
	delay  time.Duration
	panics bool
}

func (a *stubAgent) Name() string { return a.name }

func (a *stubAgent) Handle(ctx context.Context, _ agent.Input) (agent.Output, error) {
	if a.panics {
		panic("stub agent panic")
	}
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.output, nil
}

// newStubRegistry registers stub agents, each answering with a response
// string naming itself plus any extra output fields.
func newStubRegistry(agents ...agent.Agent) *agent.Registry {
	reg := agent.NewRegistry()
	for _, a := range agents {
		if err := reg.Register(a); err != nil {
			panic(err)
		}
	}
	return reg
}

func namedStub(name string, extra agent.Output) *stubAgent {
	out := agent.Output{"response": name + " advice"}
	for k, v := range extra {
		out[k] = v
	}
	return &stubAgent{name: name, output: out}
}
