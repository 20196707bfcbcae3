package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/agrisense/agrisense/agent"
	"github.com/agrisense/agrisense/cache"
	"github.com/agrisense/agrisense/core/llm"
	"github.com/agrisense/agrisense/session"
	"github.com/agrisense/agrisense/workflow"
)

// Metrics is the full observation surface the orchestrator reports into.
type Metrics interface {
	ExecMetrics
	LLMMetrics
	ObserveQuery(intent string, duration time.Duration, success bool)
	ObserveWorkflow(intent string, success bool)
	ObserveCache(hit bool)
}

type nopMetrics struct {
	nopExecMetrics
	nopLLMMetrics
}

func (nopMetrics) ObserveQuery(string, time.Duration, bool) {}
func (nopMetrics) ObserveWorkflow(string, bool)             {}
func (nopMetrics) ObserveCache(bool)                        {}

// Orchestrator is the top of the pipeline: classify, select, execute,
// synthesize, with conversation state folded in at both ends. All state is
// constructor-injected; the orchestrator itself is safe for concurrent
// requests.
type Orchestrator struct {
	config      *Config
	classifier  *Classifier
	selector    *Selector
	coordinator *Coordinator
	synthesizer *Synthesizer
	engine      *workflow.Engine
	sessions    *session.Manager
	registry    *agent.Registry
	routeCache  *cache.LRU[string, []string]
	metrics     Metrics
	logger      *slog.Logger
}

// New wires the pipeline. svc and metrics may be nil; a nil svc disables
// the LLM selection strategy and LLM synthesis.
func New(registry *agent.Registry, svc llm.Service, sessions *session.Manager, logger *slog.Logger, m Metrics, opts ...Option) *Orchestrator {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	if m == nil {
		m = nopMetrics{}
	}

	return &Orchestrator{
		config:      config,
		classifier:  NewClassifier(logger),
		selector:    NewSelector(registry, svc, config, logger, m),
		coordinator: NewCoordinator(registry, config, logger, m),
		synthesizer: NewSynthesizer(svc, config, logger, m),
		engine: workflow.NewEngine(registry, workflow.Config{
			MaxParallelTasks: config.MaxParallelTasks,
			TaskTimeout:      config.AgentTimeout,
		}, logger),
		sessions:   sessions,
		registry:   registry,
		routeCache: cache.NewLRU[string, []string](512, 10*time.Minute),
		metrics:    m,
		logger:     logger,
	}
}

// Engine exposes the workflow engine for status inspection.
func (o *Orchestrator) Engine() *workflow.Engine { return o.engine }

// Process handles one query end to end. It never returns an error for
// per-agent or synthesis problems; the Result carries partial failures in
// its per-agent detail.
func (o *Orchestrator) Process(ctx context.Context, q Query) *Result {
	return o.process(ctx, q, nil)
}

// ProcessStream handles one query while emitting incremental events. The
// channel closes after a terminal complete or error event.
func (o *Orchestrator) ProcessStream(ctx context.Context, q Query) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		emit := func(ev Event) {
			ev.Timestamp = time.Now()
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}
		result := o.process(ctx, q, emit)
		emit(Event{Type: EventAnswer, TraceID: result.TraceID, Result: result})
		if result.Success {
			emit(Event{Type: EventComplete, TraceID: result.TraceID})
		} else {
			emit(Event{Type: EventError, TraceID: result.TraceID, Error: result.NaturalLanguage})
		}
	}()
	return events
}

func (o *Orchestrator) process(ctx context.Context, q Query, emit func(Event)) *Result {
	start := time.Now()
	traceID := shortuuid.New()
	logger := o.logger.With("trace_id", traceID)

	logger.Info("orchestrator: processing query",
		"query_preview", preview(q.Text, 100),
		"session_id", q.SessionID)

	if emit != nil {
		emit(Event{Type: EventStart, TraceID: traceID})
	}

	sess := o.sessions.GetOrCreate(ctx, q.SessionID)
	reqContext := o.enrichContext(q, sess)

	// Small talk short-circuits the pipeline entirely.
	if IsGeneralConversation(q.Text, len(sess.History)) {
		return o.finishGeneralChat(ctx, q, sess, traceID, start, reqContext)
	}

	intent := o.classifier.Classify(q.Text)
	o.persistFarmAttributes(sess, intent.Entities)

	var responses []AgentResponse
	var answer SynthesizedAnswer
	workflowFailed := ""

	if useWorkflow(reqContext) && workflow.HasTemplate(string(intent.Intent)) {
		responses, workflowFailed = o.runWorkflow(ctx, q, sess, intent, reqContext, emit, traceID)
	} else {
		responses = o.runFlat(ctx, q, sess, intent, reqContext, emit, traceID)
	}

	if workflowFailed != "" {
		answer = SynthesizedAnswer{
			Answer:          fmt.Sprintf("I couldn't complete the full analysis for your request: %s. Please try again.", workflowFailed),
			Recommendations: []string{},
			Warnings:        []string{},
			Insights:        []string{},
		}
	} else {
		answer = o.synthesizer.Synthesize(ctx, q.Text, responses, reqContext)
	}

	natural := FormatNaturalLanguage(answer, conversationalFromContext(reqContext))
	success := workflowFailed == ""

	result := &Result{
		Query:           q.Text,
		Success:         success,
		Answer:          answer,
		NaturalLanguage: natural,
		AgentResponses:  responses,
		Intent:          intent,
		SessionID:       sess.ID,
		TraceID:         traceID,
		ExecutionTime:   time.Since(start).Seconds(),
	}

	o.sessions.RecordExchange(ctx, sess, q.Text, natural)
	o.metrics.ObserveQuery(string(intent.Intent), time.Since(start), success)

	logger.Info("orchestrator: query completed",
		"intent", string(intent.Intent),
		"agents", len(responses),
		"success", success,
		"duration_ms", time.Since(start).Milliseconds())
	return result
}

// runFlat is the default path: strategy-chain selection then concurrent
// isolated execution.
func (o *Orchestrator) runFlat(ctx context.Context, q Query, sess *session.Session, intent IntentResult, reqContext map[string]any, emit func(Event), traceID string) []AgentResponse {
	selected := o.selectAgents(ctx, q.Text, reqContext, sess)
	if emit != nil {
		emit(Event{Type: EventAgentsSelected, TraceID: traceID, Agents: selected})
	}

	input := o.buildInput(q, intent, reqContext, sess)
	var onResult func(AgentResponse)
	if emit != nil {
		onResult = func(r AgentResponse) {
			resp := r
			emit(Event{Type: EventAgentResult, TraceID: traceID, Agent: &resp})
		}
	}
	return o.coordinator.ExecuteFunc(ctx, selected, input, onResult)
}

// runWorkflow is the graph path: the intent's template runs in dependency
// order and any task failure fails the request.
func (o *Orchestrator) runWorkflow(ctx context.Context, q Query, sess *session.Session, intent IntentResult, reqContext map[string]any, emit func(Event), traceID string) ([]AgentResponse, string) {
	wf, err := o.engine.Create(string(intent.Intent), o.buildInput(q, intent, reqContext, sess))
	if err != nil {
		o.logger.Warn("orchestrator: workflow build failed, using flat path", "error", err)
		return o.runFlat(ctx, q, sess, intent, reqContext, emit, traceID), ""
	}
	sess.TrackWorkflow(wf.ID)

	if emit != nil {
		emit(Event{Type: EventAgentsSelected, TraceID: traceID, Agents: workflow.TemplateAgents(string(intent.Intent))})
	}

	wfResult := o.engine.Execute(ctx, wf)
	o.metrics.ObserveWorkflow(string(intent.Intent), wfResult.Success)

	agentOutputs, _ := wfResult.Output["agent_outputs"].(map[string]any)
	responses := make([]AgentResponse, 0, len(wfResult.Tasks))
	for _, snap := range wfResult.Tasks {
		resp := AgentResponse{
			AgentName:     snap.Agent,
			Success:       snap.Status == workflow.StatusCompleted,
			Error:         snap.Error,
			ExecutionTime: snap.ExecutionTime,
		}
		if resp.Success {
			if out, ok := agentOutputs[snap.Agent].(agent.Output); ok {
				resp.Data = out
			}
		}
		responses = append(responses, resp)
		if emit != nil {
			r := resp
			emit(Event{Type: EventAgentResult, TraceID: traceID, Agent: &r})
		}
	}

	if !wfResult.Success {
		return responses, wfResult.Error
	}
	return responses, ""
}

// selectAgents resolves routing with a short-lived cache in front of the
// strategy chain. Only cacheable requests (no explicit strategy, no
// payload) consult the cache.
func (o *Orchestrator) selectAgents(ctx context.Context, query string, reqContext map[string]any, sess *session.Session) []string {
	cacheable := strategyFromContext(reqContext) == "" &&
		!hasRoutingPayload(reqContext) &&
		len(sess.History) == 0

	if cacheable {
		if cached, ok := o.routeCache.Get(query); ok {
			o.metrics.ObserveCache(true)
			return cached
		}
		o.metrics.ObserveCache(false)
	}

	selected := o.selector.Select(ctx, query, reqContext, historyTurns(sess, o.config.HistoryTurns))
	if cacheable {
		o.routeCache.Set(query, selected, 0)
	}
	return selected
}

func (o *Orchestrator) finishGeneralChat(ctx context.Context, q Query, sess *session.Session, traceID string, start time.Time, reqContext map[string]any) *Result {
	input := agent.Input{"query": q.Text, "context": reqContext, "session_id": sess.ID}
	responses := o.coordinator.Execute(ctx, []string{agent.GeneralChatName}, input)
	answer := o.synthesizer.Synthesize(ctx, q.Text, responses, reqContext)

	result := &Result{
		Query:           q.Text,
		Success:         true,
		Answer:          answer,
		NaturalLanguage: answer.Answer,
		AgentResponses:  responses,
		Intent: IntentResult{
			Intent:     IntentGeneralConversation,
			Confidence: 1.0,
			Query:      q.Text,
			Language:   DetectLanguage(q.Text),
		},
		SessionID:     sess.ID,
		TraceID:       traceID,
		ExecutionTime: time.Since(start).Seconds(),
	}

	o.sessions.RecordExchange(ctx, sess, q.Text, answer.Answer)
	o.metrics.ObserveQuery(string(IntentGeneralConversation), time.Since(start), true)
	return result
}

// enrichContext overlays the session's farm attributes under farm_profile
// without mutating the caller's map.
func (o *Orchestrator) enrichContext(q Query, sess *session.Session) map[string]any {
	reqContext := make(map[string]any, len(q.Context)+1)
	for k, v := range q.Context {
		reqContext[k] = v
	}
	if len(sess.FarmAttributes) > 0 {
		reqContext["farm_profile"] = sess.FarmAttributes
	}
	return reqContext
}

// persistFarmAttributes folds durable entities (location, crop, acreage)
// into the session so later turns can route without restating them.
func (o *Orchestrator) persistFarmAttributes(sess *session.Session, entities map[string]any) {
	attrs := make(map[string]any)
	if loc, ok := entities["location"].(string); ok && loc != "" {
		attrs["farm_location"] = loc
	}
	if crop, ok := entities["crop"].(string); ok && crop != "" {
		attrs["current_crop"] = crop
	}
	if m, ok := entities["measurement"].(map[string]any); ok {
		if unit, _ := m["unit"].(string); unit == "acre" || unit == "hectare" || unit == "ha" {
			attrs["farm_size"] = m["value"]
			attrs["farm_size_unit"] = unit
		}
	}
	sess.MergeAttributes(attrs)
}

func (o *Orchestrator) buildInput(q Query, intent IntentResult, reqContext map[string]any, sess *session.Session) agent.Input {
	return agent.Input{
		"query":      q.Text,
		"intent":     string(intent.Intent),
		"entities":   intent.Entities,
		"context":    reqContext,
		"session_id": sess.ID,
	}
}

func useWorkflow(reqContext map[string]any) bool {
	v, _ := reqContext["use_workflow"].(bool)
	return v
}

func historyTurns(sess *session.Session, max int) []ChatTurn {
	history := sess.History
	if max > 0 && len(history) > max {
		history = history[len(history)-max:]
	}
	turns := make([]ChatTurn, len(history))
	for i, t := range history {
		turns[i] = ChatTurn{Role: t.Role, Content: t.Content}
	}
	return turns
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
