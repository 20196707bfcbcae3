// Package metrics exports orchestration metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter owns the Prometheus registry and the collectors the
// orchestration pipeline reports into.
type Exporter struct {
	registry *prometheus.Registry

	queryLatency *prometheus.HistogramVec
	queryTotal   *prometheus.CounterVec

	agentLatency *prometheus.HistogramVec
	agentTotal   *prometheus.CounterVec

	workflowTotal *prometheus.CounterVec

	cacheEvents *prometheus.CounterVec

	llmRequests *prometheus.CounterVec
}

// Config configures the exporter.
type Config struct {
	// Registry to register into; nil creates a private one.
	Registry *prometheus.Registry

	// LatencyBuckets for query and agent histograms, in seconds.
	LatencyBuckets []float64
}

// DefaultConfig returns default buckets spanning fast heuristics to slow
// LLM round-trips.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewExporter creates the exporter and registers all collectors.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.queryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agrisense",
			Subsystem: "orchestrator",
			Name:      "query_latency_seconds",
			Help:      "End-to-end query processing latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"intent"},
	)

	e.queryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrisense",
			Subsystem: "orchestrator",
			Name:      "queries_total",
			Help:      "Total number of processed queries",
		},
		[]string{"intent", "status"},
	)

	e.agentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agrisense",
			Subsystem: "orchestrator",
			Name:      "agent_latency_seconds",
			Help:      "Per-agent execution latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"agent"},
	)

	e.agentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrisense",
			Subsystem: "orchestrator",
			Name:      "agent_executions_total",
			Help:      "Total number of agent executions",
		},
		[]string{"agent", "status"},
	)

	e.workflowTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrisense",
			Subsystem: "orchestrator",
			Name:      "workflows_total",
			Help:      "Total number of graph-path workflow executions",
		},
		[]string{"intent", "status"},
	)

	e.cacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrisense",
			Subsystem: "orchestrator",
			Name:      "routing_cache_events_total",
			Help:      "Routing cache hits and misses",
		},
		[]string{"event"},
	)

	e.llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrisense",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total LLM requests by task and status",
		},
		[]string{"task", "status"},
	)

	registry.MustRegister(
		e.queryLatency, e.queryTotal,
		e.agentLatency, e.agentTotal,
		e.workflowTotal, e.cacheEvents, e.llmRequests,
	)
	return e
}

// Handler serves the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ObserveQuery records one completed query.
func (e *Exporter) ObserveQuery(intent string, duration time.Duration, success bool) {
	e.queryLatency.WithLabelValues(intent).Observe(duration.Seconds())
	e.queryTotal.WithLabelValues(intent, statusLabel(success)).Inc()
}

// ObserveAgentExecution records one agent invocation.
func (e *Exporter) ObserveAgentExecution(agentName string, duration time.Duration, success bool) {
	e.agentLatency.WithLabelValues(agentName).Observe(duration.Seconds())
	e.agentTotal.WithLabelValues(agentName, statusLabel(success)).Inc()
}

// ObserveWorkflow records one graph-path workflow execution.
func (e *Exporter) ObserveWorkflow(intent string, success bool) {
	e.workflowTotal.WithLabelValues(intent, statusLabel(success)).Inc()
}

// ObserveCache records a routing cache hit or miss.
func (e *Exporter) ObserveCache(hit bool) {
	if hit {
		e.cacheEvents.WithLabelValues("hit").Inc()
	} else {
		e.cacheEvents.WithLabelValues("miss").Inc()
	}
}

// ObserveLLMRequest records one LLM call by task kind.
func (e *Exporter) ObserveLLMRequest(task string, success bool) {
	e.llmRequests.WithLabelValues(task, statusLabel(success)).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
