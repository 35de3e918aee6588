// Package metrics defines the Prometheus collectors for the diagnostic
// engine. All collectors are registered with the default registry and
// exposed via the /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolExecutions counts tool calls by tool name and outcome.
	// Labels: tool, status (success, error)
	ToolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentry",
		Subsystem: "tools",
		Name:      "executions_total",
		Help:      "Total tool executions by tool and status",
	}, []string{"tool", "status"})

	// ToolDuration measures individual tool execution latency.
	// Labels: tool
	ToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sentry",
		Subsystem: "tools",
		Name:      "duration_seconds",
		Help:      "Tool execution latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"tool"})

	// InferenceRequests counts model calls by provider and outcome.
	// Labels: provider, status (success, error)
	InferenceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentry",
		Subsystem: "inference",
		Name:      "requests_total",
		Help:      "Total inference requests by provider and status",
	}, []string{"provider", "status"})

	// InferenceDuration measures model call latency.
	// Labels: provider
	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sentry",
		Subsystem: "inference",
		Name:      "duration_seconds",
		Help:      "Inference request latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"provider"})

	// LoopIterations tracks how many model round trips each diagnostic
	// run needed before completing.
	LoopIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sentry",
		Subsystem: "agent",
		Name:      "loop_iterations",
		Help:      "Model round trips per diagnostic run",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10, 15},
	})

	// RunsCompleted counts diagnostic runs by terminal state.
	// Labels: outcome (completed, failed)
	RunsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentry",
		Subsystem: "agent",
		Name:      "runs_total",
		Help:      "Total diagnostic runs by terminal state",
	}, []string{"outcome"})

	// ProcedureMatches counts matching engine resolutions by procedure
	// key, fallback hits included.
	// Labels: procedure
	ProcedureMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentry",
		Subsystem: "sop",
		Name:      "matches_total",
		Help:      "Total procedure matches by procedure key",
	}, []string{"procedure"})
)

// ObserveToolExecution records one tool call outcome with its latency.
func ObserveToolExecution(tool string, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ToolExecutions.WithLabelValues(tool, status).Inc()
	ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveInference records one model call outcome with its latency.
func ObserveInference(provider string, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	InferenceRequests.WithLabelValues(provider, status).Inc()
	InferenceDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}
