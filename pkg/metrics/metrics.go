// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SessionsActive tracks sessions held by the registry.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_sessions_active",
			Help: "Number of sessions in the registry",
		},
	)

	// ConnectionsActive tracks live WebSocket connections.
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_ws_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	// ActionsTotal tracks inbound client actions by name and result.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_actions_total",
			Help: "Total inbound client actions",
		},
		[]string{"action", "status"},
	)

	// SpinStepsTotal tracks turn engine steps driven by the spin loop.
	SpinStepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_spin_steps_total",
			Help: "Total turn engine steps executed",
		},
	)

	// SpinBudgetExhaustedTotal tracks spins stopped by the tool-call cap.
	SpinBudgetExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_spin_budget_exhausted_total",
			Help: "Spin loops force-terminated by the tool-call budget",
		},
	)

	// ToolExecutionsTotal tracks tool dispatches by tool and outcome.
	ToolExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_tool_executions_total",
			Help: "Total tool executions",
		},
		[]string{"tool", "status"},
	)

	// LLMCompletionsTotal tracks provider completions by model.
	LLMCompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_llm_completions_total",
			Help: "Total LLM completions",
		},
		[]string{"model"},
	)

	// LLMTokensTotal tracks total LLM tokens billed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_llm_tokens_total",
			Help: "Total LLM tokens billed",
		},
		[]string{"model", "direction"},
	)

	// ArchivePublishesTotal tracks JetStream archive publishes by status.
	ArchivePublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_archive_publishes_total",
			Help: "Total conversation archive publishes",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCompletion records metrics for one LLM completion.
func RecordCompletion(model string, tokensIn, tokensOut int) {
	LLMCompletionsTotal.WithLabelValues(model).Inc()
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// IncrementConnections increments the active connection count.
func IncrementConnections() {
	ConnectionsActive.Inc()
}

// DecrementConnections decrements the active connection count.
func DecrementConnections() {
	ConnectionsActive.Dec()
}
