package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/helix/pkg/domain"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "helix"

// Metrics holds the Prometheus collectors of one orchestrator process.
// Collectors live in a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	SessionState       *prometheus.GaugeVec
	SessionTransitions *prometheus.CounterVec
	Handshakes         *prometheus.CounterVec
	RealtimeEvents     *prometheus.CounterVec
	ToolCalls          *prometheus.CounterVec
	ToolDuration       *prometheus.HistogramVec
	Refreshes          *prometheus.CounterVec
	RefreshDuration    *prometheus.HistogramVec
	HTTPRequests       *prometheus.CounterVec
}

var states = []domain.SessionState{
	domain.StateIdle, domain.StateConnecting, domain.StateConnected, domain.StateDisconnecting, domain.StateError,
}

// NewMetrics creates and registers all collectors.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SessionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "1 for the current session controller state, 0 otherwise",
		}, []string{"state"}),
		SessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session controller transitions",
		}, []string{"from", "to"}),
		Handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_handshakes_total",
			Help:      "Realtime handshakes by outcome",
		}, []string{"outcome"}),
		RealtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_total",
			Help:      "Realtime protocol events by direction and type",
		}, []string{"direction", "type"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool dispatches by tool and outcome (ok or error kind)",
		}, []string{"tool", "outcome"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Duration of tool dispatches",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"tool"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_refreshes_total",
			Help:      "Cache collection refreshes by outcome",
		}, []string{"collection", "outcome"}),
		RefreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_refresh_duration_seconds",
			Help:      "Duration of cache collection refreshes",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"collection"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests served by the local HTTP surface",
		}, []string{"route", "method", "status"}),
	}

	registry.MustRegister(
		m.SessionState,
		m.SessionTransitions,
		m.Handshakes,
		m.RealtimeEvents,
		m.ToolCalls,
		m.ToolDuration,
		m.Refreshes,
		m.RefreshDuration,
		m.HTTPRequests,
	)
	m.setState(domain.StateIdle)
	return m
}

// Registry exposes the private registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e *domain.StateEvent) { m.RecordTransition(e.From, e.To) },
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			outcome := "ok"
			if e.IsError {
				outcome = string(e.Kind)
			}
			m.RecordTool(e.ToolName, outcome, e.Duration)
		},
		OnRefresh: func(_ context.Context, e *domain.RefreshEvent) { m.RecordRefresh(e.Collection, e.Err, e.Duration) },
	}
}

// RecordTransition counts a transition and moves the state gauge.
func (m *Metrics) RecordTransition(from, to domain.SessionState) {
	m.SessionTransitions.WithLabelValues(string(from), string(to)).Inc()
	m.setState(to)
}

func (m *Metrics) setState(current domain.SessionState) {
	for _, s := range states {
		v := 0.0
		if s == current {
			v = 1
		}
		m.SessionState.WithLabelValues(string(s)).Set(v)
	}
}

// RecordTool records one finished dispatch.
func (m *Metrics) RecordTool(tool, outcome string, d time.Duration) {
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordRefresh records one collection refresh.
func (m *Metrics) RecordRefresh(c domain.Collection, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Refreshes.WithLabelValues(string(c), outcome).Inc()
	m.RefreshDuration.WithLabelValues(string(c)).Observe(d.Seconds())
}

// RealtimeEvent counts one protocol event. It satisfies the realtime adapter's recorder.
func (m *Metrics) RealtimeEvent(direction, eventType string) {
	m.RealtimeEvents.WithLabelValues(direction, eventType).Inc()
}

// Handshake counts one handshake outcome.
func (m *Metrics) Handshake(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failure"
	}
	m.Handshakes.WithLabelValues(outcome).Inc()
}

// RecordHTTP counts one request served by the local HTTP surface.
func (m *Metrics) RecordHTTP(route, method string, status int) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}
