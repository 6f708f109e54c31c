package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus collectors for confship. All values are measured
// from real work; nothing here is synthesized.
type Metrics struct {
	registry             *prometheus.Registry
	deploymentsTotal     *prometheus.CounterVec
	deploymentDuration   prometheus.Histogram
	stepDurationSeconds  *prometheus.HistogramVec
	gatewayAttemptsTotal *prometheus.CounterVec
	connectionHealthy    *prometheus.GaugeVec
	rollbacksTotal       *prometheus.CounterVec
	reconnectsTotal      *prometheus.CounterVec
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		deploymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "confship_deployments_total",
			Help: "Total deployments by terminal status.",
		}, []string{"status"}),
		deploymentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "confship_deployment_duration_seconds",
			Help:    "Duration of completed deployments in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "confship_step_duration_seconds",
			Help:    "Duration of saga steps in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		gatewayAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "confship_gateway_attempts_total",
			Help: "Gateway invocation attempts by subsystem and outcome.",
		}, []string{"subsystem", "outcome"}),
		connectionHealthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "confship_connection_healthy",
			Help: "1 when the subsystem connection is healthy, 0 otherwise.",
		}, []string{"subsystem"}),
		rollbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "confship_rollbacks_total",
			Help: "Rollback attempts by outcome.",
		}, []string{"outcome"}),
		reconnectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "confship_reconnects_total",
			Help: "Health-monitor reconnection attempts by subsystem and outcome.",
		}, []string{"subsystem", "outcome"}),
	}

	registry.MustRegister(
		m.deploymentsTotal,
		m.deploymentDuration,
		m.stepDurationSeconds,
		m.gatewayAttemptsTotal,
		m.connectionHealthy,
		m.rollbacksTotal,
		m.reconnectsTotal,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDeployment records a terminal deployment and its duration.
func (m *Metrics) ObserveDeployment(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.deploymentsTotal.WithLabelValues(status).Inc()
	m.deploymentDuration.Observe(duration.Seconds())
}

// ObserveStep records the duration of a completed or failed saga step.
func (m *Metrics) ObserveStep(step string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stepDurationSeconds.WithLabelValues(step).Observe(duration.Seconds())
}

// IncGatewayAttempt records one gateway invocation attempt.
func (m *Metrics) IncGatewayAttempt(subsystem, outcome string) {
	if m == nil {
		return
	}
	m.gatewayAttemptsTotal.WithLabelValues(subsystem, outcome).Inc()
}

// SetConnectionHealthy updates the health gauge for a subsystem.
func (m *Metrics) SetConnectionHealthy(subsystem string, healthy bool) {
	if m == nil {
		return
	}
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.connectionHealthy.WithLabelValues(subsystem).Set(value)
}

// IncRollback records one rollback attempt outcome ("success" or "failure").
func (m *Metrics) IncRollback(outcome string) {
	if m == nil {
		return
	}
	m.rollbacksTotal.WithLabelValues(outcome).Inc()
}

// IncReconnect records one health-monitor reconnection outcome.
func (m *Metrics) IncReconnect(subsystem, outcome string) {
	if m == nil {
		return
	}
	m.reconnectsTotal.WithLabelValues(subsystem, outcome).Inc()
}
