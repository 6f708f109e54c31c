package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultProbeInterval is how often each subsystem is probed.
	DefaultProbeInterval = 30 * time.Second

	// DefaultFailureThreshold is the consecutive-failure count that triggers
	// a reconnection attempt.
	DefaultFailureThreshold = 3

	defaultReconnectMaxElapsed = 20 * time.Second
)

// Ticker is the minimal interface needed for driving the monitor loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.ticker.C }
func (t timeTicker) Stop()               { t.ticker.Stop() }

// Monitor probes every gateway connection on a fixed interval, independent
// of user calls. After the failure threshold is reached it attempts one
// reconnection; outcomes are logged and counted, never raised to callers.
type Monitor struct {
	gateway             *Gateway
	logger              *slog.Logger
	interval            time.Duration
	threshold           int
	tickerFactory       func(time.Duration) Ticker
	reconnectMaxElapsed time.Duration
}

// MonitorOption customizes a Monitor.
type MonitorOption func(*Monitor)

// WithProbeInterval overrides the probe interval.
func WithProbeInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.interval = d }
}

// WithFailureThreshold overrides the reconnect threshold.
func WithFailureThreshold(n int) MonitorOption {
	return func(m *Monitor) { m.threshold = n }
}

// WithTickerFactory injects the ticker source (testing only).
func WithTickerFactory(factory func(time.Duration) Ticker) MonitorOption {
	return func(m *Monitor) { m.tickerFactory = factory }
}

// WithReconnectMaxElapsed bounds the reconnection backoff window.
func WithReconnectMaxElapsed(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.reconnectMaxElapsed = d }
}

// NewMonitor creates a health monitor for the gateway's connections.
func NewMonitor(g *Gateway, logger *slog.Logger, opts ...MonitorOption) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		gateway:   g,
		logger:    logger,
		interval:  DefaultProbeInterval,
		threshold: DefaultFailureThreshold,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
		reconnectMaxElapsed: defaultReconnectMaxElapsed,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run drives the probe loop until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := m.tickerFactory(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			m.CheckAll(ctx)
		}
	}
}

// CheckAll probes every connection once. Exported so tests and the serve
// command can force an immediate sweep.
func (m *Monitor) CheckAll(ctx context.Context) {
	for _, conn := range m.gateway.connections() {
		m.check(ctx, conn)
	}
}

func (m *Monitor) check(ctx context.Context, conn *Connection) {
	start := time.Now()
	probeCtx, cancel := context.WithTimeout(ctx, conn.timeout)
	err := conn.invoker.Probe(probeCtx)
	cancel()

	if err == nil {
		conn.markSuccess(time.Since(start))
		m.gateway.metrics.SetConnectionHealthy(conn.name, true)
		return
	}

	failures := conn.markProbeFailure(err)
	m.gateway.metrics.SetConnectionHealthy(conn.name, false)
	m.logger.Warn("health probe failed",
		"subsystem", conn.name,
		"consecutive_failures", failures,
		"error", err)

	// Reconnect exactly once per failure streak: only when the counter hits
	// the threshold, not on every probe past it.
	if failures == m.threshold {
		m.reconnect(ctx, conn)
	}
}

func (m *Monitor) reconnect(ctx context.Context, conn *Connection) {
	m.logger.Info("attempting reconnection", "subsystem", conn.name)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = m.reconnectMaxElapsed

	start := time.Now()
	err := backoff.Retry(func() error {
		probeCtx, cancel := context.WithTimeout(ctx, conn.timeout)
		defer cancel()
		return conn.invoker.Probe(probeCtx)
	}, backoff.WithContext(policy, ctx))

	if err != nil {
		m.gateway.metrics.IncReconnect(conn.name, "failure")
		m.logger.Error("reconnection failed", "subsystem", conn.name, "error", err)
		return
	}

	conn.markSuccess(time.Since(start))
	m.gateway.metrics.IncReconnect(conn.name, "success")
	m.gateway.metrics.SetConnectionHealthy(conn.name, true)
	m.logger.Info("reconnection succeeded", "subsystem", conn.name)
}
