// Package gateway executes logical operations against named external
// subsystems through resilient, retrying invocations, and tracks
// per-subsystem connection health.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"confship/internal/metrics"
)

// Connection statuses.
const (
	StatusConnected = "connected"
	StatusFailed    = "failed"
)

const (
	// DefaultRetries is the number of invocation attempts per Execute call.
	DefaultRetries = 3

	// DefaultBaseDelay is the base for the linear backoff between attempts:
	// after attempt N fails, the gateway waits N * DefaultBaseDelay.
	DefaultBaseDelay = time.Second

	// DefaultTimeout bounds a single invocation attempt.
	DefaultTimeout = 60 * time.Second
)

// Invoker performs a single invocation against one subsystem. Implementations
// must be safe for concurrent use.
type Invoker interface {
	// Invoke runs one command and returns its raw stdout.
	Invoke(ctx context.Context, cmd Command) ([]byte, error)

	// Probe performs a lightweight liveness check.
	Probe(ctx context.Context) error
}

// Connection is one logical session to a named external subsystem. It lives
// for the whole process; every call attempt and every health probe mutates
// its observability fields.
type Connection struct {
	name    string
	invoker Invoker
	timeout time.Duration
	retries int

	mu                  sync.Mutex
	status              string
	lastCheck           time.Time
	lastError           string
	responseTime        time.Duration
	retryAttempts       int
	consecutiveFailures int
}

func (c *Connection) markSuccess(rt time.Duration) {
	c.mu.Lock()
	c.status = StatusConnected
	c.lastCheck = time.Now().UTC()
	c.lastError = ""
	c.responseTime = rt
	c.retryAttempts = 0
	c.consecutiveFailures = 0
	c.mu.Unlock()
}

func (c *Connection) markExhausted(err error) {
	c.mu.Lock()
	c.status = StatusFailed
	c.lastCheck = time.Now().UTC()
	if err != nil {
		c.lastError = err.Error()
	}
	c.retryAttempts++
	c.mu.Unlock()
}

func (c *Connection) markProbeFailure(err error) int {
	c.mu.Lock()
	c.status = StatusFailed
	c.lastCheck = time.Now().UTC()
	if err != nil {
		c.lastError = err.Error()
	}
	c.consecutiveFailures++
	failures := c.consecutiveFailures
	c.mu.Unlock()
	return failures
}

// HealthStatus is the derived per-connection health record.
type HealthStatus struct {
	Subsystem           string        `json:"subsystem"`
	Status              string        `json:"status"` // healthy | unhealthy
	ResponseTime        time.Duration `json:"response_time_ns"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	RetryAttempts       int           `json:"retry_attempts"`
	LastError           string        `json:"last_error,omitempty"`
	LastCheck           time.Time     `json:"last_check"`
}

// Gateway routes commands to subsystem connections with retry and linear
// backoff, and exposes connection health for the monitor and the API.
type Gateway struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	baseDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) bool

	mu    sync.RWMutex
	conns map[string]*Connection
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithBaseDelay overrides the linear backoff base (primarily for testing).
func WithBaseDelay(d time.Duration) Option {
	return func(g *Gateway) { g.baseDelay = d }
}

// WithSleep replaces the inter-attempt sleep (testing only). The function
// must return false when the context is cancelled during the wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) bool) Option {
	return func(g *Gateway) { g.sleep = sleep }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// New creates a Gateway with no connections registered.
func New(logger *slog.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		logger:    logger,
		baseDelay: DefaultBaseDelay,
		sleep:     sleepWithContext,
		conns:     make(map[string]*Connection),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register adds a subsystem connection. Zero timeout or retries fall back to
// the defaults. Connections are never removed while the process runs.
func (g *Gateway) Register(subsystem string, invoker Invoker, timeout time.Duration, retries int) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retries <= 0 {
		retries = DefaultRetries
	}
	conn := &Connection{
		name:    subsystem,
		invoker: invoker,
		timeout: timeout,
		retries: retries,
		status:  StatusFailed, // unknown until the first probe or call
	}
	g.mu.Lock()
	g.conns[subsystem] = conn
	g.mu.Unlock()
}

// Connect performs one best-effort probe per registered subsystem. A failed
// probe leaves the connection in the failed state; the health monitor or the
// next real call's retries recover it. Startup never blocks on this.
func (g *Gateway) Connect(ctx context.Context) {
	for _, conn := range g.connections() {
		start := time.Now()
		probeCtx, cancel := context.WithTimeout(ctx, conn.timeout)
		err := conn.invoker.Probe(probeCtx)
		cancel()
		if err != nil {
			conn.markProbeFailure(err)
			g.metrics.SetConnectionHealthy(conn.name, false)
			g.logger.Warn("subsystem unavailable at startup",
				"subsystem", conn.name, "error", err)
			continue
		}
		conn.markSuccess(time.Since(start))
		g.metrics.SetConnectionHealthy(conn.name, true)
		g.logger.Info("subsystem connected", "subsystem", conn.name)
	}
}

// Execute runs one logical command against a subsystem, retrying with linear
// backoff. On success the parsed wrapper output is returned; stdout that is
// not well-formed JSON is wrapped verbatim as {"output": ..., "error": ...}.
func (g *Gateway) Execute(ctx context.Context, subsystem string, cmd Command) (map[string]any, error) {
	conn := g.connection(subsystem)
	if conn == nil {
		return nil, &UnknownSubsystemError{Subsystem: subsystem}
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= conn.retries; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * g.baseDelay
			if !g.sleep(ctx, wait) {
				lastErr = ctx.Err()
				break
			}
		}
		attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, conn.timeout)
		start := time.Now()
		output, err := conn.invoker.Invoke(attemptCtx, cmd)
		cancel()

		if err == nil {
			conn.markSuccess(time.Since(start))
			g.metrics.IncGatewayAttempt(subsystem, "success")
			g.metrics.SetConnectionHealthy(subsystem, true)
			return parseOutput(output), nil
		}

		lastErr = err
		g.metrics.IncGatewayAttempt(subsystem, "failure")
		g.logger.Warn("gateway invocation failed",
			"subsystem", subsystem,
			"action", cmd.Action,
			"attempt", attempt,
			"retries", conn.retries,
			"error", err)
	}

	conn.markExhausted(lastErr)
	g.metrics.SetConnectionHealthy(subsystem, false)
	return nil, &ConnectionExhaustedError{
		Subsystem: subsystem,
		Action:    cmd.Action,
		Attempts:  attempts,
		Err:       lastErr,
	}
}

// Health returns the derived health record for every connection, sorted by
// subsystem name.
func (g *Gateway) Health() []HealthStatus {
	conns := g.connections()
	statuses := make([]HealthStatus, 0, len(conns))
	for _, conn := range conns {
		conn.mu.Lock()
		status := "healthy"
		if conn.status != StatusConnected {
			status = "unhealthy"
		}
		statuses = append(statuses, HealthStatus{
			Subsystem:           conn.name,
			Status:              status,
			ResponseTime:        conn.responseTime,
			ConsecutiveFailures: conn.consecutiveFailures,
			RetryAttempts:       conn.retryAttempts,
			LastError:           conn.lastError,
			LastCheck:           conn.lastCheck,
		})
		conn.mu.Unlock()
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Subsystem < statuses[j].Subsystem })
	return statuses
}

// Subsystems returns the registered subsystem names.
func (g *Gateway) Subsystems() []string {
	conns := g.connections()
	names := make([]string, 0, len(conns))
	for _, conn := range conns {
		names = append(names, conn.name)
	}
	sort.Strings(names)
	return names
}

func (g *Gateway) connection(subsystem string) *Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.conns[subsystem]
}

func (g *Gateway) connections() []*Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	conns := make([]*Connection, 0, len(g.conns))
	for _, conn := range g.conns {
		conns = append(conns, conn)
	}
	return conns
}

func parseOutput(output []byte) map[string]any {
	var parsed map[string]any
	if err := json.Unmarshal(output, &parsed); err == nil {
		return parsed
	}
	return map[string]any{
		"output": strings.TrimSpace(string(output)),
		"error":  "",
	}
}

func sleepWithContext(ctx context.Context, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
