// Package server exposes the deployment engine over an HTTP API: submit and
// cancel deployments, inspect live and historical state, and scrape health
// and metrics.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"confship/internal/gateway"
	"confship/internal/history"
	"confship/internal/metrics"
	"confship/internal/saga"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 10 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware
	RequestTimeout = 60 * time.Second

	// Rate limiting - requests per minute
	GlobalRateLimit = 60
	DeployRateLimit = 6
)

// Server is the HTTP front of the deployment engine.
type Server struct {
	Engine   *saga.Engine
	Gateway  *gateway.Gateway
	History  *history.History
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	TestMode bool

	deployWg sync.WaitGroup // tracks in-flight async deployments

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a server around an engine and its collaborators. History
// and Metrics may be nil; the corresponding endpoints degrade gracefully.
func NewServer(engine *saga.Engine, gw *gateway.Gateway, hist *history.History, m *metrics.Metrics, logger *slog.Logger, testMode bool) *Server {
	return &Server{
		Engine:   engine,
		Gateway:  gw,
		History:  hist,
		Metrics:  m,
		Logger:   logger,
		TestMode: testMode,
	}
}

// Router creates and configures the HTTP router.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds())
			}()

			next.ServeHTTP(ww, r)
		})
	})

	if !s.TestMode {
		r.Use(NewRateLimitMiddleware(GlobalRateLimit, s.Logger))
	}

	r.Get("/health", s.HandleHealth)
	r.Get("/metrics", s.HandleMetrics)

	r.Route("/deployments", func(r chi.Router) {
		if !s.TestMode {
			r.With(NewDeployRateLimitMiddleware(DeployRateLimit, s.Logger)).Post("/", s.HandleCreateDeployment)
		} else {
			r.Post("/", s.HandleCreateDeployment)
		}
		r.Get("/", s.HandleListDeployments)
		r.Get("/{deploymentID}", s.HandleGetDeployment)
		r.Post("/{deploymentID}/cancel", s.HandleCancelDeployment)
	})

	r.Get("/history", s.HandleHistory)
	r.Get("/history/latest", s.HandleLatestDeployment)

	return r
}

// Start runs the HTTP server until it fails or Shutdown closes it.
func (s *Server) Start(addr string) error {
	s.Logger.Info("Starting server", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	s.mu.Lock()
	s.httpServer = server
	s.mu.Unlock()

	return server.ListenAndServe()
}

// WaitForDeployments waits for all in-flight async deployments to complete.
// This is primarily useful for testing.
func (s *Server) WaitForDeployments() {
	s.deployWg.Wait()
}

// Shutdown stops accepting connections, drains in-flight HTTP requests and
// async deployments, then closes the history database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.httpServer
	s.mu.Unlock()

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			return err
		}
	}

	s.deployWg.Wait()

	if s.History != nil {
		return s.History.Close()
	}
	return nil
}
