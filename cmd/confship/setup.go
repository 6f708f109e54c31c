package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"confship/internal/config"
	"confship/internal/gateway"
	"confship/internal/health"
	"confship/internal/metrics"
)

// setupLogging configures slog with a JSON handler. When logPath is empty
// output goes to stdout only; otherwise it is mirrored to the file. The
// returned file handle may be nil; the caller closes it when non-nil.
func setupLogging(logPath, level string) (*slog.Logger, *os.File, error) {
	var writer io.Writer = os.Stdout
	var file *os.File

	if logPath != "" {
		logDir := filepath.Dir(logPath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writer = io.MultiWriter(os.Stdout, f)
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: logLevel(level),
	})

	return slog.New(handler), file, nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildGateway creates the command gateway with one connection per
// configured subsystem.
func buildGateway(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*gateway.Gateway, error) {
	gw := gateway.New(logger, gateway.WithMetrics(m))

	for name, sub := range cfg.Subsystems {
		var invoker gateway.Invoker
		switch sub.Type {
		case config.ConnectorWrapper:
			invoker = gateway.NewWrapperInvoker(sub.Wrapper, logger)
		case config.ConnectorGitHub:
			token := os.Getenv(sub.TokenEnv)
			if token == "" {
				logger.Warn("GitHub token not set, unauthenticated rate limits apply",
					"subsystem", name, "env", sub.TokenEnv)
			}
			invoker = gateway.NewGitHubInvoker(token)
		default:
			return nil, fmt.Errorf("subsystem '%s': unknown connector type '%s'", name, sub.Type)
		}

		gw.Register(name, invoker, sub.Timeout(), sub.Retries)
	}

	return gw, nil
}

// buildHealthProvider returns the configured health snapshot provider, or
// nil when no provider URL is set (health gates are then skipped).
func buildHealthProvider(cfg *config.Config) health.Provider {
	if cfg.Health.ProviderURL == "" {
		return nil
	}
	return health.NewHTTPProvider(cfg.Health.ProviderURL)
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
