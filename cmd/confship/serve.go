package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"confship/internal/config"
	"confship/internal/event"
	"confship/internal/gateway"
	"confship/internal/history"
	"confship/internal/metrics"
	"confship/internal/notify"
	"confship/internal/saga"
	"confship/internal/server"
	"confship/pkg/fileutil"
)

var (
	configFile string
	logFile    string
	testMode   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the deployment daemon",
	Long: `Start the HTTP API and the subsystem health monitor.

The daemon accepts deployment requests, drives each one through backup,
validation, deploy, health gating, and verification, and rolls back on
failure.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", getEnvOrDefault("CONFSHIP_CONFIG_FILE", ""), "Path to confship.yaml configuration file")
	serveCmd.Flags().StringVar(&logFile, "log", getEnvOrDefault("CONFSHIP_LOG_FILE", ""), "Path to log file (default stdout only)")
	serveCmd.Flags().BoolVar(&testMode, "test-mode", os.Getenv("CONFSHIP_TEST_MODE") == "1", "Enable test mode (no rate limiting)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Local .env files carry the GitHub token and webhook URLs in development.
	_ = godotenv.Load()

	if configFile == "" {
		searchPaths := fileutil.DefaultConfigPaths("confship.yaml")
		configFile = fileutil.SearchPathsOptional(searchPaths)
		if configFile == "" {
			fmt.Fprintf(os.Stderr, "Error: No configuration file found in default locations:\n")
			for _, path := range searchPaths {
				fmt.Fprintf(os.Stderr, "  - %s\n", path)
			}
			fmt.Fprintf(os.Stderr, "Use --config flag to specify a custom location\n")
			return fmt.Errorf("configuration file not found")
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if logFile == "" {
		logFile = cfg.Logging.File
	}
	logger, logFileHandle, err := setupLogging(logFile, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logFileHandle != nil {
		defer logFileHandle.Close()
	}

	logger.Info("Starting confship", "config", configFile)

	m := metrics.New()

	gw, err := buildGateway(cfg, logger, m)
	if err != nil {
		return err
	}
	if len(cfg.Subsystems) == 0 {
		logger.Warn("No subsystems configured; deployments will fail until subsystems are added", "config", configFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Best-effort startup probes; the monitor recovers anything that is down.
	gw.Connect(ctx)

	monitor := gateway.NewMonitor(gw, logger,
		gateway.WithProbeInterval(cfg.Health.ProbeInterval()),
		gateway.WithFailureThreshold(cfg.Health.FailureThreshold))
	go monitor.Run(ctx)

	bus := event.NewBus(logger)
	bus.Subscribe(event.LogSink(logger))

	var notifiers []notify.Notifier
	if cfg.Notifications.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.Notifications.SlackWebhookURL))
	}
	for _, url := range cfg.Notifications.WebhookURLs {
		notifiers = append(notifiers, notify.NewWebhook(url))
	}
	if len(notifiers) > 0 {
		bus.Subscribe(notify.Sink(logger, notifiers...))
	}

	logger.Info("Initializing history database", "db", cfg.History.Database)
	hist, err := history.New(cfg.History.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize history database: %w", err)
	}

	engine := saga.NewEngine(gw, saga.Options{
		Provider:        buildHealthProvider(cfg),
		Bus:             bus,
		Metrics:         m,
		Recorder:        hist,
		Logger:          logger,
		BackupShare:     cfg.Backups.Share,
		BackupRoot:      cfg.Backups.Root,
		Retention:       cfg.Backups.Retention,
		Prune:           cfg.Backups.Prune,
		ScratchRoot:     cfg.Deploy.ScratchRoot,
		DisableRollback: cfg.Deploy.DisableRollback,
	})

	srv := server.NewServer(engine, gw, hist, m, logger, testMode)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down, draining in-flight deployments")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("Shutdown failed", "error", err)
			return err
		}
	}

	return nil
}
