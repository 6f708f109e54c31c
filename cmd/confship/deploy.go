package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"confship/internal/config"
	"confship/internal/event"
	"confship/internal/metrics"
	"confship/internal/saga"
)

var deployConfigFile string

var deployCmd = &cobra.Command{
	Use:   "deploy DEPLOYMENT_FILE",
	Short: "Run a single deployment and wait for it",
	Long: `Run one deployment synchronously from a deployment request file.

The file uses the same schema as the POST /deployments API body, in YAML:

  source:
    type: source-control
    repository: me/ha-config
    branch: main
    files: [configuration.yaml]
  target:
    type: file
    shareName: homeassistant
    path: /config

The command exits non-zero when the deployment fails; rollback has then
already been attempted.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVarP(&deployConfigFile, "config", "c", getEnvOrDefault("CONFSHIP_CONFIG_FILE", "/etc/confship/confship.yaml"), "Path to confship.yaml configuration file")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(deployConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read deployment file: %w", err)
	}
	var request saga.Config
	if err := yaml.Unmarshal(data, &request); err != nil {
		return fmt.Errorf("failed to parse deployment file: %w", err)
	}

	logger, logFileHandle, err := setupLogging("", cfg.Logging.Level)
	if err != nil {
		return err
	}
	if logFileHandle != nil {
		defer logFileHandle.Close()
	}

	m := metrics.New()
	gw, err := buildGateway(cfg, logger, m)
	if err != nil {
		return err
	}

	ctx := context.Background()
	gw.Connect(ctx)

	bus := event.NewBus(logger)
	bus.Subscribe(event.LogSink(logger))

	engine := saga.NewEngine(gw, saga.Options{
		Provider:        buildHealthProvider(cfg),
		Bus:             bus,
		Metrics:         m,
		Logger:          logger,
		BackupShare:     cfg.Backups.Share,
		BackupRoot:      cfg.Backups.Root,
		Retention:       cfg.Backups.Retention,
		Prune:           cfg.Backups.Prune,
		ScratchRoot:     cfg.Deploy.ScratchRoot,
		DisableRollback: cfg.Deploy.DisableRollback,
	})

	d, err := engine.Deploy(ctx, request)
	if err != nil {
		if d.RollbackAttempted && !d.RollbackFailed {
			fmt.Fprintf(os.Stderr, "Deployment %s failed, target restored from %s\n", d.ID, d.BackupPath)
		} else if d.RollbackFailed {
			fmt.Fprintf(os.Stderr, "Deployment %s failed AND rollback failed: %s\n", d.ID, d.RollbackError)
		}
		return fmt.Errorf("deployment failed: %w", err)
	}

	fmt.Printf("Deployment %s completed in %s (%d steps)\n", d.ID, d.Duration, len(d.Steps))
	return nil
}
