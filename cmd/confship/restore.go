package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"confship/internal/config"
	"confship/internal/metrics"
)

const defaultConfigPath = "/etc/confship/confship.yaml"

var (
	restoreConfigFile string
	restoreShare      string
)

var restoreCmd = &cobra.Command{
	Use:   "restore BACKUP_PATH TARGET_PATH",
	Short: "Restore a target from a backup",
	Long: `Restore a target path from a previously created backup, outside of any
deployment.

This is the manual escape hatch for when automatic rollback failed or a bad
configuration was noticed after a deployment completed.

Example:
  confship restore --share homeassistant /backups/config-backup-20260823-101500-ab12cd34 /config`,
	Args: cobra.ExactArgs(2),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVarP(&restoreConfigFile, "config", "c", defaultConfigPath, "Path to confship.yaml configuration file")
	restoreCmd.Flags().StringVar(&restoreShare, "share", "", "Share holding the backup (default: backups.share from config)")
}

func runRestore(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	backupPath, targetPath := args[0], args[1]

	cfg, err := config.Load(restoreConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config from %s: %w", restoreConfigFile, err)
	}

	share := restoreShare
	if share == "" {
		share = cfg.Backups.Share
	}
	if share == "" {
		return fmt.Errorf("no share given: use --share or set backups.share in %s", restoreConfigFile)
	}

	logger, _, err := setupLogging("", cfg.Logging.Level)
	if err != nil {
		return err
	}

	gw, err := buildGateway(cfg, logger, metrics.New())
	if err != nil {
		return err
	}

	fmt.Printf("Restoring %s from %s...\n", targetPath, backupPath)
	if _, err := gw.RestoreBackup(context.Background(), share, backupPath, targetPath); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Println("Restore completed")
	return nil
}
