// Package config loads and validates the confship daemon configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Subsystem connector types.
const (
	ConnectorWrapper = "wrapper"
	ConnectorGitHub  = "github"
)

// Defaults applied to fields left empty in the YAML file.
const (
	DefaultHost             = "127.0.0.1"
	DefaultPort             = 8080
	DefaultTimeoutSeconds   = 60
	DefaultRetries          = 3
	DefaultProbeInterval    = 30
	DefaultFailureThreshold = 3
	DefaultBackupRoot       = "/backups"
	DefaultRetention        = 5
	DefaultHistoryDatabase  = "/var/lib/confship/history.db"
	DefaultTokenEnv         = "GITHUB_TOKEN"
)

// Config is the full daemon configuration.
type Config struct {
	Server        ServerConfig               `yaml:"server"`
	Logging       LoggingConfig              `yaml:"logging"`
	Subsystems    map[string]SubsystemConfig `yaml:"subsystems"`
	Health        HealthConfig               `yaml:"health"`
	Backups       BackupsConfig              `yaml:"backups"`
	Deploy        DeployConfig               `yaml:"deploy"`
	History       HistoryConfig              `yaml:"history"`
	Notifications NotificationsConfig        `yaml:"notifications"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // empty means stdout only
}

// SubsystemConfig configures one gateway connection.
type SubsystemConfig struct {
	Type           string `yaml:"type"`            // wrapper | github
	Wrapper        string `yaml:"wrapper"`         // wrapper executable path
	TokenEnv       string `yaml:"token_env"`       // env var holding the GitHub token
	TimeoutSeconds int    `yaml:"timeout_seconds"` // per-attempt timeout
	Retries        int    `yaml:"retries"`
}

// Timeout returns the per-attempt timeout as a duration.
func (s SubsystemConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// HealthConfig configures the external health snapshot provider and the
// connection monitor.
type HealthConfig struct {
	ProviderURL          string `yaml:"provider_url"` // empty disables health gates
	ProbeIntervalSeconds int    `yaml:"probe_interval_seconds"`
	FailureThreshold     int    `yaml:"failure_threshold"`
}

// ProbeInterval returns the monitor probe interval as a duration.
func (h HealthConfig) ProbeInterval() time.Duration {
	return time.Duration(h.ProbeIntervalSeconds) * time.Second
}

// BackupsConfig configures where backups live and how many to keep.
type BackupsConfig struct {
	Share     string `yaml:"share"` // empty means the deployment target's share
	Root      string `yaml:"root"`
	Retention int    `yaml:"retention"`
	Prune     bool   `yaml:"prune"` // deletion is opt-in
}

// DeployConfig configures saga behavior.
type DeployConfig struct {
	ScratchRoot     string `yaml:"scratch_root"`
	DisableRollback bool   `yaml:"disable_rollback"`
}

// HistoryConfig configures the SQLite audit trail.
type HistoryConfig struct {
	Database string `yaml:"database"`
}

// NotificationsConfig configures outbound deployment notifications.
type NotificationsConfig struct {
	SlackWebhookURL string   `yaml:"slack_webhook_url"`
	WebhookURLs     []string `yaml:"webhook_urls"`
}

// Load reads, parses, validates, and applies defaults to the configuration
// at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	cfg.applyDefaults()
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n%s", strings.Join(errs, "\n"))
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Subsystems == nil {
		c.Subsystems = make(map[string]SubsystemConfig)
	}
	for name, sub := range c.Subsystems {
		if sub.TimeoutSeconds == 0 {
			sub.TimeoutSeconds = DefaultTimeoutSeconds
		}
		if sub.Retries == 0 {
			sub.Retries = DefaultRetries
		}
		if sub.Type == ConnectorGitHub && sub.TokenEnv == "" {
			sub.TokenEnv = DefaultTokenEnv
		}
		c.Subsystems[name] = sub
	}
	if c.Health.ProbeIntervalSeconds == 0 {
		c.Health.ProbeIntervalSeconds = DefaultProbeInterval
	}
	if c.Health.FailureThreshold == 0 {
		c.Health.FailureThreshold = DefaultFailureThreshold
	}
	if c.Backups.Root == "" {
		c.Backups.Root = DefaultBackupRoot
	}
	if c.Backups.Retention == 0 {
		c.Backups.Retention = DefaultRetention
	}
	if c.History.Database == "" {
		c.History.Database = DefaultHistoryDatabase
	}
}

// Validate returns every configuration problem found, one message per line.
func (c *Config) Validate() []string {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("  - server: port must be 1-65535, got %d", c.Server.Port))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("  - logging: unknown level '%s'", c.Logging.Level))
	}

	for name, sub := range c.Subsystems {
		switch sub.Type {
		case ConnectorWrapper:
			if sub.Wrapper == "" {
				errors = append(errors, fmt.Sprintf("  - subsystem '%s': missing required 'wrapper' field", name))
			} else if !filepath.IsAbs(sub.Wrapper) {
				errors = append(errors, fmt.Sprintf("  - subsystem '%s': wrapper path must be absolute, got '%s'", name, sub.Wrapper))
			}
		case ConnectorGitHub:
		case "":
			errors = append(errors, fmt.Sprintf("  - subsystem '%s': missing required 'type' field", name))
		default:
			errors = append(errors, fmt.Sprintf("  - subsystem '%s': unknown type '%s'", name, sub.Type))
		}

		if sub.TimeoutSeconds < 0 {
			errors = append(errors, fmt.Sprintf("  - subsystem '%s': timeout_seconds must be positive, got %d", name, sub.TimeoutSeconds))
		}
		if sub.Retries < 0 {
			errors = append(errors, fmt.Sprintf("  - subsystem '%s': retries must be positive, got %d", name, sub.Retries))
		}
	}

	if c.Health.ProviderURL != "" && !strings.HasPrefix(c.Health.ProviderURL, "http://") && !strings.HasPrefix(c.Health.ProviderURL, "https://") {
		errors = append(errors, fmt.Sprintf("  - health: provider_url must be an http(s) URL, got '%s'", c.Health.ProviderURL))
	}
	if c.Health.ProbeIntervalSeconds < 0 {
		errors = append(errors, fmt.Sprintf("  - health: probe_interval_seconds must be positive, got %d", c.Health.ProbeIntervalSeconds))
	}
	if c.Health.FailureThreshold < 0 {
		errors = append(errors, fmt.Sprintf("  - health: failure_threshold must be positive, got %d", c.Health.FailureThreshold))
	}

	if !strings.HasPrefix(c.Backups.Root, "/") {
		errors = append(errors, fmt.Sprintf("  - backups: root must be absolute, got '%s'", c.Backups.Root))
	}
	if c.Backups.Retention < 1 {
		errors = append(errors, fmt.Sprintf("  - backups: retention must be at least 1, got %d", c.Backups.Retention))
	}

	for i, url := range c.Notifications.WebhookURLs {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			errors = append(errors, fmt.Sprintf("  - notifications: webhook_urls[%d] must be an http(s) URL, got '%s'", i, url))
		}
	}

	return errors
}
