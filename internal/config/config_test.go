package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "confship.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `
server:
  host: 0.0.0.0
  port: 9090
logging:
  level: debug
subsystems:
  network-fs:
    type: wrapper
    wrapper: /usr/local/bin/fs-wrapper
    timeout_seconds: 30
    retries: 2
  source-control:
    type: github
health:
  provider_url: http://ha-monitor:8123
  probe_interval_seconds: 15
backups:
  share: homeassistant
  root: /backups
  retention: 7
  prune: true
history:
  database: /tmp/history.db
`

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:9090" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
	fs := cfg.Subsystems["network-fs"]
	if fs.Timeout() != 30*time.Second || fs.Retries != 2 {
		t.Errorf("network-fs = %+v", fs)
	}
	sc := cfg.Subsystems["source-control"]
	if sc.TokenEnv != DefaultTokenEnv {
		t.Errorf("token_env = %q, expected default %q", sc.TokenEnv, DefaultTokenEnv)
	}
	if sc.TimeoutSeconds != DefaultTimeoutSeconds || sc.Retries != DefaultRetries {
		t.Errorf("github subsystem defaults not applied: %+v", sc)
	}
	if cfg.Health.ProbeInterval() != 15*time.Second {
		t.Errorf("probe interval = %v", cfg.Health.ProbeInterval())
	}
	if cfg.Health.FailureThreshold != DefaultFailureThreshold {
		t.Errorf("failure threshold = %d", cfg.Health.FailureThreshold)
	}
	if !cfg.Backups.Prune || cfg.Backups.Retention != 7 {
		t.Errorf("backups = %+v", cfg.Backups)
	}
}

func TestLoad_EmptyConfigGetsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Addr() != "127.0.0.1:8080" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
	if cfg.Backups.Root != DefaultBackupRoot || cfg.Backups.Retention != DefaultRetention {
		t.Errorf("backups = %+v", cfg.Backups)
	}
	if cfg.Backups.Prune {
		t.Error("pruning must be opt-in")
	}
	if cfg.History.Database != DefaultHistoryDatabase {
		t.Errorf("database = %q", cfg.History.Database)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/confship.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [not: valid")); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestValidate_AggregatesProblems(t *testing.T) {
	tests := []struct {
		name    string
		content string
		problem string
	}{
		{
			name: "wrapper subsystem without wrapper path",
			content: `
subsystems:
  network-fs:
    type: wrapper
`,
			problem: "missing required 'wrapper' field",
		},
		{
			name: "relative wrapper path",
			content: `
subsystems:
  network-fs:
    type: wrapper
    wrapper: bin/fs-wrapper
`,
			problem: "wrapper path must be absolute",
		},
		{
			name: "unknown subsystem type",
			content: `
subsystems:
  network-fs:
    type: carrier-pigeon
`,
			problem: "unknown type 'carrier-pigeon'",
		},
		{
			name: "subsystem without type",
			content: `
subsystems:
  network-fs:
    wrapper: /usr/local/bin/fs-wrapper
`,
			problem: "missing required 'type' field",
		},
		{
			name:    "bad provider url",
			content: "health:\n  provider_url: ha-monitor:8123\n",
			problem: "provider_url must be an http(s) URL",
		},
		{
			name:    "bad logging level",
			content: "logging:\n  level: loud\n",
			problem: "unknown level 'loud'",
		},
		{
			name:    "bad webhook url",
			content: "notifications:\n  webhook_urls: [\"ftp://hooks\"]\n",
			problem: "webhook_urls[0] must be an http(s) URL",
		},
		{
			name:    "out of range port",
			content: "server:\n  port: 70000\n",
			problem: "port must be 1-65535",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.problem) {
				t.Errorf("error %q missing %q", err.Error(), tt.problem)
			}
		})
	}
}

func TestValidate_MultipleProblemsReported(t *testing.T) {
	content := `
server:
  port: -1
logging:
  level: loud
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "port must be") || !strings.Contains(msg, "unknown level") {
		t.Errorf("expected both problems reported, got %q", msg)
	}
}
