package saga

import (
	"fmt"
	"strings"
)

// Supported source and target kinds.
const (
	SourceTypeSourceControl = "source-control"
	TargetTypeFile          = "file"
)

// Verification check kinds.
const (
	CheckFileExists  = "file-exists"
	CheckConfigValid = "configuration-valid"
)

// Config is one deployment request: where the new configuration comes from,
// where it goes, and which optional gates apply.
type Config struct {
	Source       Source        `json:"source" yaml:"source"`
	Target       Target        `json:"target" yaml:"target"`
	Validation   *Toggle       `json:"validation,omitempty" yaml:"validation,omitempty"`
	Verification *Verification `json:"verification,omitempty" yaml:"verification,omitempty"`
	HealthChecks *Toggle       `json:"healthChecks,omitempty" yaml:"healthChecks,omitempty"`
}

// Source describes where the configuration bundle is fetched from. When Files
// is non-empty only those paths are fetched; otherwise the whole branch is
// materialized.
type Source struct {
	Type       string   `json:"type" yaml:"type"`
	Repository string   `json:"repository" yaml:"repository"`
	Branch     string   `json:"branch" yaml:"branch"`
	Files      []string `json:"files,omitempty" yaml:"files,omitempty"`
}

// Target describes the deployment destination on a network share.
type Target struct {
	Type      string `json:"type" yaml:"type"`
	ShareName string `json:"shareName" yaml:"shareName"`
	Path      string `json:"path" yaml:"path"`
}

// Key identifies the target for lease purposes: two deployments with the same
// key may not run concurrently.
func (t Target) Key() string {
	return t.Type + ":" + t.ShareName + ":" + t.Path
}

// Toggle is an optional on/off section. A missing section means enabled.
type Toggle struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Verification configures the post-deploy verification step.
type Verification struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Checks  []Check `json:"checks,omitempty" yaml:"checks,omitempty"`
}

// Check is one additional verification to run against the deployed target.
type Check struct {
	Type string `json:"type" yaml:"type"`
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// ValidationEnabled reports whether the fetched bundle should be validated.
func (c *Config) ValidationEnabled() bool {
	return c.Validation == nil || c.Validation.Enabled
}

// VerificationEnabled reports whether the post-deploy verification step runs.
func (c *Config) VerificationEnabled() bool {
	return c.Verification == nil || c.Verification.Enabled
}

// HealthChecksEnabled reports whether the pre/post health gates run.
func (c *Config) HealthChecksEnabled() bool {
	return c.HealthChecks == nil || c.HealthChecks.Enabled
}

// ValidateConfig checks a deployment request for structural problems. All
// problems are aggregated into a single *ConfigValidationError.
func ValidateConfig(cfg Config) error {
	var problems []string

	switch cfg.Source.Type {
	case SourceTypeSourceControl:
		if cfg.Source.Repository == "" {
			problems = append(problems, "source.repository is required")
		} else if !strings.Contains(cfg.Source.Repository, "/") {
			problems = append(problems, fmt.Sprintf("source.repository %q must be owner/name", cfg.Source.Repository))
		}
		if cfg.Source.Branch == "" {
			problems = append(problems, "source.branch is required")
		}
	case "":
		problems = append(problems, "source.type is required")
	default:
		problems = append(problems, fmt.Sprintf("unsupported source.type %q", cfg.Source.Type))
	}

	for _, file := range cfg.Source.Files {
		if file == "" || strings.HasPrefix(file, "/") || strings.Contains(file, "..") {
			problems = append(problems, fmt.Sprintf("source.files entry %q must be a relative path inside the repository", file))
		}
	}

	switch cfg.Target.Type {
	case TargetTypeFile:
		if cfg.Target.ShareName == "" {
			problems = append(problems, "target.shareName is required")
		}
		if cfg.Target.Path == "" {
			problems = append(problems, "target.path is required")
		} else if !strings.HasPrefix(cfg.Target.Path, "/") {
			problems = append(problems, fmt.Sprintf("target.path %q must be absolute", cfg.Target.Path))
		}
	case "":
		problems = append(problems, "target.type is required")
	default:
		problems = append(problems, fmt.Sprintf("unsupported target.type %q", cfg.Target.Type))
	}

	if cfg.Verification != nil {
		for i, check := range cfg.Verification.Checks {
			switch check.Type {
			case CheckFileExists:
				if check.File == "" {
					problems = append(problems, fmt.Sprintf("verification.checks[%d]: file-exists requires a file", i))
				}
			case CheckConfigValid:
			default:
				problems = append(problems, fmt.Sprintf("verification.checks[%d]: unknown type %q", i, check.Type))
			}
		}
	}

	if len(problems) > 0 {
		return &ConfigValidationError{Problems: problems}
	}
	return nil
}
