package saga

import (
	"time"

	"confship/internal/health"
)

// Status is the lifecycle state of a deployment.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusRunning      Status = "running"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// StepStatus is the state of one step-log entry.
type StepStatus string

const (
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Step names, in execution order. Optional steps are simply absent from the
// log when skipped; the relative order of the ones that ran never changes.
const (
	StepPreHealthCheck    = "pre-health-check"
	StepValidateConfig    = "validate-config"
	StepCreateBackup      = "create-backup"
	StepFetchSource       = "fetch-source"
	StepValidateNewConfig = "validate-new-config"
	StepDeploy            = "deploy"
	StepPostHealthCheck   = "post-health-check"
	StepVerify            = "verify"
	StepCleanupBackups    = "cleanup-backups"
)

// Step is one entry in a deployment's step log. An entry is appended as
// running and transitions to completed or failed exactly once.
type Step struct {
	Name      string         `json:"name"`
	Status    StepStatus     `json:"status"`
	StartedAt time.Time      `json:"startedAt"`
	Duration  time.Duration  `json:"durationNs"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// RollbackData is everything needed to restore the target to its
// pre-deployment state. It is recorded as soon as the backup exists.
type RollbackData struct {
	Share      string `json:"share"`
	BackupPath string `json:"backupPath"`
	TargetPath string `json:"targetPath"`
}

// Deployment is the observable state of one deployment. Values returned by
// the engine are snapshots; mutating them has no effect on the live record.
type Deployment struct {
	ID          string        `json:"id"`
	Config      Config        `json:"config"`
	Status      Status        `json:"status"`
	Steps       []Step        `json:"steps"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt,omitempty"`
	Duration    time.Duration `json:"durationNs,omitempty"`
	Error       string        `json:"error,omitempty"`

	BackupPath        string        `json:"backupPath,omitempty"`
	RollbackData      *RollbackData `json:"rollbackData,omitempty"`
	RollbackAttempted bool          `json:"rollbackAttempted"`
	RollbackFailed    bool          `json:"rollbackFailed"`
	RollbackError     string        `json:"rollbackError,omitempty"`

	PreHealth        *health.Report     `json:"preHealth,omitempty"`
	PostHealth       *health.Report     `json:"postHealth,omitempty"`
	HealthComparison *health.Comparison `json:"healthComparison,omitempty"`
}

// StepsCompleted counts step-log entries that finished successfully.
func (d Deployment) StepsCompleted() int {
	n := 0
	for _, step := range d.Steps {
		if step.Status == StepCompleted {
			n++
		}
	}
	return n
}

func cloneDeployment(d Deployment) Deployment {
	out := d
	out.Steps = make([]Step, len(d.Steps))
	for i, step := range d.Steps {
		out.Steps[i] = step
		if step.Metadata != nil {
			meta := make(map[string]any, len(step.Metadata))
			for k, v := range step.Metadata {
				meta[k] = v
			}
			out.Steps[i].Metadata = meta
		}
	}
	if d.RollbackData != nil {
		rd := *d.RollbackData
		out.RollbackData = &rd
	}
	return out
}
