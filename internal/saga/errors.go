package saga

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for deployment lifecycle management.
var (
	// ErrDeploymentNotFound is returned when no deployment exists for an ID.
	ErrDeploymentNotFound = errors.New("deployment not found")

	// ErrDeploymentTerminal is returned when cancelling a deployment that has
	// already reached a terminal status.
	ErrDeploymentTerminal = errors.New("deployment already in terminal status")

	// ErrTargetBusy is returned when another deployment holds the lease for
	// the same target path.
	ErrTargetBusy = errors.New("another deployment is in progress for this target")

	// errCancelled stops the step loop after a cancellation was observed.
	errCancelled = errors.New("deployment cancelled")
)

// ConfigValidationError reports one or more problems with a deployment
// configuration or a fetched bundle.
type ConfigValidationError struct {
	Problems []string
}

func (e *ConfigValidationError) Error() string {
	return "configuration validation failed: " + strings.Join(e.Problems, "; ")
}

// SourceFetchError wraps a failure to retrieve the new configuration.
type SourceFetchError struct {
	Err error
}

func (e *SourceFetchError) Error() string { return fmt.Sprintf("source fetch failed: %v", e.Err) }
func (e *SourceFetchError) Unwrap() error { return e.Err }

// BackupError wraps a failure to archive the current target content.
type BackupError struct {
	Err error
}

func (e *BackupError) Error() string { return fmt.Sprintf("backup failed: %v", e.Err) }
func (e *BackupError) Unwrap() error { return e.Err }

// DeployError wraps a failure to transfer the new configuration.
type DeployError struct {
	Err error
}

func (e *DeployError) Error() string { return fmt.Sprintf("deploy failed: %v", e.Err) }
func (e *DeployError) Unwrap() error { return e.Err }

// VerificationError reports a post-deploy verification failure.
type VerificationError struct {
	Reason string
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verification failed: %s: %v", e.Reason, e.Err)
	}
	return "verification failed: " + e.Reason
}

func (e *VerificationError) Unwrap() error { return e.Err }

// HealthCheckFailure reports a failed health gate. Phase is "pre" or "post";
// post-deploy failures are always rollback-eligible.
type HealthCheckFailure struct {
	Phase  string
	Reason string
	Err    error
}

func (e *HealthCheckFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s-deployment health check failed: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s-deployment health check failed: %s", e.Phase, e.Reason)
}

func (e *HealthCheckFailure) Unwrap() error { return e.Err }

// RollbackError wraps a failed restore attempt. It is recorded on the
// deployment, never returned in place of the error that triggered rollback.
type RollbackError struct {
	Err error
}

func (e *RollbackError) Error() string { return fmt.Sprintf("rollback failed: %v", e.Err) }
func (e *RollbackError) Unwrap() error { return e.Err }
