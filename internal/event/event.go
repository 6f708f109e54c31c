package event

import "time"

// Type identifies a deployment lifecycle event.
type Type string

const (
	DeploymentStarted   Type = "deployment:started"
	DeploymentStep      Type = "deployment:step"
	DeploymentCompleted Type = "deployment:completed"
	DeploymentFailed    Type = "deployment:failed"
	DeploymentCancelled Type = "deployment:cancelled"
	HealthCheck         Type = "deployment:health-check"
	HealthDegradation   Type = "deployment:health-degradation"
	HealthImprovement   Type = "deployment:health-improvement"
)

// Event is a single deployment lifecycle notification.
// Step and StepStatus are populated only for DeploymentStep events; Payload
// carries event-specific details (health changes, failure messages).
type Event struct {
	Type         Type           `json:"type"`
	DeploymentID string         `json:"deployment_id"`
	Step         string         `json:"step,omitempty"`
	StepStatus   string         `json:"step_status,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	Time         time.Time      `json:"time"`
}
