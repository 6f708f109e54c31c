package health

import "context"

// Check statuses as reported by the snapshot provider.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Check is a single named health check result.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Overall summarizes a snapshot.
type Overall struct {
	HealthyChecks int `json:"healthyChecks"`
	TotalChecks   int `json:"totalChecks"`
}

// Report is a point-in-time health snapshot used to gate deployments.
type Report struct {
	Overall Overall `json:"overall"`
	Checks  []Check `json:"checks"`
}

// Healthy reports whether every check in the snapshot passed.
func (r *Report) Healthy() bool {
	if r == nil {
		return false
	}
	return r.Overall.HealthyChecks >= r.Overall.TotalChecks
}

// ValidationResult is the provider's verdict on a configuration bundle.
type ValidationResult struct {
	Valid               bool     `json:"valid"`
	YAMLSyntax          bool     `json:"yamlSyntax"`
	Security            bool     `json:"security"`
	HomeAssistantConfig bool     `json:"homeAssistantConfig"`
	Errors              []string `json:"errors,omitempty"`
}

// Provider supplies pre/post deployment health snapshots and configuration
// validation. The deployment saga consumes only this interface; the concrete
// monitor stack behind it is an external collaborator.
type Provider interface {
	PreDeploymentChecks(ctx context.Context) (*Report, error)
	PostDeploymentChecks(ctx context.Context) (*Report, error)
	ValidateConfiguration(ctx context.Context, path string) (*ValidationResult, error)
}
