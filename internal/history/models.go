package history

import "time"

// Record is one terminal deployment as persisted in the database.
type Record struct {
	RowID             int64      `json:"-"`
	DeploymentID      string     `json:"deployment_id"`
	Target            string     `json:"target"`
	Repository        string     `json:"repository"`
	Branch            string     `json:"branch"`
	Status            string     `json:"status"` // completed, failed, cancelled
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	DurationSeconds   *float64   `json:"duration_seconds,omitempty"`
	BackupPath        *string    `json:"backup_path,omitempty"`
	RollbackAttempted bool       `json:"rollback_attempted"`
	RollbackFailed    bool       `json:"rollback_failed"`
	StepsCompleted    int        `json:"steps_completed"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
}
