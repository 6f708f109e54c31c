// Package history persists terminal deployments in SQLite. The in-process
// registry answers questions about live deployments; this is the durable
// audit trail that survives restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"confship/internal/saga"
)

// History manages the deployment audit trail in SQLite.
type History struct {
	db *sql.DB
}

// New opens (or creates) the history database at dbPath.
func New(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}
	if err := h.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return h, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) initSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS deployments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			deployment_id TEXT NOT NULL UNIQUE,
			target TEXT NOT NULL,
			repository TEXT NOT NULL,
			branch TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			duration_seconds REAL,
			backup_path TEXT,
			rollback_attempted INTEGER NOT NULL DEFAULT 0,
			rollback_failed INTEGER NOT NULL DEFAULT 0,
			steps_completed INTEGER NOT NULL DEFAULT 0,
			error_message TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = h.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_target_started
		ON deployments(target, started_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Record persists a terminal deployment. It implements saga.Recorder.
func (h *History) Record(ctx context.Context, d saga.Deployment) error {
	var completedAt *string
	if !d.CompletedAt.IsZero() {
		formatted := d.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &formatted
	}
	var duration *float64
	if d.Duration > 0 {
		seconds := d.Duration.Seconds()
		duration = &seconds
	}
	var backupPath *string
	if d.BackupPath != "" {
		backupPath = &d.BackupPath
	}
	var errorMessage *string
	if d.Error != "" {
		errorMessage = &d.Error
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO deployments
		(deployment_id, target, repository, branch, status, started_at,
		 completed_at, duration_seconds, backup_path, rollback_attempted,
		 rollback_failed, steps_completed, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.ID,
		d.Config.Target.Key(),
		d.Config.Source.Repository,
		d.Config.Source.Branch,
		string(d.Status),
		d.StartedAt.UTC().Format(time.RFC3339),
		completedAt,
		duration,
		backupPath,
		boolToInt(d.RollbackAttempted),
		boolToInt(d.RollbackFailed),
		d.StepsCompleted(),
		errorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deployment record: %w", err)
	}
	return nil
}

// Get returns the record for one deployment, or nil when unknown.
func (h *History) Get(ctx context.Context, deploymentID string) (*Record, error) {
	row := h.db.QueryRowContext(ctx, selectColumns+`
		WHERE deployment_id = ?
	`, deploymentID)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query deployment: %w", err)
	}
	return record, nil
}

// Recent returns the most recent deployments across all targets.
func (h *History) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := h.db.QueryContext(ctx, selectColumns+`
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent deployments: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ForTarget returns the deployment history of one target, newest first.
func (h *History) ForTarget(ctx context.Context, target string, limit int) ([]Record, error) {
	rows, err := h.db.QueryContext(ctx, selectColumns+`
		WHERE target = ?
		ORDER BY id DESC
		LIMIT ?
	`, target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query target history: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// LatestForTarget returns the most recent deployment of one target, or nil
// when the target has never been deployed.
func (h *History) LatestForTarget(ctx context.Context, target string) (*Record, error) {
	row := h.db.QueryRowContext(ctx, selectColumns+`
		WHERE target = ?
		ORDER BY id DESC
		LIMIT 1
	`, target)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest deployment: %w", err)
	}
	return record, nil
}

const selectColumns = `
	SELECT id, deployment_id, target, repository, branch, status, started_at,
	       completed_at, duration_seconds, backup_path, rollback_attempted,
	       rollback_failed, steps_completed, error_message
	FROM deployments
`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var record Record
	var startedAtStr string
	var completedAtStr sql.NullString
	var rollbackAttempted, rollbackFailed int

	err := s.Scan(
		&record.RowID,
		&record.DeploymentID,
		&record.Target,
		&record.Repository,
		&record.Branch,
		&record.Status,
		&startedAtStr,
		&completedAtStr,
		&record.DurationSeconds,
		&record.BackupPath,
		&rollbackAttempted,
		&rollbackFailed,
		&record.StepsCompleted,
		&record.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	startedAt, err := time.Parse(time.RFC3339, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at timestamp: %w", err)
	}
	record.StartedAt = startedAt

	if completedAtStr.Valid {
		completedAt, err := time.Parse(time.RFC3339, completedAtStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at timestamp: %w", err)
		}
		record.CompletedAt = &completedAt
	}

	record.RollbackAttempted = rollbackAttempted != 0
	record.RollbackFailed = rollbackFailed != 0
	return &record, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
