package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"confship/internal/saga"
)

func openHistory(t *testing.T) *History {
	t.Helper()
	hist, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create history: %v", err)
	}
	t.Cleanup(func() { hist.Close() })
	return hist
}

func terminalDeployment(id string, status saga.Status) saga.Deployment {
	started := time.Now().UTC().Add(-time.Minute)
	completed := started.Add(42 * time.Second)
	return saga.Deployment{
		ID: id,
		Config: saga.Config{
			Source: saga.Source{
				Type:       saga.SourceTypeSourceControl,
				Repository: "me/ha-config",
				Branch:     "main",
			},
			Target: saga.Target{
				Type:      saga.TargetTypeFile,
				ShareName: "homeassistant",
				Path:      "/config",
			},
		},
		Status:      status,
		StartedAt:   started,
		CompletedAt: completed,
		Duration:    42 * time.Second,
		BackupPath:  "/backups/config-backup-20260823-100000-aaaa",
		Steps: []saga.Step{
			{Name: saga.StepCreateBackup, Status: saga.StepCompleted},
			{Name: saga.StepDeploy, Status: saga.StepFailed},
		},
	}
}

func TestHistory_RecordAndGet(t *testing.T) {
	hist := openHistory(t)
	ctx := context.Background()

	d := terminalDeployment("dep-1", saga.StatusFailed)
	d.Error = "deploy failed: share unreachable"
	d.RollbackAttempted = true

	if err := hist.Record(ctx, d); err != nil {
		t.Fatalf("Failed to record deployment: %v", err)
	}

	record, err := hist.Get(ctx, "dep-1")
	if err != nil {
		t.Fatalf("Failed to get deployment: %v", err)
	}
	if record == nil {
		t.Fatal("Expected a record, got nil")
	}
	if record.Status != string(saga.StatusFailed) {
		t.Errorf("status = %q", record.Status)
	}
	if !record.RollbackAttempted || record.RollbackFailed {
		t.Errorf("rollback attempted=%v failed=%v", record.RollbackAttempted, record.RollbackFailed)
	}
	if record.StepsCompleted != 1 {
		t.Errorf("steps_completed = %d, expected 1", record.StepsCompleted)
	}
	if record.ErrorMessage == nil || *record.ErrorMessage != d.Error {
		t.Errorf("error_message = %v", record.ErrorMessage)
	}
	if record.DurationSeconds == nil || *record.DurationSeconds != 42 {
		t.Errorf("duration_seconds = %v", record.DurationSeconds)
	}
	if record.BackupPath == nil || *record.BackupPath != d.BackupPath {
		t.Errorf("backup_path = %v", record.BackupPath)
	}
}

func TestHistory_GetUnknownReturnsNil(t *testing.T) {
	hist := openHistory(t)
	record, err := hist.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if record != nil {
		t.Errorf("expected nil record, got %+v", record)
	}
}

func TestHistory_RecentAndForTarget(t *testing.T) {
	hist := openHistory(t)
	ctx := context.Background()

	for i, status := range []saga.Status{saga.StatusCompleted, saga.StatusFailed, saga.StatusCancelled} {
		d := terminalDeployment(string(rune('a'+i)), status)
		if err := hist.Record(ctx, d); err != nil {
			t.Fatalf("Failed to record deployment %d: %v", i, err)
		}
	}

	recent, err := hist.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent length = %d, expected 2", len(recent))
	}
	if recent[0].DeploymentID != "c" || recent[1].DeploymentID != "b" {
		t.Errorf("recent order = [%s %s], expected newest first", recent[0].DeploymentID, recent[1].DeploymentID)
	}

	target := terminalDeployment("", "").Config.Target.Key()
	all, err := hist.ForTarget(ctx, target, 10)
	if err != nil {
		t.Fatalf("ForTarget error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("target history length = %d, expected 3", len(all))
	}

	latest, err := hist.LatestForTarget(ctx, target)
	if err != nil {
		t.Fatalf("LatestForTarget error: %v", err)
	}
	if latest == nil || latest.DeploymentID != "c" {
		t.Errorf("latest = %+v, expected deployment c", latest)
	}
}

func TestHistory_LatestForUnknownTarget(t *testing.T) {
	hist := openHistory(t)
	latest, err := hist.LatestForTarget(context.Background(), "file:nowhere:/none")
	if err != nil {
		t.Fatalf("LatestForTarget error: %v", err)
	}
	if latest != nil {
		t.Errorf("expected nil, got %+v", latest)
	}
}
