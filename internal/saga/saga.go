// Package saga orchestrates configuration deployments as a sequence of steps
// with compensating rollback: back up the target, fetch and validate the new
// bundle, deploy it, then gate on health and verification. Any failure after
// the backup exists restores the target from it.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"confship/internal/event"
	"confship/internal/health"
	"confship/internal/metrics"
	"confship/internal/validate"
	"confship/pkg/fileutil"
)

// Defaults for engine options left zero.
const (
	DefaultBackupRoot = "/backups"
	DefaultRetention  = 5
)

const backupPrefix = "config-backup-"

// CommandGateway is the slice of the resilient gateway the engine drives.
// *gateway.Gateway satisfies it; tests substitute a recording fake.
type CommandGateway interface {
	CreateBackup(ctx context.Context, share, path, backupPath string) (map[string]any, error)
	RestoreBackup(ctx context.Context, share, backupPath, targetPath string) (map[string]any, error)
	TransferFile(ctx context.Context, share, source, destination string) (map[string]any, error)
	ListDirectory(ctx context.Context, share, path string) (map[string]any, error)
	ValidateConfiguration(ctx context.Context, share, path string) (map[string]any, error)
	DeleteBackup(ctx context.Context, share, backupPath string) (map[string]any, error)
	CloneRepository(ctx context.Context, repository, branch, destination string) (map[string]any, error)
	GetFileContent(ctx context.Context, repository, branch, path string) (map[string]any, error)
	GetCommitInfo(ctx context.Context, repository, branch string) (map[string]any, error)
}

// Recorder persists terminal deployments. The engine records best-effort; a
// recorder failure is logged, never surfaced.
type Recorder interface {
	Record(ctx context.Context, d Deployment) error
}

// Options configures an Engine. Zero values get sensible defaults; rollback
// is enabled unless explicitly disabled.
type Options struct {
	Provider health.Provider
	Bus      *event.Bus
	Metrics  *metrics.Metrics
	Recorder Recorder
	Logger   *slog.Logger

	// BackupShare overrides the share backups are written to. Empty means
	// the target's own share.
	BackupShare string
	BackupRoot  string
	Retention   int
	Prune       bool

	ScratchRoot     string
	DisableRollback bool

	// Now replaces the clock (testing only).
	Now func() time.Time
}

// Engine runs deployment sagas. One engine serves the whole process; each
// Execute call drives a single deployment to a terminal status.
type Engine struct {
	gateway  CommandGateway
	provider health.Provider
	bus      *event.Bus
	metrics  *metrics.Metrics
	recorder Recorder
	logger   *slog.Logger

	backupShare     string
	backupRoot      string
	retention       int
	prune           bool
	scratchRoot     string
	rollbackEnabled bool

	now   func() time.Time
	newID func() string

	registry *registry
	leases   *leaseManager
}

// NewEngine creates a deployment engine on top of a command gateway.
func NewEngine(gw CommandGateway, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus(logger)
	}
	backupRoot := opts.BackupRoot
	if backupRoot == "" {
		backupRoot = DefaultBackupRoot
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	scratchRoot := opts.ScratchRoot
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		gateway:         gw,
		provider:        opts.Provider,
		bus:             bus,
		metrics:         opts.Metrics,
		recorder:        opts.Recorder,
		logger:          logger,
		backupShare:     opts.BackupShare,
		backupRoot:      backupRoot,
		retention:       retention,
		prune:           opts.Prune,
		scratchRoot:     scratchRoot,
		rollbackEnabled: !opts.DisableRollback,
		now:             now,
		newID:           uuid.NewString,
		registry:        newRegistry(),
		leases:          newLeaseManager(),
	}
}

// Prepare validates a deployment request and registers it in the
// initializing state. The returned snapshot carries the assigned ID; the
// caller decides when to Execute.
func (e *Engine) Prepare(cfg Config) (Deployment, error) {
	if err := ValidateConfig(cfg); err != nil {
		return Deployment{}, err
	}
	rec := &record{d: Deployment{
		ID:        e.newID(),
		Config:    cfg,
		Status:    StatusInitializing,
		StartedAt: e.now(),
	}}
	e.registry.add(rec)
	return rec.snapshot(), nil
}

// Deploy runs a deployment synchronously: Prepare then Execute. The returned
// snapshot reflects the terminal state even when an error is returned.
func (e *Engine) Deploy(ctx context.Context, cfg Config) (Deployment, error) {
	prepared, err := e.Prepare(cfg)
	if err != nil {
		return Deployment{}, err
	}
	execErr := e.Execute(ctx, prepared.ID)
	final, getErr := e.Get(prepared.ID)
	if getErr != nil {
		return Deployment{}, getErr
	}
	return final, execErr
}

// Get returns a snapshot of one deployment.
func (e *Engine) Get(id string) (Deployment, error) {
	rec := e.registry.lookup(id)
	if rec == nil {
		return Deployment{}, ErrDeploymentNotFound
	}
	return rec.snapshot(), nil
}

// List returns snapshots of all known deployments, newest first.
func (e *Engine) List() []Deployment {
	return e.registry.list()
}

// Cancel moves a non-terminal deployment to cancelled. The step currently in
// flight is allowed to finish; the saga stops before the next one. No
// rollback is performed on cancellation, and fetch scratch space is cleaned
// best-effort.
func (e *Engine) Cancel(id string) error {
	rec := e.registry.lookup(id)
	if rec == nil {
		return ErrDeploymentNotFound
	}
	scratch, ok := rec.cancel(e.now())
	if !ok {
		return ErrDeploymentTerminal
	}
	if scratch != "" {
		if err := os.RemoveAll(scratch); err != nil {
			e.logger.Warn("scratch cleanup failed", "deployment_id", id, "dir", scratch, "error", err)
		}
	}

	snap := rec.snapshot()
	e.metrics.ObserveDeployment(string(StatusCancelled), snap.Duration)
	e.publish(event.Event{Type: event.DeploymentCancelled, DeploymentID: id})
	e.record(context.Background(), snap)
	e.logger.Info("deployment cancelled", "deployment_id", id)
	return nil
}

// Execute drives one prepared deployment to a terminal status. The error
// that made the deployment fail is returned; a cancelled deployment returns
// nil because cancellation is a caller decision, not a failure.
func (e *Engine) Execute(ctx context.Context, id string) error {
	rec := e.registry.lookup(id)
	if rec == nil {
		return ErrDeploymentNotFound
	}
	if !rec.transition(StatusInitializing, StatusRunning) {
		// Cancelled (or already executed) before the saga started.
		return nil
	}

	start := e.now()
	e.publish(event.Event{Type: event.DeploymentStarted, DeploymentID: id})
	e.logger.Info("deployment started",
		"deployment_id", id,
		"repository", rec.snapshot().Config.Source.Repository)

	err := e.run(ctx, rec)

	if key := rec.takeLease(); key != "" {
		e.leases.release(key)
	}

	if errors.Is(err, errCancelled) {
		// Cancel already finalized the record and published the event.
		return nil
	}

	duration := e.now().Sub(start)

	if err == nil {
		if !rec.finalize(StatusCompleted, e.now(), duration, nil) {
			// Cancel landed after the last step and already finalized the
			// record; the cancelled snapshot must not be overwritten.
			return nil
		}
		e.metrics.ObserveDeployment(string(StatusCompleted), duration)
		e.publish(event.Event{Type: event.DeploymentCompleted, DeploymentID: id})
		e.record(ctx, rec.snapshot())
		e.cleanupScratch(rec)
		e.logger.Info("deployment completed", "deployment_id", id, "duration", duration)
		return nil
	}

	if !rec.finalize(StatusFailed, e.now(), duration, func(d *Deployment) { d.Error = err.Error() }) {
		// Cancelled during the failing step; no rollback on cancellation.
		return nil
	}
	rolledBack := e.maybeRollback(ctx, rec, err)
	e.metrics.ObserveDeployment(string(StatusFailed), duration)
	e.publish(event.Event{
		Type:         event.DeploymentFailed,
		DeploymentID: id,
		Payload:      map[string]any{"error": err.Error(), "rolledBack": rolledBack},
	})
	e.record(ctx, rec.snapshot())
	e.cleanupScratch(rec)
	e.logger.Error("deployment failed",
		"deployment_id", id,
		"error", err,
		"rolled_back", rolledBack)
	return err
}

// run executes the step sequence. It returns the first step error, or
// errCancelled when a cancellation was observed between steps.
func (e *Engine) run(ctx context.Context, rec *record) error {
	snap := rec.snapshot()
	cfg := snap.Config
	id := snap.ID

	if cfg.HealthChecksEnabled() && e.provider != nil {
		if err := e.runStep(rec, StepPreHealthCheck, func(meta map[string]any) error {
			return e.stepPreHealth(ctx, rec, meta)
		}); err != nil {
			return err
		}
		if rec.status() == StatusCancelled {
			return errCancelled
		}
	}

	if err := e.runStep(rec, StepValidateConfig, func(map[string]any) error {
		return ValidateConfig(cfg)
	}); err != nil {
		return err
	}
	if rec.status() == StatusCancelled {
		return errCancelled
	}

	if err := e.runStep(rec, StepCreateBackup, func(meta map[string]any) error {
		return e.stepCreateBackup(ctx, rec, cfg, id, meta)
	}); err != nil {
		return err
	}
	if rec.status() == StatusCancelled {
		return errCancelled
	}

	if err := e.runStep(rec, StepFetchSource, func(meta map[string]any) error {
		return e.stepFetchSource(ctx, rec, cfg, meta)
	}); err != nil {
		return err
	}
	if rec.status() == StatusCancelled {
		return errCancelled
	}

	if cfg.ValidationEnabled() {
		if err := e.runStep(rec, StepValidateNewConfig, func(meta map[string]any) error {
			return e.stepValidateBundle(ctx, rec, meta)
		}); err != nil {
			return err
		}
		if rec.status() == StatusCancelled {
			return errCancelled
		}
	}

	if err := e.runStep(rec, StepDeploy, func(meta map[string]any) error {
		return e.stepDeploy(ctx, rec, cfg, meta)
	}); err != nil {
		return err
	}
	if rec.status() == StatusCancelled {
		return errCancelled
	}

	if cfg.HealthChecksEnabled() && e.provider != nil {
		if err := e.runStep(rec, StepPostHealthCheck, func(meta map[string]any) error {
			return e.stepPostHealth(ctx, rec, meta)
		}); err != nil {
			return err
		}
		if rec.status() == StatusCancelled {
			return errCancelled
		}
	}

	if cfg.VerificationEnabled() {
		if err := e.runStep(rec, StepVerify, func(meta map[string]any) error {
			return e.stepVerify(ctx, cfg, meta)
		}); err != nil {
			return err
		}
		if rec.status() == StatusCancelled {
			return errCancelled
		}
	}

	// Retention cleanup never fails the deployment; the step log still
	// records the failure.
	if err := e.runStep(rec, StepCleanupBackups, func(meta map[string]any) error {
		return e.stepCleanupBackups(ctx, cfg, meta)
	}); err != nil {
		e.logger.Warn("backup cleanup failed", "deployment_id", id, "error", err)
	}

	return nil
}

// runStep appends a running step entry, executes fn, then finalizes the
// entry and publishes the transition events.
func (e *Engine) runStep(rec *record, name string, fn func(meta map[string]any) error) error {
	start := e.now()
	idx := rec.beginStep(name, start)
	id := rec.snapshot().ID
	e.publish(event.Event{
		Type:         event.DeploymentStep,
		DeploymentID: id,
		Step:         name,
		StepStatus:   string(StepRunning),
	})

	meta := make(map[string]any)
	err := fn(meta)
	duration := e.now().Sub(start)

	status := StepCompleted
	if err != nil {
		status = StepFailed
		meta["error"] = err.Error()
	}
	rec.finishStep(idx, status, duration, meta)
	e.metrics.ObserveStep(name, duration)
	e.publish(event.Event{
		Type:         event.DeploymentStep,
		DeploymentID: id,
		Step:         name,
		StepStatus:   string(status),
	})
	return err
}

func (e *Engine) stepPreHealth(ctx context.Context, rec *record, meta map[string]any) error {
	report, err := e.provider.PreDeploymentChecks(ctx)
	if err != nil {
		return &HealthCheckFailure{Phase: "pre", Err: err}
	}
	rec.update(func(d *Deployment) { d.PreHealth = report })
	meta["healthyChecks"] = report.Overall.HealthyChecks
	meta["totalChecks"] = report.Overall.TotalChecks
	if !report.Healthy() {
		return &HealthCheckFailure{
			Phase:  "pre",
			Reason: fmt.Sprintf("%d of %d checks healthy", report.Overall.HealthyChecks, report.Overall.TotalChecks),
		}
	}
	return nil
}

func (e *Engine) stepCreateBackup(ctx context.Context, rec *record, cfg Config, id string, meta map[string]any) error {
	key := cfg.Target.Key()
	if !e.leases.acquire(key, id) {
		return fmt.Errorf("%w: %s", ErrTargetBusy, cfg.Target.Path)
	}
	rec.setLease(key)

	share := e.backupShareFor(cfg)
	backupPath := path.Join(e.backupRoot, backupPrefix+e.now().Format("20060102-150405")+"-"+shortID(id))
	if _, err := e.gateway.CreateBackup(ctx, share, cfg.Target.Path, backupPath); err != nil {
		return &BackupError{Err: err}
	}

	rec.update(func(d *Deployment) {
		d.BackupPath = backupPath
		d.RollbackData = &RollbackData{
			Share:      share,
			BackupPath: backupPath,
			TargetPath: cfg.Target.Path,
		}
	})
	meta["backupPath"] = backupPath
	return nil
}

func (e *Engine) stepFetchSource(ctx context.Context, rec *record, cfg Config, meta map[string]any) error {
	scratch, err := os.MkdirTemp(e.scratchRoot, "confship-fetch-")
	if err != nil {
		return &SourceFetchError{Err: err}
	}
	rec.setScratch(scratch)

	if len(cfg.Source.Files) > 0 {
		for _, file := range cfg.Source.Files {
			result, err := e.gateway.GetFileContent(ctx, cfg.Source.Repository, cfg.Source.Branch, file)
			if err != nil {
				return &SourceFetchError{Err: err}
			}
			content, ok := result["content"].(string)
			if !ok {
				return &SourceFetchError{Err: fmt.Errorf("no content returned for %s", file)}
			}
			dest := filepath.Join(scratch, filepath.FromSlash(file))
			if err := fileutil.EnsureDir(filepath.Dir(dest), 0o755); err != nil {
				return &SourceFetchError{Err: err}
			}
			if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
				return &SourceFetchError{Err: err}
			}
		}
		meta["strategy"] = "files"
		meta["files"] = len(cfg.Source.Files)
	} else {
		if _, err := e.gateway.CloneRepository(ctx, cfg.Source.Repository, cfg.Source.Branch, scratch); err != nil {
			return &SourceFetchError{Err: err}
		}
		meta["strategy"] = "clone"
	}

	for _, file := range cfg.Source.Files {
		if !fileutil.FileExists(filepath.Join(scratch, filepath.FromSlash(file))) {
			return &SourceFetchError{Err: fmt.Errorf("fetched bundle is missing %s", file)}
		}
	}

	// Tip-of-branch metadata is informational only.
	if info, err := e.gateway.GetCommitInfo(ctx, cfg.Source.Repository, cfg.Source.Branch); err == nil {
		if sha, ok := info["sha"].(string); ok && sha != "" {
			meta["commit"] = sha
		}
	}
	return nil
}

func (e *Engine) stepValidateBundle(ctx context.Context, rec *record, meta map[string]any) error {
	scratch := rec.scratch()
	result, err := validate.Bundle(scratch)
	if err != nil {
		return &ConfigValidationError{Problems: []string{err.Error()}}
	}
	meta["yamlSyntax"] = result.YAMLSyntax
	meta["security"] = result.Security

	problems := append([]string(nil), result.Errors...)
	if e.provider != nil {
		verdict, err := e.provider.ValidateConfiguration(ctx, scratch)
		if err != nil {
			problems = append(problems, fmt.Sprintf("provider validation unavailable: %v", err))
		} else if !verdict.Valid {
			problems = append(problems, verdict.Errors...)
			meta["homeAssistantConfig"] = verdict.HomeAssistantConfig
		}
	}

	if !result.Valid() || len(problems) > 0 {
		return &ConfigValidationError{Problems: problems}
	}
	return nil
}

func (e *Engine) stepDeploy(ctx context.Context, rec *record, cfg Config, meta map[string]any) error {
	scratch := rec.scratch()
	if files := cfg.Source.Files; len(files) > 0 {
		for _, file := range files {
			source := filepath.Join(scratch, filepath.FromSlash(file))
			destination := path.Join(cfg.Target.Path, file)
			if _, err := e.gateway.TransferFile(ctx, cfg.Target.ShareName, source, destination); err != nil {
				return &DeployError{Err: err}
			}
		}
		meta["transferred"] = len(files)
		return nil
	}
	if _, err := e.gateway.TransferFile(ctx, cfg.Target.ShareName, scratch, cfg.Target.Path); err != nil {
		return &DeployError{Err: err}
	}
	meta["transferred"] = "bundle"
	return nil
}

func (e *Engine) stepPostHealth(ctx context.Context, rec *record, meta map[string]any) error {
	report, err := e.provider.PostDeploymentChecks(ctx)
	if err != nil {
		return &HealthCheckFailure{Phase: "post", Err: err}
	}

	var pre *health.Report
	rec.update(func(d *Deployment) {
		d.PostHealth = report
		pre = d.PreHealth
	})
	meta["healthyChecks"] = report.Overall.HealthyChecks
	meta["totalChecks"] = report.Overall.TotalChecks

	id := rec.snapshot().ID
	if pre != nil {
		comparison := health.Compare(pre, report)
		rec.update(func(d *Deployment) { d.HealthComparison = comparison })
		for _, change := range comparison.Changes {
			kind := event.HealthDegradation
			if change.Kind == health.Improvement {
				kind = event.HealthImprovement
			}
			e.publish(event.Event{
				Type:         kind,
				DeploymentID: id,
				Payload: map[string]any{
					"check":  change.Check,
					"before": change.Before,
					"after":  change.After,
				},
			})
		}
		meta["degradations"] = comparison.Degradations
		meta["improvements"] = comparison.Improvements
	}
	e.publish(event.Event{
		Type:         event.HealthCheck,
		DeploymentID: id,
		Payload: map[string]any{
			"healthyChecks": report.Overall.HealthyChecks,
			"totalChecks":   report.Overall.TotalChecks,
		},
	})

	if !report.Healthy() {
		return &HealthCheckFailure{
			Phase:  "post",
			Reason: fmt.Sprintf("%d of %d checks healthy", report.Overall.HealthyChecks, report.Overall.TotalChecks),
		}
	}
	return nil
}

func (e *Engine) stepVerify(ctx context.Context, cfg Config, meta map[string]any) error {
	listing, err := e.gateway.ListDirectory(ctx, cfg.Target.ShareName, cfg.Target.Path)
	if err != nil {
		return &VerificationError{Reason: "listing target failed", Err: err}
	}
	names := entryNames(listing)
	meta["entries"] = len(names)

	if files := cfg.Source.Files; len(files) > 0 {
		for _, file := range files {
			if !containsName(names, topSegment(file)) {
				return &VerificationError{Reason: fmt.Sprintf("deployed file %s not found on target", file)}
			}
		}
	} else if len(names) == 0 {
		return &VerificationError{Reason: "target directory empty after deploy"}
	}

	if cfg.Verification == nil {
		return nil
	}
	for _, check := range cfg.Verification.Checks {
		switch check.Type {
		case CheckFileExists:
			dir := path.Join(cfg.Target.Path, path.Dir(check.File))
			listing, err := e.gateway.ListDirectory(ctx, cfg.Target.ShareName, dir)
			if err != nil {
				return &VerificationError{Reason: fmt.Sprintf("listing %s failed", dir), Err: err}
			}
			if !containsName(entryNames(listing), path.Base(check.File)) {
				return &VerificationError{Reason: fmt.Sprintf("required file %s missing", check.File)}
			}
		case CheckConfigValid:
			verdict, err := e.gateway.ValidateConfiguration(ctx, cfg.Target.ShareName, cfg.Target.Path)
			if err != nil {
				return &VerificationError{Reason: "target validation failed", Err: err}
			}
			if valid, _ := verdict["valid"].(bool); !valid {
				return &VerificationError{Reason: "deployed configuration reported invalid"}
			}
		default:
			return &VerificationError{Reason: fmt.Sprintf("unknown verification check type %q", check.Type)}
		}
	}
	return nil
}

func (e *Engine) stepCleanupBackups(ctx context.Context, cfg Config, meta map[string]any) error {
	share := e.backupShareFor(cfg)
	listing, err := e.gateway.ListDirectory(ctx, share, e.backupRoot)
	if err != nil {
		return fmt.Errorf("listing backups: %w", err)
	}

	var backups []string
	for _, name := range entryNames(listing) {
		if strings.HasPrefix(name, backupPrefix) {
			backups = append(backups, name)
		}
	}
	// Timestamped names sort chronologically; newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	meta["backups"] = len(backups)

	if len(backups) <= e.retention {
		return nil
	}
	excess := backups[e.retention:]
	if !e.prune {
		e.logger.Info("backup retention exceeded, pruning disabled",
			"excess", len(excess), "retention", e.retention)
		meta["excess"] = len(excess)
		return nil
	}

	pruned := 0
	for _, name := range excess {
		if _, err := e.gateway.DeleteBackup(ctx, share, path.Join(e.backupRoot, name)); err != nil {
			e.logger.Warn("backup prune failed", "backup", name, "error", err)
			continue
		}
		pruned++
	}
	meta["pruned"] = pruned
	return nil
}

// maybeRollback restores the target from the recorded backup when rollback
// is enabled and a backup exists. It reports whether the restore succeeded;
// a failed restore is recorded on the deployment, never returned.
func (e *Engine) maybeRollback(ctx context.Context, rec *record, cause error) bool {
	snap := rec.snapshot()
	if !e.rollbackEnabled || snap.RollbackData == nil {
		return false
	}

	rec.update(func(d *Deployment) { d.RollbackAttempted = true })
	rd := snap.RollbackData
	e.logger.Info("rolling back deployment",
		"deployment_id", snap.ID,
		"backup_path", rd.BackupPath,
		"cause", cause)

	// The restore must run even when the failure came from a cancelled or
	// expired request context.
	restoreCtx := context.WithoutCancel(ctx)
	if _, err := e.gateway.RestoreBackup(restoreCtx, rd.Share, rd.BackupPath, rd.TargetPath); err != nil {
		rollbackErr := &RollbackError{Err: err}
		rec.update(func(d *Deployment) {
			d.RollbackFailed = true
			d.RollbackError = rollbackErr.Error()
		})
		e.metrics.IncRollback("failure")
		e.logger.Error("rollback failed", "deployment_id", snap.ID, "error", err)
		return false
	}
	e.metrics.IncRollback("success")
	e.logger.Info("rollback succeeded", "deployment_id", snap.ID)
	return true
}

func (e *Engine) backupShareFor(cfg Config) string {
	if e.backupShare != "" {
		return e.backupShare
	}
	return cfg.Target.ShareName
}

func (e *Engine) cleanupScratch(rec *record) {
	scratch := rec.scratch()
	if scratch == "" {
		return
	}
	if err := os.RemoveAll(scratch); err != nil {
		e.logger.Warn("scratch cleanup failed", "dir", scratch, "error", err)
	}
}

func (e *Engine) publish(ev event.Event) {
	e.bus.Publish(ev)
}

func (e *Engine) record(ctx context.Context, d Deployment) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(context.WithoutCancel(ctx), d); err != nil {
		e.logger.Error("history record failed", "deployment_id", d.ID, "error", err)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func topSegment(file string) string {
	if i := strings.IndexByte(file, '/'); i > 0 {
		return file[:i]
	}
	return file
}

func containsName(names []string, want string) bool {
	for _, name := range names {
		if name == want {
			return true
		}
	}
	return false
}

// entryNames extracts entry names from a list_directory result. Wrappers
// return either plain strings or objects with a name field.
func entryNames(result map[string]any) []string {
	raw, _ := result["entries"].([]any)
	names := make([]string, 0, len(raw))
	for _, entry := range raw {
		switch v := entry.(type) {
		case string:
			names = append(names, v)
		case map[string]any:
			if name, ok := v["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}
