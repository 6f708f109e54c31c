package gateway

import (
	"context"
	"encoding/json"
)

// Subsystem names.
const (
	SubsystemFile          = "network-fs"
	SubsystemSourceControl = "source-control"
)

// Wrapper actions.
const (
	ActionHealthCheck     = "health_check"
	ActionTransferFile    = "transfer_file"
	ActionCreateBackup    = "create_backup"
	ActionRestoreBackup   = "restore_backup"
	ActionValidateConfig  = "validate_configuration"
	ActionListDirectory   = "list_directory"
	ActionDeleteBackup    = "delete_backup"
	ActionCloneRepository = "clone_repository"
	ActionPullRepository  = "pull_repository"
	ActionGetFileContent  = "get_file_content"
	ActionGetCommitInfo   = "get_commit_info"
	ActionListReleases    = "list_releases"
)

// Command is one structured operation sent to a subsystem wrapper. It
// serializes as a flat object: the action field plus the action-specific
// parameters.
type Command struct {
	Action string
	Params map[string]any
}

// MarshalJSON flattens the parameters next to the action field.
func (c Command) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(c.Params)+1)
	for k, v := range c.Params {
		flat[k] = v
	}
	flat["action"] = c.Action
	return json.Marshal(flat)
}

// TransferFile copies a file or directory to the target share.
func (g *Gateway) TransferFile(ctx context.Context, share, source, destination string) (map[string]any, error) {
	return g.Execute(ctx, SubsystemFile, Command{
		Action: ActionTransferFile,
		Params: map[string]any{"share": share, "source": source, "destination": destination},
	})
}

// CreateBackup archives the current target content to backupPath.
func (g *Gateway) CreateBackup(ctx context.Context, share, path, backupPath string) (map[string]any, error) {
	return g.Execute(ctx, SubsystemFile, Command{
		Action: ActionCreateBackup,
		Params: map[string]any{"share": share, "path": path, "backup_path": backupPath},
	})
}

// RestoreBackup restores an archived backup over the target path.
func (g *Gateway) RestoreBackup(ctx context.Context, share, backupPath, targetPath string) (map[string]any, error) {
	return g.Execute(ctx, SubsystemFile, Command{
		Action: ActionRestoreBackup,
		Params: map[string]any{"share": share, "backup_path": backupPath, "target_path": targetPath},
	})
}

// ValidateConfiguration asks the file subsystem to validate a deployed
// configuration path.
func (g *Gateway) ValidateConfiguration(ctx context.Context, share, path string) (map[string]any, error) {
	return g.Execute(ctx, SubsystemFile, Command{
		Action: ActionValidateConfig,
		Params: map[string]any{"share": share, "path": path},
	})
}

// ListDirectory lists entries under a path on the target share.
func (g *Gateway) ListDirectory(ctx context.Context, share, path string) (map[string]any, error) {
	return g.Execute(ctx, SubsystemFile, Command{
		Action: ActionListDirectory,
		Params: map[string]any{"share": share, "path": path},
	})
}

// DeleteBackup removes an archived backup. Only issued when pruning is
// enabled in the daemon configuration.
func (g *Gateway) DeleteBackup(ctx context.Context, share, backupPath string) (map[string]any, error) {
	return g.Execute(ctx, SubsystemFile, Command{
		Action: ActionDeleteBackup,
		Params: map[string]any{"share": share, "backup_path": backupPath},
	})
}

// CloneRepository materializes a repository branch at destination.
func (g *Gateway) CloneRepository(ctx context.Context, repository, branch, destination string) (map[string]any, error) {
	return g.Execute(ctx, SubsystemSourceControl, Command{
		Action: ActionCloneRepository,
		Params: map[string]any{"repository": repository, "branch": branch, "destination": destination},
	})
}

// PullRepository updates an existing checkout at destination.
func (g *Gateway) PullRepository(ctx context.Context, repository, branch, destination string) (map[string]any, error) {
	return g.Execute(ctx, SubsystemSourceControl, Command{
		Action: ActionPullRepository,
		Params: map[string]any{"repository": repository, "branch": branch, "destination": destination},
	})
}

// GetFileContent fetches one file from a repository branch.
func (g *Gateway) GetFileContent(ctx context.Context, repository, branch, path string) (map[string]any, error) {
	return g.Execute(ctx, SubsystemSourceControl, Command{
		Action: ActionGetFileContent,
		Params: map[string]any{"repository": repository, "branch": branch, "path": path},
	})
}

// GetCommitInfo returns metadata for the tip of a branch.
func (g *Gateway) GetCommitInfo(ctx context.Context, repository, branch string) (map[string]any, error) {
	return g.Execute(ctx, SubsystemSourceControl, Command{
		Action: ActionGetCommitInfo,
		Params: map[string]any{"repository": repository, "branch": branch},
	})
}

// ListReleases returns the published releases of a repository.
func (g *Gateway) ListReleases(ctx context.Context, repository string) (map[string]any, error) {
	return g.Execute(ctx, SubsystemSourceControl, Command{
		Action: ActionListReleases,
		Params: map[string]any{"repository": repository},
	})
}
