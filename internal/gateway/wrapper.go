package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"confship/pkg/cmdutil"
)

// WrapperInvoker shells out to an external wrapper process. The command is
// serialized as a single JSON argument: <wrapper> '<json>'. Stdout carries
// the structured result.
type WrapperInvoker struct {
	path   string
	logger *slog.Logger
}

// NewWrapperInvoker creates an invoker for the wrapper binary at path.
func NewWrapperInvoker(path string, logger *slog.Logger) *WrapperInvoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &WrapperInvoker{path: path, logger: logger}
}

// Invoke implements Invoker.
func (w *WrapperInvoker) Invoke(ctx context.Context, cmd Command) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize command: %w", err)
	}

	argv := []string{w.path, string(payload)}
	w.logger.Debug("invoking wrapper", "command", cmdutil.FormatCommand(argv))

	result, err := cmdutil.Run(ctx, cmdutil.ExecOptions{}, argv)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = strings.TrimSpace(string(result.Stderr))
		}
		if stderr != "" {
			return nil, fmt.Errorf("wrapper %s failed: %w: %s", cmd.Action, err, stderr)
		}
		return nil, fmt.Errorf("wrapper %s failed: %w", cmd.Action, err)
	}

	return result.Stdout, nil
}

// Probe implements Invoker with a lightweight health_check action.
func (w *WrapperInvoker) Probe(ctx context.Context) error {
	_, err := w.Invoke(ctx, Command{Action: ActionHealthCheck})
	return err
}
