package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wrapper.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWrapperInvoker_PassesSerializedCommand(t *testing.T) {
	// The wrapper echoes its single argument back, so the output is the
	// serialized command itself.
	path := writeScript(t, `printf '%s' "$1"`)
	inv := NewWrapperInvoker(path, slog.Default())

	out, err := inv.Invoke(context.Background(), Command{
		Action: ActionListDirectory,
		Params: map[string]any{"share": "cfg", "path": "/config"},
	})
	if err != nil {
		t.Fatalf("Invoke error: %v", err)
	}

	var echoed map[string]any
	if err := json.Unmarshal(out, &echoed); err != nil {
		t.Fatalf("wrapper argument was not valid JSON: %v", err)
	}
	if echoed["action"] != ActionListDirectory || echoed["share"] != "cfg" {
		t.Errorf("echoed command = %v", echoed)
	}
}

func TestWrapperInvoker_FailureIncludesStderr(t *testing.T) {
	path := writeScript(t, `echo "share mount failed" >&2; exit 2`)
	inv := NewWrapperInvoker(path, slog.Default())

	_, err := inv.Invoke(context.Background(), Command{Action: ActionCreateBackup})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if got := err.Error(); !strings.Contains(got, "share mount failed") {
		t.Errorf("error should include stderr, got %q", got)
	}
}

func TestWrapperInvoker_Probe(t *testing.T) {
	path := writeScript(t, `printf '{"status":"ok"}'`)
	inv := NewWrapperInvoker(path, slog.Default())
	if err := inv.Probe(context.Background()); err != nil {
		t.Errorf("Probe error: %v", err)
	}
}
