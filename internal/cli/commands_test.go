package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aryankumar/taskpool/internal/cli/invoke"
	"github.com/aryankumar/taskpool/internal/cli/serve"
	"github.com/aryankumar/taskpool/internal/config"
)

const commandsConfig = `thread-pool:
  defaults:
    min-threads: 1
    max-threads: 4
    queue-size: 10
  shutdown-timeout: 1s
  pools:
    worker:
      max-threads: 2
      rejected-handler: abort
    inline:
      max-threads: 0
      min-threads: 0
`

func writeCommandsConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "taskpool.yaml")
	if err := os.WriteFile(path, []byte(commandsConfig), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestConfigShowCommand(t *testing.T) {
	path := writeCommandsConfig(t)

	stdout, stderr, err := executeCommand(t, "config", "show", "--config", path, "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 pools, got %d", len(rows))
	}
	if rows[0]["pool"] != "inline" || rows[1]["pool"] != "worker" {
		t.Errorf("expected pools sorted by name, got %v and %v", rows[0]["pool"], rows[1]["pool"])
	}
	if rows[1]["max-threads"] != float64(2) || rows[1]["queue-size"] != float64(10) {
		t.Errorf("worker did not inherit defaults: %v", rows[1])
	}
	if !strings.Contains(stderr, "shutdown timeout: 1s") {
		t.Errorf("expected shutdown timeout on stderr, got %q", stderr)
	}
}

func TestConfigSetAndRemovePool(t *testing.T) {
	path := writeCommandsConfig(t)

	stdout, _, err := executeCommand(t, "config", "set-pool", "ingest",
		"--config", path, "--max-threads", "8", "--rejected-handler", "discard-oldest")
	if err != nil {
		t.Fatalf("set-pool: %v", err)
	}
	if !strings.Contains(stdout, "pool ingest saved") {
		t.Errorf("unexpected output %q", stdout)
	}

	manager := config.NewManager(path)
	if _, err := manager.Load(); err != nil {
		t.Fatalf("reloading config: %v", err)
	}
	opts, err := manager.PoolOptions("ingest")
	if err != nil {
		t.Fatalf("PoolOptions: %v", err)
	}
	if opts.MaxThreads != 8 || opts.Overflow.String() != "discard-oldest" {
		t.Errorf("unexpected ingest options %+v", opts)
	}

	if _, _, err := executeCommand(t, "config", "remove-pool", "ingest", "--config", path); err != nil {
		t.Fatalf("remove-pool: %v", err)
	}
	if _, _, err := executeCommand(t, "config", "remove-pool", "ingest", "--config", path); err == nil {
		t.Error("expected error removing a pool twice")
	}
}

func TestConfigSetPoolRejectsInvalid(t *testing.T) {
	path := writeCommandsConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "nothing to set", args: []string{"config", "set-pool", "worker"}},
		{name: "unknown handler", args: []string{"config", "set-pool", "worker", "--rejected-handler", "ignore"}},
		{name: "min above max", args: []string{"config", "set-pool", "worker", "--min-threads", "9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, append(tt.args, "--config", path)...)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if string(data) != commandsConfig {
		t.Error("config file changed after rejected updates")
	}
}

func TestInvokeCommand(t *testing.T) {
	path := writeCommandsConfig(t)

	stdout, _, err := executeCommand(t, "invoke", "--config", path,
		"--pool", "worker", "--tasks", "5", "--duration", "1ms", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var results []map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for _, r := range results {
		if r["state"] != "succeeded" {
			t.Errorf("expected succeeded, got %v", r["state"])
		}
	}
}

func TestInvokeCommandStopsOnFailure(t *testing.T) {
	path := writeCommandsConfig(t)

	// The inline pool runs each task during submission, so completion order
	// is submission order.
	stdout, _, err := executeCommand(t, "invoke", "--config", path,
		"--pool", "inline", "--tasks", "4", "--fail-at", "1", "--duration", "0", "-o", "json")
	if !errors.Is(err, invoke.ErrTasksFailed) {
		t.Fatalf("expected ErrTasksFailed, got %v", err)
	}

	var results []map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 observed results, got %d", len(results))
	}
	if results[1]["state"] != "failed" {
		t.Errorf("expected the failing task last, got %v", results[1]["state"])
	}
	if !strings.Contains(results[1]["error"].(string), "injected failure") {
		t.Errorf("unexpected error %v", results[1]["error"])
	}
}

func TestInvokeCommandUnknownFormat(t *testing.T) {
	path := writeCommandsConfig(t)

	_, _, err := executeCommand(t, "invoke", "--config", path, "-o", "csv")
	if err == nil {
		t.Fatal("expected error for unknown output format")
	}
}

func TestPoolCommands(t *testing.T) {
	path := writeCommandsConfig(t)

	manager := config.NewManager(path)
	if _, err := manager.Load(); err != nil {
		t.Fatalf("loading config: %v", err)
	}

	svc, err := serve.Build(manager, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	if err := svc.Lifecycle.Start(context.Background()); err != nil {
		t.Fatalf("starting pools: %v", err)
	}
	defer svc.Lifecycle.Stop(context.Background())

	srv := httptest.NewServer(svc.Admin)
	defer srv.Close()

	stdout, _, err := executeCommand(t, "pool", "stats", "--server", srv.URL, "--no-color")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"POOL", "inline", "worker", "sync", "abort"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected stats table to contain %q, got:\n%s", want, stdout)
		}
	}

	stdout, _, err = executeCommand(t, "pool", "resize", "worker", "--server", srv.URL,
		"--core", "2", "--max", "6", "-o", "json")
	if err != nil {
		t.Fatalf("resize: %v", err)
	}

	var stats []map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &stats); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if stats[0]["core_pool_size"] != float64(2) || stats[0]["max_pool_size"] != float64(6) {
		t.Errorf("unexpected sizes after resize: %v", stats[0])
	}

	_, _, err = executeCommand(t, "pool", "resize", "inline", "--server", srv.URL, "--max", "4")
	if err == nil || !strings.Contains(err.Error(), "synchronous") {
		t.Errorf("expected synchronous pool error, got %v", err)
	}

	_, _, err = executeCommand(t, "pool", "resize", "worker", "--server", srv.URL)
	if err == nil {
		t.Error("expected error when no change is requested")
	}
}

func TestInvokeCommandFailedOnly(t *testing.T) {
	path := writeCommandsConfig(t)

	stdout, _, err := executeCommand(t, "invoke", "--config", path,
		"--pool", "inline", "--tasks", "3", "--fail-at", "0", "--duration", "0", "--failed-only", "-o", "json")
	if !errors.Is(err, invoke.ErrTasksFailed) {
		t.Fatalf("expected ErrTasksFailed, got %v", err)
	}

	var results []map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(results) != 1 || results[0]["state"] != "failed" {
		t.Errorf("expected only the failed task, got %v", results)
	}
}
