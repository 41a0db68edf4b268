package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/agenthost/agenthost/internal/toolchain"
)

// SyncError reports a failed dependency synchronization. It aborts startup
// entirely: a missing dependency would otherwise surface as a confusing
// worker-level crash.
type SyncError struct {
	Output string
	Err    error
}

func (e *SyncError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("dependency sync failed: %v: %s", e.Err, e.Output)
	}
	return fmt.Sprintf("dependency sync failed: %v", e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// SyncDependencies runs the dependency manager's sync command against the
// lock file in the runtime root. It blocks until the sync completes, fails
// or the bounded wait expires.
func SyncDependencies(ctx context.Context, logger *slog.Logger, uv toolchain.ToolBinding, runtimeRoot string, timeout time.Duration) error {
	logger.Info("dependency_sync_starting", "runtime_root", runtimeRoot)
	start := time.Now()

	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(sctx, uv.Path, "sync", "--frozen")
	cmd.Dir = runtimeRoot

	out, err := cmd.CombinedOutput()
	if err != nil {
		return &SyncError{Output: strings.TrimSpace(string(out)), Err: err}
	}

	logger.Info("dependencies_synced", "elapsed", time.Since(start).String())
	return nil
}
