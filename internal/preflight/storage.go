package preflight

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/agenthost/agenthost/internal/layout"
	"github.com/agenthost/agenthost/internal/toolchain"
)

// storageInitScript is the one-shot schema setup entry point, relative to
// the runtime root. Older backend bundles ship without it.
const storageInitScript = "backend/server/db/init_db.py"

// InitStorage runs the storage initialization script once if it exists.
// Initialization is idempotent on the backend side, so every failure mode
// here is logged and swallowed; repeated attempts across restarts are
// expected.
func InitStorage(ctx context.Context, logger *slog.Logger, uv toolchain.ToolBinding, loc *layout.RuntimeLocation, timeout time.Duration) {
	script := filepath.Join(loc.RuntimeRoot, filepath.FromSlash(storageInitScript))
	if _, err := os.Stat(script); err != nil {
		logger.Info("storage_init_skipped", "script", script, "reason", "script not present")
		return
	}

	logger.Info("storage_init_starting", "script", script)

	ictx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ictx, uv.Path, "run", "--env-file", loc.ConfigPath, script)
	cmd.Dir = loc.RuntimeRoot

	out, err := cmd.CombinedOutput()
	if err != nil {
		logger.Warn("storage_init_failed",
			"error", err,
			"output", strings.TrimSpace(string(out)),
			"action", "continuing; storage may already be initialized",
		)
		return
	}

	logger.Info("storage_initialized")
}
