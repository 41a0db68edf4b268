package process

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/agenthost/agenthost/internal/layout"
	"github.com/agenthost/agenthost/internal/toolchain"
)

// PreconditionError reports a launch precondition that no longer holds.
// Preconditions are re-checked immediately before every spawn rather than
// trusted from resolution time, since the filesystem may have changed in
// between.
type PreconditionError struct {
	What string // "runtime root" or "config file"
	Path string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s missing: %s", e.What, e.Path)
}

// LauncherConfig holds everything a Launcher needs to spawn workers.
type LauncherConfig struct {
	UV       toolchain.ToolBinding
	Location *layout.RuntimeLocation
	Logger   *slog.Logger

	// DiscardLogs drops worker output instead of writing per-worker log
	// files.
	DiscardLogs bool

	// SettleDelay is how long Launch pauses after a spawn before
	// re-checking liveness to catch immediate crashes. Zero disables
	// the check.
	SettleDelay time.Duration
}

// Launcher resolves worker identities to uv invocations and spawns them in
// the runtime root with the config file applied.
type Launcher struct {
	uv       toolchain.ToolBinding
	location *layout.RuntimeLocation
	logger   *slog.Logger
	discard  bool
	settle   time.Duration
}

// NewLauncher creates a Launcher.
func NewLauncher(cfg LauncherConfig) *Launcher {
	return &Launcher{
		uv:       cfg.UV,
		location: cfg.Location,
		logger:   cfg.Logger,
		discard:  cfg.DiscardLogs,
		settle:   cfg.SettleDelay,
	}
}

// Launch spawns one worker and returns its handle. An immediate exit
// during the settle window is a warning, not a failure: the handle is
// still returned and the registry's liveness sweep observes the exit.
func (l *Launcher) Launch(ctx context.Context, w Worker) (*ManagedProcess, error) {
	module, err := w.Module()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(l.location.RuntimeRoot); err != nil {
		return nil, &PreconditionError{What: "runtime root", Path: l.location.RuntimeRoot}
	}
	if _, err := os.Stat(l.location.ConfigPath); err != nil {
		return nil, &PreconditionError{What: "config file", Path: l.location.ConfigPath}
	}

	cmd := exec.Command(l.uv.Path, "run", "--env-file", l.location.ConfigPath, "-m", module)
	cmd.Dir = l.location.RuntimeRoot
	// Workers may fork; a process group lets shutdown take the whole
	// tree down.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var logFile *os.File
	logPath := ""
	if !l.discard {
		logPath = filepath.Join(l.location.LogDir, w.String()+".log")
		logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file for %s: %w", w, err)
		}
		// Both streams share one append-mode handle; O_APPEND keeps
		// line-oriented writes from clobbering each other.
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}
	// A nil Stdout/Stderr means the OS null device.

	l.logger.Info("worker_starting",
		"worker", w.String(),
		"module", module,
		"workdir", l.location.RuntimeRoot,
		"log_file", logPath,
	)

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("spawn %s: %w", w, err)
	}

	m := newManaged(w, cmd, logFile)
	l.logger.Info("worker_started", "worker", w.String(), "pid", m.PID())

	if l.settle > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(l.settle):
		}
		if !m.Alive() {
			l.logger.Warn("worker_exited_during_settle",
				"worker", w.String(),
				"pid", m.PID(),
				"exit_code", m.ExitCode(),
			)
		}
	}

	return m, nil
}

// CommandLine renders the invocation Launch would spawn for a worker,
// for the -print-cmd diagnostic mode.
func (l *Launcher) CommandLine(w Worker) (string, error) {
	module, err := w.Module()
	if err != nil {
		return "", err
	}
	parts := []string{l.uv.Path, "run", "--env-file", l.location.ConfigPath, "-m", module}
	return strings.Join(parts, " "), nil
}
