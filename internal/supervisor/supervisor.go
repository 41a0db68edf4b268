// Package supervisor owns the backend process set: it drives the startup
// sequence (tools, config, dependencies, storage, workers), tracks every
// spawned process in a registry and guarantees each one is torn down
// exactly once on every exit path.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agenthost/agenthost/internal/config"
	"github.com/agenthost/agenthost/internal/layout"
	"github.com/agenthost/agenthost/internal/metrics"
	"github.com/agenthost/agenthost/internal/preflight"
	"github.com/agenthost/agenthost/internal/process"
	"github.com/agenthost/agenthost/internal/stats"
	"github.com/agenthost/agenthost/internal/toolchain"
)

// exitRecordTimeout bounds how long shutdown waits for a killed process's
// final status before recording its stats.
const exitRecordTimeout = 2 * time.Second

// Launcher spawns one backend process per worker identity.
type Launcher interface {
	Launch(ctx context.Context, w process.Worker) (*process.ManagedProcess, error)
}

// Supervisor coordinates the full backend lifecycle. The host harness
// constructs it once at startup, calls StartAll, and routes every shutdown
// signal (window destroyed, application exit) to StopAll. Close is the
// last-resort safety net for hosts that forget.
type Supervisor struct {
	cfg      *config.Config
	logger   *slog.Logger
	location *layout.RuntimeLocation
	registry *Registry
	metrics  *metrics.Collector
	recorder *stats.Recorder

	watcherMu sync.Mutex
	watcher   *preflight.ConfigWatcher
}

// New resolves the runtime layout and constructs the supervisor. Layout
// resolution failures are fatal here, before any external tool runs.
func New(cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) (*Supervisor, error) {
	loc, err := layout.Resolve(layout.Options{
		Packaged:    cfg.Mode == config.ModePackaged,
		ResourceDir: cfg.ResourceDir,
		LogDir:      cfg.LogDir,
		DiscardLogs: cfg.DiscardLogs,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("runtime_resolved",
		"mode", cfg.Mode,
		"runtime_root", loc.RuntimeRoot,
		"config_path", loc.ConfigPath,
		"log_dir", loc.LogDir,
	)

	return &Supervisor{
		cfg:      cfg,
		logger:   logger,
		location: loc,
		registry: NewRegistry(),
		metrics:  collector,
		recorder: stats.NewRecorder(),
	}, nil
}

// Location returns the resolved runtime layout.
func (s *Supervisor) Location() *layout.RuntimeLocation {
	return s.location
}

// StartAll runs the startup sequence: resolve tools, bootstrap the config
// file, synchronize dependencies, initialize storage, then launch every
// worker followed by the server. Pre-flight failures abort before any
// launch; per-worker launch failures are logged and skipped, leaving the
// supervisor in degraded mode with whichever subset started.
func (s *Supervisor) StartAll(ctx context.Context) error {
	// Tool bindings are resolved fresh on every startup attempt, never
	// cached across restarts.
	if _, err := toolchain.FindInterpreter(ctx, s.cfg.ProbeTimeout, s.cfg.PythonPath); err != nil {
		return fmt.Errorf("resolve interpreter: %w", err)
	}
	uv, err := toolchain.FindDependencyManager(ctx, s.cfg.ProbeTimeout, s.cfg.UVPath)
	if err != nil {
		return fmt.Errorf("resolve dependency manager: %w", err)
	}
	s.logger.Info("tools_resolved", "uv", uv.Path)

	if err := preflight.EnsureConfigFile(s.logger, s.location); err != nil {
		return err
	}

	if watcher, err := preflight.WatchConfig(s.logger, s.location.ConfigPath); err != nil {
		s.logger.Warn("config_watch_unavailable", "error", err)
	} else {
		s.setWatcher(watcher)
	}

	if s.cfg.SkipSync {
		s.logger.Warn("dependency_sync_skipped")
	} else {
		start := time.Now()
		if err := preflight.SyncDependencies(ctx, s.logger, uv, s.location.RuntimeRoot, s.cfg.SyncTimeout); err != nil {
			return err
		}
		s.metrics.DependencySyncDuration(time.Since(start))
	}

	if s.cfg.SkipStorage {
		s.logger.Info("storage_init_skipped", "reason", "disabled by configuration")
	} else {
		preflight.InitStorage(ctx, s.logger, uv, s.location, s.cfg.InitTimeout)
	}

	launcher := process.NewLauncher(process.LauncherConfig{
		UV:          uv,
		Location:    s.location,
		Logger:      s.logger,
		DiscardLogs: s.cfg.DiscardLogs,
		SettleDelay: s.cfg.SettleDelay,
	})
	s.launchAll(ctx, launcher)
	s.livenessSweep(ctx)

	return nil
}

// launchAll spawns every worker in the fixed launch order. A failed launch
// never blocks the remaining workers.
func (s *Supervisor) launchAll(ctx context.Context, launcher Launcher) {
	for _, w := range process.Workers {
		proc, err := launcher.Launch(ctx, w)
		if err != nil {
			s.logger.Error("worker_launch_failed", "worker", w.String(), "error", err)
			s.metrics.LaunchFailed()
			s.recorder.RecordLaunchFailure()
			continue
		}
		s.registry.Add(proc)
		s.metrics.WorkerLaunched()
		s.recorder.RecordLaunch()
	}

	s.logger.Info("backend_started",
		"launched", s.registry.Len(),
		"expected", len(process.Workers),
	)
}

// livenessSweep waits the configured interval, then checks every tracked
// process's exit status without blocking. All processes exiting
// immediately is flagged distinctly: it usually means a systemic
// misconfiguration, not an individual worker bug.
func (s *Supervisor) livenessSweep(ctx context.Context) (live, total int) {
	total = s.registry.Len()
	if total == 0 {
		return 0, 0
	}

	select {
	case <-ctx.Done():
		return s.registry.Live(), total
	case <-time.After(s.cfg.SweepInterval):
	}

	for _, p := range s.registry.Snapshot() {
		if p.Alive() {
			live++
			continue
		}
		s.logger.Warn("worker_exited_early",
			"worker", p.Worker().String(),
			"pid", p.PID(),
			"exit_code", p.ExitCode(),
		)
	}

	s.metrics.SetLive(live)
	s.logger.Info("liveness_sweep", "live", live, "total", total)

	if live == 0 {
		s.logger.Error("all_workers_exited_immediately",
			"log_dir", s.location.LogDir,
			"hint", "check the worker log files for startup errors",
		)
	}
	return live, total
}

// Liveness reports how many tracked processes are still alive out of the
// total tracked.
func (s *Supervisor) Liveness() (live, total int) {
	return s.registry.Live(), s.registry.Len()
}

// StopAll terminates every tracked process exactly once and leaves the
// registry empty. Termination failures are logged per process and never
// block the remaining entries. Idempotent: the host may call it from both
// the window-destroyed and application-exit paths.
func (s *Supervisor) StopAll() {
	s.closeWatcher()

	procs := s.registry.Drain()
	if len(procs) == 0 {
		return
	}

	s.logger.Info("stopping_backend", "count", len(procs))
	for _, p := range procs {
		if err := p.Kill(); err != nil {
			s.logger.Error("worker_termination_failed",
				"worker", p.Worker().String(),
				"pid", p.PID(),
				"error", err,
			)
			s.metrics.ProcessTerminated(true)
			continue
		}
		s.metrics.ProcessTerminated(false)

		waitCtx, cancel := context.WithTimeout(context.Background(), exitRecordTimeout)
		_ = p.Wait(waitCtx)
		cancel()
		s.recorder.RecordExit(p.ExitCode(), p.Uptime())
	}

	s.metrics.SetLive(0)
	s.logger.Info("backend_stopped", "count", len(procs))
}

// Close implements io.Closer as the teardown safety net: whatever owns the
// supervisor can defer it and get the same idempotent shutdown the
// lifecycle signals trigger.
func (s *Supervisor) Close() error {
	s.StopAll()
	return nil
}

// Summary snapshots lifecycle statistics for the exit report.
func (s *Supervisor) Summary() stats.Summary {
	return s.recorder.Summary()
}

func (s *Supervisor) setWatcher(w *preflight.ConfigWatcher) {
	s.watcherMu.Lock()
	defer s.watcherMu.Unlock()
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.watcher = w
}

func (s *Supervisor) closeWatcher() {
	s.watcherMu.Lock()
	defer s.watcherMu.Unlock()
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}
