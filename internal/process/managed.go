package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// State describes where a managed process is in its lifecycle:
// Spawned -> Running -> Exited or Killed.
type State int

const (
	StateSpawned State = iota
	StateRunning
	StateExited
	StateKilled
)

func (s State) String() string {
	switch s {
	case StateSpawned:
		return "spawned"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// ManagedProcess is an opaque handle to one spawned backend process. It is
// exclusively owned by the supervisor's registry from the moment the spawn
// succeeds until shutdown drains it; no other component holds one.
type ManagedProcess struct {
	worker    Worker
	cmd       *exec.Cmd
	logFile   *os.File // closed by the waiter; nil in discard mode
	startTime time.Time

	// The waiter goroutine writes exitErr and exitTime exactly once,
	// then closes done.
	done     chan struct{}
	exitErr  error
	exitTime time.Time

	killRequested atomic.Bool
	killOnce      sync.Once
	killErr       error
}

// newManaged wraps a started command and begins reaping it.
func newManaged(w Worker, cmd *exec.Cmd, logFile *os.File) *ManagedProcess {
	m := &ManagedProcess{
		worker:    w,
		cmd:       cmd,
		logFile:   logFile,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
	go func() {
		m.exitErr = cmd.Wait()
		m.exitTime = time.Now()
		if m.logFile != nil {
			m.logFile.Close()
		}
		close(m.done)
	}()
	return m
}

// Worker returns the identity this process was launched as.
func (m *ManagedProcess) Worker() Worker { return m.worker }

// PID returns the OS process identifier.
func (m *ManagedProcess) PID() int { return m.cmd.Process.Pid }

// Alive reports whether the process has not yet exited.
func (m *ManagedProcess) Alive() bool {
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// State returns the process's current lifecycle state.
func (m *ManagedProcess) State() State {
	if m.Alive() {
		return StateRunning
	}
	if m.killRequested.Load() {
		return StateKilled
	}
	return StateExited
}

// Wait blocks until the process exits or the context is cancelled.
func (m *ManagedProcess) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return m.exitErr
	}
}

// ExitCode returns the process's exit code, or -1 while it is still
// running. Signal exits are reported as 128 plus the signal number.
func (m *ManagedProcess) ExitCode() int {
	select {
	case <-m.done:
		return extractExitCode(m.exitErr)
	default:
		return -1
	}
}

// Uptime returns how long the process has been (or was) running.
func (m *ManagedProcess) Uptime() time.Duration {
	select {
	case <-m.done:
		return m.exitTime.Sub(m.startTime)
	default:
		return time.Since(m.startTime)
	}
}

// Kill forcefully terminates the process and everything in its process
// group. It is best-effort and idempotent; there is no graceful handshake
// with the child.
func (m *ManagedProcess) Kill() error {
	m.killOnce.Do(func() {
		if !m.Alive() {
			return
		}
		m.killRequested.Store(true)

		pid := m.cmd.Process.Pid
		if pgid, err := syscall.Getpgid(pid); err == nil {
			m.killErr = syscall.Kill(-pgid, syscall.SIGKILL)
		} else {
			m.killErr = m.cmd.Process.Kill()
		}
		if errors.Is(m.killErr, os.ErrProcessDone) || errors.Is(m.killErr, syscall.ESRCH) {
			// Lost the race with the process exiting on its own.
			m.killErr = nil
		}
	})
	return m.killErr
}

// extractExitCode maps a Wait error to a conventional exit code.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
	}

	return 1
}
