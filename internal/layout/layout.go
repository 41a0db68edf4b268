// Package layout resolves the filesystem locations the supervisor depends
// on: the backend runtime root, the environment config file and the
// per-worker log directory.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// runtimeDirName is the backend runtime directory inside a
	// development checkout.
	runtimeDirName = "python"

	// manifestName is the package manifest that marks a usable runtime
	// root.
	manifestName = "pyproject.toml"

	// packagedRuntimeDir is the runtime directory inside the packaged
	// resource tree.
	packagedRuntimeDir = "backend"

	configFileName   = ".env"
	templateFileName = ".env.example"
)

// ErrResourceDirUnavailable is returned in packaged mode when the host did
// not supply a resource directory.
var ErrResourceDirUnavailable = errors.New("resource directory unavailable")

// ProjectRootError is returned in development mode when no ancestor of the
// start directory contains the backend runtime.
type ProjectRootError struct {
	Start string
}

func (e *ProjectRootError) Error() string {
	return fmt.Sprintf("project root not found walking up from %s (looking for %s/%s)",
		e.Start, runtimeDirName, manifestName)
}

// RuntimeLocation holds the resolved absolute paths the supervisor works
// with. It is computed once at construction and immutable afterwards.
type RuntimeLocation struct {
	// RuntimeRoot contains the worker modules and their package manifest.
	RuntimeRoot string

	// ConfigPath is the environment file applied to every spawned
	// process. The supervisor never parses it.
	ConfigPath string

	// LogDir receives one append-mode log file per worker. It may be
	// empty when worker output is discarded.
	LogDir string
}

// TemplatePath returns the location of the config template, a sibling of
// the runtime root in both deployment modes.
func (l *RuntimeLocation) TemplatePath() string {
	return filepath.Join(filepath.Dir(l.RuntimeRoot), templateFileName)
}

// ManifestPath returns the package manifest inside the runtime root.
func (l *RuntimeLocation) ManifestPath() string {
	return filepath.Join(l.RuntimeRoot, manifestName)
}

// Options controls resolution.
type Options struct {
	// Packaged selects packaged-mode resolution (resource directory)
	// instead of the development-mode checkout walk.
	Packaged bool

	// ResourceDir is the application resource directory. Required in
	// packaged mode.
	ResourceDir string

	// LogDir overrides the default per-worker log directory.
	LogDir string

	// StartDir is where the development-mode walk begins. Defaults to
	// the running executable's directory.
	StartDir string

	// DiscardLogs skips log directory creation entirely.
	DiscardLogs bool
}

// Resolve computes the runtime location for the given deployment mode. It
// fails fast when the runtime root does not exist or lacks its manifest, so
// no process is ever spawned against a broken layout.
func Resolve(opts Options) (*RuntimeLocation, error) {
	var loc RuntimeLocation

	if opts.Packaged {
		if opts.ResourceDir == "" {
			return nil, ErrResourceDirUnavailable
		}
		loc.RuntimeRoot = filepath.Join(opts.ResourceDir, packagedRuntimeDir)
		// The bundle is self-contained: the config lives inside the
		// runtime root.
		loc.ConfigPath = filepath.Join(loc.RuntimeRoot, configFileName)
	} else {
		start := opts.StartDir
		if start == "" {
			exe, err := os.Executable()
			if err != nil {
				return nil, fmt.Errorf("locate executable: %w", err)
			}
			start = filepath.Dir(exe)
		}
		root, err := findProjectRoot(start)
		if err != nil {
			return nil, err
		}
		loc.RuntimeRoot = filepath.Join(root, runtimeDirName)
		// One shared config serves the whole checkout.
		loc.ConfigPath = filepath.Join(root, configFileName)
	}

	if _, err := os.Stat(loc.RuntimeRoot); err != nil {
		return nil, fmt.Errorf("runtime root %s: %w", loc.RuntimeRoot, err)
	}
	if _, err := os.Stat(loc.ManifestPath()); err != nil {
		return nil, fmt.Errorf("runtime manifest %s: %w", loc.ManifestPath(), err)
	}

	if !opts.DiscardLogs {
		logDir := opts.LogDir
		if logDir == "" {
			var err error
			logDir, err = defaultLogDir()
			if err != nil {
				return nil, err
			}
		}
		// No spawned process can be observed without the log
		// directory, so creation failure is fatal to resolution.
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		loc.LogDir = logDir
	}

	return &loc, nil
}

// findProjectRoot walks upward from start until it finds a directory
// containing the backend runtime and its manifest.
func findProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory: %w", err)
	}

	for {
		runtime := filepath.Join(dir, runtimeDirName)
		manifest := filepath.Join(runtime, manifestName)
		if dirExists(runtime) && fileExists(manifest) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", &ProjectRootError{Start: start}
		}
		dir = parent
	}
}

func defaultLogDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate user cache directory: %w", err)
	}
	return filepath.Join(base, "agenthost", "backend"), nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
