// Package toolchain locates the external tools the backend runtime needs:
// a Python interpreter and the uv dependency manager.
//
// Resolution probes an ordered list of candidate invocations by running
// each with --version. The first candidate that launches wins; a non-zero
// exit still counts as found, since the goal is only to prove the binary is
// runnable. Bindings are resolved fresh on every startup attempt.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const versionArg = "--version"

// Candidate invocations in preference order: bare names on PATH first,
// then known fixed installation paths.
var (
	interpreterCandidates = []string{"python3", "python"}

	dependencyManagerCandidates = []string{
		"uv",
		"~/.local/bin/uv",
		"/usr/local/bin/uv",
		"~/.cargo/bin/uv",
	}
)

// ToolBinding is a resolved, runnable invocation for a required tool.
type ToolBinding struct {
	// Tool is the logical tool name ("python", "uv").
	Tool string

	// Path is the invocation that answered the version probe. It may be
	// a bare command name or an absolute path.
	Path string
}

// NotFoundError reports that no candidate for a tool answered the version
// probe. Probed lists every invocation attempted, for operator diagnosis.
type NotFoundError struct {
	Tool   string
	Probed []string
	Hint   string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s not found (probed: %s)", e.Tool, strings.Join(e.Probed, ", "))
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

// FindInterpreter resolves a Python interpreter. When override is
// non-empty it becomes the only candidate probed.
func FindInterpreter(ctx context.Context, timeout time.Duration, override string) (ToolBinding, error) {
	return find(ctx, timeout, "python", candidates(interpreterCandidates, override),
		"Install Python 3.12 or newer")
}

// FindDependencyManager resolves the uv dependency manager. When override
// is non-empty it becomes the only candidate probed.
func FindDependencyManager(ctx context.Context, timeout time.Duration, override string) (ToolBinding, error) {
	return find(ctx, timeout, "uv", candidates(dependencyManagerCandidates, override),
		"Install uv: https://docs.astral.sh/uv/getting-started/installation/")
}

func candidates(builtin []string, override string) []string {
	if override != "" {
		return []string{override}
	}
	return builtin
}

func find(ctx context.Context, timeout time.Duration, tool string, cands []string, hint string) (ToolBinding, error) {
	probed := make([]string, 0, len(cands))

	for _, cand := range cands {
		path := expandHome(cand)
		probed = append(probed, path)

		if probe(ctx, timeout, path) {
			return ToolBinding{Tool: tool, Path: path}, nil
		}
	}

	return ToolBinding{}, &NotFoundError{Tool: tool, Probed: probed, Hint: hint}
}

// probe runs one candidate with the version argument under a bounded
// context, discarding its output. A failure to launch, for any reason, is
// treated the same as the candidate not existing; there are no retries.
func probe(ctx context.Context, timeout time.Duration, path string) bool {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(pctx, path, versionArg)
	cmd.Stdout = nil
	cmd.Stderr = nil

	err := cmd.Run()
	if err == nil {
		return true
	}
	if pctx.Err() != nil {
		// Hung probe: the bounded wait expired.
		return false
	}
	// The binary launched but exited non-zero; that still proves it is
	// runnable.
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}
