package layout

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// devCheckout builds a minimal development-mode project tree and returns
// its root.
func devCheckout(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	runtime := filepath.Join(root, "python")
	if err := os.MkdirAll(runtime, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runtime, "pyproject.toml"), []byte("[project]\nname = \"backend\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

// packagedBundle builds a minimal packaged resource tree and returns the
// resource directory.
func packagedBundle(t *testing.T) string {
	t.Helper()
	resources := t.TempDir()
	runtime := filepath.Join(resources, "backend")
	if err := os.MkdirAll(runtime, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runtime, "pyproject.toml"), []byte("[project]\nname = \"backend\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return resources
}

func TestResolve_Development(t *testing.T) {
	root := devCheckout(t)
	logDir := filepath.Join(t.TempDir(), "logs")

	loc, err := Resolve(Options{StartDir: root, LogDir: logDir})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if loc.RuntimeRoot != filepath.Join(root, "python") {
		t.Errorf("RuntimeRoot = %s", loc.RuntimeRoot)
	}
	if loc.ConfigPath != filepath.Join(root, ".env") {
		t.Errorf("ConfigPath = %s", loc.ConfigPath)
	}
	if loc.LogDir != logDir {
		t.Errorf("LogDir = %s, want %s", loc.LogDir, logDir)
	}
	if _, err := os.Stat(logDir); err != nil {
		t.Errorf("log directory not created: %v", err)
	}
}

func TestResolve_DevelopmentWalksUp(t *testing.T) {
	root := devCheckout(t)
	nested := filepath.Join(root, "build", "bin")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	loc, err := Resolve(Options{StartDir: nested, DiscardLogs: true})
	if err != nil {
		t.Fatalf("Resolve from nested dir: %v", err)
	}
	if loc.RuntimeRoot != filepath.Join(root, "python") {
		t.Errorf("RuntimeRoot = %s, walk did not find %s", loc.RuntimeRoot, root)
	}
}

func TestResolve_DevelopmentNoRoot(t *testing.T) {
	_, err := Resolve(Options{StartDir: t.TempDir(), DiscardLogs: true})

	var pre *ProjectRootError
	if !errors.As(err, &pre) {
		t.Fatalf("Resolve = %v, want *ProjectRootError", err)
	}
}

func TestResolve_Packaged(t *testing.T) {
	resources := packagedBundle(t)

	loc, err := Resolve(Options{Packaged: true, ResourceDir: resources, DiscardLogs: true})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if loc.RuntimeRoot != filepath.Join(resources, "backend") {
		t.Errorf("RuntimeRoot = %s", loc.RuntimeRoot)
	}
	if loc.ConfigPath != filepath.Join(resources, "backend", ".env") {
		t.Errorf("ConfigPath = %s", loc.ConfigPath)
	}
	if loc.LogDir != "" {
		t.Errorf("LogDir = %q, want empty when logs are discarded", loc.LogDir)
	}
}

func TestResolve_PackagedNoResourceDir(t *testing.T) {
	_, err := Resolve(Options{Packaged: true, DiscardLogs: true})
	if !errors.Is(err, ErrResourceDirUnavailable) {
		t.Errorf("Resolve = %v, want ErrResourceDirUnavailable", err)
	}
}

func TestResolve_MissingManifest(t *testing.T) {
	resources := t.TempDir()
	if err := os.MkdirAll(filepath.Join(resources, "backend"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := Resolve(Options{Packaged: true, ResourceDir: resources, DiscardLogs: true})
	if err == nil {
		t.Fatal("expected error for runtime root without manifest")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Resolve = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestResolve_MissingRuntimeRoot(t *testing.T) {
	_, err := Resolve(Options{Packaged: true, ResourceDir: t.TempDir(), DiscardLogs: true})
	if err == nil {
		t.Fatal("expected error for missing runtime root")
	}
}

func TestTemplatePath(t *testing.T) {
	resources := packagedBundle(t)

	loc, err := Resolve(Options{Packaged: true, ResourceDir: resources, DiscardLogs: true})
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(resources, ".env.example")
	if got := loc.TemplatePath(); got != want {
		t.Errorf("TemplatePath() = %s, want %s", got, want)
	}
}

func TestManifestPath(t *testing.T) {
	loc := &RuntimeLocation{RuntimeRoot: "/opt/app/backend"}
	want := filepath.Join("/opt/app/backend", "pyproject.toml")
	if got := loc.ManifestPath(); got != want {
		t.Errorf("ManifestPath() = %s, want %s", got, want)
	}
}
