package preflight

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/agenthost/agenthost/internal/logging"
)

// syncBuffer makes a bytes.Buffer safe for the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForLog(t *testing.T, buf *syncBuffer, substr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if bytes.Contains([]byte(buf.String()), []byte(substr)) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("log event %q never appeared: %s", substr, buf.String())
}

func TestWatchConfig_NoticesEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("KEY=a\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	buf := &syncBuffer{}
	logger := logging.NewLoggerWithWriter(buf, "json", "info")

	cw, err := WatchConfig(logger, path)
	if err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}
	defer cw.Close()

	if err := os.WriteFile(path, []byte("KEY=b\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	waitForLog(t, buf, "config_changed")
}

func TestWatchConfig_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("KEY=a\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	buf := &syncBuffer{}
	logger := logging.NewLoggerWithWriter(buf, "json", "info")

	cw, err := WatchConfig(logger, path)
	if err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}
	defer cw.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if bytes.Contains([]byte(buf.String()), []byte("config_changed")) {
		t.Errorf("sibling file edit triggered config_changed: %s", buf.String())
	}
}

func TestWatchConfig_SurvivesReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("KEY=a\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	buf := &syncBuffer{}
	logger := logging.NewLoggerWithWriter(buf, "json", "info")

	cw, err := WatchConfig(logger, path)
	if err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}
	defer cw.Close()

	// Editor-style save: write a temp file and rename it over the config.
	tmp := filepath.Join(dir, ".env.tmp")
	if err := os.WriteFile(tmp, []byte("KEY=b\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	waitForLog(t, buf, "config_changed")
}

func TestConfigWatcher_CloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	logger := logging.NewLoggerWithWriter(&syncBuffer{}, "json", "info")
	cw, err := WatchConfig(logger, path)
	if err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}

	if err := cw.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := cw.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestWatchConfig_MissingDir(t *testing.T) {
	logger := logging.NewLoggerWithWriter(&syncBuffer{}, "json", "info")
	if _, err := WatchConfig(logger, filepath.Join(t.TempDir(), "nope", ".env")); err == nil {
		t.Error("expected error watching a missing directory")
	}
}
