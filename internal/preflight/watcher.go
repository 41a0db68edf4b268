package preflight

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher notices edits to the environment config file while the
// application is running and tells the operator a restart is needed. The
// supervisor never re-reads the file itself; spawned processes only see it
// at launch time.
type ConfigWatcher struct {
	watcher   *fsnotify.Watcher
	logger    *slog.Logger
	path      string
	closeOnce sync.Once
	done      chan struct{}
}

// WatchConfig starts watching the config file's directory. Watching the
// directory rather than the file survives editors that replace the file on
// save. The watcher is best-effort: callers should log and continue on
// error.
func WatchConfig(logger *slog.Logger, path string) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	cw := &ConfigWatcher{
		watcher: w,
		logger:  logger,
		path:    filepath.Clean(path),
		done:    make(chan struct{}),
	}
	go cw.run()
	return cw, nil
}

func (cw *ConfigWatcher) run() {
	defer close(cw.done)
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cw.logger.Warn("config_changed",
				"config", cw.path,
				"action", "restart the application to apply changes",
			)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Debug("config_watch_error", "error", err)
		}
	}
}

// Close stops the watcher. Safe to call multiple times.
func (cw *ConfigWatcher) Close() error {
	var err error
	cw.closeOnce.Do(func() {
		err = cw.watcher.Close()
		<-cw.done
	})
	return err
}
