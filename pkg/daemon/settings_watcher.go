package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/proctrack/settings"
	"github.com/sirupsen/logrus"
)

// SettingsWatcher reloads the settings store when its file changes on disk.
// Reload notifies the store's subscribers, which apply the new values.
type SettingsWatcher struct {
	watcher  *fsnotify.Watcher
	store    *settings.Store
	debounce time.Duration
	logger   *logrus.Entry
	onReload func(file string) // Callback to broadcast event

	mu    sync.Mutex
	timer *time.Timer
}

// NewSettingsWatcher creates a SettingsWatcher for the store's file. The
// directory is watched rather than the file because settings are saved by
// renaming a temporary file over it. Bursts of events within debounce are
// coalesced into one reload after the last event.
func NewSettingsWatcher(store *settings.Store, debounce time.Duration, logger *logrus.Entry, onReload func(string)) (*SettingsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(store.Path())
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &SettingsWatcher{
		watcher:  watcher,
		store:    store,
		debounce: debounce,
		logger:   logger,
		onReload: onReload,
	}, nil
}

// Start begins watching for settings changes. It blocks until the context is cancelled.
func (w *SettingsWatcher) Start(ctx context.Context) {
	target := filepath.Clean(w.store.Path())
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.stopTimer()
			w.watcher.Close()
			return
		}
	}
}

// schedule (re)arms the debounce timer.
func (w *SettingsWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *SettingsWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *SettingsWatcher) reload() {
	if _, err := w.store.Reload(); err != nil {
		w.logger.WithError(err).Warn("Failed to reload settings")
		return
	}
	w.logger.Infof("Settings changed: %s", filepath.Base(w.store.Path()))
	if w.onReload != nil {
		w.onReload(w.store.Path())
	}
}

// Close stops the watcher and releases resources.
func (w *SettingsWatcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}
