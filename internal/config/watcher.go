package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"canopy/pkg/logging"
)

// DefaultDebounceInterval is the quiet period after the last file event
// before OnChange fires. Editors tend to produce bursts of writes.
const DefaultDebounceInterval = 500 * time.Millisecond

// Watcher monitors the config directory for edits of the provider
// allow-list and invokes OnChange after each debounced burst of changes.
type Watcher struct {
	mu sync.Mutex

	configDir string
	onChange  func()

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// NewWatcher creates a watcher over the given config directory. onChange is
// invoked from the watcher's goroutine.
func NewWatcher(configDir string, onChange func()) *Watcher {
	return &Watcher{
		configDir: configDir,
		onChange:  onChange,
	}
}

// Start begins watching. It is a no-op when already running.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsWatcher.Add(w.configDir); err != nil {
		fsWatcher.Close()
		return err
	}

	w.fsWatcher = fsWatcher
	w.stopCh = make(chan struct{})
	w.running = true

	go w.watchLoop()
	logging.Info("Config", "Watching %s for allow-list changes", w.configDir)
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.stopCh)
	w.fsWatcher.Close()
	w.running = false
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != ProvidersFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			logging.Debug("Config", "Allow-list file event: %s", event)
			w.scheduleChange()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Warn("Config", "Watcher error: %v", err)
		}
	}
}

// scheduleChange coalesces rapid successive events into a single OnChange.
func (w *Watcher) scheduleChange() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(DefaultDebounceInterval, w.onChange)
}
