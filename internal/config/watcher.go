package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"listacerta/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk and hands the new
// config to a callback. The parent directory is watched so editors that
// replace the file on save are still seen.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	onReload func(*Config)
	settle   time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	reloads  int
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, onReload func(*Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  w,
		path:     filepath.Clean(path),
		onReload: onReload,
		settle:   200 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return w.abort(err)
	}
	if err := w.watcher.Add(dir); err != nil {
		return w.abort(err)
	}
	logging.Get(logging.CategoryConfig).Info("Watching config: %s", w.path)

	go w.run(ctx)
	return nil
}

// abort releases the fsnotify handle after a failed Start.
func (w *Watcher) abort(err error) error {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	if cerr := w.watcher.Close(); cerr != nil {
		logging.Get(logging.CategoryConfig).Error("Error closing config watcher: %v", cerr)
	}
	return err
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryConfig).Error("Error closing config watcher: %v", err)
	}
}

// Reloads returns how many successful reloads were delivered.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	// Rapid saves collapse into one reload.
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending = time.After(w.settle)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryConfig).Error("Config watcher error: %v", err)
		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logging.Get(logging.CategoryConfig).Warn("Config reload failed, keeping previous: %v", err)
		return
	}
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	logging.Get(logging.CategoryConfig).Info("Config reloaded from %s", w.path)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
