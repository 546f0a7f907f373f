package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// Watcher watches a configuration file for changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	file      string
	callbacks []func(string)
	mu        sync.RWMutex
	done      chan struct{}
	stopOnce  sync.Once
	logger    hclog.Logger
}

// NewWatcher creates a watcher for the file at path. The directory is
// watched rather than the file so editors that replace the file by rename
// are still noticed.
func NewWatcher(path string, logger hclog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		file:    filepath.Clean(path),
		done:    make(chan struct{}),
		logger:  logger.Named("watcher"),
	}

	dir := filepath.Dir(w.file)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	w.logger.Debug("watching directory for changes", "path", dir, "file", filepath.Base(w.file))
	return w, nil
}

// OnChange registers a callback to be called when the file changes. The
// callback receives the path of the changed file.
func (w *Watcher) OnChange(callback func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start delivers change events until Stop is called.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.logger.Debug("configuration file changed", "file", event.Name, "op", event.Op.String())
				w.notify(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("configuration watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) notify(path string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, cb := range w.callbacks {
		cb(path)
	}
}

// Watch starts a watcher that reloads m whenever its file changes. Reload
// failures are logged and leave the previous configuration in effect.
func (m *Manager) Watch() (*Watcher, error) {
	if err := ensureDir(m.configPath); err != nil {
		return nil, err
	}
	w, err := NewWatcher(m.configPath, m.logger)
	if err != nil {
		return nil, err
	}
	w.OnChange(func(string) {
		if err := m.Load(); err != nil {
			m.logger.Warn("reload failed, keeping previous configuration", "error", err)
			return
		}
		m.logger.Info("configuration reloaded", "path", m.configPath)
	})
	w.StartAsync()
	return w, nil
}
