// Package watch delivers debounced file-change notifications for the rule
// and settings files, driving hot reload without process restarts.
package watch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"autoresponder/internal/common/logging"
)

// debounceInterval coalesces the burst of events editors and atomic
// temp-file renames produce for a single logical change.
const debounceInterval = 250 * time.Millisecond

// Watcher watches individual files and invokes a callback when one changes.
// Directories are watched rather than the files themselves, since
// whole-file-replace saves swap the inode out from under a file watch.
type Watcher struct {
	fs     *fsnotify.Watcher
	logger logging.Logger

	mu       sync.Mutex
	handlers map[string]func() // absolute file path -> reload callback
	pending  map[string]*time.Timer
	watched  map[string]bool // directories already registered

	done chan struct{}
	once sync.Once
}

// New creates a watcher and starts its event loop.
func New(logger logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:       fs,
		logger:   logger,
		handlers: make(map[string]func()),
		pending:  make(map[string]*time.Timer),
		watched:  make(map[string]bool),
		done:     make(chan struct{}),
	}

	go w.loop()
	return w, nil
}

// Watch registers a reload callback for changes to the given file.
func (w *Watcher) Watch(path string, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.watched[dir] {
		if err := w.fs.Add(dir); err != nil {
			return err
		}
		w.watched[dir] = true
	}

	w.handlers[abs] = onChange
	w.logger.Debug("Watching file", logging.String("path", abs))
	return nil
}

// Close stops the event loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.dispatch(event.Name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", logging.Err(err))
		}
	}
}

// dispatch debounces per file: the callback runs once per quiet period, not
// once per raw event.
func (w *Watcher) dispatch(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	handler, ok := w.handlers[abs]
	if !ok {
		return
	}

	if timer, exists := w.pending[abs]; exists {
		timer.Stop()
	}
	w.pending[abs] = time.AfterFunc(debounceInterval, func() {
		w.mu.Lock()
		delete(w.pending, abs)
		w.mu.Unlock()

		w.logger.Info("File changed, reloading", logging.String("path", abs))
		handler()
	})
}
