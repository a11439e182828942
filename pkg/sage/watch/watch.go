// Package watch re-checks templates when they change on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sambeau/sage/pkg/sage"
)

// DefaultDebounce is how long a path must be quiet before it is handled.
const DefaultDebounce = 100 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Extensions []string // file extensions to handle inside watched directories
	Debounce   time.Duration
	Logger     sage.Logger
}

// Watcher monitors directories and individual files and calls a handler
// once per burst of changes to a path. Handler calls are serialized.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool // individually watched files, by absolute path
	exts     map[string]bool
	debounce time.Duration
	logger   sage.Logger
	handle   func(path string)

	mu      sync.Mutex
	pending map[string]*time.Timer
	fire    chan string
	done    chan struct{}
	changes uint64
}

// New creates a watcher over roots. A root that is a directory is watched
// recursively for files with one of the configured extensions; a root that
// is a file is watched whatever its extension. Watches are in place when New
// returns.
func New(roots []string, opts *Options, handle func(path string)) (*Watcher, error) {
	if opts == nil {
		opts = &Options{}
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		files:    make(map[string]bool),
		exts:     make(map[string]bool),
		debounce: opts.Debounce,
		logger:   opts.Logger,
		handle:   handle,
		pending:  make(map[string]*time.Timer),
		fire:     make(chan string),
		done:     make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = sage.NullLogger()
	}
	for _, ext := range opts.Extensions {
		w.exts[strings.ToLower(ext)] = true
	}

	for _, root := range roots {
		if err := w.add(root); err != nil {
			fsWatcher.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	if !info.IsDir() {
		// Editors often replace files, so watch the directory instead.
		if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
		w.files[abs] = true
		w.logInfo("watching file: %s", root)
		return nil
	}

	if err := w.watchDirRecursive(abs); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	w.logInfo("watching directory: %s", root)
	return nil
}

// watchDirRecursive adds a directory and its subdirectories to the watch list
func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if info.IsDir() {
			// Skip hidden directories
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Run handles events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case path := <-w.fire:
			w.handle(path)

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logError("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only handle write and create events
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(info.Name(), ".") {
				if err := w.watchDirRecursive(event.Name); err != nil {
					w.logError("failed to watch %s: %v", event.Name, err)
				}
			}
			return
		}
	}

	if !w.wants(event.Name) {
		return
	}
	w.schedule(event.Name)
}

// wants reports whether path is a watched file or has a watched extension.
func (w *Watcher) wants(path string) bool {
	if w.files[path] {
		return true
	}
	if abs, err := filepath.Abs(path); err == nil && w.files[abs] {
		return true
	}
	return w.exts[strings.ToLower(filepath.Ext(path))]
}

// schedule restarts the quiet period for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.changes++
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.fire <- path:
		case <-w.done:
		}
	})
}

// Changes returns the number of relevant file events seen so far,
// including those absorbed by debouncing.
func (w *Watcher) Changes() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changes
}

func (w *Watcher) close() {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	close(w.done)
	w.watcher.Close()
}

func (w *Watcher) logInfo(format string, args ...any) {
	w.logger.LogLine(sage.LevelInfo, "[WATCH] "+fmt.Sprintf(format, args...))
}

func (w *Watcher) logError(format string, args ...any) {
	w.logger.LogLine(sage.LevelError, "[WATCH] "+fmt.Sprintf(format, args...))
}
