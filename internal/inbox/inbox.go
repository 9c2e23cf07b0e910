// Package inbox watches a directory for sequence files.
//
// Each *.json file that is created or written in the directory is read
// after a short debounce and handed to a callback. The serve command uses
// it to load sequences dropped into a folder while it runs.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last write to a file
// before it is read.
const DefaultDebounce = 100 * time.Millisecond

// Handler receives the contents of a sequence file.
type Handler func(path string, data []byte)

// Watcher delivers sequence files from a directory to a Handler.
type Watcher struct {
	dir      string
	handle   Handler
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher for dir. Nothing is watched until Run.
func New(dir string, handle Handler, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		handle:   handle,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		pending:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the directory until ctx is cancelled. Files already present
// when Run starts are delivered first, in name order.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", w.dir, err)
	}
	w.logger.Info("inbox watching", "dir", w.dir)

	if err := w.scan(); err != nil {
		return err
	}

	defer w.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSequenceFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watcher error", "error", err)
		}
	}
}

// scan delivers files already in the directory.
func (w *Watcher) scan() error {
	matches, err := filepath.Glob(filepath.Join(w.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("scan inbox: %w", err)
	}
	for _, path := range matches {
		w.deliver(path)
	}
	return nil
}

// schedule debounces rapid writes to the same file.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.deliver(path)
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) deliver(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("inbox read failed", "path", path, "error", err)
		return
	}
	w.logger.Debug("inbox file received", "path", path, "bytes", len(data))
	w.handle(path, data)
}

func isSequenceFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
