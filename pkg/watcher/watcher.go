// Package watcher reports debounced changes to tree data files.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/zerr"
	"go.uber.org/zap"
)

// ErrNoPaths is returned by NewWatcher when given nothing to watch.
var ErrNoPaths = zerr.New("no paths to watch")

// DefaultDebounce coalesces editor save bursts into one change.
const DefaultDebounce = 200 * time.Millisecond

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets how long the file must be quiet before a change
// is reported.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for watch errors.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// Watcher watches a set of files. The parent directories are watched so
// that editors which save by rename are still noticed.
type Watcher struct {
	paths    map[string]struct{}
	dirs     []string
	debounce time.Duration
	log      *zap.Logger

	fs      *fsnotify.Watcher
	changed chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher for paths. It does not watch until Start.
func NewWatcher(paths []string, opts ...Option) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}
	w := &Watcher{
		paths:    make(map[string]struct{}, len(paths)),
		debounce: DefaultDebounce,
		log:      zap.NewNop(),
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	seenDir := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "resolve watch path"), "path", p)
		}
		w.paths[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if !seenDir[dir] {
			seenDir[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, "create fsnotify watcher")
	}
	w.fs = fs
	w.ctx, w.cancel = context.WithCancel(context.Background())
	return w, nil
}

// Start begins watching. Calling it more than once is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return nil
	}
	for _, dir := range w.dirs {
		if err := w.fs.Add(dir); err != nil {
			return zerr.With(zerr.Wrap(err, "watch directory"), "dir", dir)
		}
	}
	w.started = true
	go w.loop()
	return nil
}

// Stop stops watching and releases the fsnotify handle. It is safe to call
// more than once and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.cancel()
	_ = w.fs.Close()
	if started {
		<-w.done
	}
}

// Changed delivers a value after each debounced change. Changes that
// happen while a notification is still pending are merged into it.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Paths returns the absolute paths being watched.
func (w *Watcher) Paths() []string {
	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	return out
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.schedule()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.paths[abs]
	return ok
}

// schedule restarts the quiet-period timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.notify)
}

func (w *Watcher) notify() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}
