package ui

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/treenav/pkg/loader"
	"github.com/Dicklesworthstone/treenav/pkg/logging"
	"github.com/Dicklesworthstone/treenav/pkg/model"
	"github.com/Dicklesworthstone/treenav/pkg/watcher"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is loading tree data.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerProcessing:
		return "processing"
	case WorkerStopped:
		return "stopped"
	default:
		return fmt.Sprintf("WorkerState(%d)", int(s))
	}
}

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string    // "load" or "hash"
	Cause   error     // The underlying error
	Time    time.Time // When the error occurred
	Retries int       // Consecutive failures so far
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// Sender delivers messages to the UI. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// ForestSnapshot is a freshly loaded forest. It has not been adopted by a
// flattener yet, so it carries no view state.
type ForestSnapshot struct {
	Forest   model.Forest
	Hash     uint64
	LoadedAt time.Time
}

// ForestReadyMsg is sent to the UI when changed tree data has been loaded.
type ForestReadyMsg struct {
	Snapshot *ForestSnapshot
}

// ForestErrorMsg is sent to the UI when reloading fails.
type ForestErrorMsg struct {
	Err         error
	Recoverable bool // True if we expect to recover on next file change
}

// BackgroundWorker reloads tree data off the UI goroutine. It owns the file
// watcher, coalesces bursts of changes and drops reloads whose content did
// not change.
type BackgroundWorker struct {
	paths         []string
	debounceDelay time.Duration
	log           *zap.Logger

	mu         sync.RWMutex
	state      WorkerState
	dirty      bool // a change came in while processing
	snapshot   *ForestSnapshot
	started    bool
	lastHash   uint64
	hasHash    bool
	lastError  *WorkerError
	errorCount int

	watcher *watcher.Watcher
	program Sender

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	Paths         []string
	DebounceDelay time.Duration
	Program       Sender
	Logger        *zap.Logger

	// Watch starts a file watcher on Paths. Without it the worker only
	// reloads on TriggerRefresh.
	Watch bool
}

// NewBackgroundWorker creates a new background worker.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = watcher.DefaultDebounce
	}

	w := &BackgroundWorker{
		paths:         cfg.Paths,
		debounceDelay: cfg.DebounceDelay,
		log:           logging.OrNop(cfg.Logger),
		program:       cfg.Program,
		state:         WorkerIdle,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	if cfg.Watch && len(cfg.Paths) > 0 {
		fw, err := watcher.NewWatcher(cfg.Paths,
			watcher.WithDebounceDuration(cfg.DebounceDelay),
			watcher.WithLogger(w.log),
		)
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}

	return w, nil
}

// SetProgram sets where messages are sent. It must be called before Start.
func (w *BackgroundWorker) SetProgram(p Sender) {
	w.mu.Lock()
	w.program = p
	w.mu.Unlock()
}

// Start begins watching for file changes. Calling it more than once has no
// effect.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher != nil {
		if err := w.watcher.Start(); err != nil {
			return err
		}
		go w.processLoop()
	} else {
		close(w.done)
	}
	return nil
}

// Stop halts the worker. Calling it more than once has no effect.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()
	if w.watcher != nil {
		w.watcher.Stop()
	}

	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
}

// TriggerRefresh reloads the data in the background. If a reload is
// already running, another one follows it.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if w.state == WorkerProcessing {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	go w.process()
}

// GetSnapshot returns the last loaded snapshot (may be nil).
func (w *BackgroundWorker) GetSnapshot() *ForestSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastError returns the most recent error (nil if the last load succeeded).
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// LastHash returns the structural hash of the last loaded forest.
func (w *BackgroundWorker) LastHash() (uint64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash, w.hasHash
}

// SeedHash records the hash of data the UI already shows, so an unchanged
// first reload is skipped.
func (w *BackgroundWorker) SeedHash(hash uint64) {
	w.mu.Lock()
	w.lastHash = hash
	w.hasHash = true
	w.mu.Unlock()
}

// ResetHash forces the next reload to be delivered even if unchanged.
func (w *BackgroundWorker) ResetHash() {
	w.mu.Lock()
	w.hasHash = false
	w.mu.Unlock()
}

func (w *BackgroundWorker) processLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.watcher.Changed():
			w.process()
		}
	}
}

func (w *BackgroundWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	w.mu.Unlock()

	snapshot := w.buildSnapshot()

	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if snapshot != nil {
		w.snapshot = snapshot
	}
	wasDirty := w.dirty
	w.state = WorkerIdle
	program := w.program
	w.mu.Unlock()

	if program != nil && snapshot != nil {
		program.Send(ForestReadyMsg{Snapshot: snapshot})
	}
	if wasDirty {
		go w.process()
	}
}

// safeCompute runs fn and turns an error or panic into a WorkerError.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{
				Phase: phase,
				Cause: err,
				Time:  time.Now(),
			}
		}
	}()
	return result
}

func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

func (w *BackgroundWorker) reportError(err *WorkerError) {
	w.log.Warn("reload failed", zap.String("phase", err.Phase), zap.Error(err.Cause))
	w.recordError(err)

	w.mu.RLock()
	program := w.program
	w.mu.RUnlock()
	if program != nil {
		program.Send(ForestErrorMsg{Err: err, Recoverable: true})
	}
}

// buildSnapshot loads the data files. It returns nil when there is nothing
// to load, loading failed or the content is unchanged.
func (w *BackgroundWorker) buildSnapshot() *ForestSnapshot {
	if len(w.paths) == 0 {
		return nil
	}
	start := time.Now()

	var forest model.Forest
	if err := w.safeCompute("load", func() error {
		var err error
		forest, err = loader.LoadForests(w.ctx, w.paths)
		return err
	}); err != nil {
		w.reportError(err)
		return nil
	}

	var hash uint64
	if err := w.safeCompute("hash", func() error {
		var err error
		hash, err = forest.Hash()
		return err
	}); err != nil {
		w.reportError(err)
		return nil
	}

	w.mu.RLock()
	unchanged := w.hasHash && hash == w.lastHash
	w.mu.RUnlock()
	if unchanged {
		w.log.Debug("tree data unchanged, skipping reload", zap.Uint64("hash", hash))
		w.recordError(nil)
		return nil
	}

	w.recordError(nil)
	w.mu.Lock()
	w.lastHash = hash
	w.hasHash = true
	w.mu.Unlock()

	w.log.Info("tree data reloaded",
		zap.Int("branches", forest.Count()),
		zap.Duration("took", time.Since(start)),
		zap.Uint64("hash", hash),
	)
	return &ForestSnapshot{Forest: forest, Hash: hash, LoadedAt: time.Now()}
}

// WatcherChanged returns the watcher's change channel, or nil without a
// watcher.
func (w *BackgroundWorker) WatcherChanged() <-chan struct{} {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Changed()
}
