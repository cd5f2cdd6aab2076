// Package state persists expand/collapse overrides between sessions.
//
// Branches are keyed by label path, so saved state survives reloads and
// edits elsewhere in the tree. Only branches whose expand state differs
// from the default are stored; everything else follows the expand level.
package state

import (
	"context"

	"go.trai.ch/zerr"

	"github.com/Dicklesworthstone/treenav/pkg/model"
)

// Version is the current schema version.
const Version = 1

// ErrCorruptState means saved state could not be decoded. Callers fall back
// to defaults.
var ErrCorruptState = zerr.New("saved tree state is corrupt")

// TreeState is the persisted view state.
type TreeState struct {
	Version  int             `json:"version"`
	Expanded map[string]bool `json:"expanded"` // label path -> explicit state
}

// New returns an empty state at the current version.
func New() *TreeState {
	return &TreeState{
		Version:  Version,
		Expanded: make(map[string]bool),
	}
}

// Store loads and saves TreeState.
type Store interface {
	Load(ctx context.Context) (*TreeState, error)
	Save(ctx context.Context, s *TreeState) error
	Close() error
}

// DefaultExpanded is the expand state a branch gets when nothing was saved
// for it.
func DefaultExpanded(b *model.Branch, expandLevel int) bool {
	if b.ExpandedOverride != nil {
		return *b.ExpandedOverride
	}
	return b.Level < expandLevel
}

// Capture records every branch whose expand state differs from its default.
// Leaves are skipped since their expand state is never visible.
func Capture(forest model.Forest, expandLevel int) *TreeState {
	s := New()
	forest.WalkPaths(func(b *model.Branch, path string) {
		if !b.HasChildren() {
			return
		}
		if b.Expanded != DefaultExpanded(b, expandLevel) {
			s.Expanded[path] = b.Expanded
		}
	})
	return s
}

// Apply sets the saved expand state on matching branches and returns how
// many were changed. Paths that no longer exist are ignored.
func Apply(forest model.Forest, s *TreeState) int {
	if s == nil || len(s.Expanded) == 0 {
		return 0
	}
	n := 0
	forest.WalkPaths(func(b *model.Branch, path string) {
		if expanded, ok := s.Expanded[path]; ok && b.Expanded != expanded {
			b.Expanded = expanded
			n++
		}
	})
	return n
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = zerr.New("unknown state backend")

// Open returns the store for backend at path.
func Open(ctx context.Context, backend, path string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewFileStore(path), nil
	case BackendSQLite:
		return OpenSQLite(ctx, path)
	default:
		return nil, zerr.With(ErrUnknownBackend, "backend", backend)
	}
}
