package state

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"go.trai.ch/zerr"
)

// FileName is the default state file name inside the .treenav directory.
const FileName = "tree-state.json"

// FileStore keeps state in a JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the state file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state file. A missing file is an empty state. A corrupt
// file returns an empty state together with ErrCorruptState.
func (s *FileStore) Load(_ context.Context) (*TreeState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return New(), zerr.With(zerr.Wrap(err, "read tree state"), "path", s.path)
	}

	var st TreeState
	if err := json.Unmarshal(data, &st); err != nil {
		return New(), zerr.With(zerr.Wrap(ErrCorruptState, err.Error()), "path", s.path)
	}
	if st.Expanded == nil {
		st.Expanded = make(map[string]bool)
	}
	return &st, nil
}

// Save writes st, creating the parent directory if needed. The file is
// replaced atomically.
func (s *FileStore) Save(_ context.Context, st *TreeState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "encode tree state")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return zerr.With(zerr.Wrap(err, "create state directory"), "dir", dir)
	}

	tmp, err := os.CreateTemp(dir, ".tree-state-*")
	if err != nil {
		return zerr.Wrap(err, "create temp state file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return zerr.Wrap(err, "write tree state")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return zerr.Wrap(err, "close tree state")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return zerr.With(zerr.Wrap(err, "replace tree state"), "path", s.path)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
