package state

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DBFileName is the default database name inside the .treenav directory.
const DBFileName = "tree-state.db"

const createTable = `CREATE TABLE IF NOT EXISTS tree_state (
	path     TEXT PRIMARY KEY,
	expanded INTEGER NOT NULL
)`

// SQLiteStore keeps state in a SQLite database, one row per overridden
// branch. The schema version lives in PRAGMA user_version.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, zerr.Wrap(err, "create state directory")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "open state database"), "path", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		db.Close()
		return nil, zerr.Wrap(err, "initialize tree_state table")
	}
	if _, err := db.ExecContext(ctx, "PRAGMA user_version = 1"); err != nil {
		db.Close()
		return nil, zerr.Wrap(err, "set schema version")
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads every stored override.
func (s *SQLiteStore) Load(ctx context.Context) (*TreeState, error) {
	st := New()
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&st.Version); err != nil {
		return New(), zerr.Wrap(err, "read schema version")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT path, expanded FROM tree_state")
	if err != nil {
		return New(), zerr.Wrap(err, "query tree state")
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		var expanded bool
		if err := rows.Scan(&path, &expanded); err != nil {
			return New(), zerr.Wrap(ErrCorruptState, err.Error())
		}
		st.Expanded[path] = expanded
	}
	if err := rows.Err(); err != nil {
		return New(), zerr.Wrap(err, "iterate tree state")
	}
	return st, nil
}

// Save replaces the stored overrides with st in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, st *TreeState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zerr.Wrap(err, "begin tree state transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tree_state"); err != nil {
		return zerr.Wrap(err, "clear tree state")
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO tree_state (path, expanded) VALUES (?, ?)")
	if err != nil {
		return zerr.Wrap(err, "prepare tree state insert")
	}
	defer stmt.Close()
	for path, expanded := range st.Expanded {
		if _, err := stmt.ExecContext(ctx, path, expanded); err != nil {
			return zerr.With(zerr.Wrap(err, "store tree state"), "path", path)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
