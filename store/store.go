// Package store implements a local SQLite cache of conversations, so list
// and search work offline and the TUI has something to show before the
// backend answers.
package store

import (
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/siralabs/sira/internal/file"
)

// Store implements a SQLite cache for conversations.
type Store struct {
	db *sql.DB
}

// New store.
func New(dbPath string) (*Store, error) {
	if err := file.EnsureParentDirectory(dbPath); err != nil {
		return nil, errors.Wrap(err, "creating database directory")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			messages TEXT NOT NULL
		)
	`)
	if err != nil {
		return nil, errors.Wrap(err, "creating conversations table")
	}

	_, err = db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS conversations_fts USING fts5(
			id,
			searchable_content
		)
	`)
	if err != nil {
		return nil, errors.Wrap(err, "creating FTS table")
	}

	return &Store{
		db: db,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
