// Package prefs persists widget preferences in a local SQLite database so
// the language choice survives restarts.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"harvestwatch/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const keyLanguage = "language"

// Store wraps the preferences database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the preferences database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping preferences database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize preferences schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value for key, or "" when the key has never been set.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM preferences WHERE key = ?", key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalPrefs, "failed to read preference", err)
	}
	return value, nil
}

// Set stores the value for key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalPrefs, "failed to write preference", err)
	}
	return nil
}

// Language returns the persisted display language, or "" when none is set.
func (s *Store) Language(ctx context.Context) (string, error) {
	return s.Get(ctx, keyLanguage)
}

// SetLanguage persists the display language.
func (s *Store) SetLanguage(ctx context.Context, lang string) error {
	return s.Set(ctx, keyLanguage, lang)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
