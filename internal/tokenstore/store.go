package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SessionTokenKey is the fixed key the session bearer token lives under.
const SessionTokenKey = "userToken"

// Store is a small sqlite-backed key-value store for session state.
// Values survive restarts; the backend remains authoritative for
// everything else.
type Store struct {
	db *sqlx.DB
}

// Open initializes the store at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate token store: %w", err)
	}
	return &Store{db: db}, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS kv_store (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        );`,
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value under key. An absent key is not an error; it
// yields an empty string, matching how the app treats a missing token.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv_store WHERE key=?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv_store (key, value) VALUES (?, ?)
        ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key=?`, key)
	return err
}

// Token reads the session bearer token. Empty means unauthenticated.
func (s *Store) Token(ctx context.Context) (string, error) {
	return s.Get(ctx, SessionTokenKey)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
