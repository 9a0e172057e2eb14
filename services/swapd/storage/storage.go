package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/sqlite"

	kv "smartswap/storage"
)

// Storage is a sqlite-backed key/value table satisfying storage.Database.
// swapd keeps its audit log, favourites and token cache here.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

var (
	// ErrPathRequired is returned when the backing store path is missing.
	ErrPathRequired = errors.New("swapd storage path must be configured")

	errNotConfigured = errors.New("storage not configured")
)

var _ kv.Database = (*Storage)(nil)

// Open initialises the backing store using sqlite-compatible DSN.
func Open(dsn string) (*Storage, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Storage{db: db, now: time.Now}, nil
}

// Close releases database resources.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errNotConfigured
	}
	return s.db.PingContext(ctx)
}

// Put inserts or replaces the value stored under key.
func (s *Storage) Put(key string, value []byte) error {
	return s.PutContext(context.Background(), key, value)
}

// PutContext is Put bounded by ctx.
func (s *Storage) PutContext(ctx context.Context, key string, value []byte) error {
	if s == nil || s.db == nil {
		return errNotConfigured
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
    `, key, value, s.now().UTC())
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key or storage.ErrNotFound.
func (s *Storage) Get(key string) ([]byte, error) {
	return s.GetContext(context.Background(), key)
}

// GetContext is Get bounded by ctx.
func (s *Storage) GetContext(ctx context.Context, key string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, errNotConfigured
	}
	var value []byte
	row := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Delete removes key. Missing keys are not an error.
func (s *Storage) Delete(key string) error {
	if s == nil || s.db == nil {
		return errNotConfigured
	}
	if _, err := s.db.ExecContext(context.Background(), `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`
