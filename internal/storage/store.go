package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
)

// MetaStore is a SQLite key/value store for small durable settings
// such as the favorites set.
type MetaStore struct {
	db *sql.DB
}

// NewMetaStore opens (or creates) the SQLite file with WAL mode enabled.
func NewMetaStore(dbPath string) (*MetaStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	return &MetaStore{db: db}, nil
}

// UpsertMetadata saves a key-value pair, replacing any previous value.
func (s *MetaStore) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

// GetMetadata retrieves a value. A missing key returns "" and no error.
func (s *MetaStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// UpdatedAt returns the write timestamp of key, or 0 if absent.
func (s *MetaStore) UpdatedAt(ctx context.Context, key string) (int64, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT updated_at FROM metadata WHERE key = ?", key).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) || !ts.Valid {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return ts.Int64, nil
}

// Ping checks the database is reachable.
func (s *MetaStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *MetaStore) Close() error {
	return s.db.Close()
}
