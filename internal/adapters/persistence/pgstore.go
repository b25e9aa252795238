package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// Postgres driver registration.
	_ "github.com/lib/pq"
)

// PGStore implements Store on a Postgres key/blob table. Each key holds one
// JSON document; saves upsert the whole document, which matches the
// engine's collection-at-a-time write pattern.
type PGStore struct {
	db    *sql.DB
	table string
}

const defaultTable = "streakd_state"

// NewPGStore opens a Postgres-backed store and ensures its table exists.
func NewPGStore(ctx context.Context, dsn string, opts ...PGOption) (*PGStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PGStore{db: db, table: defaultTable}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.ensureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// PGOption applies a configuration option to the PGStore.
type PGOption func(*PGStore)

// WithTable overrides the state table name.
func WithTable(table string) PGOption {
	return func(s *PGStore) {
		if table != "" {
			s.table = table
		}
	}
}

func (s *PGStore) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create state table: %w", err)
	}
	return nil
}

// Save upserts the value's JSON document under key.
func (s *PGStore) Save(ctx context.Context, key string, value any) error {
	blob, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = now()`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key, blob); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Load reads the JSON document under key into out.
func (s *PGStore) Load(ctx context.Context, key string, out any) (bool, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table)

	var blob []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(blob, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Remove deletes the document under key.
func (s *PGStore) Remove(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PGStore) Close() error {
	return s.db.Close()
}
