// Package artifact persists semantic index artifacts as versioned blobs in
// SQLite. The stored backend identifier and build timestamp drive the
// compatibility check at startup.
package artifact

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brendbot/brand-engine/internal/semantic"
)

// ErrNotFound indicates no artifact has been stored yet.
var ErrNotFound = errors.New("no artifact stored")

// Store reads and writes artifacts.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS semantic_artifacts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	version    INTEGER NOT NULL,
	backend_id TEXT    NOT NULL,
	dimension  INTEGER NOT NULL,
	built_at   TIMESTAMP NOT NULL,
	payload    BLOB    NOT NULL
);
`

// Open opens (creating if needed) the artifact database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open artifact db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create artifact schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save persists an artifact as the newest row.
func (s *Store) Save(ctx context.Context, a *semantic.Artifact) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	query := `
		INSERT INTO semantic_artifacts (version, backend_id, dimension, built_at, payload)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query,
		a.Version, a.BackendID, a.Dimension, a.BuiltAt, payload,
	); err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// LoadLatest returns the most recently saved artifact.
func (s *Store) LoadLatest(ctx context.Context) (*semantic.Artifact, error) {
	query := `
		SELECT payload, built_at FROM semantic_artifacts
		ORDER BY id DESC LIMIT 1
	`
	var payload []byte
	var builtAt time.Time
	err := s.db.QueryRowContext(ctx, query).Scan(&payload, &builtAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}

	var a semantic.Artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("unmarshal artifact: %w", err)
	}
	return &a, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
