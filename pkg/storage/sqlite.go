// Package storage persists generated tests so they can be executed later by id.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/entrhq/testforge/pkg/types"
)

// StoredTest is a previously generated test.
type StoredTest struct {
	ID        string
	Script    string
	Plan      []string
	TargetURL string
	CreatedAt time.Time
}

// TestStore is the read side used by the direct execution path.
type TestStore interface {
	Get(ctx context.Context, id string) (*StoredTest, error)
}

// Storage is a SQLite-backed TestStore.
type Storage struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath. Use ":memory:" for
// a throwaway store.
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening test store: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tests (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		target_url TEXT NOT NULL DEFAULT '',
		script TEXT NOT NULL,
		plan TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_tests_created ON tests(created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrating test store: %w", err)
	}
	return nil
}

// Put inserts or replaces a test.
func (s *Storage) Put(ctx context.Context, t *StoredTest) error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("test id is required")
	}

	plan := t.Plan
	if plan == nil {
		plan = []string{}
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tests (id, target_url, script, plan) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET target_url = excluded.target_url, script = excluded.script, plan = excluded.plan`,
		t.ID, t.TargetURL, t.Script, string(planJSON),
	)
	if err != nil {
		return fmt.Errorf("storing test %s: %w", t.ID, err)
	}
	return nil
}

// Get returns the test stored under id, or a NotFound error.
func (s *Storage) Get(ctx context.Context, id string) (*StoredTest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, target_url, script, plan FROM tests WHERE id = ?`, id,
	)

	var t StoredTest
	var planJSON string
	err := row.Scan(&t.ID, &t.CreatedAt, &t.TargetURL, &t.Script, &planJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFoundError(fmt.Sprintf("test %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("loading test %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(planJSON), &t.Plan); err != nil {
		return nil, fmt.Errorf("decoding plan of test %s: %w", id, err)
	}
	return &t, nil
}

// List returns up to limit tests, newest first.
func (s *Storage) List(ctx context.Context, limit int) ([]*StoredTest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, target_url, script, plan FROM tests ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []*StoredTest
	for rows.Next() {
		var t StoredTest
		var planJSON string
		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.TargetURL, &t.Script, &planJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(planJSON), &t.Plan); err != nil {
			return nil, fmt.Errorf("decoding plan of test %s: %w", t.ID, err)
		}
		tests = append(tests, &t)
	}

	return tests, rows.Err()
}
