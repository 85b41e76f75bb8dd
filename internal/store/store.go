// Package store provides the SQLite-backed result cache. Results are keyed by
// content hash and routing kind, so re-processing identical bytes is a lookup.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"doclens/internal/model"
)

// ResultStore implements processor.Cache.
type ResultStore struct {
	db *sql.DB
}

// Open opens a SQLite database at dbPath, enables WAL mode and creates the
// results table idempotently.
func Open(dbPath string) (*ResultStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across callers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := configurePragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &ResultStore{db: db}, nil
}

func configurePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("failed to execute %s: %w", p, err)
		}
	}
	return nil
}

func createTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id          TEXT PRIMARY KEY,
			cache_key   TEXT NOT NULL UNIQUE,
			result_type TEXT NOT NULL,
			payload     TEXT NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_type ON results(result_type)`,
	}
	for _, ddl := range tables {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Lookup returns the cached result for key, or nil on a miss.
func (s *ResultStore) Lookup(ctx context.Context, key string) (model.FormatResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM results WHERE cache_key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", key, err)
	}
	r, err := model.DecodeResult([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return r, nil
}

// Save stores result under key, replacing any previous entry.
func (s *ResultStore) Save(ctx context.Context, key string, result model.FormatResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (id, cache_key, result_type, payload, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET result_type = excluded.result_type, payload = excluded.payload, created_at = excluded.created_at`,
		uuid.New().String(), key, string(result.ResultType()), string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Stats counts cached results by type.
func (s *ResultStore) Stats(ctx context.Context) (map[model.ResultType]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT result_type, COUNT(*) FROM results GROUP BY result_type`)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	out := make(map[model.ResultType]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
		out[model.ResultType(t)] = n
	}
	return out, rows.Err()
}

// Purge removes entries created before cutoff and reports how many went.
func (s *ResultStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return res.RowsAffected()
}

func (s *ResultStore) Close() error {
	return s.db.Close()
}
