// Package cache provides a SQLite-backed cache of model responses keyed by
// a hash of the request, so re-running the pipeline over an unchanged
// codebase does not pay for the same completions twice.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pithomlabs/cb2docs/llm"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding cached responses.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at dbPath and ensures the
// cache table exists. Use ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS responses (
		key        TEXT PRIMARY KEY,
		model      TEXT NOT NULL,
		response   TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached response for key, if any.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var response string
	err := s.db.QueryRowContext(ctx, `SELECT response FROM responses WHERE key = ?`, key).Scan(&response)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query response: %w", err)
	}
	return response, true, nil
}

// Put stores a response, replacing any previous one for key.
func (s *Store) Put(ctx context.Context, key, model, response string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO responses (key, model, response, created_at)
		 VALUES (?, ?, ?, datetime('now'))`,
		key, model, response,
	)
	if err != nil {
		return fmt.Errorf("store response: %w", err)
	}
	return nil
}

// Len returns the number of cached responses.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}

// Key hashes the model name and request into a cache key.
func Key(model string, req llm.Request) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(req.System))
	h.Write([]byte{0})
	h.Write([]byte(req.Prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// Completer serves responses from the store and records misses.
type Completer struct {
	next   llm.Completer
	store  *Store
	model  string
	logger *slog.Logger
}

// NewCompleter wraps next. model is part of the key so switching models
// does not return another model's answers.
func NewCompleter(next llm.Completer, store *Store, model string, logger *slog.Logger) *Completer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Completer{next: next, store: store, model: model, logger: logger}
}

// Complete implements llm.Completer. Cache read and write failures are
// logged and otherwise ignored.
func (c *Completer) Complete(ctx context.Context, req llm.Request) (string, error) {
	key := Key(c.model, req)
	if cached, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.Warn("cache read failed", "error", err)
	} else if ok {
		c.logger.Debug("cache hit", "key", key[:12])
		return cached, nil
	}

	response, err := c.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if err := c.store.Put(ctx, key, c.model, response); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
	return response, nil
}
