// Package store persists frameworks, criteria and definitions in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// Store wraps a pooled sqlx.DB connection to the framework catalog.
type Store struct {
	db *sqlx.DB
}

// Open constructs a Store backed by the SQLite database at path and
// migrates the schema. Use ":memory:" for a private in-process database.
func Open(path string, busyTimeoutMS int) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if busyTimeoutMS <= 0 {
		busyTimeoutMS = 5000
	}

	var dsn string
	if path == memoryPath {
		dsn = fmt.Sprintf("file::memory:?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", busyTimeoutMS)
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve sqlite path: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", abs, busyTimeoutMS)
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(busyTimeoutMS)*time.Millisecond)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background(), path != memoryPath); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context, wal bool) error {
	if wal {
		if _, err := s.db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
			return fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS frameworks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		authors TEXT NOT NULL DEFAULT '',
		year INTEGER CHECK (year IS NULL OR year BETWEEN 1900 AND 2100),
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		objectives TEXT NOT NULL DEFAULT '',
		methodology TEXT NOT NULL DEFAULT '',
		algorithm_used TEXT NOT NULL DEFAULT '',
		top_model TEXT NOT NULL DEFAULT '',
		accuracy TEXT NOT NULL DEFAULT '',
		advantages TEXT NOT NULL DEFAULT '',
		drawbacks TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_frameworks_name ON frameworks(name);`,
	`CREATE TABLE IF NOT EXISTS criteria (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		framework_id INTEGER NOT NULL REFERENCES frameworks(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (framework_id, name)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_criteria_name ON criteria(name);`,
	`CREATE TABLE IF NOT EXISTS definitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		criterion_id INTEGER NOT NULL REFERENCES criteria(id) ON DELETE CASCADE,
		definition_text TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_definitions_criterion ON definitions(criterion_id);`,
}

// Tx is a store transaction. All dedup and import writes go through one.
type Tx struct {
	tx *sqlx.Tx
}

// WithTx runs fn inside a single transaction. The transaction commits when
// fn returns nil and rolls back otherwise; fn's error is returned as is.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&Tx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}
