package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (runs + op_counts)
const currentSchemaVersion = 1

// createdAtFormat is the TEXT encoding of runs.created_at. The trimmed
// fractional seconds do not sort byte-wise, so anything ordering or
// comparing on this column goes through julianday(); see runsql.
const createdAtFormat = time.RFC3339Nano

// Store is the run history database. A single SQLite file holds one row per
// recorded run plus its optional per-op profile.
type Store struct {
	db *sql.DB
}

// Open opens the history database at path, creating the file and schema on
// first use. The session is pinned to a single connection; SQLite allows one
// writer at a time and funneling everything through one connection avoids
// SQLITE_BUSY on interleaved record and query calls.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the raw handle. Intended for tooling and tests that need to run
// SQL the Store does not expose.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Query runs a read statement against the history. The caller owns the
// returned rows and must close them.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// applyPragmas configures the session. WAL keeps history queries readable
// while a run is being recorded, and the busy timeout rides out the writer
// handoff when two bfc processes share one database file.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("exec %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates any missing tables and indexes, then brings the schema
// version up to date. Safe against a database that is already current.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
// Version 1 is the initial schema, so currently this only stamps the
// version for future migrations to key off.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version >= currentSchemaVersion {
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}
