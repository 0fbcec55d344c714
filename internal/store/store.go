package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is a connection setting applied and then read back at open.
type pragma struct {
	name  string
	set   string
	value string // as reported by "PRAGMA <name>"
}

var pragmas = []pragma{
	{name: "journal_mode", set: "WAL", value: "wal"},
	{name: "synchronous", set: "NORMAL", value: "1"},
	{name: "busy_timeout", set: "5000", value: "5000"},
	{name: "foreign_keys", set: "ON", value: "1"},
}

// migrations[i] upgrades a journal from user_version i to i+1. Every step
// must be safe to run on a journal created from the current schema.sql.
var migrations = []func(*sql.Tx) error{
	// v1: variant index used by trace lookups.
	func(tx *sql.Tx) error {
		_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_window_nodes_variant ON window_nodes(variant, window_id)`)
		return err
	},
}

// schemaVersion is the user_version of a fully migrated journal.
var schemaVersion = len(migrations)

// Store is the capture window journal. It keeps a single SQLite
// connection; the engine is its only writer.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path, creating it if needed, and brings its
// schema up to date. Use ":memory:" for a throwaway journal.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One connection: an in-memory database exists per connection, and
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("connect journal: %w", err)
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.set)); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return s.migrate()
}

func (s *Store) migrate() error {
	version, err := s.userVersion()
	if err != nil {
		return err
	}
	for ; version < schemaVersion; version++ {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", version+1, err)
		}
		if err := migrations[version](tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", version+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", version+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", version+1, err)
		}
	}
	return nil
}

func (s *Store) userVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// checkPragma reports whether a pragma reads back as configured.
func (s *Store) checkPragma(p pragma) error {
	var got string
	if err := s.db.QueryRow("PRAGMA " + p.name).Scan(&got); err != nil {
		return fmt.Errorf("read %s: %w", p.name, err)
	}
	if got != p.value {
		return fmt.Errorf("%s = %q, want %q", p.name, got, p.value)
	}
	return nil
}
