package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is the snapshot log. One row per applied transition, keyed by
// (session, seq), plus a sessions row holding what the log was started with.
type Store struct {
	db *sql.DB
}

// pragma is a connection setting and the value PRAGMA reports once applied.
type pragma struct {
	name   string
	set    string
	report string
}

var pragmas = []pragma{
	{name: "journal_mode", set: "WAL", report: "wal"},
	{name: "synchronous", set: "NORMAL", report: "1"},
	{name: "busy_timeout", set: "5000", report: "5000"},
	{name: "foreign_keys", set: "ON", report: "1"},
}

// migration upgrades a log written by an older build. Migrations run in
// order; user_version records how many have been applied.
type migration struct {
	name string
	stmt string
}

var migrations = []migration{
	{
		name: "index snapshots by entries hash",
		stmt: `CREATE INDEX IF NOT EXISTS idx_snapshots_entries_hash ON snapshots(entries_hash)`,
	},
}

// currentSchemaVersion is the user_version of a fully migrated log.
var currentSchemaVersion = len(migrations)

// Open opens the snapshot log at path, creating it if needed. Pass
// MemoryPath for a log that lives only as long as the Store. Opening an
// existing log brings its schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open snapshot log: %w", err)
	}

	// One connection: a single writer, and :memory: stays one database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := setup(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open snapshot log %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func setup(db *sql.DB) error {
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.set)); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return migrate(db)
}

// migrate applies the migrations past the log's user_version, each in
// its own transaction together with the version bump.
func migrate(db *sql.DB) error {
	var applied int
	if err := db.QueryRow("PRAGMA user_version").Scan(&applied); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for v := applied; v < len(migrations); v++ {
		m := migrations[v]
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", v+1, m.name, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", v+1, m.name, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", v+1, m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d (%s): %w", v+1, m.name, err)
		}
	}
	return nil
}

// Close closes the log. Safe on a zero Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for queries the Store has no method for.
func (s *Store) DB() *sql.DB {
	return s.db
}

// verifyPragma reports whether PRAGMA name reads back as expected.
func (s *Store) verifyPragma(name, expected string) error {
	var got string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&got); err != nil {
		return fmt.Errorf("read pragma %s: %w", name, err)
	}
	if got != expected {
		return fmt.Errorf("pragma %s = %q, want %q", name, got, expected)
	}
	return nil
}
