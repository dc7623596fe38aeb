// Package sqlite provides a SQLite implementation of the RelationalDB interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite" // Pure Go SQLite driver
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/infrastructure/config"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// busyTimeoutMillis bounds how long a writer waits for the database lock.
const busyTimeoutMillis = 5000

// Repository implements ports.RelationalDB using SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

// NewRepository creates a new SQLite repository.
//
// Transactions start with BEGIN IMMEDIATE so concurrent writers queue on the
// database lock (bounded by busy_timeout) instead of failing on upgrade.
// An in-memory database lives on a single connection.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	pragmas := []string{
		"_pragma=foreign_keys(1)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeoutMillis),
		"_txlock=immediate",
	}
	if cfg.Path != MemoryPath {
		// WAL lets readers proceed while a derivation pass holds the write lock
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	dsn := cfg.Path + "?" + strings.Join(pragmas, "&")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if cfg.Path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite database: %w", err)
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Collective instances (families, companies, clubs) owned by a user
	CREATE TABLE IF NOT EXISTS collectives (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		collective_type_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_collectives_user ON collectives(user_id);

	-- Collective memberships
	CREATE TABLE IF NOT EXISTS collective_memberships (
		id TEXT PRIMARY KEY,
		collective_id TEXT NOT NULL REFERENCES collectives(id),
		contact_id TEXT NOT NULL,
		role_id TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		inactive_reason TEXT,
		inactive_date TIMESTAMP,
		joined_date TIMESTAMP,
		notes TEXT,
		created_at TIMESTAMP NOT NULL
	);
	-- At most one active membership per (collective, contact)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_memberships_one_active
		ON collective_memberships(collective_id, contact_id) WHERE is_active = 1;
	CREATE INDEX IF NOT EXISTS idx_memberships_contact ON collective_memberships(contact_id);
	CREATE INDEX IF NOT EXISTS idx_memberships_collective ON collective_memberships(collective_id);

	-- Directed relationship edges between contacts
	CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		from_contact_id TEXT NOT NULL,
		to_contact_id TEXT NOT NULL,
		relationship_type_id TEXT NOT NULL,
		notes TEXT,
		source_membership_id TEXT,
		created_at TIMESTAMP NOT NULL,
		UNIQUE(from_contact_id, to_contact_id, relationship_type_id),
		CHECK(from_contact_id <> to_contact_id)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships(from_contact_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships(to_contact_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_membership_id);

	-- Audit log (tracks all actions)
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		subject_id TEXT,
		details TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_subject ON audit_log(subject_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", classify(err))
	}
	return nil
}

// sqliteCode returns the primary and extended result codes of a driver error.
func sqliteCode(err error) (primary, extended int, ok bool) {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return 0, 0, false
	}
	return se.Code() & 0xff, se.Code(), true
}

func isUniqueViolation(err error) bool {
	_, code, ok := sqliteCode(err)
	return ok && (code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY)
}

func isCheckViolation(err error) bool {
	_, code, ok := sqliteCode(err)
	return ok && code == sqlite3.SQLITE_CONSTRAINT_CHECK
}

// classify tags lock contention as ErrConflict and I/O or connection
// failures as ErrStorageUnavailable. Other errors pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w: %w", entities.ErrStorageUnavailable, err)
	}
	primary, _, ok := sqliteCode(err)
	if !ok {
		return err
	}
	switch primary {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return fmt.Errorf("%w: %w", entities.ErrConflict, err)
	case sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_FULL,
		sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_READONLY:
		return fmt.Errorf("%w: %w", entities.ErrStorageUnavailable, err)
	default:
		return err
	}
}
