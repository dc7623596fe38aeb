// Package postgres provides a PostgreSQL implementation of the RelationalDB
// interface on top of a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ersonp/kin-core/internal/domain/entities"
	"github.com/ersonp/kin-core/internal/infrastructure/config"
)

// PostgreSQL error codes the repository maps onto domain errors.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	classConnectionException = "08"
)

// Repository implements ports.RelationalDB using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository connects a pool to the configured database.
func NewRepository(ctx context.Context, cfg config.PostgresConfig) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = 1
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	poolCfg.ConnConfig.RuntimeParams["lock_timeout"] = "10s"
	poolCfg.ConnConfig.RuntimeParams["idle_in_transaction_session_timeout"] = "60s"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", classify(err))
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", classify(err))
	}

	return &Repository{pool: pool}, nil
}

// Close closes the pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collectives (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		collective_type_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		deleted_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_collectives_user ON collectives(user_id);

	CREATE TABLE IF NOT EXISTS collective_memberships (
		id TEXT PRIMARY KEY,
		collective_id TEXT NOT NULL REFERENCES collectives(id),
		contact_id TEXT NOT NULL,
		role_id TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		inactive_reason TEXT,
		inactive_date TIMESTAMPTZ,
		joined_date TIMESTAMPTZ,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_memberships_one_active
		ON collective_memberships(collective_id, contact_id) WHERE is_active;
	CREATE INDEX IF NOT EXISTS idx_memberships_contact ON collective_memberships(contact_id);
	CREATE INDEX IF NOT EXISTS idx_memberships_collective ON collective_memberships(collective_id);

	CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		from_contact_id TEXT NOT NULL,
		to_contact_id TEXT NOT NULL,
		relationship_type_id TEXT NOT NULL,
		notes TEXT,
		source_membership_id TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT relationships_triple_key UNIQUE (from_contact_id, to_contact_id, relationship_type_id),
		CONSTRAINT relationships_no_self_edge CHECK (from_contact_id <> to_contact_id)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships(from_contact_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships(to_contact_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_membership_id);

	CREATE TABLE IF NOT EXISTS audit_log (
		id BIGSERIAL PRIMARY KEY,
		action TEXT NOT NULL,
		subject_id TEXT,
		details JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_subject ON audit_log(subject_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	`

	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", classify(err))
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// IsCheckViolation reports whether err is a check constraint violation.
func IsCheckViolation(err error) bool {
	return pgCode(err) == codeCheckViolation
}

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// classify tags serialization and lock failures as ErrConflict and
// connection failures as ErrStorageUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	code := pgCode(err)
	switch {
	case code == codeSerializationFailure, code == codeDeadlockDetected, code == codeLockNotAvailable:
		return fmt.Errorf("%w: %w", entities.ErrConflict, err)
	case len(code) >= 2 && code[:2] == classConnectionException:
		return fmt.Errorf("%w: %w", entities.ErrStorageUnavailable, err)
	case code == "" && (pgconn.Timeout(err) || isConnectError(err)):
		return fmt.Errorf("%w: %w", entities.ErrStorageUnavailable, err)
	default:
		return err
	}
}

func isConnectError(err error) bool {
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
