package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by the pool and a transaction, so
// stores can run the same statements inside or outside WithTx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps a pgxpool.Pool and provides transaction support.
// It serves as the main entry point for database operations.
type DB struct {
	pool *pgxpool.Pool
}

type Config struct {
	DSN string

	// With PgBouncer, this can be relatively low per replica.
	MaxConns int32

	MinConns int32
}

// New creates a new DB instance with the given configuration.
func New(ctx context.Context, cfg Config) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	} else {
		poolCfg.MaxConns = 10
	}

	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// Querier returns the pool for non-transactional statements.
func (db *DB) Querier() Querier {
	return db.pool
}

// EnsureSchema creates the workshop tables when they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// WithTx executes the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
//
// Usage:
//
//	err := db.WithTx(ctx, func(q db.Querier) error {
//	    if _, err := q.Exec(ctx, insertWorkshop, ...); err != nil {
//	        return err
//	    }
//	    _, err := q.Exec(ctx, insertStep, ...)
//	    return err
//	})
func (db *DB) WithTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	// Always attempt rollback on defer - it's a no-op if already committed
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS workshops (
	id            BIGINT PRIMARY KEY,
	name          TEXT NOT NULL,
	created_by    TEXT NOT NULL,
	workspace_id  BIGINT,
	participants  TEXT[] NOT NULL DEFAULT '{}',
	is_public     BOOLEAN NOT NULL DEFAULT FALSE,
	share_token   TEXT,
	status        TEXT NOT NULL DEFAULT 'in_progress',
	current_step  INTEGER NOT NULL DEFAULT 0,
	total_steps   INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workshop_steps (
	id            BIGINT PRIMARY KEY,
	workshop_id   BIGINT NOT NULL REFERENCES workshops(id) ON DELETE CASCADE,
	step_number   INTEGER NOT NULL,
	name          TEXT NOT NULL,
	content       JSONB NOT NULL DEFAULT '{}'::jsonb,
	is_locked     BOOLEAN NOT NULL DEFAULT FALSE,
	is_counted    BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (workshop_id, step_number)
);
`
