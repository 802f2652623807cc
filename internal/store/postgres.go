package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PostgresStore keeps every document in a single ledger table keyed by
// (collection, key), with the document itself in a JSONB column. Put is a
// single atomic upsert and Update runs inside a transaction with a row lock,
// so it stays safe when multiple bot processes share the database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds connection settings for the Postgres backend.
type PostgresConfig struct {
	DSN            string
	PoolSize       int
	ConnectTimeout time.Duration
}

// NewPostgresStore connects, verifies the connection and ensures the ledger
// table exists.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing dsn: %v", ErrUnavailable, err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	} else {
		poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: creating pool: %v", ErrUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().Msg("Connected to PostgreSQL ledger")
	return s, nil
}

// NewPostgresStoreFromPool wraps an existing pool; used by tests.
func NewPostgresStoreFromPool(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ledger (
			collection VARCHAR(50) NOT NULL,
			key        VARCHAR(255) NOT NULL,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, key)
		);
	`)
	if err != nil {
		return fmt.Errorf("%w: migrating ledger table: %v", ErrUnavailable, err)
	}
	return nil
}

// Get reads the document for a key. Returns ErrNotFound when absent.
func (s *PostgresStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	const query = `SELECT doc FROM ledger WHERE collection = $1 AND key = $2`

	var doc []byte
	err := s.pool.QueryRow(ctx, query, collection, key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s/%s: %v", ErrUnavailable, collection, key, err)
	}
	return doc, nil
}

// Put upserts the document for a key in a single statement.
func (s *PostgresStore) Put(ctx context.Context, collection, key string, doc []byte) error {
	const query = `
		INSERT INTO ledger (collection, key, doc, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, key)
		DO UPDATE SET doc = $3, updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, collection, key, doc); err != nil {
		return fmt.Errorf("%w: put %s/%s: %v", ErrUnavailable, collection, key, err)
	}
	return nil
}

// Update runs the read-modify-write inside a transaction holding a row lock,
// which serializes concurrent updates even across processes.
func (s *PostgresStore) Update(ctx context.Context, collection, key string, fn func(cur []byte) ([]byte, error)) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	var cur []byte
	err = tx.QueryRow(ctx,
		`SELECT doc FROM ledger WHERE collection = $1 AND key = $2 FOR UPDATE`,
		collection, key,
	).Scan(&cur)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: update read %s/%s: %v", ErrUnavailable, collection, key, err)
	}

	next, err := fn(cur)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger (collection, key, doc, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, key)
		DO UPDATE SET doc = $3, updated_at = NOW()
	`, collection, key, next)
	if err != nil {
		return fmt.Errorf("%w: update write %s/%s: %v", ErrUnavailable, collection, key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit %s/%s: %v", ErrUnavailable, collection, key, err)
	}
	return nil
}

// List returns all documents in a collection whose key starts with prefix.
func (s *PostgresStore) List(ctx context.Context, collection, prefix string) (map[string][]byte, error) {
	const query = `SELECT key, doc FROM ledger WHERE collection = $1 AND key LIKE $2 || '%'`

	rows, err := s.pool.Query(ctx, query, collection, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, collection, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var doc []byte
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, fmt.Errorf("%w: scanning %s: %v", ErrUnavailable, collection, err)
		}
		out[key] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating %s: %v", ErrUnavailable, collection, err)
	}
	return out, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
