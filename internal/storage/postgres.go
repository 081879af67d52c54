package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
	bucket     TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (bucket, key)
)`

// PoolConfig sizes the postgres connection pool.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// OpenPostgres connects a pgx pool, verifies it and creates the kv_store
// table.
func OpenPostgres(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}
	return pool, nil
}

// PostgresBucket stores values as JSONB rows of kv_store.
type PostgresBucket struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgresBucket returns the named bucket inside pool.
func NewPostgresBucket(pool *pgxpool.Pool, name string) *PostgresBucket {
	return &PostgresBucket{pool: pool, name: name}
}

// Get implements Bucket.
func (b *PostgresBucket) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	keys = uniqueKeys(keys)
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := b.pool.Query(ctx,
		"SELECT key, value FROM kv_store WHERE bucket = $1 AND key = ANY($2)",
		b.name, keys)
	if err != nil {
		return nil, fmt.Errorf("postgres: get: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			k string
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: get: %w", err)
	}
	return out, nil
}

// Set implements Bucket. All items are written in one transaction.
func (b *PostgresBucket) Set(ctx context.Context, items map[string]any) error {
	encoded, err := encodeItems(items)
	if err != nil {
		return err
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	batch := &pgx.Batch{}
	for k, v := range encoded {
		batch.Queue(
			`INSERT INTO kv_store (bucket, key, value, updated_at) VALUES ($1, $2, $3::jsonb, now())
			 ON CONFLICT (bucket, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			b.name, k, string(v))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: set: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Remove implements Bucket.
func (b *PostgresBucket) Remove(ctx context.Context, keys ...string) error {
	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return nil
	}
	_, err := b.pool.Exec(ctx,
		"DELETE FROM kv_store WHERE bucket = $1 AND key = ANY($2)",
		b.name, keys)
	if err != nil {
		return fmt.Errorf("postgres: remove: %w", err)
	}
	return nil
}
