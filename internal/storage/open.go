package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/talkshelf/internal/config"
)

// Buckets is the pair of buckets the service runs on, plus the backend
// handles behind them.
type Buckets struct {
	Local  Bucket
	Synced Bucket

	closers []func() error
}

// Close releases every backend handle. It is safe to call more than once.
func (b *Buckets) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// NewMemoryBuckets returns two independent in-memory buckets.
func NewMemoryBuckets() *Buckets {
	return &Buckets{Local: NewMemory(), Synced: NewMemory()}
}

// opener opens each backend at most once so the local and synced buckets
// can share a handle.
type opener struct {
	cfg     config.StorageConfig
	badger  *badger.DB
	sqlite  *sql.DB
	pool    *pgxpool.Pool
	redis   *redis.Client
	closers []func() error
}

// Open opens the local and synced buckets selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (*Buckets, error) {
	o := &opener{cfg: cfg}

	local, err := o.bucket(ctx, cfg.LocalBackend, LocalBucket)
	if err != nil {
		o.closeAll()
		return nil, fmt.Errorf("open local bucket: %w", err)
	}
	synced, err := o.bucket(ctx, cfg.SyncBackend, SyncedBucket)
	if err != nil {
		o.closeAll()
		return nil, fmt.Errorf("open synced bucket: %w", err)
	}

	slog.Info("storage opened",
		"local_backend", cfg.LocalBackend,
		"sync_backend", cfg.SyncBackend,
	)
	return &Buckets{Local: local, Synced: synced, closers: o.closers}, nil
}

func (o *opener) bucket(ctx context.Context, backend, name string) (Bucket, error) {
	switch backend {
	case config.BackendMemory:
		return NewMemory(), nil

	case config.BackendBadger:
		if o.badger == nil {
			if err := os.MkdirAll(o.cfg.BadgerDir, 0o755); err != nil {
				return nil, fmt.Errorf("badger: create dir: %w", err)
			}
			db, err := OpenBadgerDB(o.cfg.BadgerDir)
			if err != nil {
				return nil, err
			}
			o.badger = db
			o.closers = append(o.closers, db.Close)
		}
		return NewBadgerBucket(o.badger, name), nil

	case config.BackendSQLite:
		if o.sqlite == nil {
			if dir := filepath.Dir(o.cfg.SQLitePath); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("sqlite: create dir: %w", err)
				}
			}
			db, err := OpenSQLite(ctx, o.cfg.SQLitePath)
			if err != nil {
				return nil, err
			}
			o.sqlite = db
			o.closers = append(o.closers, db.Close)
		}
		return NewSQLiteBucket(o.sqlite, name), nil

	case config.BackendPostgres:
		if o.pool == nil {
			pool, err := OpenPostgres(ctx, PoolConfig{
				URL:             o.cfg.DatabaseURL,
				MaxConns:        o.cfg.DBMaxConns,
				MinConns:        o.cfg.DBMinConns,
				MaxConnLifetime: o.cfg.DBMaxConnLifetime,
				MaxConnIdleTime: o.cfg.DBMaxConnIdleTime,
			})
			if err != nil {
				return nil, err
			}
			o.pool = pool
			o.closers = append(o.closers, func() error { pool.Close(); return nil })
		}
		return NewPostgresBucket(o.pool, prefixed(o.cfg.KeyPrefix, name)), nil

	case config.BackendRedis:
		if o.redis == nil {
			client, err := OpenRedis(ctx, RedisConfig{
				Addr:     o.cfg.RedisAddr,
				Password: o.cfg.RedisPassword,
				DB:       o.cfg.RedisDB,
			})
			if err != nil {
				return nil, err
			}
			o.redis = client
			o.closers = append(o.closers, client.Close)
		}
		return NewRedisBucket(o.redis, o.cfg.KeyPrefix, name), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func (o *opener) closeAll() {
	b := &Buckets{closers: o.closers}
	if err := b.Close(); err != nil {
		slog.Warn("storage cleanup failed", "error", err)
	}
}

func prefixed(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + ":" + name
}
