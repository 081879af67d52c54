package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	bucket     TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (bucket, key)
)`

// OpenSQLite opens the database file at path with WAL journaling and a busy
// timeout applied to every pooled connection, and creates the kv table.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, (5 * time.Second).Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return db, nil
}

// SQLiteBucket stores values as rows of the kv table.
type SQLiteBucket struct {
	db   *sql.DB
	name string
}

// NewSQLiteBucket returns the named bucket inside db.
func NewSQLiteBucket(db *sql.DB, name string) *SQLiteBucket {
	return &SQLiteBucket{db: db, name: name}
}

// Get implements Bucket.
func (b *SQLiteBucket) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	keys = uniqueKeys(keys)
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, b.name)
	for _, k := range keys {
		args = append(args, k)
	}
	query := "SELECT key, value FROM kv WHERE bucket = ? AND key IN (?" +
		strings.Repeat(", ?", len(keys)-1) + ")"

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			k string
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: get: %w", err)
	}
	return out, nil
}

// Set implements Bucket. All items are written in one transaction.
func (b *SQLiteBucket) Set(ctx context.Context, items map[string]any) error {
	encoded, err := encodeItems(items)
	if err != nil {
		return err
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback() // No-op if already committed

	now := time.Now().Unix()
	for k, v := range encoded {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv (bucket, key, value, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (bucket, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			b.name, k, v, now)
		if err != nil {
			return fmt.Errorf("sqlite: set %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Remove implements Bucket.
func (b *SQLiteBucket) Remove(ctx context.Context, keys ...string) error {
	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, b.name)
	for _, k := range keys {
		args = append(args, k)
	}
	query := "DELETE FROM kv WHERE bucket = ? AND key IN (?" +
		strings.Repeat(", ?", len(keys)-1) + ")"

	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: remove: %w", err)
	}
	return nil
}
