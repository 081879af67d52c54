package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// OpenBadgerDB opens (or creates) a badger database in dir. An empty dir
// opens an in-memory database.
func OpenBadgerDB(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %q: %w", dir, err)
	}
	return db, nil
}

// BadgerBucket stores values under "<bucket>/<key>" in a shared badger DB.
// Several buckets may share one DB; the DB is owned by the caller.
type BadgerBucket struct {
	db     *badger.DB
	prefix string
}

// NewBadgerBucket returns the named bucket inside db.
func NewBadgerBucket(db *badger.DB, name string) *BadgerBucket {
	return &BadgerBucket{db: db, prefix: name + "/"}
}

func (b *BadgerBucket) key(k string) []byte {
	return []byte(b.prefix + k)
}

// Get implements Bucket.
func (b *BadgerBucket) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(keys))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, k := range uniqueKeys(keys) {
			item, err := txn.Get(b.key(k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[k] = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: get: %w", err)
	}
	return out, nil
}

// Set implements Bucket. All items are written in one transaction.
func (b *BadgerBucket) Set(ctx context.Context, items map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := encodeItems(items)
	if err != nil {
		return err
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		for k, v := range encoded {
			if err := txn.Set(b.key(k), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger: set: %w", err)
	}
	return nil
}

// Remove implements Bucket.
func (b *BadgerBucket) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		for _, k := range uniqueKeys(keys) {
			if err := txn.Delete(b.key(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger: remove: %w", err)
	}
	return nil
}
