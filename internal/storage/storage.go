// Package storage implements the key-value buckets that hold talkshelf data.
//
// A bucket maps string keys to JSON values. Every backend stores the
// marshalled JSON bytes as given and returns them untouched from Get, so the
// typed layer in core decides how to decode and default them.
//
// Backends:
//
//   - memory: process-local map, used by tests and ephemeral runs
//   - badger: embedded LSM store, the default device-local bucket
//   - sqlite: single-file database (modernc, no cgo)
//   - postgres: shared database through a pgx pool
//   - redis: hash per bucket, suited to the synced bucket
//
// Each Get, Set and Remove call is atomic. Sequences of calls are not.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Bucket names. The local bucket holds talks, selection and import history;
// the synced bucket holds settings shared across devices.
const (
	LocalBucket  = "local"
	SyncedBucket = "synced"
)

// Bucket is a key-value storage area with JSON values.
type Bucket interface {
	// Get returns the stored values for keys. Absent keys are omitted.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)

	// Set marshals each value to JSON and writes all items in one step.
	Set(ctx context.Context, items map[string]any) error

	// Remove deletes keys. Missing keys are ignored.
	Remove(ctx context.Context, keys ...string) error
}

// encodeItems marshals every value before any write happens, so a value
// that cannot be encoded leaves the bucket untouched.
func encodeItems(items map[string]any) (map[string][]byte, error) {
	out := make(map[string][]byte, len(items))
	for k, v := range items {
		if k == "" {
			return nil, errors.New("empty key")
		}
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		out[k] = buf
	}
	return out, nil
}

// uniqueKeys drops duplicates and empty keys, keeping order.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
