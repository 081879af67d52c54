package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process bucket. The zero value is not usable; call NewMemory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory bucket.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements Bucket.
func (m *Memory) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range uniqueKeys(keys) {
		if v, ok := m.data[k]; ok {
			out[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out, nil
}

// Set implements Bucket.
func (m *Memory) Set(ctx context.Context, items map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := encodeItems(items)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range encoded {
		m.data[k] = v
	}
	return nil
}

// Remove implements Bucket.
func (m *Memory) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
