package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // host:port
	Password string // optional
	DB       int
}

// OpenRedis creates a client and verifies the connection.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// RedisBucket stores a bucket as one hash, "<prefix>:<bucket>", with a
// field per key. HSET and HDEL of several fields are atomic.
type RedisBucket struct {
	client redis.UniversalClient
	hash   string
}

// NewRedisBucket returns the named bucket. prefix namespaces the hash.
func NewRedisBucket(client redis.UniversalClient, prefix, name string) *RedisBucket {
	hash := name
	if prefix != "" {
		hash = prefix + ":" + name
	}
	return &RedisBucket{client: client, hash: hash}
}

// Get implements Bucket.
func (b *RedisBucket) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	keys = uniqueKeys(keys)
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := b.client.HMGet(ctx, b.hash, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // nil for missing fields
		}
		out[keys[i]] = json.RawMessage(s)
	}
	return out, nil
}

// Set implements Bucket.
func (b *RedisBucket) Set(ctx context.Context, items map[string]any) error {
	encoded, err := encodeItems(items)
	if err != nil {
		return err
	}
	if len(encoded) == 0 {
		return nil
	}

	values := make([]any, 0, 2*len(encoded))
	for k, v := range encoded {
		values = append(values, k, string(v))
	}
	if err := b.client.HSet(ctx, b.hash, values...).Err(); err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}

// Remove implements Bucket.
func (b *RedisBucket) Remove(ctx context.Context, keys ...string) error {
	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return nil
	}
	if err := b.client.HDel(ctx, b.hash, keys...).Err(); err != nil {
		return fmt.Errorf("redis: remove: %w", err)
	}
	return nil
}
