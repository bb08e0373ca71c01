package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/pairwise/pkg/metrics"
)

// Cache is the subset of Redis commands the session store needs.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CountKeys(ctx context.Context, pattern string) (int, error)
	Close() error
}

// RedisCache adapts *redis.Client to Cache.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %v", ErrUnavailable, addr, err)
	}
	return NewRedisCache(client), nil
}

// Set stores a key-value pair with expiration.
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value by key.
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

// Del deletes keys.
func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// CountKeys counts keys matching pattern with SCAN.
func (r *RedisCache) CountKeys(ctx context.Context, pattern string) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

// Close closes the client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// RedisStore keeps sessions in Redis with native key expiry.
type RedisStore struct {
	cache Cache
}

// NewRedisStore constructs a store over cache.
func NewRedisStore(cache Cache) *RedisStore {
	return &RedisStore{cache: cache}
}

// Get implements Store.Get.
func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(BackendRedis, "get", metrics.ObserveSince(start)) }()

	v, err := s.cache.Get(ctx, sessionKey(id))
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError(BackendRedis, "get")
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return []byte(v), nil
}

// Set implements Store.Set.
func (s *RedisStore) Set(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(BackendRedis, "set", metrics.ObserveSince(start)) }()

	if err := s.cache.Set(ctx, sessionKey(id), data, ttl); err != nil {
		metrics.RecordStoreError(BackendRedis, "set")
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Store.Delete.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Del(ctx, sessionKey(id)); err != nil {
		metrics.RecordStoreError(BackendRedis, "delete")
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Count implements Store.Count.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.cache.CountKeys(ctx, keyPrefix+"*")
	if err != nil {
		metrics.RecordStoreError(BackendRedis, "count")
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

// Close implements Store.Close.
func (s *RedisStore) Close() error {
	return s.cache.Close()
}
