// Package repository stores serialized ranking sessions keyed by session id.
package repository

import (
	"context"
	"time"
)

// Store provides TTL-bound access to serialized sessions.
type Store interface {
	// Get returns the stored bytes for id.
	// Returns ErrNotFound if the id is unknown or expired.
	Get(ctx context.Context, id string) ([]byte, error)

	// Set stores data for id. A zero ttl keeps the entry until deleted.
	Set(ctx context.Context, id string, data []byte, ttl time.Duration) error

	// Delete removes id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// Count returns the number of live sessions.
	Count(ctx context.Context) (int, error)

	// Close releases background goroutines and connections.
	Close() error
}

// Backend names used for configuration and metric labels.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// keyPrefix namespaces session keys in shared backends.
const keyPrefix = "pairwise:session:"

func sessionKey(id string) string { return keyPrefix + id }
