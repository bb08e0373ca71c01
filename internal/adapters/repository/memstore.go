package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/pairwise/pkg/metrics"
)

type memEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is an in-process Store. Expired entries are hidden on read and
// evicted by a periodic sweeper.
type MemoryStore struct {
	mu            sync.RWMutex
	entries       map[string]memEntry
	sweepInterval time.Duration
	now           func() time.Time

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs a memory store and starts its sweeper.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		entries:       make(map[string]memEntry),
		sweepInterval: time.Minute,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startSweeper(ctx)
	return s
}

func (s *MemoryStore) startSweeper(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Sweep evicts expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	removed := 0
	for id, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		metrics.RecordStoreExpired(removed)
	}
	return removed
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, id string) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(BackendMemory, "get", metrics.ObserveSince(start)) }()

	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok || e.expired(s.now()) {
		return nil, ErrNotFound
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

// Set implements Store.Set.
func (s *MemoryStore) Set(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(BackendMemory, "set", metrics.ObserveSince(start)) }()

	e := memEntry{data: make([]byte, len(data))}
	copy(e.data, data)
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[id] = e
	s.mu.Unlock()
	return nil
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Count implements Store.Count. Expired entries not yet swept are excluded.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n, nil
}

// Close stops the sweeper.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}
