package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/pairwise/pkg/metrics"
)

// OpenBadger opens a badger database at dir. An empty dir opens an in-memory
// database.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger %q: %v", ErrUnavailable, dir, err)
	}
	return db, nil
}

// BadgerStore keeps sessions in an embedded badger database using entry TTLs.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore constructs a store over db. Close closes db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Get implements Store.Get.
func (s *BadgerStore) Get(ctx context.Context, id string) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(BackendBadger, "get", metrics.ObserveSince(start)) }()

	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKey(id)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordStoreError(BackendBadger, "get")
	}
	return out, err
}

// Set implements Store.Set.
func (s *BadgerStore) Set(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(BackendBadger, "set", metrics.ObserveSince(start)) }()

	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(sessionKey(id)), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		metrics.RecordStoreError(BackendBadger, "set")
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Delete implements Store.Delete.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(sessionKey(id)))
	})
	if err != nil {
		metrics.RecordStoreError(BackendBadger, "delete")
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Count implements Store.Count.
func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		metrics.RecordStoreError(BackendBadger, "count")
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// Close implements Store.Close.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
