package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// flakyStore fails every call while down is set.
type flakyStore struct {
	down  bool
	calls int
	inner *MemoryStore
}

var errBackend = errors.New("backend down")

func (f *flakyStore) Get(ctx context.Context, id string) ([]byte, error) {
	f.calls++
	if f.down {
		return nil, errBackend
	}
	return f.inner.Get(ctx, id)
}

func (f *flakyStore) Set(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	f.calls++
	if f.down {
		return errBackend
	}
	return f.inner.Set(ctx, id, data, ttl)
}

func (f *flakyStore) Delete(ctx context.Context, id string) error {
	f.calls++
	if f.down {
		return errBackend
	}
	return f.inner.Delete(ctx, id)
}

func (f *flakyStore) Count(ctx context.Context) (int, error) {
	f.calls++
	if f.down {
		return 0, errBackend
	}
	return f.inner.Count(ctx)
}

func (f *flakyStore) Close() error { return f.inner.Close() }

func TestBreakerStore(t *testing.T) {
	Convey("Given a breaker around a flaky store", t, func() {
		ctx := context.Background()
		inner := &flakyStore{inner: NewMemoryStore(ctx)}
		store := NewBreakerStore(inner, BreakerConfig{
			Name:                "test-store",
			ConsecutiveFailures: 2,
			Timeout:             50 * time.Millisecond,
		})
		defer func() { _ = store.Close() }()

		Convey("When the backend is healthy", func() {
			So(store.Set(ctx, "x", []byte("1"), 0), ShouldBeNil)
			got, err := store.Get(ctx, "x")
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "1")
			n, err := store.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			Convey("Then missing sessions do not trip the circuit", func() {
				for i := 0; i < 5; i++ {
					_, err := store.Get(ctx, "nope")
					So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				}
				So(store.State(), ShouldEqual, "closed")
			})
		})

		Convey("When the backend keeps failing", func() {
			inner.down = true
			for i := 0; i < 2; i++ {
				_, err := store.Get(ctx, "x")
				So(errors.Is(err, errBackend), ShouldBeTrue)
			}

			Convey("Then the circuit opens and calls fail fast", func() {
				So(store.State(), ShouldEqual, "open")
				before := inner.calls
				err := store.Set(ctx, "x", []byte("1"), 0)
				So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
				So(inner.calls, ShouldEqual, before)
			})

			Convey("Then it recovers after the timeout", func() {
				inner.down = false
				time.Sleep(60 * time.Millisecond)
				So(store.Delete(ctx, "x"), ShouldBeNil)
				So(store.State(), ShouldEqual, "closed")
			})
		})
	})
}
