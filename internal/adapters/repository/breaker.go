package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/pairwise/pkg/logger"
	"github.com/okian/pairwise/pkg/metrics"
)

// BreakerStore wraps a Store with a circuit breaker. While the circuit is
// open calls fail fast with ErrUnavailable.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	Name string
	// ConsecutiveFailures trips the circuit.
	ConsecutiveFailures uint32
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration
	// MaxRequests allowed while half-open.
	MaxRequests uint32
	Logger      logger.Logger
}

func (c *BreakerConfig) withDefaults() {
	if c.Name == "" {
		c.Name = "session-store"
	}
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
}

// NewBreakerStore wraps next.
func NewBreakerStore(next Store, cfg BreakerConfig) *BreakerStore {
	cfg.withDefaults()
	metrics.UpdateCircuitBreakerState(cfg.Name, stateValue(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Minute,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// A missing session or a caller cancellation says nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateCircuitBreakerState(name, stateValue(to))
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
			if cfg.Logger != nil {
				cfg.Logger.Warn(context.Background(), "circuit breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()))
			}
		},
	})
	return &BreakerStore{next: next, cb: cb, name: cfg.Name}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// State returns the current breaker state name.
func (s *BreakerStore) State() string {
	return s.cb.State().String()
}

func (s *BreakerStore) execute(fn func() (any, error)) (any, error) {
	v, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, s.name, err)
	}
	return v, err
}

// Get implements Store.Get.
func (s *BreakerStore) Get(ctx context.Context, id string) ([]byte, error) {
	v, err := s.execute(func() (any, error) {
		return s.next.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	b, _ := v.([]byte)
	return b, nil
}

// Set implements Store.Set.
func (s *BreakerStore) Set(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.Set(ctx, id, data, ttl)
	})
	return err
}

// Delete implements Store.Delete.
func (s *BreakerStore) Delete(ctx context.Context, id string) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.Delete(ctx, id)
	})
	return err
}

// Count implements Store.Count.
func (s *BreakerStore) Count(ctx context.Context) (int, error) {
	v, err := s.execute(func() (any, error) {
		return s.next.Count(ctx)
	})
	if err != nil {
		return 0, err
	}
	n, _ := v.(int)
	return n, nil
}

// Close implements Store.Close.
func (s *BreakerStore) Close() error {
	return s.next.Close()
}
