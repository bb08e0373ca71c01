package session

import (
	"math/rand"
	"time"

	"github.com/okian/pairwise/internal/domain/pairing"
	"github.com/okian/pairwise/internal/domain/rating"
)

// Option configures a Session.
type Option func(*Session)

// WithK sets the K-factor used for new sessions and as the fallback when a
// restored state carries none. Non-positive values are ignored.
func WithK(k float64) Option {
	return func(s *Session) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

// WithInitialRating sets the rating items start with and return to on Reset.
func WithInitialRating(r float64) Option {
	return func(s *Session) {
		s.initial = r
	}
}

// WithRand sets the random source used to shuffle the pairing sequence.
func WithRand(rnd pairing.Rand) Option {
	return func(s *Session) {
		if rnd != nil {
			s.rnd = rnd
		}
	}
}

func defaults() *Session {
	return &Session{
		defaultK: rating.DefaultK,
		initial:  rating.DefaultInitial,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // ordering only
	}
}
