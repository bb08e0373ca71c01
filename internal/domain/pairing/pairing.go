// Package pairing builds round-robin comparison sequences.
package pairing

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Pair is an unordered pair of distinct item ids. Position only decides which
// side the item is shown on.
type Pair [2]string

// Key returns an order-independent key for the pair.
func (p Pair) Key() string {
	if p[0] < p[1] {
		return p[0] + "\x00" + p[1]
	}
	return p[1] + "\x00" + p[0]
}

// UnmarshalJSON accepts exactly two ids.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPair, err)
	}
	if len(ids) != 2 {
		return fmt.Errorf("%w: want 2 ids, got %d", ErrInvalidPair, len(ids))
	}
	p[0], p[1] = ids[0], ids[1]
	return nil
}

// Rand is the random source used for shuffling. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Count returns the number of unordered pairs over n items.
func Count(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// Generate returns every unordered pair of ids exactly once, enumerated in
// declaration order (i<j) and then shuffled with Fisher-Yates. Fewer than two
// ids yield an empty, non-nil sequence.
func Generate(ids []string, rnd Rand) []Pair {
	pairs := make([]Pair, 0, Count(len(ids)))
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, Pair{ids[i], ids[j]})
		}
	}
	Shuffle(pairs, rnd)
	return pairs
}

// Shuffle permutes pairs in place.
func Shuffle(pairs []Pair, rnd Rand) {
	for i := len(pairs) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		pairs[i], pairs[j] = pairs[j], pairs[i]
	}
}

// Validate checks that every pair holds two distinct known ids and that no
// unordered pair repeats. It does not require the sequence to be complete.
func Validate(pairs []Pair, known func(id string) bool) error {
	seen := make(map[string]struct{}, len(pairs))
	for i, p := range pairs {
		if p[0] == p[1] {
			return fmt.Errorf("%w: pair %d compares %q with itself", ErrInvalidPair, i, p[0])
		}
		for _, id := range p {
			if !known(id) {
				return fmt.Errorf("%w: pair %d references unknown item %q", ErrInvalidPair, i, id)
			}
		}
		k := p.Key()
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: pair %d repeats %q/%q", ErrInvalidPair, i, p[0], p[1])
		}
		seen[k] = struct{}{}
	}
	return nil
}
