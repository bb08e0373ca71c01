// Package rating implements the Elo update used to rank compared items.
package rating

import "math"

const (
	// DefaultK is the rating adjustment factor.
	DefaultK = 24.0
	// DefaultInitial is the rating every item starts with.
	DefaultInitial = 1500.0

	scale = 400.0
)

// Outcome is the result of a single comparison between A and B.
type Outcome int

const (
	AWins Outcome = iota
	BWins
	Draw
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case AWins:
		return "a_wins"
	case BWins:
		return "b_wins"
	case Draw:
		return "draw"
	default:
		return "unknown"
	}
}

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	return o == AWins || o == BWins || o == Draw
}

// Score returns A's actual score for the outcome. B's score is 1 minus it.
func (o Outcome) Score() float64 {
	switch o {
	case AWins:
		return 1
	case BWins:
		return 0
	default:
		return 0.5
	}
}

// Expected returns the probability that an item rated ra beats one rated rb.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/scale))
}

// Update returns the new ratings of A and B after the outcome. Both results are
// computed from the pre-update ratings. Ratings are not clamped.
func Update(ra, rb float64, o Outcome, k float64) (float64, float64) {
	ea := Expected(ra, rb)
	eb := 1 - ea
	sa := o.Score()
	sb := 1 - sa
	return ra + k*(sa-ea), rb + k*(sb-eb)
}

// Round rounds half up, so 1511.5 becomes 1512 and -0.5 becomes 0.
func Round(r float64) int {
	return int(math.Floor(r + 0.5))
}
