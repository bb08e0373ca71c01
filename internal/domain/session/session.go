// Package session holds the state of one pairwise ranking run: ratings,
// comparison counts and the position in the pairing sequence.
package session

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/okian/pairwise/internal/domain/pairing"
	"github.com/okian/pairwise/internal/domain/rating"
	"github.com/okian/pairwise/internal/validation"
)

// Status is the lifecycle state of a session.
type Status string

const (
	InProgress Status = "IN_PROGRESS"
	Complete   Status = "COMPLETE"
)

// State is the serialized representation of a session.
type State struct {
	Items     []string           `json:"items"`
	Ratings   map[string]float64 `json:"ratings"`
	Games     map[string]int     `json:"games"`
	Count     int                `json:"count"`
	K         float64            `json:"k"`
	Pairs     []pairing.Pair     `json:"pairs"`
	PairIndex int                `json:"pairIndex"`
	Done      bool               `json:"done"`
}

// Standing is one row of a ranking.
type Standing struct {
	Rank   int     `json:"rank"`
	ID     string  `json:"id"`
	Rating int     `json:"rating"`
	Raw    float64 `json:"raw"`
	Games  int     `json:"games"`
}

// Session is a single ranking run. It is not safe for concurrent use.
type Session struct {
	state    State
	defaultK float64
	initial  float64
	rnd      pairing.Rand
}

// New starts a fresh session over ids.
func New(ids []string, opts ...Option) *Session {
	s := defaults()
	for _, opt := range opts {
		opt(s)
	}
	s.state.Items = slices.Clone(ids)
	s.reset()
	return s
}

func (s *Session) reset() {
	s.state.K = s.defaultK
	s.state.Ratings = make(map[string]float64, len(s.state.Items))
	s.state.Games = make(map[string]int, len(s.state.Items))
	for _, id := range s.state.Items {
		s.state.Ratings[id] = s.initial
		s.state.Games[id] = 0
	}
	s.state.Count = 0
	s.state.Pairs = pairing.Generate(s.state.Items, s.rnd)
	s.state.PairIndex = 0
	s.state.Done = len(s.state.Pairs) == 0
}

// Reset discards all progress: new pairing sequence, initial ratings, zero
// counters and the configured K.
func (s *Session) Reset() {
	s.reset()
}

// Current returns the pair awaiting a decision. ok is false once complete.
func (s *Session) Current() (pairing.Pair, bool) {
	if s.state.Done {
		return pairing.Pair{}, false
	}
	return s.state.Pairs[s.state.PairIndex], true
}

// Status reports IN_PROGRESS or COMPLETE.
func (s *Session) Status() Status {
	if s.state.Done {
		return Complete
	}
	return InProgress
}

// Done reports whether every pair has been decided.
func (s *Session) Done() bool { return s.state.Done }

// PairIndex is the position of the current pair.
func (s *Session) PairIndex() int { return s.state.PairIndex }

// Total is the length of the pairing sequence.
func (s *Session) Total() int { return len(s.state.Pairs) }

// Count is the number of recorded comparisons.
func (s *Session) Count() int { return s.state.Count }

// K is the active K-factor.
func (s *Session) K() float64 { return s.state.K }

// Rating returns the raw rating and comparison count of id.
func (s *Session) Rating(id string) (float64, int, bool) {
	r, ok := s.state.Ratings[id]
	return r, s.state.Games[id], ok
}

// Record applies outcome to the current pair and advances. The first element
// of the pair is side A.
func (s *Session) Record(o rating.Outcome) (pairing.Pair, error) {
	if s.state.Done {
		return pairing.Pair{}, ErrComplete
	}
	if !o.Valid() {
		return pairing.Pair{}, fmt.Errorf("%w: %d", ErrInvalidChoice, o)
	}
	p := s.state.Pairs[s.state.PairIndex]
	a, b := p[0], p[1]
	na, nb := rating.Update(s.state.Ratings[a], s.state.Ratings[b], o, s.state.K)
	s.state.Ratings[a] = na
	s.state.Ratings[b] = nb
	s.state.Games[a]++
	s.state.Games[b]++
	s.state.Count++
	s.state.PairIndex++
	s.state.Done = s.state.PairIndex == len(s.state.Pairs)
	return p, nil
}

// ParseChoice maps left/right/draw to an outcome for the current pair.
func ParseChoice(choice string) (rating.Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(choice)) {
	case "left", "a":
		return rating.AWins, nil
	case "right", "b":
		return rating.BWins, nil
	case "draw":
		return rating.Draw, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}
}

// TopN returns the n highest rated items. Ties keep declaration order.
func (s *Session) TopN(n int) ([]Standing, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	ids := slices.Clone(s.state.Items)
	sort.SliceStable(ids, func(i, j int) bool {
		return s.state.Ratings[ids[i]] > s.state.Ratings[ids[j]]
	})
	if n > len(ids) {
		n = len(ids)
	}
	out := make([]Standing, n)
	for i := 0; i < n; i++ {
		id := ids[i]
		out[i] = Standing{
			Rank:   i + 1,
			ID:     id,
			Rating: rating.Round(s.state.Ratings[id]),
			Raw:    s.state.Ratings[id],
			Games:  s.state.Games[id],
		}
	}
	return out, nil
}

// Snapshot returns a deep copy of the state.
func (s *Session) Snapshot() State {
	return State{
		Items:     slices.Clone(s.state.Items),
		Ratings:   cloneMap(s.state.Ratings),
		Games:     cloneMap(s.state.Games),
		Count:     s.state.Count,
		K:         s.state.K,
		Pairs:     slices.Clone(s.state.Pairs),
		PairIndex: s.state.PairIndex,
		Done:      s.state.Done,
	}
}

// Marshal serializes the session.
func (s *Session) Marshal() ([]byte, error) {
	return json.Marshal(s.state)
}

// Export is the full serialized representation, indented for download.
func (s *Session) Export() ([]byte, error) {
	return json.MarshalIndent(s.state, "", "  ")
}

// Restore rebuilds a session from Marshal output. ids is the catalog the
// session must match.
func Restore(data []byte, ids []string, opts ...Option) (*Session, error) {
	var raw struct {
		Items     []string           `json:"items"`
		Ratings   map[string]float64 `json:"ratings"`
		Games     map[string]int     `json:"games"`
		Count     int                `json:"count"`
		K         float64            `json:"k"`
		Pairs     *[]pairing.Pair    `json:"pairs"`
		PairIndex int                `json:"pairIndex"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	switch {
	case raw.Items == nil:
		return nil, fmt.Errorf("%w: items missing", ErrInvalidState)
	case raw.Ratings == nil:
		return nil, fmt.Errorf("%w: ratings missing", ErrInvalidState)
	case raw.Pairs == nil:
		return nil, fmt.Errorf("%w: pairs missing", ErrInvalidState)
	case !slices.Equal(raw.Items, ids):
		return nil, fmt.Errorf("%w: items do not match catalog", ErrInvalidState)
	}

	s := defaults()
	for _, opt := range opts {
		opt(s)
	}
	st := State{
		Items:     slices.Clone(ids),
		Ratings:   make(map[string]float64, len(ids)),
		Games:     make(map[string]int, len(ids)),
		Count:     raw.Count,
		K:         raw.K,
		Pairs:     *raw.Pairs,
		PairIndex: raw.PairIndex,
	}
	if st.Pairs == nil {
		st.Pairs = []pairing.Pair{}
	}
	for _, id := range ids {
		r, ok := raw.Ratings[id]
		if !ok || !finite(r) {
			return nil, fmt.Errorf("%w: rating for %q missing", ErrInvalidState, id)
		}
		g := raw.Games[id]
		if g < 0 {
			return nil, fmt.Errorf("%w: negative games for %q", ErrInvalidState, id)
		}
		st.Ratings[id] = r
		st.Games[id] = g
	}
	if st.K == 0 {
		st.K = s.defaultK
	}
	if err := checkState(&st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	s.state = st
	return s, nil
}

// RestoreOrNew restores data and falls back to a fresh session when data is
// empty or invalid. The returned session is always usable; a non-nil error
// carries the reason for the fallback.
func RestoreOrNew(data []byte, ids []string, opts ...Option) (*Session, error) {
	if len(data) == 0 {
		return New(ids, opts...), fmt.Errorf("%w: empty", ErrInvalidState)
	}
	s, err := Restore(data, ids, opts...)
	if err != nil {
		return New(ids, opts...), err
	}
	return s, nil
}

// importPayload fields are pointers so that an explicit zero is told apart
// from an absent field.
type importPayload struct {
	Ratings   map[string]float64 `json:"ratings" validate:"required"`
	Games     map[string]int     `json:"games"`
	Count     *int               `json:"count" validate:"omitempty,gte=0"`
	K         *float64           `json:"k" validate:"omitempty,gt=0,finite"`
	Pairs     *[]pairing.Pair    `json:"pairs"`
	PairIndex *int               `json:"pairIndex" validate:"omitempty,gte=0"`
}

// Import merges a partial state over the session. Ratings and games merge key
// by key; count, k, pairs and pairIndex replace when present. ratings is
// required. On error the session is left untouched.
func (s *Session) Import(data []byte) error {
	var p importPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if err := validation.ValidateStruct(&p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	next := s.Snapshot()
	for id, r := range p.Ratings {
		if _, ok := next.Ratings[id]; !ok {
			return fmt.Errorf("%w: unknown item %q in ratings", ErrInvalidImport, id)
		}
		if !finite(r) {
			return fmt.Errorf("%w: rating for %q is not finite", ErrInvalidImport, id)
		}
		next.Ratings[id] = r
	}
	for id, g := range p.Games {
		if _, ok := next.Games[id]; !ok {
			return fmt.Errorf("%w: unknown item %q in games", ErrInvalidImport, id)
		}
		if g < 0 {
			return fmt.Errorf("%w: games for %q is negative", ErrInvalidImport, id)
		}
		next.Games[id] = g
	}
	if p.Count != nil {
		next.Count = *p.Count
	}
	if p.K != nil {
		next.K = *p.K
	}
	if p.Pairs != nil {
		next.Pairs = *p.Pairs
		if next.Pairs == nil {
			next.Pairs = []pairing.Pair{}
		}
	}
	if p.PairIndex != nil {
		next.PairIndex = *p.PairIndex
	}
	if err := checkState(&next); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if s.state.Done && !next.Done {
		return fmt.Errorf("%w: reset before importing unfinished progress", ErrComplete)
	}
	s.state = next
	return nil
}

// checkState validates scalar fields and pairs, then recomputes Done.
func checkState(st *State) error {
	if st.Count < 0 {
		return fmt.Errorf("count %d is negative", st.Count)
	}
	if !(st.K > 0) || !finite(st.K) {
		return fmt.Errorf("k %v must be positive", st.K)
	}
	known := func(id string) bool {
		_, ok := st.Ratings[id]
		return ok
	}
	if err := pairing.Validate(st.Pairs, known); err != nil {
		return err
	}
	if st.PairIndex < 0 || st.PairIndex > len(st.Pairs) {
		return fmt.Errorf("pairIndex %d outside [0, %d]", st.PairIndex, len(st.Pairs))
	}
	st.Done = st.PairIndex == len(st.Pairs)
	return nil
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
