package playthrough

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/pairwise/pkg/logger"
)

// verifySession checks the completion invariants of an exported session
// against the standings the API reports.
func verifySession(st State, final, standings []Standing) error {
	n := len(st.Items)
	if !st.Done {
		return fmt.Errorf("session not marked done")
	}
	if want := n * (n - 1) / 2; len(st.Pairs) != want {
		return fmt.Errorf("expected %d pairs, got %d", want, len(st.Pairs))
	}
	if st.Count != len(st.Pairs) {
		return fmt.Errorf("count %d does not match %d pairs", st.Count, len(st.Pairs))
	}
	if st.PairIndex != len(st.Pairs) {
		return fmt.Errorf("pair index %d does not match %d pairs", st.PairIndex, len(st.Pairs))
	}

	games := 0
	for _, id := range st.Items {
		g := st.Games[id]
		if g != n-1 {
			return fmt.Errorf("item %s played %d games, expected %d", id, g, n-1)
		}
		games += g
	}
	if games != 2*st.Count {
		return fmt.Errorf("games total %d is not twice the count %d", games, st.Count)
	}

	if len(final) != n {
		return fmt.Errorf("final ranking has %d rows, expected %d", len(final), n)
	}
	if err := verifySorted(final); err != nil {
		return fmt.Errorf("final ranking: %w", err)
	}
	if err := verifySorted(standings); err != nil {
		return fmt.Errorf("standings: %w", err)
	}
	for i, s := range standings {
		if i < len(final) && s.ID != final[i].ID {
			return fmt.Errorf("standings row %d is %s, final ranking has %s", i+1, s.ID, final[i].ID)
		}
		r, ok := st.Ratings[s.ID]
		if !ok {
			return fmt.Errorf("standings row %d has unknown item %s", i+1, s.ID)
		}
		if int(math.Floor(r+0.5)) != s.Rating {
			return fmt.Errorf("item %s shows %d but its rating is %.3f", s.ID, s.Rating, r)
		}
	}
	return nil
}

func verifySorted(rows []Standing) error {
	for i := range rows {
		if rows[i].Rank != i+1 {
			return fmt.Errorf("row %d has rank %d", i+1, rows[i].Rank)
		}
		if i > 0 && rows[i].Rating > rows[i-1].Rating {
			return fmt.Errorf("row %d rated %d above row %d rated %d", i+1, rows[i].Rating, i, rows[i-1].Rating)
		}
	}
	return nil
}

// displayRanking logs a final ranking.
func displayRanking(ctx context.Context, res Result) {
	n := displayTopN
	if len(res.Final) < n {
		n = len(res.Final)
	}
	logger.Get().Info(ctx, "final ranking", logger.String("session", res.SessionID))
	for _, s := range res.Final[:n] {
		logger.Get().Info(ctx, fmt.Sprintf("%2d. %s", s.Rank, s.Name),
			logger.Int("rating", s.Rating),
			logger.Int("games", s.Games))
	}
}
