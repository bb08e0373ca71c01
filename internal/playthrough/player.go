package playthrough

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/okian/pairwise/pkg/logger"
)

// Chooser picks an answer for a pair.
type Chooser interface {
	Float64() float64
	Intn(n int) int
}

func pickAnswer(rnd Chooser, drawRate float64) string {
	if drawRate > 0 && rnd.Float64() < drawRate {
		return "draw"
	}
	if rnd.Intn(2) == 0 {
		return "left"
	}
	return "right"
}

// playSession runs one browser through a complete session. After the first
// answer it replays the same pair index once and expects a conflict.
func playSession(ctx context.Context, config *Config, rnd *rand.Rand) (Result, *HTTPClient, error) {
	client, err := newHTTPClient(config.BaseURL, config.Timeout)
	if err != nil {
		return Result{}, nil, err
	}

	v, err := client.Session(ctx)
	if err != nil {
		return Result{}, nil, fmt.Errorf("failed to open session: %w", err)
	}
	res := Result{SessionID: v.SessionID}

	for v.Pair != nil {
		if err := ctx.Err(); err != nil {
			return res, nil, err
		}
		choice := pickAnswer(rnd, config.DrawRate)
		idx := v.PairIndex
		next, err := client.Choose(ctx, choice, idx)
		if err != nil {
			return res, nil, fmt.Errorf("answer %d: %w", idx, err)
		}
		res.Answers++
		if config.Verbose {
			logger.Get().Debug(ctx, "answered",
				logger.String("session", v.SessionID),
				logger.Int("index", idx),
				logger.String("left", v.Pair.Left.ID),
				logger.String("right", v.Pair.Right.ID),
				logger.String("choice", choice))
		}

		if res.Answers == 1 && next.Pair != nil {
			_, err := client.Choose(ctx, choice, idx)
			var se *StatusError
			if !errors.As(err, &se) || se.Code != http.StatusConflict {
				return res, nil, fmt.Errorf("replayed answer %d was not rejected: %v", idx, err)
			}
			res.Conflicts++
		}
		v = next
	}

	if v.SessionID != res.SessionID {
		return res, nil, fmt.Errorf("session changed from %s to %s", res.SessionID, v.SessionID)
	}
	res.Final = v.Final
	return res, client, nil
}
