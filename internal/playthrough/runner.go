package playthrough

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/pairwise/pkg/logger"
)

// ErrVerification is returned when at least one session broke an invariant.
var ErrVerification = errors.New("session verification failed")

// Run plays config.Sessions complete sessions against the service and
// verifies each one.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}
	if config.Sessions < 1 {
		config.Sessions = 1
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger.Get().Info(ctx, "starting pairwise play-through",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.Sessions),
		logger.Int("workers", config.Workers),
		logger.Float64("drawRate", config.DrawRate),
		logger.Any("seed", seed))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	results, errs := playAll(ctx, config, seed)
	for i, err := range errs {
		stats.SessionsPlayed++
		stats.Answers += results[i].Answers
		stats.Conflicts += results[i].Conflicts
		if err != nil {
			stats.SessionsFailed++
			logger.Get().Error(ctx, "session failed", logger.Int("session", i), logger.Error(err))
			continue
		}
		stats.SessionsVerified++
	}

	if stats.SessionsVerified > 0 {
		for i, err := range errs {
			if err == nil {
				displayRanking(ctx, results[i])
				if err := saveExport(ctx, config.OutputFile, results[i].Export); err != nil {
					logger.Get().Warn(ctx, "failed to save export", logger.Error(err))
				}
				break
			}
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if stats.SessionsFailed > 0 {
		return fmt.Errorf("%w: %d of %d sessions", ErrVerification, stats.SessionsFailed, stats.SessionsPlayed)
	}
	logger.Get().Info(ctx, "play-through completed successfully")
	return nil
}

// playAll runs the sessions on a worker pool. Each worker draws answers
// from its own seeded source.
func playAll(ctx context.Context, config *Config, seed int64) ([]Result, []error) {
	results := make([]Result, config.Sessions)
	errs := make([]error, config.Sessions)

	jobs := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed + int64(workerID))) //nolint:gosec // answers need not be secure
			for i := range jobs {
				results[i], errs[i] = playAndVerify(ctx, config, rnd)
			}
		}(w)
	}

	go func() {
		defer close(jobs)
		for i := 0; i < config.Sessions; i++ {
			select {
			case <-ctx.Done():
				for ; i < config.Sessions; i++ {
					errs[i] = ctx.Err()
				}
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()
	return results, errs
}

func playAndVerify(ctx context.Context, config *Config, rnd *rand.Rand) (Result, error) {
	res, client, err := playSession(ctx, config, rnd)
	if err != nil {
		return res, err
	}
	data, st, err := client.Export(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to export: %w", err)
	}
	res.Export = data
	standings, err := client.Standings(ctx, len(st.Items))
	if err != nil {
		return res, fmt.Errorf("failed to fetch standings: %w", err)
	}
	if err := verifySession(st, res.Final, standings); err != nil {
		return res, err
	}
	return res, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")
	client, err := newHTTPClient(config.BaseURL, config.Timeout)
	if err != nil {
		return err
	}
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("failed to reach service: %w", err)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveExport writes one exported session so it can be imported later.
func saveExport(ctx context.Context, filename string, data []byte) error {
	if filename == "" {
		return nil
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	logger.Get().Info(ctx, "export saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, answersPerSecond float64
	if stats.SessionsPlayed > 0 {
		successRate = float64(stats.SessionsVerified) / float64(stats.SessionsPlayed) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		answersPerSecond = float64(stats.Answers) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("sessionsPlayed", stats.SessionsPlayed),
		logger.Int("sessionsVerified", stats.SessionsVerified),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("answers", stats.Answers),
		logger.Int("conflicts", stats.Conflicts),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("answersPerSecond", answersPerSecond))
}
