package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/pairwise/internal/playthrough"
)

// Default configuration constants.
const (
	defaultSessions = 1
	defaultWorkers  = 1
	defaultTimeout  = 10 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sessions = flag.Int("sessions", defaultSessions, "Number of sessions to play")
		workers  = flag.Int("workers", defaultWorkers, "Number of concurrent players")
		draws    = flag.Float64("draws", 0, "Fraction of answers that are draws")
		seed     = flag.Int64("seed", 0, "Seed for answers; 0 seeds from the clock")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		output   = flag.String("output", "", "Write the first verified session's export to this file")
		logFile  = flag.String("log", "", "Also write logs to this file")
		verbose  = flag.Bool("verbose", false, "Log every answer")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		playthrough.ShowHelp()
		return
	}

	if err := playthrough.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	config := &playthrough.Config{
		BaseURL:    *baseURL,
		Sessions:   *sessions,
		Workers:    *workers,
		Timeout:    *timeout,
		DrawRate:   *draws,
		Seed:       *seed,
		OutputFile: *output,
		Verbose:    *verbose,
	}

	if err := playthrough.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Play-through failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
