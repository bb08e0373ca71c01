package playthrough

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/pairwise/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the logger, writing to stdout and, when logFile
// is set, to that file as well.
func SetupLogging(logFile string, verbose bool) error {
	var out io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
	}
	logger.SetOutput(out)
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the play-through tool.
func ShowHelp() {
	os.Stdout.WriteString(`pairwise play-through
=====================

Plays complete ranking sessions against a running pairwise service and
verifies every finished session.

Usage:
  go run ./cmd/playthrough [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of sessions to play (default 1)
  -workers int
        Number of concurrent players (default 1)
  -draws float
        Fraction of answers that are draws (default 0)
  -seed int
        Seed for answers; 0 seeds from the clock
  -timeout duration
        HTTP request timeout (default 10s)
  -output string
        Write the first verified session's export to this file
  -log string
        Also write logs to this file
  -verbose
        Log every answer
  -help
        Show this help message

Examples:
  # One session with the default settings
  go run ./cmd/playthrough

  # Twenty sessions on eight players, a few draws, export saved
  go run ./cmd/playthrough -sessions 20 -workers 8 -draws 0.1 -output out/session.json
`)
}
