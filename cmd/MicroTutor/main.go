// Command MicroTutor runs the GA4 lesson dialogue engine as an HTTP service or
// an interactive terminal session.
package main

import (
	"log/slog"
	"os"
)

func main() {
	initializeLogger(slog.LevelDebug)

	config := loadEnvironmentConfig()
	if err := newRootCmd(&config).Execute(); err != nil {
		slog.Debug("MicroTutor exited with error", "error", err)
		os.Exit(1)
	}
}

// initializeLogger sets up the process-wide structured logger.
func initializeLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// parseLogLevel accepts debug, info, warn and error. Unknown values give debug.
func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelDebug
	}
	return level
}
