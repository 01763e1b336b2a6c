package cliconfig

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// Logger returns the package's console logger, used by cmd/waloy before a
// Waloy instance (and its own structured logger) exists.
func Logger() zerolog.Logger {
	return logger
}
