package sessioncore

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the zerolog logger the core components use. level is a
// zerolog level name ("debug", "info", ...); unknown names fall back to
// info. pretty switches to the human-readable console writer.
func NewLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(lvl).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(os.Stderr).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
