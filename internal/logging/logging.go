// Package logging constructs the process-wide root zerolog.Logger, honouring
// the LOG_LEVEL environment variable. Library-level components never reach
// for a package-global logger; they accept a zerolog.Logger as an explicit
// dependency, following the specification's Design Notes.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds a console-writer logger for CLI entrypoints. level, when
// empty, is read from LOG_LEVEL; an unrecognised value falls back to info.
func New(level string) zerolog.Logger {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}

	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(parsed).With().Timestamp().Logger()
}
