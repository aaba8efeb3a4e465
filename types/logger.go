package types

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the logging contract every subsystem depends on, matching the
// teacher's Printf-only shape so aspects and components never need to know
// which concrete logging library backs it.
type Logger interface {
	Printf(format string, args ...interface{})
}

// zerologLogger adapts zerolog to the Printf-only Logger contract.
type zerologLogger struct {
	log zerolog.Logger
}

func (z *zerologLogger) Printf(format string, args ...interface{}) {
	z.log.Info().Msgf(format, args...)
}

// DefaultLogger returns a console-friendly zerolog-backed Logger. It is the
// Config default whenever a caller does not supply WithLogger.
func DefaultLogger() Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return &zerologLogger{log: zerolog.New(w).With().Timestamp().Logger()}
}
