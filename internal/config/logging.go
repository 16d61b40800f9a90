package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process logger from LoggingConfig and installs it
// as the zerolog global so package-level log calls agree with it.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.New(logWriter(cfg.Format)).
		Level(logLevel(cfg.Level)).
		With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// logLevel maps the configured level name onto a zerolog level, falling
// back to info for anything unrecognised.
func logLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// logWriter picks the output: JSON on stdout by default, the human
// console writer when the format says so.
func logWriter(format string) io.Writer {
	if strings.EqualFold(format, "console") {
		return zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}
	return os.Stdout
}
