// Package logger provides the shared structured logger.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Config for logger initialization.
type Config struct {
	Level   string // debug, info, warn, error
	Service string
	Output  io.Writer
	Pretty  bool // console writer for local development
}

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init initializes the default logger. Safe to call more than once; only the
// first call takes effect.
func Init(cfg Config) {
	once.Do(func() {
		defaultLogger = build(cfg)
	})
}

// New creates an independent logger instance.
func New(cfg Config) zerolog.Logger {
	return build(cfg)
}

func build(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	service := cfg.Service
	if service == "" {
		service = "jobtrust"
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Default returns the default logger.
func Default() *zerolog.Logger {
	once.Do(func() {
		defaultLogger = build(Config{})
	})
	return &defaultLogger
}

// Package-level helpers using the default logger.
func Debug(msg string, args ...any) { Default().Debug().Msgf(msg, args...) }
func Info(msg string, args ...any)  { Default().Info().Msgf(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn().Msgf(msg, args...) }
func Error(msg string, args ...any) { Default().Error().Msgf(msg, args...) }
func Fatal(msg string, args ...any) { Default().Fatal().Msgf(msg, args...) }
