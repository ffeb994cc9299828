package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps a zerolog logger with helpers for per-component children.
type Logger struct {
	logger zerolog.Logger
}

// Fields represents log fields
type Fields map[string]interface{}

// Options controls the log sink and verbosity.
type Options struct {
	// Level is a zerolog level name ("debug", "info", ...). Empty means
	// debug outside production and info in production.
	Level string
	// Environment selects the default level when Level is empty.
	Environment string
	// File, when set, sends output to a size-rotated file instead of the
	// console writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Default is the default logger instance
var Default *Logger

// Init initializes the default logger.
func Init(opts Options) {
	level := parseLevel(opts)

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	if opts.File != "" {
		output = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
	} else {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	Default = &Logger{logger: logger}

	Default.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

func parseLevel(opts Options) zerolog.Level {
	if opts.Level == "" {
		if opts.Environment == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// WithFields creates a new logger with fields
func (l *Logger) WithFields(fields Fields) *Logger {
	newLogger := l.logger.With()
	for k, v := range fields {
		newLogger = newLogger.Interface(k, v)
	}
	return &Logger{logger: newLogger.Logger()}
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithError adds an error to the logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

// Debug returns a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info returns an info event
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn returns a warn event
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error returns an error event
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// Fatal returns a fatal event
func (l *Logger) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}

// Global functions for packages that don't carry a logger around.

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	get().Debug().Msgf(format, v...)
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	get().Info().Msgf(format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	get().Warn().Msgf(format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	get().Error().Msgf(format, v...)
}

func get() *Logger {
	if Default == nil {
		Init(Options{})
	}
	return Default
}

// ForSpider creates a logger scoped to one site's crawl session.
func ForSpider(site string) *Logger {
	return get().WithField("spider", site)
}

// ForWorker creates a logger for the worker
func ForWorker() *Logger {
	return get().WithField("component", "worker")
}

// ForPublisher creates a logger for the publisher
func ForPublisher() *Logger {
	return get().WithField("component", "publisher")
}

// ForFetcher creates a logger for a page fetcher
func ForFetcher(kind string) *Logger {
	return get().WithFields(Fields{"component": "fetcher", "kind": kind})
}
