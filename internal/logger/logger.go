// Package logger provides structured logging for the mortality explorer
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with component and event helpers
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a new structured logger
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "mortality").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// WithComponent returns a logger tagged with a component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", component).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// LogRequest logs a completed HTTP request
func (l *Logger) LogRequest(method, uri string, status int, duration time.Duration, err error) {
	event := l.zlog.Info()
	if err != nil || status >= 500 {
		event = l.zlog.Error().Err(err)
	}
	event.
		Str("method", method).
		Str("uri", uri).
		Int("status", status).
		Dur("duration_ms", duration).
		Msg("request completed")
}

// LogQuery logs one engine query
func (l *Logger) LogQuery(kind, spec string, rows int, duration time.Duration, err error) {
	event := l.zlog.Debug()
	if err != nil {
		event = l.zlog.Warn().Err(err)
	}
	event.
		Str("kind", kind).
		Str("spec", spec).
		Int("rows", rows).
		Dur("duration_ms", duration).
		Msg("query completed")
}

// InitGlobal builds a logger and installs it as the zerolog global logger,
// which the engine's loader logs through.
func InitGlobal(cfg Config) *Logger {
	l := New(cfg)
	log.Logger = l.zlog
	return l
}
