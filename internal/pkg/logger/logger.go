package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is the textual level accepted in configuration.
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)

// Config controls the process-wide logger.
type Config struct {
	Level LogLevel
	// Pretty switches from JSON lines to the zerolog console writer.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
}

var base zerolog.Logger

// Configure replaces the global logger. It is called once during bootstrap.
func Configure(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	var w io.Writer = cfg.Output
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}

	base = zerolog.New(w).With().Timestamp().Logger()
	log.Logger = base
}

// ParseLevel maps a configured level name to a zerolog level, falling back to info.
func ParseLevel(level string) zerolog.Level {
	switch LogLevel(strings.ToLower(strings.TrimSpace(level))) {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the configured global logger.
func Get() zerolog.Logger {
	return base
}

// Component returns a child logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

func Debug() *zerolog.Event { return base.Debug() }
func Info() *zerolog.Event  { return base.Info() }
func Warn() *zerolog.Event  { return base.Warn() }
func Error() *zerolog.Event { return base.Error() }

// Fatal logs and exits the process.
func Fatal() *zerolog.Event { return base.Fatal() }

// WithFields returns a child logger carrying the given fields.
func WithFields(fields map[string]interface{}) zerolog.Logger {
	ctx := base.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}

func init() {
	Configure(Config{Level: InfoLevel, Pretty: true, Output: os.Stdout})
}
