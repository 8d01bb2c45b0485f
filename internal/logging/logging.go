// Package logging provides the printf-style logger used across ftbundle,
// backed by zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/thediveo/enumflag/v2"
)

type Level enumflag.Flag

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// LevelIds maps levels to their command-line names.
var LevelIds = map[Level][]string{
	Debug: {"debug"},
	Info:  {"info"},
	Warn:  {"warn", "warning"},
	Error: {"error"},
}

type Format enumflag.Flag

const (
	Pretty Format = iota
	JSON
)

var FormatIds = map[Format][]string{
	Pretty: {"pretty", "console"},
	JSON:   {"json"},
}

type Config struct {
	Level  Level
	Format Format
	Output io.Writer // defaults to os.Stderr
}

type Logger struct {
	logger zerolog.Logger
	exit   func(int)
}

func NewLogger(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: !IsTerminal(out)}
	}

	return &Logger{
		logger: zerolog.New(out).Level(zerologLevel(cfg.Level)).With().Timestamp().Logger(),
		exit:   os.Exit,
	}
}

// FromZerolog wraps an existing zerolog logger.
func FromZerolog(l zerolog.Logger) *Logger {
	return &Logger{logger: l, exit: os.Exit}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{logger: zerolog.Nop(), exit: os.Exit}
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case Debug:
		return zerolog.DebugLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// IsTerminal reports whether w is a character device.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// With returns a child logger carrying the given field on every entry.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{logger: l.logger.With().Str(key, value).Logger(), exit: l.exit}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(format, args...)
}

// Fatalf logs at fatal level and terminates the process with status 1.
func (l *Logger) Fatalf(format string, args ...any) {
	l.logger.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, args...))
	l.exit(1)
}

// Zerolog exposes the underlying logger for structured fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.logger
}
