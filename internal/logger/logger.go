/*
Package logger wraps zerolog with the console + file setup used by the watcher.
*/
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a component-scoped structured logger.
type Logger struct {
	logger zerolog.Logger
}

var (
	// Default is the process-wide logger. It writes to stdout until Init is called.
	Default = &Logger{logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()}

	logFile *os.File
)

// Options configures Init.
type Options struct {
	Level   string
	File    string
	Console io.Writer
}

// Init configures the default logger. Console output is human readable; when
// File is set every event is also appended to it as JSON.
func Init(opts Options) error {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			Default = New(zerolog.New(writers[0]).With().Timestamp().Logger())
			return err
		}
		logFile = f
		writers = append(writers, f)
	}

	Default = New(zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger())

	Default.Debug().
		Str("level", level.String()).
		Str("file", opts.File).
		Msg("Logger initialized")
	return nil
}

// Close releases the log file opened by Init, if any.
func Close() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// New wraps an existing zerolog logger.
func New(l zerolog.Logger) *Logger {
	return &Logger{logger: l}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

func (l *Logger) WithStr(key, value string) *Logger {
	return &Logger{logger: l.logger.With().Str(key, value).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }

// Critical marks events an operator must act on. zerolog has no critical level, so
// these are errors tagged critical=true.
func (l *Logger) Critical() *zerolog.Event {
	return l.logger.Error().Bool("critical", true)
}

// For returns a child of Default tagged with the component name.
func For(component string) *Logger {
	return Default.WithStr("component", component)
}
