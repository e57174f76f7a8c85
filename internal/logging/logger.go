package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fadedpez/numberledger/internal/types"
)

// Options controls how the process logger is built
type Options struct {
	Service     string
	Level       string
	Development bool
	Output      io.Writer
}

// Logger wraps a zerolog.Logger with the ledger error helpers
type Logger struct {
	zerolog.Logger
}

// New creates a new logger instance
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	// Human readable output while developing, JSON lines otherwise
	if opts.Development {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}

	return &Logger{Logger: ctx.Logger()}
}

// Component returns a child logger tagged with a component name
func (l *Logger) Component(name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// LogError logs a LedgerError with its code and cause, or any other error as unexpected
func (l *Logger) LogError(err error) {
	LogError(l.Logger, err)
}

// LogError is the free-function form used by components holding a plain zerolog.Logger
func LogError(log zerolog.Logger, err error) {
	if err == nil {
		return
	}

	var ledgerErr *types.LedgerError
	if types.As(err, &ledgerErr) {
		event := log.Error().
			Str("code", string(ledgerErr.Code)).
			Str("message", ledgerErr.Message)
		if ledgerErr.Err != nil {
			event = event.AnErr("cause", ledgerErr.Err)
		}
		event.Msg("ledger error occurred")
		return
	}

	log.Error().Err(err).Msg("unexpected error")
}

// Default logger instance
var Default = New(Options{Service: "numberledger"})
