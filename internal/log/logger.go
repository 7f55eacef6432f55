// Package log provides structured logging for curbot.
//
// A Logger interface backed by Go's stdlib slog keeps subsystems testable:
// components accept a Logger explicitly, with a global default for the few
// places where plumbing one through would be noise.
//
// Diagnostic output always goes to stderr so that stdout stays reserved for
// machine-readable results (decision JSON, validation reports).
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/term"
)

// Logger is the interface for structured logging.
// Methods match slog's signature for easy integration.
type Logger interface {
	// Debug logs at DEBUG level: decision branches, retry attempts,
	// extraction steps. Only useful for troubleshooting.
	Debug(msg string, args ...any)

	// Info logs at INFO level for operational context like
	// "checking upstream release feed".
	Info(msg string, args ...any)

	// Warn logs at WARN level for recoverable issues like a failed
	// AUR snapshot fetch or a resolver attempt that will be retried.
	Warn(msg string, args ...any)

	// Error logs at ERROR level for failures that abort the run.
	Error(msg string, args ...any)

	// With returns a Logger that includes the given key-value pairs
	// in all subsequent entries.
	With(args ...any) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// New creates a Logger backed by slog with the given handler.
func New(h slog.Handler) Logger {
	return &slogLogger{l: slog.New(h)}
}

// NewCLI creates a Logger writing human-readable lines to w at the given
// level. Timestamps are dropped when w is an interactive terminal; CI logs
// keep them.
func NewCLI(w io.Writer, level slog.Level) Logger {
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		}
	}
	return New(slog.NewTextHandler(w, opts))
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

// noopLogger discards all log output.
type noopLogger struct{}

// NewNoop returns a logger that discards all output.
func NewNoop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) With(...any) Logger   { return noopLogger{} }

var (
	defaultLogger Logger = noopLogger{}
	defaultMu     sync.RWMutex
)

// Default returns the global logger configured at startup.
// Returns a noop logger if SetDefault has not been called.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the global logger. Called once in main() after
// verbosity flags are parsed.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
