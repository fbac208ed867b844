// Package log provides the shared logging setup for curator.
//
// Loggers are injected, never global: each component receives a
// *slog.Logger through its constructor and narrows it with With(). The
// CLI builds one logger at startup from the verbosity flags and threads
// it through app setup.
//
// Usage:
//
//	logger := log.New(log.Config{Level: slog.LevelDebug})
//	store := store.New(pool, embedder, logger.With("component", "store"))
//
// Tests use NewNop, or NewWithWriter over a buffer when asserting on
// log output.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger aliases *slog.Logger so call sites depend on the standard
// library type and keep full access to With() and the slog ecosystem.
type Logger = *slog.Logger

// Config defines logger options.
type Config struct {
	// Level is the minimum level to emit. Default: slog.LevelInfo.
	Level slog.Level

	// JSON switches output from text to JSON format.
	JSON bool

	// AddSource annotates entries with their source location.
	AddSource bool
}

// New creates a logger writing to os.Stderr. Command output goes to
// stdout, so logs must stay on stderr to keep piped reports clean.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop creates a logger that discards everything. Test use only;
// production code always configures a real writer.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
