// Package logger provides structured logging for outbox.
// Every component logs through a child logger carrying a module attribute.
// Output is either colourised lines for a terminal or JSON lines.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// LevelTrace is more verbose than debug.
const LevelTrace = slog.Level(-8)

// Levels lists the accepted level names, most verbose first.
var Levels = []string{"trace", "debug", "info", "warn", "error"}

// Options configures the root logger.
type Options struct {
	// Level is one of Levels. Empty means info.
	Level string

	// Pretty selects colourised line output instead of JSON.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

var (
	mu   sync.RWMutex
	root slog.Handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
)

// Setup replaces the root handler. Loggers returned by For before Setup
// was called pick up the new handler.
func Setup(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	w := opts.Output
	if w == nil {
		w = os.Stderr
	}

	var h slog.Handler
	if opts.Pretty {
		h = newPrettyHandler(w, level)
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceLevel,
		})
	}

	mu.Lock()
	defer mu.Unlock()
	root = h
	return nil
}

// For returns a logger for a module.
func For(module string) *slog.Logger {
	return slog.New(&deferredHandler{}).With("module", module)
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want one of %s)", name, strings.Join(Levels, ", "))
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func current() slog.Handler {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

func levelName(l slog.Level) string {
	if l <= LevelTrace {
		return "TRACE"
	}
	return l.String()
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(levelName(l))
		}
	}
	return a
}

// deferredHandler resolves the root handler on every call so that module
// loggers created at package init honour a later Setup.
type deferredHandler struct {
	ops []func(slog.Handler) slog.Handler
}

func (d *deferredHandler) resolve() slog.Handler {
	h := current()
	for _, op := range d.ops {
		h = op(h)
	}
	return h
}

func (d *deferredHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return current().Enabled(ctx, l)
}

func (d *deferredHandler) Handle(ctx context.Context, r slog.Record) error {
	return d.resolve().Handle(ctx, r)
}

func (d *deferredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return d.with(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (d *deferredHandler) WithGroup(name string) slog.Handler {
	return d.with(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (d *deferredHandler) with(op func(slog.Handler) slog.Handler) *deferredHandler {
	ops := make([]func(slog.Handler) slog.Handler, len(d.ops), len(d.ops)+1)
	copy(ops, d.ops)
	return &deferredHandler{ops: append(ops, op)}
}
