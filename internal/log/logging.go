// Package log wires up a slog.Logger for padfusion binaries.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LevelTrace sits below slog.LevelDebug for per-frame chatter too noisy for
// debug; the demo event sinks log every axis event at this level.
const LevelTrace slog.Level = -8

// ParseLevel maps a config/flag string onto a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "", "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanoutHandler dispatches every record to all of its children.
type fanoutHandler struct{ handlers []slog.Handler }

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return fanoutHandler{handlers: out}
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		out[i] = h.WithGroup(name)
	}
	return fanoutHandler{handlers: out}
}

// levelGate wraps a handler so it only ever sees records a predicate accepts.
type levelGate struct {
	accept func(slog.Level) bool
	h      slog.Handler
}

func (g levelGate) Enabled(ctx context.Context, level slog.Level) bool {
	return g.accept(level) && g.h.Enabled(ctx, level)
}

func (g levelGate) Handle(ctx context.Context, r slog.Record) error {
	if !g.accept(r.Level) {
		return nil
	}
	return g.h.Handle(ctx, r)
}

func (g levelGate) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelGate{accept: g.accept, h: g.h.WithAttrs(attrs)}
}

func (g levelGate) WithGroup(name string) slog.Handler {
	return levelGate{accept: g.accept, h: g.h.WithGroup(name)}
}

// Setup builds a slog.Logger that writes non-error records to stdout and
// error+ records to stderr, optionally duplicating everything to a log file.
// The returned closers must be closed by the caller on shutdown.
func Setup(level, file string) (*slog.Logger, []io.Closer, error) {
	lvl := ParseLevel(level)

	var handlers []slog.Handler
	handlers = append(handlers,
		levelGate{
			accept: func(l slog.Level) bool { return l < slog.LevelError },
			h:      slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}),
		},
		levelGate{
			accept: func(l slog.Level) bool { return l >= slog.LevelError },
			h:      slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}),
		},
	)

	var closers []io.Closer
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, f)
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: lvl}))
	}

	return slog.New(fanoutHandler{handlers: handlers}), closers, nil
}
