package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
)

const (
	envLocal = "local"
	envProd  = "prod"
)

// SetupLogger builds the process logger for env. Records are also passed to
// every handler in extra (for example an alertlog.Handler).
func SetupLogger(env string, extra ...slog.Handler) *slog.Logger {
	return slog.New(Fanout(append([]slog.Handler{NewHandler(env)}, extra...)...))
}

// NewHandler returns the console or file handler used for env.
// In prod it writes JSON to app.log, falling back to stdout.
func NewHandler(env string) slog.Handler {
	switch env {
	case envLocal:
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case envProd:
		var w io.Writer = os.Stdout
		file, err := os.OpenFile("app.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err == nil {
			w = file
		}
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
}

type fanout struct{ hs []slog.Handler }

// Fanout passes each record to every handler that is enabled for its level.
func Fanout(h ...slog.Handler) slog.Handler {
	if len(h) == 1 {
		return h[0]
	}
	return &fanout{hs: h}
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.hs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(f.hs))
	for i, h := range f.hs {
		hs[i] = h.WithAttrs(attrs)
	}
	return &fanout{hs: hs}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(f.hs))
	for i, h := range f.hs {
		hs[i] = h.WithGroup(name)
	}
	return &fanout{hs: hs}
}
