// Package logger is the default engine logger. It writes JSON lines through log/slog with the log meta
// flattened into top level fields.
package logger

import (
	"context"
	"io"
	"log/slog"
	"sort"
)

type logger struct {
	log *slog.Logger
}

func (l logger) Debug(ctx context.Context, msg string, meta map[string]string) {
	l.log.DebugContext(ctx, msg, attrs(meta)...)
}

func (l logger) Error(ctx context.Context, err error) {
	l.log.ErrorContext(ctx, "error", slog.String("error", err.Error()))
}

// attrs returns the meta as slog attributes sorted by key so lines are stable.
func attrs(meta map[string]string) []any {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.String(k, meta[k]))
	}

	return out
}

// New returns a logger writing JSON to w. Every level is enabled as the engine decides whether debug lines
// are written.
func New(w io.Writer) *logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &logger{
		log: slog.New(h).With(slog.String("service", "conserver")),
	}
}
