// Package logging builds the process-wide slog logger: colorized text (tint) or
// JSON on stdout, optionally mirrored as JSON to a log file.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// ParseLevel converts LOG_LEVEL text into a slog level. Unknown values map to
// info and ok is false.
func ParseLevel(value string) (lvl slog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "info", "":
		return slog.LevelInfo, true
	default:
		return slog.LevelInfo, false
	}
}

// Options configures New.
type Options struct {
	Level  string
	Format string // text | json
	File   string // optional path; JSON lines are appended
	Out    io.Writer
}

// New returns a logger and a close func for the optional file sink.
func New(opts Options) (*slog.Logger, func() error, error) {
	lvl, known := ParseLevel(opts.Level)
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	var console slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		console = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl})
	} else {
		console = tint.NewHandler(out, &tint.Options{Level: lvl, TimeFormat: time.DateTime})
	}

	closer := func() error { return nil }
	handler := console
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closer = f.Close
		handler = fanout{console, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: lvl})}
	}

	logger := slog.New(handler)
	if !known {
		logger.Warn("unknown LOG_LEVEL, using info", slog.String("value", opts.Level))
	}
	return logger, closer, nil
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
