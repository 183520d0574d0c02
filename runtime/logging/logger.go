package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Options are attached to every record of a handler.
type Options struct {
	App       string
	Component string
	// Run identifies one generator invocation. NewRunID fills it when empty.
	Run string

	Attrs []slog.Attr
}

// NewRunID returns a short random id shared by every record of one run.
func NewRunID() string { return gonanoid.Must(12) }

type LogHandler struct {
	opts Options
	*slog.JSONHandler
}

// NewLogHandler
// w after w.Write(b), b will be put back to a sync.Pool, so do not continue hold a reference to b.
func NewLogHandler(w io.Writer, opts Options, level slog.Leveler) *LogHandler {
	h := &LogHandler{
		JSONHandler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if len(groups) == 0 {
					if a.Key == slog.TimeKey {
						a.Value = slog.StringValue(a.Value.Time().Format(time.DateTime))
						return a
					}
				}

				return a
			},
		}),
	}

	if opts.Run == "" {
		opts.Run = NewRunID()
	}
	h.opts = opts
	h.opts.Attrs = append([]slog.Attr(nil), opts.Attrs...)

	if opts.App != "" {
		h.opts.Attrs = append(h.opts.Attrs, slog.String("app", opts.App))
	}

	if opts.Component != "" {
		h.opts.Attrs = append(h.opts.Attrs, slog.String("component", opts.Component))
	}

	h.opts.Attrs = append(h.opts.Attrs, slog.String("run", opts.Run))

	return h
}

var _ slog.Handler = (*LogHandler)(nil)

// Run returns the run id stamped on every record.
func (h *LogHandler) Run() string { return h.opts.Run }

func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.JSONHandler.Enabled(ctx, level)
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.opts.Attrs = append(c.opts.Attrs[:len(c.opts.Attrs):len(c.opts.Attrs)], attrs...)
	return &c
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	if len(h.opts.Attrs) > 0 {
		r.AddAttrs(h.opts.Attrs...)
	}
	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		r.AddAttrs(slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", f.File, f.Line)))
	}
	return h.JSONHandler.Handle(ctx, r)
}
