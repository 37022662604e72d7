package clog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
)

// headColumns are printed inline, in this order, before the message.
var headColumns = []string{"method", "procedure", "status", "store", "op"}

// TextHandler is a human-oriented slog handler: one colored headline per
// record followed by the remaining attributes, one per line.
type TextHandler struct {
	cfg   TextHandlerConfig
	attrs []slog.Attr
	mu    *sync.Mutex
	w     io.Writer
}

type TextHandlerConfig struct {
	Color bool
	Level *slog.Level
}

type TextHandlerOption func(*TextHandlerConfig)

func WithColor(c bool) TextHandlerOption {
	return func(cfg *TextHandlerConfig) {
		cfg.Color = c
	}
}

func WithLevel(level slog.Level) TextHandlerOption {
	return func(cfg *TextHandlerConfig) {
		cfg.Level = &level
	}
}

func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	cfg := TextHandlerConfig{
		Color: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &TextHandler{
		cfg: cfg,
		mu:  &sync.Mutex{},
		w:   w,
	}
}

func (h *TextHandler) clone() *TextHandler {
	nh := *h
	nh.attrs = make([]slog.Attr, len(h.attrs))
	copy(nh.attrs, h.attrs)
	return &nh
}

func (h *TextHandler) Enabled(_ context.Context, l slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.cfg.Level != nil {
		minLevel = h.cfg.Level.Level()
	}
	return l >= minLevel
}

// WithGroup is a no-op: attributes are printed flat.
func (h *TextHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.clone()
	nh.attrs = append(nh.attrs, attrs...)
	return nh
}

func (h *TextHandler) Handle(_ context.Context, record slog.Record) error {
	buf := bytes.NewBuffer(make([]byte, 0, 1024))
	paint := func(attr color.Attribute, format string, args ...any) {
		c := color.New(attr)
		if h.cfg.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		_, _ = c.Fprintf(buf, format, args...)
	}

	paint(color.Reset, "%s ", record.Time.Format(time.RFC3339))
	paint(levelColor(record.Level), "%s ", record.Level)

	kv := map[string]slog.Value{}
	for _, attr := range h.attrs {
		kv[attr.Key] = attr.Value
	}
	record.Attrs(func(attr slog.Attr) bool {
		kv[attr.Key] = attr.Value
		return true
	})
	for _, key := range headColumns {
		if v, ok := kv[key]; ok {
			paint(color.Reset, "%s ", v)
			delete(kv, key)
		}
	}

	if v, ok := kv["code"]; ok {
		delete(kv, "code")
		paint(color.FgGreen, "[%s] ", v)
	}
	paint(color.FgGreen, "%q", record.Message)
	if e, ok := kv[ErrorAttributeKey]; ok {
		delete(kv, ErrorAttributeKey)
		paint(color.FgRed, " %q", e.String())
	}
	buf.WriteByte('\n')

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "    %s=%s\n", k, kv[k])
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func levelColor(l slog.Level) color.Attribute {
	switch {
	case l >= slog.LevelError:
		return color.FgRed
	case l >= slog.LevelWarn:
		return color.FgYellow
	case l >= slog.LevelInfo:
		return color.FgBlue
	default:
		return color.FgCyan
	}
}
