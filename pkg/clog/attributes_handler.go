package clog

import (
	"context"
	"log/slog"
)

// AttributesHandler appends the request attributes of the record's context
// before passing it on.
type AttributesHandler struct {
	next slog.Handler
}

func NewAttributesHandler(next slog.Handler) *AttributesHandler {
	return &AttributesHandler{next: next}
}

func (h *AttributesHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AttributesHandler) Handle(ctx context.Context, record slog.Record) error {
	if attrs := Attributes(ctx); len(attrs) > 0 {
		record = record.Clone()
		record.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, record)
}

func (h *AttributesHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AttributesHandler{next: h.next.WithAttrs(attrs)}
}

func (h *AttributesHandler) WithGroup(name string) slog.Handler {
	return &AttributesHandler{next: h.next.WithGroup(name)}
}
