package clog

import (
	"context"
	"log/slog"
	"sync"
)

const (
	ErrorAttributeKey = "error.message"
	StackAttributeKey = "error.stack"
)

// requestAttrs collects attributes for the lifetime of one request. Keys keep
// the order of their first insertion so log lines stay stable.
type requestAttrs struct {
	mu     sync.Mutex
	keys   []string
	values map[string]any
}

type requestAttrsKey struct{}

// ContextWithSlog starts an attribute set unless ctx already carries one.
// Anything below it may add to the set and every record logged with the
// context carries it.
func ContextWithSlog(ctx context.Context) context.Context {
	if fromContext(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, requestAttrsKey{}, &requestAttrs{values: map[string]any{}})
}

func fromContext(ctx context.Context) *requestAttrs {
	ra, _ := ctx.Value(requestAttrsKey{}).(*requestAttrs)
	return ra
}

func (ra *requestAttrs) set(key string, value any) {
	if _, ok := ra.values[key]; !ok {
		ra.keys = append(ra.keys, key)
	}
	ra.values[key] = value
}

// AddAttribute is a no-op on a context without ContextWithSlog.
func AddAttribute(ctx context.Context, key string, value any) {
	ra := fromContext(ctx)
	if ra == nil {
		return
	}
	ra.mu.Lock()
	ra.set(key, value)
	ra.mu.Unlock()
}

func AddAttributes(ctx context.Context, attributes map[string]any) {
	ra := fromContext(ctx)
	if ra == nil {
		return
	}
	ra.mu.Lock()
	for k, v := range attributes {
		ra.set(k, v)
	}
	ra.mu.Unlock()
}

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func AddStack(ctx context.Context, stack string) {
	AddAttribute(ctx, StackAttributeKey, stack)
}

// Attributes returns the request attributes in insertion order.
func Attributes(ctx context.Context) []slog.Attr {
	ra := fromContext(ctx)
	if ra == nil {
		return nil
	}
	ra.mu.Lock()
	defer ra.mu.Unlock()
	out := make([]slog.Attr, 0, len(ra.keys))
	for _, k := range ra.keys {
		out = append(out, slog.Any(k, ra.values[k]))
	}
	return out
}
