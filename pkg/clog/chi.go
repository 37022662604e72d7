package clog

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SlogChiMiddleware writes one summary line per request routed by chi. The
// matched route pattern is logged next to the raw path, so
// /api/collections/{collection}/{id} lines group together.
func SlogChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := ContextWithSlog(r.Context())
			AddAttributes(ctx, map[string]any{
				"method":    r.Method,
				"procedure": r.URL.Path,
				"peer":      r.RemoteAddr,
			})
			next.ServeHTTP(ww, r.WithContext(ctx))

			if rc := chi.RouteContext(r.Context()); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					AddAttribute(ctx, "route", pattern)
				}
			}
			AddAttributes(ctx, map[string]any{
				"status":        ww.Status(),
				"bytes_written": ww.BytesWritten(),
				"duration":      time.Since(start),
			})
			slog.Log(ctx, HTTPStatusLevel(ww.Status()), http.StatusText(ww.Status()))
		})
	}
}
