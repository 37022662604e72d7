package clog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributes_InsertionOrder(t *testing.T) {
	assert.Nil(t, Attributes(context.Background()))
	AddAttribute(context.Background(), "ignored", 1)

	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "procedure", "/p")
	AddAttribute(ctx, "uid", "u1")
	AddAttribute(ctx, "procedure", "/q")

	attrs := Attributes(ctx)
	require.Len(t, attrs, 2)
	assert.Equal(t, "procedure", attrs[0].Key)
	assert.Equal(t, "/q", attrs[0].Value.String())
	assert.Equal(t, "uid", attrs[1].Key)

	nested := ContextWithSlog(ctx)
	AddAttribute(nested, "store", "task")
	assert.Len(t, Attributes(ctx), 3, "nested ContextWithSlog shares the outer set")
}

func TestLevels(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, HTTPStatusLevel(http.StatusOK))
	assert.Equal(t, slog.LevelInfo, HTTPStatusLevel(499))
	assert.Equal(t, slog.LevelWarn, HTTPStatusLevel(http.StatusUnauthorized))
	assert.Equal(t, slog.LevelError, HTTPStatusLevel(http.StatusServiceUnavailable))

	assert.Equal(t, slog.LevelInfo, ConnectCodeLevel(connect.CodeNotFound))
	assert.Equal(t, slog.LevelWarn, ConnectCodeLevel(connect.CodeUnauthenticated))
	assert.Equal(t, slog.LevelError, ConnectCodeLevel(connect.CodeInternal))
	assert.Equal(t, slog.LevelError, ConnectCodeLevel(connect.CodeUnavailable))
}

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(NewAttributesHandler(NewTextHandler(&buf, WithColor(false), WithLevel(slog.LevelDebug)))))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestSlogChiMiddleware(t *testing.T) {
	buf := captureDefault(t)
	r := chi.NewRouter()
	r.Use(SlogChiMiddleware())
	r.Get("/api/collections/{collection}/{id}", func(w http.ResponseWriter, r *http.Request) {
		AddAttribute(r.Context(), "uid", "u1")
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/collections/tasks/t1", nil))

	out := buf.String()
	assert.Contains(t, out, `WARN GET /api/collections/tasks/t1 404 "Not Found"`)
	assert.Contains(t, out, "route=/api/collections/{collection}/{id}")
	assert.Contains(t, out, "uid=u1")
}

type fakeRequest struct {
	connect.AnyRequest
	spec connect.Spec
}

func (r fakeRequest) Spec() connect.Spec { return r.spec }
func (r fakeRequest) Peer() connect.Peer { return connect.Peer{Addr: "10.0.0.1:5000", Protocol: connect.ProtocolConnect} }
func (r fakeRequest) HTTPMethod() string { return http.MethodPost }

func TestSlogConnectInterceptor(t *testing.T) {
	buf := captureDefault(t)
	interceptor := NewSlogConnectInterceptor(WithConnectSkip(SkipHealthChecks))

	failing := interceptor.WrapUnary(func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
		AddError(ctx, errors.New("disk full"))
		return nil, connect.NewError(connect.CodeInternal, errors.New("storage failure"))
	})
	_, err := failing(context.Background(), fakeRequest{spec: connect.Spec{Procedure: "/collabspace.v1.DocumentService/Insert"}})
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `ERROR POST /collabspace.v1.DocumentService/Insert [internal] "storage failure" "disk full"`)
	assert.Contains(t, out, "peer=10.0.0.1:5000")

	buf.Reset()
	health := interceptor.WrapUnary(func(context.Context, connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, nil
	})
	_, err = health(context.Background(), fakeRequest{spec: connect.Spec{Procedure: "/grpc.health.v1.Health/Check"}})
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
