package clog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/proto"
)

type ConnectOption func(*connectLogger)

// WithConnectSkip suppresses the summary line of matching procedures.
// Attributes are still collected for anything the handler logs itself.
func WithConnectSkip(skip func(connect.Spec) bool) ConnectOption {
	return func(l *connectLogger) { l.skip = skip }
}

func SkipHealthChecks(spec connect.Spec) bool {
	return strings.HasPrefix(spec.Procedure, "/grpc.health.v1.Health/")
}

// connectLogger writes one summary line per handled RPC.
type connectLogger struct {
	skip func(connect.Spec) bool
}

func NewSlogConnectInterceptor(opts ...ConnectOption) connect.Interceptor {
	l := &connectLogger{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *connectLogger) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		ctx = l.begin(ctx, req.Spec(), req.Peer())
		AddAttribute(ctx, "method", req.HTTPMethod())
		resp, err := next(ctx, req)
		l.finish(ctx, req.Spec(), start, err)
		return resp, err
	}
}

func (l *connectLogger) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (l *connectLogger) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		ctx = l.begin(ctx, conn.Spec(), conn.Peer())
		err := next(ctx, conn)
		l.finish(ctx, conn.Spec(), start, err)
		return err
	}
}

func (l *connectLogger) begin(ctx context.Context, spec connect.Spec, peer connect.Peer) context.Context {
	ctx = ContextWithSlog(ctx)
	AddAttributes(ctx, map[string]any{
		"procedure": spec.Procedure,
		"peer":      peer.Addr,
		"protocol":  peer.Protocol,
	})
	return ctx
}

func (l *connectLogger) finish(ctx context.Context, spec connect.Spec, start time.Time, err error) {
	if l.skip != nil && l.skip(spec) {
		return
	}
	AddAttribute(ctx, "duration", time.Since(start))
	if err == nil {
		AddAttribute(ctx, "code", "ok")
		slog.InfoContext(ctx, "Finished")
		return
	}

	var ce *connect.Error
	if !errors.As(err, &ce) {
		ce = connect.NewError(connect.CodeUnknown, err)
	}
	AddAttribute(ctx, "code", ce.Code().String())
	if details := errorDetails(ctx, ce); len(details) > 0 {
		AddAttribute(ctx, "err_details", details)
	}
	slog.Log(ctx, ConnectCodeLevel(ce.Code()), ce.Message())
}

func errorDetails(ctx context.Context, ce *connect.Error) []proto.Message {
	var out []proto.Message
	for _, d := range ce.Details() {
		v, err := d.Value()
		if err != nil {
			slog.WarnContext(ctx, "undecodable error detail", "type", d.Type(), ErrorAttributeKey, err)
			continue
		}
		out = append(out, v)
	}
	return out
}
