package cerr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"strings"

	"buf.build/gen/go/bufbuild/protovalidate/protocolbuffers/go/buf/validate"
	"connectrpc.com/connect"
	"google.golang.org/protobuf/proto"

	"github.com/kazz187/collabspace/pkg/clog"
)

type Error struct {
	Code    Code
	Msg     string          // ユーザーへ Code とともに返却するメッセージ
	Err     error           // ログに残したいエラー
	Stack   string          // スタックトレース
	Details []proto.Message // ユーザーへ返却したい詳細なエラー
}

func NewError(code Code, msg string, underlying error) *Error {
	err := &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
	if clog.ConnectCodeLevel(code.ConnectCode()) >= slog.LevelError {
		stackTrace := make([]byte, 2048)
		n := runtime.Stack(stackTrace, false)
		err.Stack = string(stackTrace[0:n])
	}
	return err
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code.String(), e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) AddDetailMessageWithCode(msg string, code string) error {
	protoMsg := validate.Violation{
		Message: &msg,
		RuleId:  &code,
	}
	e.Details = append(e.Details, &protoMsg)
	return e
}

func (e *Error) ConnectError() *connect.Error {
	connectErr := connect.NewError(e.Code.ConnectCode(), errors.New(e.Msg))
	for _, detailMsg := range e.Details {
		detail, err := connect.NewErrorDetail(detailMsg)
		if err != nil {
			continue
		}
		connectErr.AddDetail(detail)
	}
	return connectErr
}

func ExtractConnectError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return NewError(Canceled, "connection closed", err).ConnectError()
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.Err == "operation was canceled" {
		return NewError(Canceled, "connection closed", err).ConnectError()
	}

	clog.AddError(ctx, err)
	var cerr *Error
	if errors.As(err, &cerr) {
		if cerr.Stack != "" {
			clog.AddStack(ctx, cerr.Stack)
		}
		return cerr.ConnectError()
	}
	return NewError(Unknown, "unknown error", err).ConnectError()
}

type httpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeResult(ctx context.Context, rw http.ResponseWriter, response *result) {
	if response.err == nil {
		writeJSON(ctx, rw, response.body)
		return
	}
	if errors.Is(response.err, context.Canceled) {
		writeJSONError(ctx, rw, NewError(Canceled, "connection closed", response.err))
		return
	}
	var dnsErr *net.DNSError
	if errors.As(response.err, &dnsErr) && dnsErr.Err == "operation was canceled" {
		writeJSONError(ctx, rw, NewError(Canceled, "connection closed", response.err))
		return
	}

	clog.AddError(ctx, response.err)
	var cErr *Error
	if errors.As(response.err, &cErr) {
		if cErr.Stack != "" {
			clog.AddStack(ctx, cErr.Stack)
		}
		writeJSONError(ctx, rw, cErr)
		return
	}
	writeJSONError(ctx, rw, NewError(Unknown, "unknown error", response.err))
}

func writeJSON(ctx context.Context, rw http.ResponseWriter, response any) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(response); err != nil {
		writeJSONError(ctx, rw, NewError(Internal, "server error", err))
		return
	}
	rw.WriteHeader(http.StatusOK)
	if _, err := rw.Write(buf.Bytes()); err != nil {
		clog.AddError(ctx, NewError(Internal, "server error", err))
	}
}

func writeJSONError(ctx context.Context, rw http.ResponseWriter, origErr *Error) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(origErr.Code.HTTPCode())
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(httpError{Code: origErr.Code.String(), Message: origErr.Msg}); err != nil {
		buf = bytes.NewBufferString(`{"code":"internal","message":"server error"}`)
		origErr.Err = errors.Join(origErr.Err, err)
		clog.AddError(ctx, origErr)
	}
	if _, err := rw.Write(buf.Bytes()); err != nil {
		origErr.Err = errors.Join(origErr.Err, err)
		clog.AddError(ctx, origErr)
	}
}

// FromConnectError converts an error returned by a Connect client back into
// an *Error so callers can branch on Code. Transport failures that never
// reached the server become Unavailable.
func FromConnectError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return NewError(Canceled, "request canceled", err)
	}
	var ce *connect.Error
	if !errors.As(err, &ce) {
		return NewError(Unavailable, "gateway unavailable", err)
	}
	e := NewError(NewCodeFromConnectError(err), ce.Message(), err)
	for _, d := range ce.Details() {
		v, derr := d.Value()
		if derr != nil {
			continue
		}
		e.Details = append(e.Details, v)
	}
	return e
}

// Message returns the text meant for the person looking at the screen.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if len(e.Details) == 0 {
			return e.Msg
		}
		msgs := make([]string, 0, len(e.Details))
		for _, v := range Violations(e) {
			msgs = append(msgs, v.GetMessage())
		}
		if len(msgs) == 0 {
			return e.Msg
		}
		return e.Msg + ": " + strings.Join(msgs, "; ")
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce.Message()
	}
	return err.Error()
}

// Violations returns the validation violations attached to err.
func Violations(err error) []*validate.Violation {
	var e *Error
	if !errors.As(err, &e) {
		return nil
	}
	var out []*validate.Violation
	for _, d := range e.Details {
		if v, ok := d.(*validate.Violation); ok {
			out = append(out, v)
		}
	}
	return out
}

func IsCode(err error, code Code) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code == code
	}
	return false
}
