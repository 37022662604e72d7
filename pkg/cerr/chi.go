package cerr

import (
	"context"
	"net/http"
)

// result is filled in by a chi handler and written once the handler
// returns. Handlers never touch the ResponseWriter themselves.
type result struct {
	body any
	err  error
}

type resultKey struct{}

func resultFrom(ctx context.Context) *result {
	r, _ := ctx.Value(resultKey{}).(*result)
	return r
}

// SetJSONResponse sets the body written with 200 OK.
func SetJSONResponse(ctx context.Context, body any) {
	if r := resultFrom(ctx); r != nil {
		r.body = body
	}
}

// SetJSONError replaces any body with err rendered as {"code","message"}.
func SetJSONError(ctx context.Context, err error) {
	if r := resultFrom(ctx); r != nil {
		r.err = err
	}
}

func SetNewJSONError(ctx context.Context, code Code, msg string, err error) {
	SetJSONError(ctx, NewError(code, msg, err))
}

// NewConvertConnectErrorChiMiddleware lets handlers report results through
// SetJSONResponse and SetJSONError.
func NewConvertConnectErrorChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := &result{}
			ctx := context.WithValue(r.Context(), resultKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
			writeResult(ctx, w, res)
		})
	}
}
