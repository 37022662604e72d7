package identity

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/kazz187/collabspace/pkg/cerr"
	"github.com/kazz187/collabspace/pkg/clog"
)

type userKey struct{}

// UserFromContext returns the user attached by BearerMiddleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey{}).(*User)
	return u, ok
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func bearerToken(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// BearerMiddleware rejects requests without a valid access token. Paths with
// one of the exempt prefixes pass through untouched.
func BearerMiddleware(auth Authenticator, exempt ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range exempt {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			u, err := auth.Verify(r.Context(), token)
			if err != nil {
				status := http.StatusUnauthorized
				if !cerr.IsCode(err, cerr.Unauthenticated) {
					status = http.StatusServiceUnavailable
				}
				http.Error(w, cerr.Message(err), status)
				return
			}
			clog.AddAttribute(r.Context(), "uid", u.UID)
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), u)))
		})
	}
}

type bearerInterceptor struct {
	token func() string
}

// NewBearerInterceptor attaches the current access token to outgoing calls.
func NewBearerInterceptor(token func() string) connect.Interceptor {
	return &bearerInterceptor{token: token}
}

func (i *bearerInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			if t := i.token(); t != "" {
				req.Header().Set("Authorization", "Bearer "+t)
			}
		}
		return next(ctx, req)
	}
}

func (i *bearerInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *bearerInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
