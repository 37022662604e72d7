package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/collabspace/internal/config"
	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/internal/identity"
	"github.com/kazz187/collabspace/pkg/cerr"
	"github.com/kazz187/collabspace/pkg/clog"
)

// privateCollections hold server-side state that document clients must not
// read or write.
var privateCollections = []string{identity.UsersCollection, identity.RevokedTokensCollection}

// Server is the gateway service: the document store and the identity
// provider behind one HTTP listener.
type Server struct {
	server *http.Server
	env    *config.Env
	gw     gateway.Gateway
	auth   identity.Authenticator
}

func NewServer(env *config.Env, gw gateway.Gateway, auth identity.Authenticator) *Server {
	return &Server{
		env:  env,
		gw:   gw,
		auth: auth,
	}
}

// Handler builds the full HTTP handler. Everything except health checks and
// the identity service requires a bearer token.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewConvertConnectErrorChiMiddleware(),
		)
		r.Get("/collections/{collection}/{id}", s.getDocument)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()

	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)
	handlerOpts := connect.WithInterceptors(s.interceptors()...)

	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker(
		gateway.DocumentServiceName,
		identity.IdentityServiceName,
	), handlerOpts))

	mux.Handle(gateway.NewDocumentServiceHandler(
		gateway.NewServer(s.gw, gateway.WithPrivateCollections(privateCollections...)),
		handlerOpts,
	))
	mux.Handle(identity.NewIdentityServiceHandler(identity.NewServer(s.auth), handlerOpts))

	authed := identity.BearerMiddleware(s.auth,
		"/health",
		"/"+grpchealth.HealthV1ServiceName+"/",
		"/"+identity.IdentityServiceName+"/",
	)(mux)

	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(withLogAttributes(authed))
}

// withLogAttributes opens the request's log attribute set before auth runs so
// the authenticated uid lands on the request's log lines.
func withLogAttributes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(clog.ContextWithSlog(r.Context())))
	})
}

// ListenAndServe starts the HTTP server with ctx as the base context of all
// requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     h2c.NewHandler(s.Handler(), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) interceptors() []connect.Interceptor {
	return []connect.Interceptor{
		clog.NewSlogConnectInterceptor(clog.WithConnectSkip(clog.SkipHealthChecks)),
		cerr.NewConvertConnectErrorInterceptor(),
	}
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")
	for _, p := range privateCollections {
		if collection == p {
			cerr.SetNewJSONError(ctx, cerr.PermissionDenied, "collection is not accessible", nil)
			return
		}
	}
	doc, found, err := s.gw.Get(ctx, collection, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if !found {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "document not found", nil)
		return
	}
	cerr.SetJSONResponse(ctx, doc)
}
