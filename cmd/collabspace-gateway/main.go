package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	server "github.com/kazz187/collabspace/internal"
	"github.com/kazz187/collabspace/internal/config"
	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/internal/identity"
	"github.com/kazz187/collabspace/pkg/clog"
)

var (
	app  = kingpin.New("collabspace-gateway", "Document gateway and identity provider for collabspace")
	host = app.Flag("host", "Address to bind to (overrides COLLABSPACE_HTTP_HOST)").String()
	port = app.Flag("port", "Port to bind to (overrides COLLABSPACE_HTTP_PORT)").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}
	if *host != "" {
		env.HTTPHost = *host
	}
	if *port != "" {
		env.HTTPPort = *port
	}

	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	if err := env.ValidateServer(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, closeStore, err := env.OpenStorage(ctx)
	if err != nil {
		slog.Error("failed to open storage", "type", env.StorageEnv.Type, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			slog.Error("failed to close storage", "error", err)
		}
	}()

	gw := gateway.NewStorageGateway(store)
	auth := identity.NewService(gw, []byte(env.JWTSecret),
		identity.WithIssuer(env.JWTIssuer),
		identity.WithTokenTTL(env.TokenTTL),
	)
	srv := server.NewServer(env, gw, auth)

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
