package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"connectrpc.com/connect"

	"github.com/kazz187/collabspace/internal/board"
	"github.com/kazz187/collabspace/internal/config"
	"github.com/kazz187/collabspace/internal/eventbus"
	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/internal/identity"
	"github.com/kazz187/collabspace/internal/task"
	"github.com/kazz187/collabspace/internal/workspace"
	"github.com/kazz187/collabspace/pkg/clog"
	"github.com/kazz187/collabspace/pkg/storage"
)

// localSecret signs tokens of the embedded identity provider when no
// COLLABSPACE_JWT_SECRET is configured. Tokens never leave the machine.
const localSecret = "collabspace-local"

const (
	logFileName = "collabspace.log"
	activityDir = "activity"
)

// client holds everything a command needs: the gateway, the signed-in
// session and the entity stores built on top of them.
type client struct {
	env     *config.Env
	state   *storage.LocalStorage
	bus     *eventbus.Bus
	journal *eventbus.Journal

	gw      gateway.Gateway
	auth    identity.Authenticator
	session *identity.Session

	workspaces *workspace.Store
	boards     *board.Store
	tasks      *task.Store

	closers   []func() error
	closeOnce sync.Once
}

func newClient(ctx context.Context, logToFile bool) (*client, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	dir, err := env.ResolvedStateDir()
	if err != nil {
		return nil, err
	}
	state, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open state directory: %w", err)
	}

	c := &client{env: env, state: state, bus: eventbus.New()}
	if err := c.setupLogger(dir, logToFile); err != nil {
		return nil, err
	}
	if err := c.setupGateway(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if c.journal, err = eventbus.NewJournal(filepath.Join(dir, activityDir)); err != nil {
		c.Close()
		return nil, err
	}
	followCtx, stopFollow := context.WithCancel(context.WithoutCancel(ctx))
	followed := c.journal.Follow(followCtx, c.bus)
	c.closers = append(c.closers, func() error {
		stopFollow()
		<-followed
		return nil
	})

	c.session = identity.NewSession(c.auth,
		identity.WithSessionStorage(state),
		identity.WithSessionEventBus(c.bus),
	)
	c.session.Restore(ctx)

	c.workspaces = workspace.NewStore(c.gw,
		workspace.WithDirectory(c.auth),
		workspace.WithCache(state),
		workspace.WithEventBus(c.bus),
	)
	c.boards = board.NewStore(c.gw, board.WithEventBus(c.bus))
	c.tasks = task.NewStore(c.gw,
		task.WithEventBus(c.bus),
		task.WithActor(c.session.UID),
	)

	// Signing out or switching users forgets the cached workspace list.
	uid := c.session.UID()
	c.session.OnChange(func(u *identity.User) {
		next := ""
		if u != nil {
			next = u.UID
		}
		if next != uid && uid != "" {
			c.workspaces.Reset(context.WithoutCancel(ctx))
		}
		uid = next
	})
	return c, nil
}

func (c *client) setupLogger(dir string, toFile bool) error {
	if !toFile {
		slog.SetDefault(slog.New(clog.NewAttributesHandler(
			clog.NewTextHandler(os.Stderr, clog.WithLevel(slog.LevelWarn)),
		)))
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	c.closers = append(c.closers, f.Close)
	slog.SetDefault(slog.New(clog.NewAttributesHandler(
		clog.NewTextHandler(f, clog.WithColor(false), clog.WithLevel(c.env.SlogLevel())),
	)))
	return nil
}

// setupGateway connects to COLLABSPACE_GATEWAY_URL, or runs the gateway and
// identity provider in-process over the configured storage.
func (c *client) setupGateway(ctx context.Context) error {
	if c.env.GatewayURL == "" {
		store, closeStore, err := c.env.OpenStorage(ctx)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, closeStore)
		secret := c.env.JWTSecret
		if secret == "" {
			secret = localSecret
		}
		c.gw = gateway.NewStorageGateway(store)
		c.auth = identity.NewService(c.gw, []byte(secret),
			identity.WithIssuer(c.env.JWTIssuer),
			identity.WithTokenTTL(c.env.TokenTTL),
		)
		return nil
	}

	httpClient := http.DefaultClient
	token := func() string {
		if c.session == nil {
			return ""
		}
		return c.session.Token()
	}
	c.gw = gateway.NewClient(httpClient, c.env.GatewayURL,
		connect.WithInterceptors(identity.NewBearerInterceptor(token)),
	)
	c.auth = identity.NewClient(httpClient, c.env.GatewayURL)
	return nil
}

// Close waits for background task moves and releases resources.
func (c *client) Close() {
	c.closeOnce.Do(func() {
		if c.tasks != nil {
			c.tasks.Wait()
		}
		for i := len(c.closers) - 1; i >= 0; i-- {
			if err := c.closers[i](); err != nil {
				slog.Warn("failed to close resource", "error", err)
			}
		}
	})
}

var errNotSignedIn = errors.New("not signed in; run `collabspace login` first")

func (c *client) requireUser() (*identity.User, error) {
	u := c.session.User()
	if u == nil {
		if msg := c.session.Err(); msg != "" {
			return nil, errors.New(msg)
		}
		return nil, errNotSignedIn
	}
	if msg := c.session.Err(); msg != "" {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
	return u, nil
}

func storeErr(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}

// boardMembers resolves the members of the workspace owning boardID.
func (c *client) boardMembers(ctx context.Context, boardID string) (*board.Board, []identity.User, error) {
	b := c.boards.FetchBoard(ctx, boardID)
	if err := storeErr(c.boards.Err()); err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, fmt.Errorf("board %s not found", boardID)
	}
	c.workspaces.FetchMembers(ctx, b.WorkspaceID)
	if err := storeErr(c.workspaces.Err()); err != nil {
		return nil, nil, err
	}
	return b, c.workspaces.Members(), nil
}
