package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/collabspace/internal/eventbus"
	"github.com/kazz187/collabspace/pkg/cerr"
	"github.com/kazz187/collabspace/pkg/storage"
)

const (
	sessionFile = "session.yaml"

	watchDebounce = 50 * time.Millisecond
)

type subscriber struct {
	id uint64
	fn func(*User)
}

// Session holds the signed-in user of this client. Sign-in failures are
// recorded in Err rather than returned, and every change is fanned out to
// the OnChange handlers.
type Session struct {
	auth  Authenticator
	local *storage.LocalStorage
	bus   *eventbus.Bus

	mu       sync.RWMutex
	creds    *Credentials
	inflight int
	err      string
	subs     []subscriber
	nextSub  uint64
}

type SessionOption func(*Session)

// WithSessionStorage persists the session in local so it survives restarts
// and is shared by processes using the same state directory.
func WithSessionStorage(local *storage.LocalStorage) SessionOption {
	return func(s *Session) { s.local = local }
}

func WithSessionEventBus(bus *eventbus.Bus) SessionOption {
	return func(s *Session) { s.bus = bus }
}

func NewSession(auth Authenticator, opts ...SessionOption) *Session {
	s := &Session{auth: auth}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// User returns a copy of the signed-in user, nil when signed out.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return nil
	}
	u := s.creds.User
	return &u
}

// UID is "" when signed out.
func (s *Session) UID() string {
	if u := s.User(); u != nil {
		return u.UID
	}
	return ""
}

// Token returns the current access token, "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return ""
	}
	return s.creds.Token
}

func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// OnChange registers fn and calls it right away with the current user.
// The returned func removes the registration.
func (s *Session) OnChange(fn func(*User)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	fn(s.User())

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) begin() func() {
	s.mu.Lock()
	s.inflight++
	s.err = ""
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}
}

func (s *Session) fail(ctx context.Context, op string, err error) {
	s.mu.Lock()
	s.err = cerr.Message(err)
	s.mu.Unlock()
	slog.WarnContext(ctx, "session operation failed", "op", op, "error", err)
}

// set swaps the credentials and notifies subscribers when the user changed.
func (s *Session) set(ctx context.Context, creds *Credentials) {
	s.mu.Lock()
	before := uidOf(s.creds)
	s.creds = creds
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	if before == uidOf(creds) {
		return
	}
	var u *User
	if creds != nil {
		cp := creds.User
		u = &cp
	}
	for _, sub := range subs {
		sub.fn(u)
	}
	s.bus.PublishNew(eventbus.SessionChanged, uidOf(creds), "", nil)
	slog.DebugContext(ctx, "session changed", "uid", uidOf(creds))
}

func uidOf(c *Credentials) string {
	if c == nil {
		return ""
	}
	return c.User.UID
}

func (s *Session) SignIn(ctx context.Context, email, password string) {
	end := s.begin()
	defer end()
	creds, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		s.fail(ctx, "sign_in", err)
		return
	}
	s.persist(ctx, creds)
	s.set(ctx, creds)
}

func (s *Session) Register(ctx context.Context, email, password, displayName string) {
	end := s.begin()
	defer end()
	creds, err := s.auth.Register(ctx, email, password, displayName)
	if err != nil {
		s.fail(ctx, "register", err)
		return
	}
	s.persist(ctx, creds)
	s.set(ctx, creds)
}

// SignOut revokes the token remotely and always clears the local session.
func (s *Session) SignOut(ctx context.Context) {
	end := s.begin()
	defer end()
	if token := s.Token(); token != "" {
		if err := s.auth.SignOut(ctx, token); err != nil {
			s.fail(ctx, "sign_out", err)
		}
	}
	s.persist(ctx, nil)
	s.set(ctx, nil)
}

// Restore loads a persisted session and checks its token. A rejected token
// signs the session out; an unreachable provider keeps the cached user and
// records the error.
func (s *Session) Restore(ctx context.Context) {
	end := s.begin()
	defer end()
	creds, err := s.load(ctx)
	if err != nil {
		s.fail(ctx, "restore", err)
		return
	}
	if creds == nil {
		s.set(ctx, nil)
		return
	}
	u, err := s.auth.Verify(ctx, creds.Token)
	switch {
	case err == nil:
		creds.User = *u
		s.set(ctx, creds)
	case cerr.IsCode(err, cerr.Unauthenticated):
		s.persist(ctx, nil)
		s.set(ctx, nil)
	default:
		s.fail(ctx, "restore", err)
		s.set(ctx, creds)
	}
}

func (s *Session) load(ctx context.Context) (*Credentials, error) {
	if s.local == nil {
		return nil, nil
	}
	data, err := s.local.Read(ctx, sessionFile)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, cerr.WrapStorageReadError("session", err)
	}
	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, cerr.NewError(cerr.DataLoss, "session file is corrupt", err)
	}
	if creds.Token == "" || creds.User.UID == "" {
		return nil, nil
	}
	return &creds, nil
}

func (s *Session) persist(ctx context.Context, creds *Credentials) {
	if s.local == nil {
		return
	}
	if creds == nil {
		if err := s.local.Delete(ctx, sessionFile); err != nil {
			if err := cerr.WrapStorageDeleteError("session", err); !cerr.IsCode(err, cerr.NotFound) {
				slog.WarnContext(ctx, "failed to remove session file", "error", err)
			}
		}
		return
	}
	data, err := yaml.Marshal(creds)
	if err != nil {
		slog.WarnContext(ctx, "failed to encode session", "error", err)
		return
	}
	if err := s.local.Write(ctx, sessionFile, data); err != nil {
		slog.WarnContext(ctx, "failed to write session file", "error", err)
	}
}

// Watch follows the session file so a sign-in or sign-out done by another
// process sharing the state directory is observed. It returns when ctx is
// done.
func (s *Session) Watch(ctx context.Context) error {
	if s.local == nil {
		return fmt.Errorf("session has no state directory to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// The directory is watched because atomic writes replace the file.
	if err := watcher.Add(s.local.BasePath()); err != nil {
		return fmt.Errorf("watch %s: %w", s.local.BasePath(), err)
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != sessionFile {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() { s.reload(ctx) })
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "session watcher error", "error", err)
		}
	}
}

// reload adopts whatever the session file currently says without asking the
// provider.
func (s *Session) reload(ctx context.Context) {
	creds, err := s.load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to reload session", "error", err)
		return
	}
	s.set(ctx, creds)
}
