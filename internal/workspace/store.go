// Package workspace holds the workspaces the signed-in user belongs to and
// the workspace currently opened.
package workspace

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/collabspace/internal/eventbus"
	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/internal/identity"
	"github.com/kazz187/collabspace/internal/storestate"
	"github.com/kazz187/collabspace/pkg/cerr"
	"github.com/kazz187/collabspace/pkg/storage"
)

const cacheFile = "workspaces.yaml"

// Directory resolves member uids to users.
type Directory interface {
	Users(ctx context.Context, uids []string) ([]identity.User, error)
}

type Store struct {
	gw    gateway.Gateway
	state *storestate.State[Workspace]
	dir   Directory
	cache storage.Storage
	bus   *eventbus.Bus
	now   func() time.Time

	mu       sync.RWMutex
	ownerUID string
	current  *Workspace
	members  []identity.User
}

type Option func(*Store)

func WithDirectory(d Directory) Option {
	return func(s *Store) { s.dir = d }
}

// WithCache persists the workspace list in c and restores it on creation.
func WithCache(c storage.Storage) Option {
	return func(s *Store) { s.cache = c }
}

func WithEventBus(bus *eventbus.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(gw gateway.Gateway, opts ...Option) *Store {
	s := &Store{
		gw:    gw,
		state: storestate.New[Workspace]("workspace"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.restore(context.Background())
	return s
}

func (s *Store) Workspaces() []Workspace { return s.state.Items() }

func (s *Store) Workspace(id string) (Workspace, bool) {
	return s.state.Find(byID(id))
}

func (s *Store) Loading() bool { return s.state.Loading() }

func (s *Store) Err() string { return s.state.Err() }

// Current is the workspace loaded by FetchWorkspace, nil when none.
func (s *Store) Current() *Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	cp.Members = slices.Clone(cp.Members)
	return &cp
}

// Members are the users of the current workspace as resolved by
// FetchMembers.
func (s *Store) Members() []identity.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.members)
}

func byID(id string) func(Workspace) bool {
	return func(w Workspace) bool { return w.ID == id }
}

// FetchWorkspaces loads the workspaces uid is a member of. A non-empty list
// already loaded for the same uid is kept without asking the gateway.
func (s *Store) FetchWorkspaces(ctx context.Context, uid string) {
	s.mu.RLock()
	cached := s.ownerUID == uid && uid != ""
	s.mu.RUnlock()
	if cached && s.state.Len() > 0 {
		return
	}
	s.RefreshWorkspaces(ctx, uid)
}

// RefreshWorkspaces always queries the gateway.
func (s *Store) RefreshWorkspaces(ctx context.Context, uid string) {
	end := s.state.Begin()
	defer end()

	docs, err := s.gw.Query(ctx, Collection, gateway.ArrayContains("members", uid))
	if err != nil {
		s.state.Fail(ctx, "fetch", err)
		return
	}
	list := make([]Workspace, 0, len(docs))
	for _, doc := range docs {
		w := fromDocument(doc)
		if !w.HasMember(uid) {
			continue
		}
		list = append(list, w)
	}
	s.mu.Lock()
	s.ownerUID = uid
	s.mu.Unlock()
	s.state.Replace(list)
	s.persist(ctx)
}

// CreateWorkspace inserts a workspace whose only member is uid. The new
// workspace joins the list only when the list is uid's; otherwise it
// replaces the list.
func (s *Store) CreateWorkspace(ctx context.Context, name, description, uid string) {
	end := s.state.Begin()
	defer end()

	name = strings.TrimSpace(name)
	if name == "" {
		s.state.Fail(ctx, "create", cerr.NewError(cerr.InvalidArgument, "workspace name is required", nil))
		return
	}
	now := s.now().UTC()
	id, err := s.gw.Insert(ctx, Collection, gateway.Fields{
		"name":        name,
		"description": description,
		"members":     []string{uid},
		"createdBy":   uid,
		"createdAt":   gateway.FormatTime(now),
	})
	if err != nil {
		s.state.Fail(ctx, "create", err)
		return
	}
	w := Workspace{
		ID:          id,
		Name:        name,
		Description: description,
		Members:     []string{uid},
		CreatedBy:   uid,
		CreatedAt:   now,
	}
	s.mu.Lock()
	switch {
	case s.ownerUID == uid:
		s.state.Append(w)
	case s.ownerUID == "" && s.state.Len() == 0:
		s.ownerUID = uid
		s.state.Append(w)
	default:
		// The list belongs to someone else or is incomplete for uid. Keep only
		// the new workspace and let the next FetchWorkspaces ask the gateway.
		s.ownerUID = ""
		s.state.Replace([]Workspace{w})
	}
	s.mu.Unlock()
	s.persist(ctx)
	s.bus.PublishNew(eventbus.WorkspaceCreated, id, name, map[string]string{"createdBy": uid})
}

// FetchWorkspace loads one workspace and makes it current. An absent
// workspace clears Current without setting an error.
func (s *Store) FetchWorkspace(ctx context.Context, id string) *Workspace {
	end := s.state.Begin()
	defer end()

	doc, found, err := s.gw.Get(ctx, Collection, id)
	if err != nil {
		s.state.Fail(ctx, "get", err)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !found {
		s.current = nil
		s.members = nil
		return nil
	}
	w := fromDocument(doc)
	if s.current == nil || s.current.ID != w.ID {
		s.members = nil
	}
	s.current = &w
	s.state.Mutate(byID(id), func(cur *Workspace) bool { *cur = w; return true })
	cp := w
	return &cp
}

// FetchMembers resolves the member uids of workspaceID. Without a Directory
// members are listed by uid only.
func (s *Store) FetchMembers(ctx context.Context, workspaceID string) {
	end := s.state.Begin()
	defer end()

	doc, found, err := s.gw.Get(ctx, Collection, workspaceID)
	if err != nil {
		s.state.Fail(ctx, "members", err)
		return
	}
	if !found {
		s.setMembers(nil)
		return
	}
	uids := fromDocument(doc).Members
	if s.dir == nil {
		users := make([]identity.User, 0, len(uids))
		for _, uid := range uids {
			users = append(users, identity.User{UID: uid})
		}
		s.setMembers(users)
		return
	}
	users, err := s.dir.Users(ctx, uids)
	if err != nil {
		s.state.Fail(ctx, "members", err)
		return
	}
	s.setMembers(users)
}

func (s *Store) setMembers(users []identity.User) {
	s.mu.Lock()
	s.members = users
	s.mu.Unlock()
}

// AddMember adds uid to the members of workspaceID. Adding an existing
// member changes nothing.
func (s *Store) AddMember(ctx context.Context, workspaceID, uid string) {
	end := s.state.Begin()
	defer end()

	doc, found, err := s.gw.Get(ctx, Collection, workspaceID)
	if err != nil {
		s.state.Fail(ctx, "add_member", err)
		return
	}
	if !found {
		s.state.Fail(ctx, "add_member", cerr.NewError(cerr.NotFound, "workspace not found", nil))
		return
	}
	w := fromDocument(doc)
	if w.HasMember(uid) {
		return
	}
	members := append(slices.Clone(w.Members), uid)
	if err := s.gw.Update(ctx, Collection, workspaceID, gateway.Fields{"members": members}); err != nil {
		s.state.Fail(ctx, "add_member", err)
		return
	}
	s.apply(workspaceID, func(w *Workspace) { w.Members = slices.Clone(members) })
	s.persist(ctx)
}

// UpdateWorkspace changes name and description once the gateway accepted it.
func (s *Store) UpdateWorkspace(ctx context.Context, workspaceID, name, description string) {
	end := s.state.Begin()
	defer end()

	name = strings.TrimSpace(name)
	if name == "" {
		s.state.Fail(ctx, "update", cerr.NewError(cerr.InvalidArgument, "workspace name is required", nil))
		return
	}
	if err := s.gw.Update(ctx, Collection, workspaceID, gateway.Fields{"name": name, "description": description}); err != nil {
		s.state.Fail(ctx, "update", err)
		return
	}
	s.apply(workspaceID, func(w *Workspace) {
		w.Name = name
		w.Description = description
	})
	s.persist(ctx)
}

// apply mutates the list entry and the current workspace with the same id.
func (s *Store) apply(id string, fn func(*Workspace)) {
	s.state.Mutate(byID(id), func(w *Workspace) bool { fn(w); return true })
	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		fn(s.current)
	}
	s.mu.Unlock()
}

// Reset forgets everything, used when the user signs out.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	s.ownerUID = ""
	s.current = nil
	s.members = nil
	s.mu.Unlock()
	s.state.Replace(nil)
	s.persist(ctx)
}

type cachedList struct {
	UID        string      `yaml:"uid"`
	Workspaces []Workspace `yaml:"workspaces"`
}

func (s *Store) persist(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.mu.RLock()
	c := cachedList{UID: s.ownerUID, Workspaces: s.state.Items()}
	s.mu.RUnlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		slog.WarnContext(ctx, "failed to encode workspace cache", "error", err)
		return
	}
	if err := s.cache.Write(ctx, cacheFile, data); err != nil {
		slog.WarnContext(ctx, "failed to write workspace cache", "error", err)
	}
}

func (s *Store) restore(ctx context.Context) {
	if s.cache == nil {
		return
	}
	data, err := s.cache.Read(ctx, cacheFile)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "failed to read workspace cache", "error", err)
		}
		return
	}
	var c cachedList
	if err := yaml.Unmarshal(data, &c); err != nil {
		slog.WarnContext(ctx, "ignoring corrupt workspace cache", "error", err)
		return
	}
	s.mu.Lock()
	s.ownerUID = c.UID
	s.mu.Unlock()
	s.state.Replace(c.Workspaces)
}
