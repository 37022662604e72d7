package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/internal/gateway/gatewaytest"
	"github.com/kazz187/collabspace/internal/identity"
	"github.com/kazz187/collabspace/pkg/storage"
)

func TestStore_CreateThenRefresh(t *testing.T) {
	ctx := context.Background()
	rec := gatewaytest.New(t)
	s := NewStore(rec)
	require.Empty(t, s.Workspaces())

	s.CreateWorkspace(ctx, "Q3", "desc", "uid-1")
	require.Empty(t, s.Err())
	list := s.Workspaces()
	require.Len(t, list, 1)
	assert.Equal(t, "Q3", list[0].Name)
	assert.Equal(t, "desc", list[0].Description)
	assert.Equal(t, []string{"uid-1"}, list[0].Members)

	s.RefreshWorkspaces(ctx, "uid-1")
	require.Empty(t, s.Err())
	refreshed := s.Workspaces()
	require.Len(t, refreshed, 1)
	assert.Equal(t, list[0].ID, refreshed[0].ID)
	assert.Equal(t, []string{"uid-1"}, refreshed[0].Members)
}

func TestStore_RefreshOnlyMemberWorkspaces(t *testing.T) {
	ctx := context.Background()
	rec := gatewaytest.New(t)
	_, err := rec.Insert(ctx, Collection, gateway.Fields{"name": "mine", "members": []string{"a", "b"}})
	require.NoError(t, err)
	_, err = rec.Insert(ctx, Collection, gateway.Fields{"name": "theirs", "members": []string{"c"}})
	require.NoError(t, err)
	_, err = rec.Insert(ctx, Collection, gateway.Fields{"name": "no members"})
	require.NoError(t, err)

	s := NewStore(rec)
	s.RefreshWorkspaces(ctx, "b")

	list := s.Workspaces()
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].Name)
	assert.Equal(t, "", list[0].Description)
}

func TestStore_FetchWorkspacesUsesCachedList(t *testing.T) {
	ctx := context.Background()
	rec := gatewaytest.New(t)
	s := NewStore(rec)
	s.CreateWorkspace(ctx, "W", "", "u")
	rec.Reset()

	s.FetchWorkspaces(ctx, "u")
	assert.Zero(t, rec.Count(gatewaytest.Query))

	s.FetchWorkspaces(ctx, "someone-else")
	assert.Equal(t, 1, rec.Count(gatewaytest.Query))
	assert.Empty(t, s.Workspaces())

	s.FetchWorkspaces(ctx, "someone-else")
	assert.Equal(t, 2, rec.Count(gatewaytest.Query), "an empty list is never treated as cached")

	s.RefreshWorkspaces(ctx, "u")
	s.FetchWorkspaces(ctx, "u")
	assert.Equal(t, 3, rec.Count(gatewaytest.Query))
}

func TestStore_PersistentCache(t *testing.T) {
	ctx := context.Background()
	rec := gatewaytest.New(t)
	cache, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	first := NewStore(rec, WithCache(cache))
	first.CreateWorkspace(ctx, "Cached", "d", "u")
	require.Len(t, first.Workspaces(), 1)

	rec.Reset()
	second := NewStore(rec, WithCache(cache))
	require.Len(t, second.Workspaces(), 1)
	assert.Equal(t, first.Workspaces()[0].ID, second.Workspaces()[0].ID)
	second.FetchWorkspaces(ctx, "u")
	assert.Zero(t, rec.Count(gatewaytest.Query))

	second.Reset(ctx)
	third := NewStore(rec, WithCache(cache))
	assert.Empty(t, third.Workspaces())
}

func TestStore_CreateWorkspaceForAnotherUser(t *testing.T) {
	ctx := context.Background()
	rec := gatewaytest.New(t)
	cache, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	s := NewStore(rec, WithCache(cache))
	s.FetchWorkspaces(ctx, "alice")
	s.CreateWorkspace(ctx, "A1", "", "alice")
	require.Len(t, s.Workspaces(), 1)

	s.CreateWorkspace(ctx, "B1", "", "bob")
	require.Empty(t, s.Err())
	list := s.Workspaces()
	require.Len(t, list, 1)
	assert.Equal(t, "B1", list[0].Name)

	restored := NewStore(rec, WithCache(cache))
	require.Len(t, restored.Workspaces(), 1)

	rec.Reset()
	s.FetchWorkspaces(ctx, "alice")
	assert.Equal(t, 1, rec.Count(gatewaytest.Query))
	list = s.Workspaces()
	require.Len(t, list, 1)
	assert.Equal(t, "A1", list[0].Name)
	assert.Equal(t, []string{"alice"}, list[0].Members)

	s.FetchWorkspaces(ctx, "bob")
	list = s.Workspaces()
	require.Len(t, list, 1)
	assert.Equal(t, "B1", list[0].Name)
}

func TestStore_FailuresKeepState(t *testing.T) {
	ctx := context.Background()
	rec := gatewaytest.New(t)
	s := NewStore(rec)
	s.CreateWorkspace(ctx, "W", "", "u")

	rec.Fail(gatewaytest.Query)
	s.RefreshWorkspaces(ctx, "u")
	assert.Len(t, s.Workspaces(), 1)
	assert.Equal(t, "gateway unavailable", s.Err())

	rec.Fail(gatewaytest.Insert)
	s.CreateWorkspace(ctx, "Other", "", "u")
	assert.Len(t, s.Workspaces(), 1)
	assert.False(t, s.Loading())

	s.CreateWorkspace(ctx, "  ", "", "u")
	assert.Equal(t, "workspace name is required", s.Err())
}

func TestStore_FetchWorkspace(t *testing.T) {
	ctx := context.Background()
	rec := gatewaytest.New(t)
	s := NewStore(rec)
	s.CreateWorkspace(ctx, "W", "", "u")
	id := s.Workspaces()[0].ID

	w := s.FetchWorkspace(ctx, id)
	require.NotNil(t, w)
	assert.Equal(t, "W", w.Name)
	require.NotNil(t, s.Current())
	assert.Equal(t, id, s.Current().ID)

	assert.Nil(t, s.FetchWorkspace(ctx, "missing"))
	assert.Nil(t, s.Current())
	assert.Empty(t, s.Err())
}

type fakeDirectory map[string]identity.User

func (d fakeDirectory) Users(_ context.Context, uids []string) ([]identity.User, error) {
	var out []identity.User
	for _, uid := range uids {
		if u, ok := d[uid]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func TestStore_MembersAndAddMember(t *testing.T) {
	ctx := context.Background()
	rec := gatewaytest.New(t)
	dir := fakeDirectory{
		"u1": {UID: "u1", Name: "One"},
		"u2": {UID: "u2", Name: "Two"},
	}
	s := NewStore(rec, WithDirectory(dir))
	s.CreateWorkspace(ctx, "W", "", "u1")
	id := s.Workspaces()[0].ID
	s.FetchWorkspace(ctx, id)

	s.FetchMembers(ctx, id)
	require.Len(t, s.Members(), 1)
	assert.Equal(t, "One", s.Members()[0].Name)

	s.AddMember(ctx, id, "u2")
	require.Empty(t, s.Err())
	got, _ := s.Workspace(id)
	assert.ElementsMatch(t, []string{"u1", "u2"}, got.Members)
	assert.True(t, s.Current().HasMember("u2"))

	rec.Reset()
	s.AddMember(ctx, id, "u2")
	assert.Zero(t, rec.Count(gatewaytest.Update))

	s.FetchMembers(ctx, id)
	assert.Len(t, s.Members(), 2)

	s.AddMember(ctx, "missing", "u3")
	assert.Equal(t, "workspace not found", s.Err())
}

func TestStore_MembersWithoutDirectory(t *testing.T) {
	ctx := context.Background()
	s := NewStore(gatewaytest.New(t))
	s.CreateWorkspace(ctx, "W", "", "u1")
	s.FetchMembers(ctx, s.Workspaces()[0].ID)
	assert.Equal(t, []identity.User{{UID: "u1"}}, s.Members())
}

func TestStore_UpdateWorkspace(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	rec := gatewaytest.New(t)
	s := NewStore(rec, WithClock(func() time.Time { return now }))
	s.CreateWorkspace(ctx, "Old", "old", "u")
	id := s.Workspaces()[0].ID

	s.UpdateWorkspace(ctx, id, "New", "new")
	require.Empty(t, s.Err())
	got, _ := s.Workspace(id)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, "new", got.Description)
	assert.Equal(t, now, got.CreatedAt)

	s.UpdateWorkspace(ctx, "missing", "X", "")
	assert.NotEmpty(t, s.Err())
}
