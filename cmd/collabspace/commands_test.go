package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/collabspace/internal/eventbus"
	"github.com/kazz187/collabspace/internal/task"
	"github.com/kazz187/collabspace/pkg/cerr"
)

func newTestClient(t *testing.T, stateDir, dataDir string) *client {
	t.Helper()
	t.Setenv("COLLABSPACE_STATE_DIR", stateDir)
	t.Setenv("COLLABSPACE_STORAGE_TYPE", "local")
	t.Setenv("COLLABSPACE_STORAGE_BASE_DIR", dataDir)
	t.Setenv("COLLABSPACE_GATEWAY_URL", "")
	c, err := newClient(context.Background(), false)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestClient_EndToEnd(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	stateDir, dataDir := filepath.Join(root, "state"), filepath.Join(root, "data")
	c := newTestClient(t, stateDir, dataDir)

	require.ErrorIs(t, c.whoami(ctx), errNotSignedIn)
	require.NoError(t, c.register(ctx, "ada@example.com", "secret123", "Ada"))
	uid := c.session.UID()

	require.NoError(t, c.createWorkspace(ctx, "Acme", "main"))
	ws := c.workspaces.Workspaces()
	require.Len(t, ws, 1)

	require.NoError(t, c.createBoard(ctx, ws[0].ID, "Roadmap"))
	boards := c.boards.Boards()
	require.Len(t, boards, 1)
	boardID := boards[0].ID

	require.NoError(t, c.createTask(ctx, boardID, boardviewDraft("Ship", "", "", uid, "2026-12-01")))
	tasks := c.tasks.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.StatusToDo, tasks[0].Status)

	require.NoError(t, c.moveTask(ctx, boardID, tasks[0].ID, "done"))
	require.NoError(t, c.listTasks(ctx, boardID))

	// A second process sharing both directories sees the session and the move.
	other := newTestClient(t, stateDir, dataDir)
	require.NotNil(t, other.session.User())
	assert.Equal(t, uid, other.session.UID())
	other.tasks.FetchTasks(ctx, boardID)
	got, ok := other.tasks.Task(tasks[0].ID)
	require.True(t, ok)
	assert.Equal(t, task.StatusDone, got.Status)

	require.NoError(t, c.logout(ctx))
	assert.Empty(t, c.workspaces.Workspaces())
	require.ErrorIs(t, c.listWorkspaces(ctx, false), errNotSignedIn)
}

func TestClient_CreateTaskValidation(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	c := newTestClient(t, filepath.Join(root, "state"), filepath.Join(root, "data"))
	require.NoError(t, c.register(ctx, "ada@example.com", "secret123", "Ada"))
	require.NoError(t, c.createWorkspace(ctx, "Acme", ""))
	require.NoError(t, c.createBoard(ctx, c.workspaces.Workspaces()[0].ID, "Roadmap"))
	boardID := c.boards.Boards()[0].ID

	err := c.createTask(ctx, boardID, boardviewDraft(" ", "", "later", "stranger", "tomorrow"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title.required")
	assert.Contains(t, err.Error(), "status.enum")
	assert.Contains(t, err.Error(), "due_date.format")
	assert.Contains(t, err.Error(), "assigned_to.member")
	assert.Empty(t, c.tasks.Tasks())

	err = c.moveTask(ctx, boardID, "missing", "done")
	require.Error(t, err)

	err = c.moveTask(ctx, boardID, "missing", "sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task status")
}

func TestDescribe(t *testing.T) {
	err := cerr.NewError(cerr.InvalidArgument, "invalid task", nil).AddDetailMessageWithCode("title is required", "title.required")
	assert.Equal(t, "invalid task\n  title.required: title is required", describe(err).Error())

	plain := cerr.NewError(cerr.NotFound, "gone", nil)
	assert.Same(t, plain, describe(plain))
}

func TestClient_ActivityJournal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	stateDir, dataDir := filepath.Join(root, "state"), filepath.Join(root, "data")
	c := newTestClient(t, stateDir, dataDir)
	require.NoError(t, c.register(ctx, "ada@example.com", "secret123", "Ada"))
	require.NoError(t, c.createWorkspace(ctx, "Acme", ""))
	c.Close()

	j, err := eventbus.NewJournal(filepath.Join(stateDir, activityDir))
	require.NoError(t, err)
	events, err := j.Read(time.Now())
	require.NoError(t, err)
	var types []eventbus.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, eventbus.SessionChanged)
	assert.Contains(t, types, eventbus.WorkspaceCreated)

	require.Error(t, c.activity("yesterday"))
}

func TestClient_SwitchingUsersResetsWorkspaces(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	c := newTestClient(t, filepath.Join(root, "state"), filepath.Join(root, "data"))

	require.NoError(t, c.register(ctx, "ada@example.com", "secret123", "Ada"))
	require.NoError(t, c.createWorkspace(ctx, "Acme", ""))
	require.NoError(t, c.listWorkspaces(ctx, false))
	require.Len(t, c.workspaces.Workspaces(), 1)

	require.NoError(t, c.register(ctx, "bob@example.com", "secret123", "Bob"))
	assert.Empty(t, c.workspaces.Workspaces())
	require.NoError(t, c.createWorkspace(ctx, "Bobco", ""))

	require.NoError(t, c.login(ctx, "ada@example.com", "secret123"))
	require.NoError(t, c.listWorkspaces(ctx, false))
	ws := c.workspaces.Workspaces()
	require.Len(t, ws, 1)
	assert.Equal(t, "Acme", ws[0].Name)
}
