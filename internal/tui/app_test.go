package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/internal/gateway/gatewaytest"
	"github.com/kazz187/collabspace/internal/identity"
	"github.com/kazz187/collabspace/internal/task"
)

var (
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send delivers msg and, when run is set, executes the returned command and
// feeds its message back once.
func send(t *testing.T, a *App, msg tea.Msg, run bool) tea.Cmd {
	t.Helper()
	model, cmd := a.Update(msg)
	require.Same(t, a, model)
	if run && cmd != nil {
		next := cmd()
		_, cmd = a.Update(next)
	}
	return cmd
}

func newTestApp(t *testing.T, titles ...string) (*App, *gatewaytest.Recorder) {
	t.Helper()
	ctx := context.Background()
	rec := gatewaytest.New(t)
	for _, title := range titles {
		_, err := rec.Insert(ctx, task.Collection, gateway.Fields{"boardId": "b", "title": title, "status": "To Do"})
		require.NoError(t, err)
	}
	store := task.NewStore(rec)
	members := []identity.User{{UID: "u1", Name: "Ada"}}
	a := New(ctx, store, "b", WithTitle("Sprint"), WithMembers(func() []identity.User { return members }))
	msg := a.Init()()
	_, _ = a.Update(msg)
	return a, rec
}

func TestApp_InitLoadsTasks(t *testing.T) {
	a, _ := newTestApp(t, "one", "two")
	assert.Len(t, a.tasks.Tasks(), 2)
	assert.Equal(t, "2 tasks", a.status)

	view := a.View()
	assert.Contains(t, view, "Sprint")
	assert.Contains(t, view, "To Do (2)")
	assert.Contains(t, view, "Done (0)")
	assert.Contains(t, view, "one")
}

func TestApp_DragToDone(t *testing.T) {
	a, rec := newTestApp(t, "first", "second")
	id := a.tasks.Tasks()[0].ID

	send(t, a, keySpace, false)
	assert.True(t, a.drag.Dragging())
	send(t, a, keyRight, false)
	send(t, a, keyRight, false)
	assert.Contains(t, a.View(), "drop here")
	send(t, a, keySpace, true)

	assert.False(t, a.drag.Dragging())
	got, _ := a.tasks.Task(id)
	assert.Equal(t, task.StatusDone, got.Status)
	assert.Equal(t, 1, rec.Count(gatewaytest.Update))
	assert.Equal(t, "Moved to Done", a.status)
	assert.Equal(t, 2, a.col)
	assert.Equal(t, 0, a.row)
}

func TestApp_DragCancelled(t *testing.T) {
	a, rec := newTestApp(t, "first")

	send(t, a, keySpace, false)
	send(t, a, keyRight, false)
	send(t, a, keyEsc, false)
	assert.Equal(t, "Drag cancelled", a.status)

	send(t, a, keySpace, false)
	send(t, a, keyLeft, false)
	send(t, a, keySpace, false)
	assert.Equal(t, "Drop cancelled", a.status)

	send(t, a, keySpace, false)
	send(t, a, keySpace, false)
	assert.Equal(t, "Drop cancelled", a.status)

	a.tasks.Wait()
	assert.Zero(t, rec.Count(gatewaytest.Update))
	assert.Equal(t, task.StatusToDo, a.tasks.Tasks()[0].Status)
}

func TestApp_MoveFailureShownInStatus(t *testing.T) {
	a, rec := newTestApp(t, "first")
	rec.Fail(gatewaytest.Update)

	send(t, a, keySpace, false)
	send(t, a, keyRight, false)
	send(t, a, keySpace, true)

	assert.Equal(t, "Move not saved: gateway unavailable", a.status)
	assert.Equal(t, task.StatusInProgress, a.tasks.Tasks()[0].Status)
}

func TestApp_CursorNavigation(t *testing.T) {
	a, _ := newTestApp(t, "one", "two")
	send(t, a, keyDown, false)
	assert.Equal(t, 1, a.row)
	send(t, a, keyDown, false)
	assert.Equal(t, 1, a.row)
	send(t, a, keyRight, false)
	assert.Equal(t, 1, a.col)
	assert.Equal(t, 0, a.row)
	_, ok := a.selected()
	assert.False(t, ok)

	send(t, a, keySpace, false)
	assert.Equal(t, "Nothing to move", a.status)
}

func TestApp_CreateTaskThroughForm(t *testing.T) {
	a, _ := newTestApp(t)

	send(t, a, runes("n"), false)
	require.NotNil(t, a.form)

	send(t, a, keyEnter, true)
	require.NotNil(t, a.form)
	assert.Contains(t, a.form.details, "title is required")

	send(t, a, runes("Write docs"), false)
	send(t, a, keyTab, false)
	send(t, a, keyTab, false)
	send(t, a, keyTab, false)
	send(t, a, runes("u1"), false)
	send(t, a, keyEnter, true)

	assert.Nil(t, a.form)
	assert.Equal(t, "Saved", a.status)
	require.Len(t, a.tasks.Tasks(), 1)
	created := a.tasks.Tasks()[0]
	assert.Equal(t, "Write docs", created.Title)
	assert.Equal(t, "u1", created.AssignedTo)
	assert.Contains(t, a.View(), "Ada")
}

func TestApp_EditTaskThroughForm(t *testing.T) {
	a, _ := newTestApp(t, "typo")

	send(t, a, runes("e"), false)
	require.NotNil(t, a.form)
	assert.Equal(t, "typo", a.form.draft().Title)

	a.form.inputs[fieldTitle].SetValue("fixed")
	send(t, a, keyEnter, true)

	assert.Nil(t, a.form)
	assert.Equal(t, "fixed", a.tasks.Tasks()[0].Title)
}

func TestApp_FormEscDiscards(t *testing.T) {
	a, rec := newTestApp(t)
	send(t, a, runes("n"), false)
	send(t, a, runes("draft"), false)
	send(t, a, keyEsc, false)

	assert.Nil(t, a.form)
	assert.Zero(t, rec.Count(gatewaytest.Insert))
}

func TestApp_RefreshShowsError(t *testing.T) {
	a, rec := newTestApp(t, "one")
	rec.Fail(gatewaytest.Query)

	send(t, a, runes("r"), true)

	assert.Equal(t, "Refresh failed: gateway unavailable", a.status)
	assert.Len(t, a.tasks.Tasks(), 1)
	assert.True(t, strings.Contains(a.View(), "error: gateway unavailable"))
}

func TestApp_Quit(t *testing.T) {
	a, _ := newTestApp(t)
	cmd := send(t, a, runes("q"), false)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
