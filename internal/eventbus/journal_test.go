package eventbus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_RecordAndRead(t *testing.T) {
	j, err := NewJournal(t.TempDir())
	require.NoError(t, err)

	day := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	require.NoError(t, j.Record(&Event{ID: "1", Type: TaskCreated, ResourceID: "t1", Payload: "Ship", CreatedAt: day}))
	require.NoError(t, j.Record(&Event{ID: "2", Type: TaskMoveFailed, ResourceID: "t1", Metadata: map[string]string{"to": "Done"}, CreatedAt: day.Add(time.Hour)}))
	require.NoError(t, j.Record(&Event{ID: "3", Type: TaskCreated, CreatedAt: day.AddDate(0, 0, 1)}))

	events, err := j.Read(day)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Ship", events[0].Payload)
	assert.Equal(t, TaskMoveFailed, events[1].Type)
	assert.Equal(t, "Done", events[1].Metadata["to"])

	none, err := j.Read(day.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJournal_SkipsCorruptLines(t *testing.T) {
	j, err := NewJournal(t.TempDir())
	require.NoError(t, err)
	day := time.Now()
	require.NoError(t, j.Record(&Event{ID: "1", Type: BoardCreated, CreatedAt: day}))
	f, err := os.OpenFile(j.path(day), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	events, err := j.Read(day)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, BoardCreated, events[0].Type)
}

func TestJournal_FollowDrainsOnCancel(t *testing.T) {
	j, err := NewJournal(t.TempDir())
	require.NoError(t, err)
	bus := New()

	ctx, cancel := context.WithCancel(context.Background())
	done := j.Follow(ctx, bus)
	bus.PublishNew(WorkspaceCreated, "w1", "Acme", nil)
	bus.PublishNew(BoardCreated, "b1", "Roadmap", nil)
	cancel()
	<-done

	events, err := j.Read(time.Now())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, WorkspaceCreated, events[0].Type)
	assert.Equal(t, BoardCreated, events[1].Type)
}
