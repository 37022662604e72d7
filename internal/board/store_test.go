package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/collabspace/internal/eventbus"
	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/internal/gateway/gatewaytest"
)

func TestStore_CreateAndFetchBoards(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	bus := eventbus.New()
	subID, events := bus.Subscribe(1)
	defer bus.Unsubscribe(subID)

	rec := gatewaytest.New(t)
	s := NewStore(rec, WithClock(func() time.Time { return now }), WithEventBus(bus))

	s.CreateBoard(ctx, "ws-1", "  Sprint 12 ", "uid-1")
	require.Empty(t, s.Err())
	require.Len(t, s.Boards(), 1)
	created := s.Boards()[0]
	assert.Equal(t, "Sprint 12", created.Title)
	assert.Equal(t, eventbus.BoardCreated, (<-events).Type)

	_, err := rec.Insert(ctx, Collection, gateway.Fields{"title": "elsewhere", "workspaceId": "ws-2"})
	require.NoError(t, err)

	other := NewStore(rec)
	other.FetchBoards(ctx, "ws-1")
	require.Len(t, other.Boards(), 1)
	assert.Equal(t, created, other.Boards()[0])
}

func TestStore_FetchBoards_LegacyName(t *testing.T) {
	ctx := context.Background()
	rec := gatewaytest.New(t)
	_, err := rec.Insert(ctx, Collection, gateway.Fields{"name": "Roadmap", "workspaceId": "ws"})
	require.NoError(t, err)

	s := NewStore(rec)
	s.FetchBoards(ctx, "ws")
	require.Len(t, s.Boards(), 1)
	assert.Equal(t, "Roadmap", s.Boards()[0].Title)
}

func TestStore_FetchBoards_Failure(t *testing.T) {
	rec := gatewaytest.New(t)
	s := NewStore(rec)
	rec.Fail(gatewaytest.Query)

	s.FetchBoards(context.Background(), "ws")

	assert.Empty(t, s.Boards())
	assert.Equal(t, "gateway unavailable", s.Err())
	assert.False(t, s.Loading())
}

func TestStore_FetchBoard(t *testing.T) {
	ctx := context.Background()
	rec := gatewaytest.New(t)
	id, err := rec.Insert(ctx, Collection, gateway.Fields{"title": "B", "workspaceId": "ws"})
	require.NoError(t, err)
	s := NewStore(rec)

	b := s.FetchBoard(ctx, id)
	require.NotNil(t, b)
	assert.Equal(t, "B", b.Title)
	got, ok := s.Board(id)
	assert.True(t, ok)
	assert.Equal(t, *b, got)

	assert.Nil(t, s.FetchBoard(ctx, "missing"))
	assert.Empty(t, s.Err())
}

func TestStore_FetchBoard_OtherWorkspaceStaysOutOfList(t *testing.T) {
	ctx := context.Background()
	rec := gatewaytest.New(t)
	s := NewStore(rec)
	s.CreateBoard(ctx, "ws-1", "Mine", "u")
	foreign, err := rec.Insert(ctx, Collection, gateway.Fields{"title": "Theirs", "workspaceId": "ws-2"})
	require.NoError(t, err)

	b := s.FetchBoard(ctx, foreign)
	require.NotNil(t, b)
	assert.Equal(t, "Theirs", b.Title)

	list := s.Boards()
	require.Len(t, list, 1)
	assert.Equal(t, "Mine", list[0].Title)
	_, ok := s.Board(foreign)
	assert.False(t, ok)
}

func TestStore_CreateBoard_EmptyTitle(t *testing.T) {
	rec := gatewaytest.New(t)
	s := NewStore(rec)

	s.CreateBoard(context.Background(), "ws", "   ", "uid")

	assert.Empty(t, s.Boards())
	assert.Equal(t, "board title is required", s.Err())
	assert.Zero(t, rec.Count(gatewaytest.Insert))
}

func TestStore_UpdateBoard(t *testing.T) {
	ctx := context.Background()
	rec := gatewaytest.New(t)
	s := NewStore(rec)
	s.CreateBoard(ctx, "ws", "Old", "uid")
	id := s.Boards()[0].ID

	s.UpdateBoard(ctx, id, "New")
	require.Empty(t, s.Err())
	got, _ := s.Board(id)
	assert.Equal(t, "New", got.Title)

	s.UpdateBoard(ctx, "missing", "X")
	assert.NotEmpty(t, s.Err())
	assert.Len(t, s.Boards(), 1)
}
