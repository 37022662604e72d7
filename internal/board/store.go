// Package board holds the boards of the workspace being viewed.
package board

import (
	"context"
	"strings"
	"time"

	"github.com/kazz187/collabspace/internal/eventbus"
	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/internal/storestate"
	"github.com/kazz187/collabspace/pkg/cerr"
)

type Store struct {
	gw    gateway.Gateway
	state *storestate.State[Board]
	bus   *eventbus.Bus
	now   func() time.Time
}

type Option func(*Store)

func WithEventBus(bus *eventbus.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(gw gateway.Gateway, opts ...Option) *Store {
	s := &Store{
		gw:    gw,
		state: storestate.New[Board]("board"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Boards() []Board { return s.state.Items() }

func (s *Store) Board(id string) (Board, bool) {
	return s.state.Find(byID(id))
}

func (s *Store) Loading() bool { return s.state.Loading() }

func (s *Store) Err() string { return s.state.Err() }

func byID(id string) func(Board) bool {
	return func(b Board) bool { return b.ID == id }
}

// FetchBoards replaces the list with the boards of workspaceID.
func (s *Store) FetchBoards(ctx context.Context, workspaceID string) {
	end := s.state.Begin()
	defer end()

	docs, err := s.gw.Query(ctx, Collection, gateway.Eq("workspaceId", workspaceID))
	if err != nil {
		s.state.Fail(ctx, "fetch", err)
		return
	}
	boards := make([]Board, 0, len(docs))
	for _, doc := range docs {
		b := fromDocument(doc)
		if b.WorkspaceID != workspaceID {
			continue
		}
		boards = append(boards, b)
	}
	s.state.Replace(boards)
}

// FetchBoard loads a single board by id. An absent board yields nil and
// leaves Err empty. The board joins the list only when the list is empty or
// holds boards of the same workspace.
func (s *Store) FetchBoard(ctx context.Context, id string) *Board {
	end := s.state.Begin()
	defer end()

	doc, found, err := s.gw.Get(ctx, Collection, id)
	if err != nil {
		s.state.Fail(ctx, "get", err)
		return nil
	}
	if !found {
		return nil
	}
	b := fromDocument(doc)
	if !s.state.Mutate(byID(id), func(cur *Board) bool { *cur = b; return true }) {
		if list := s.state.Items(); len(list) == 0 || list[0].WorkspaceID == b.WorkspaceID {
			s.state.Append(b)
		}
	}
	return &b
}

// CreateBoard inserts a board in workspaceID and appends it on success.
func (s *Store) CreateBoard(ctx context.Context, workspaceID, title, uid string) {
	end := s.state.Begin()
	defer end()

	title = strings.TrimSpace(title)
	if title == "" {
		s.state.Fail(ctx, "create", cerr.NewError(cerr.InvalidArgument, "board title is required", nil))
		return
	}
	now := s.now().UTC()
	id, err := s.gw.Insert(ctx, Collection, gateway.Fields{
		"title":       title,
		"workspaceId": workspaceID,
		"createdBy":   uid,
		"createdAt":   gateway.FormatTime(now),
	})
	if err != nil {
		s.state.Fail(ctx, "create", err)
		return
	}
	s.state.Append(Board{ID: id, Title: title, WorkspaceID: workspaceID, CreatedBy: uid, CreatedAt: now})
	s.bus.PublishNew(eventbus.BoardCreated, id, title, map[string]string{"workspaceId": workspaceID})
}

// UpdateBoard renames a board once the gateway accepted the change.
func (s *Store) UpdateBoard(ctx context.Context, boardID, title string) {
	end := s.state.Begin()
	defer end()

	title = strings.TrimSpace(title)
	if title == "" {
		s.state.Fail(ctx, "update", cerr.NewError(cerr.InvalidArgument, "board title is required", nil))
		return
	}
	if err := s.gw.Update(ctx, Collection, boardID, gateway.Fields{"title": title}); err != nil {
		s.state.Fail(ctx, "update", err)
		return
	}
	s.state.Mutate(byID(boardID), func(b *Board) bool {
		b.Title = title
		return true
	})
}
