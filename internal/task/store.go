// Package task is the task entity store. It keeps the tasks of one board in
// memory and writes changes through a gateway.Gateway. Moves are applied
// locally first and persisted in the background.
package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/kazz187/collabspace/internal/eventbus"
	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/internal/storestate"
	"github.com/kazz187/collabspace/pkg/panicerr"
)

type Store struct {
	gw    gateway.Gateway
	state *storestate.State[Task]
	bus   *eventbus.Bus
	now   func() time.Time
	actor func() string

	wg conc.WaitGroup

	mu      sync.Mutex
	pending map[string]*Move // last background move per task id
}

type Option func(*Store)

// WithEventBus publishes task lifecycle events to bus.
func WithEventBus(bus *eventbus.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

// WithActor sets the uid recorded as createdBy on new tasks.
func WithActor(uid func() string) Option {
	return func(s *Store) { s.actor = uid }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(gw gateway.Gateway, opts ...Option) *Store {
	s := &Store{
		gw:      gw,
		state:   storestate.New[Task]("task"),
		now:     time.Now,
		actor:   func() string { return "" },
		pending: map[string]*Move{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tasks returns a snapshot of the loaded tasks in load order.
func (s *Store) Tasks() []Task {
	return s.state.Items()
}

func (s *Store) Task(id string) (Task, bool) {
	return s.state.Find(byID(id))
}

func (s *Store) Loading() bool {
	return s.state.Loading()
}

func (s *Store) Err() string {
	return s.state.Err()
}

func byID(id string) func(Task) bool {
	return func(t Task) bool { return t.ID == id }
}

// FetchTasks replaces the list with the tasks of boardID. On failure the
// previous list is kept.
func (s *Store) FetchTasks(ctx context.Context, boardID string) {
	end := s.state.Begin()
	defer end()

	docs, err := s.gw.Query(ctx, Collection, gateway.Eq("boardId", boardID))
	if err != nil {
		s.state.Fail(ctx, "fetch", err)
		return
	}
	tasks := make([]Task, 0, len(docs))
	for _, doc := range docs {
		t, err := fromDocument(doc)
		if err != nil {
			slog.WarnContext(ctx, "skipping task document", "store", "task", "error", err)
			continue
		}
		if t.BoardID != boardID {
			continue
		}
		tasks = append(tasks, t)
	}
	s.state.Replace(tasks)
}

// CreateTask inserts a task on boardID and appends it once the gateway has
// assigned its id.
func (s *Store) CreateTask(ctx context.Context, boardID string, f Fields) {
	end := s.state.Begin()
	defer end()

	f = f.normalized()
	now := s.now().UTC()
	doc := f.document()
	doc["boardId"] = boardID
	doc["createdBy"] = s.actor()
	doc["createdAt"] = gateway.FormatTime(now)
	doc["updatedAt"] = gateway.FormatTime(now)

	id, err := s.gw.Insert(ctx, Collection, doc)
	if err != nil {
		s.state.Fail(ctx, "create", err)
		return
	}
	t := Task{ID: id, BoardID: boardID, CreatedBy: doc.String("createdBy"), CreatedAt: now, UpdatedAt: now}
	t.apply(f)
	s.state.Append(t)
	s.bus.PublishNew(eventbus.TaskCreated, id, string(f.Status), map[string]string{"boardId": boardID})
}

// UpdateTask replaces the editable fields of a task. The local entry changes
// only after the gateway accepted the write; an id the gateway does not
// know is reported through Err and never inserted.
func (s *Store) UpdateTask(ctx context.Context, taskID string, f Fields) {
	end := s.state.Begin()
	defer end()

	f = f.normalized()
	now := s.now().UTC()
	doc := f.document()
	doc["updatedAt"] = gateway.FormatTime(now)

	if err := s.gw.Update(ctx, Collection, taskID, doc); err != nil {
		s.state.Fail(ctx, "update", err)
		return
	}
	s.state.Mutate(byID(taskID), func(t *Task) bool {
		t.apply(f)
		t.UpdatedAt = now
		return true
	})
	s.bus.PublishNew(eventbus.TaskUpdated, taskID, string(f.Status), nil)
}

// Move tracks one MoveTask call. The local list already reflects the move
// when MoveTask returns; Done is closed when the background write finished.
type Move struct {
	TaskID string
	From   Status
	To     Status

	applied bool
	done    chan struct{}
	once    sync.Once
	err     error
}

func newMove(taskID string, from, to Status, applied bool) *Move {
	return &Move{TaskID: taskID, From: from, To: to, applied: applied, done: make(chan struct{})}
}

// Applied reports whether the call changed anything. Moving to the current
// status or moving an unknown task is a no-op that never reaches the
// gateway.
func (m *Move) Applied() bool {
	return m.applied
}

func (m *Move) Done() <-chan struct{} {
	return m.done
}

// Err is the persistence error, nil until Done is closed.
func (m *Move) Err() error {
	select {
	case <-m.done:
		return m.err
	default:
		return nil
	}
}

// Wait blocks until the write finished or ctx is done.
func (m *Move) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Move) finish(err error) {
	m.once.Do(func() {
		m.err = err
		close(m.done)
	})
}

// MoveTask changes a task's status in the local list immediately and
// persists it in the background. Writes for the same task reach the gateway
// in call order. A failed write is reported on the returned Move and the
// event bus only; the local change is not rolled back and Err is left alone.
func (s *Store) MoveTask(ctx context.Context, taskID string, status Status) *Move {
	now := s.now().UTC()
	var from Status
	changed := s.state.Mutate(byID(taskID), func(t *Task) bool {
		from = t.Status
		if t.Status == status {
			return false
		}
		t.Status = status
		t.UpdatedAt = now
		return true
	})
	if !changed {
		m := newMove(taskID, from, status, false)
		m.finish(nil)
		return m
	}

	m := newMove(taskID, from, status, true)
	s.mu.Lock()
	prev := s.pending[taskID]
	s.pending[taskID] = m
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	s.wg.Go(func() {
		defer s.settle(taskID, m)
		if prev != nil {
			<-prev.Done()
		}
		err := panicerr.SafeContext(func(ctx context.Context) error {
			return s.gw.Update(ctx, Collection, taskID, gateway.Fields{
				"status":    string(status),
				"updatedAt": gateway.FormatTime(now),
			})
		})(bg)
		if err != nil {
			slog.WarnContext(bg, "task move not persisted", "store", "task", "op", "move", "task_id", taskID, "to", string(status), "error", err)
			s.bus.PublishNew(eventbus.TaskMoveFailed, taskID, err.Error(), map[string]string{"from": string(from), "to": string(status)})
		} else {
			s.bus.PublishNew(eventbus.TaskMoveCommitted, taskID, string(status), map[string]string{"from": string(from)})
		}
		m.finish(err)
	})
	return m
}

func (s *Store) settle(taskID string, m *Move) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[taskID] == m {
		delete(s.pending, taskID)
	}
}

// Wait blocks until every background move has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}
