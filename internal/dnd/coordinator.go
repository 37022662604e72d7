// Package dnd turns a drag gesture over the board columns into at most one
// status change.
package dnd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kazz187/collabspace/internal/task"
)

type Phase int

const (
	Idle Phase = iota
	Dragging
	DroppedValid
	DroppedCancelled
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case DroppedValid:
		return "dropped"
	case DroppedCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var (
	ErrGestureInFlight = errors.New("another drag is in progress")
	ErrNotDragging     = errors.New("no drag in progress")
)

// Position is a slot in a column. Index is only used for display; the
// store does not persist ordering.
type Position struct {
	Status task.Status
	Index  int
}

// Mover is the part of the task store a drop needs.
type Mover interface {
	MoveTask(ctx context.Context, taskID string, status task.Status) *task.Move
}

// Drop is the outcome of a finished gesture. Move is set only for
// DroppedValid.
type Drop struct {
	Phase  Phase
	TaskID string
	From   Position
	To     *Position
	Move   *task.Move
}

type Coordinator struct {
	mover Mover

	mu     sync.Mutex
	phase  Phase
	taskID string
	from   Position
	over   *Position
}

func New(mover Mover) *Coordinator {
	return &Coordinator{mover: mover}
}

// Grab starts a gesture on taskID. Only one gesture may be in flight.
func (c *Coordinator) Grab(taskID string, from Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Dragging {
		return ErrGestureInFlight
	}
	c.phase = Dragging
	c.taskID = taskID
	c.from = from
	c.over = nil
	return nil
}

// Hover sets the candidate destination.
func (c *Coordinator) Hover(to Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Dragging {
		return
	}
	c.over = &to
}

// Leave clears the candidate destination, as when the pointer leaves every
// drop region.
func (c *Coordinator) Leave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Dragging {
		return
	}
	c.over = nil
}

// Release ends the gesture. Dropping outside every column or back on the
// source slot cancels; anything else sends exactly one MoveTask. A drop in
// the source column at another index still calls MoveTask, which the store
// absorbs as a no-op since the status is unchanged.
func (c *Coordinator) Release(ctx context.Context) (Drop, error) {
	c.mu.Lock()
	if c.phase != Dragging {
		c.mu.Unlock()
		return Drop{}, ErrNotDragging
	}
	d := Drop{TaskID: c.taskID, From: c.from, To: c.over}
	if c.over == nil || *c.over == c.from {
		d.Phase = DroppedCancelled
	} else {
		d.Phase = DroppedValid
	}
	c.phase = d.Phase
	c.over = nil
	c.mu.Unlock()

	if d.Phase == DroppedValid {
		d.Move = c.mover.MoveTask(ctx, d.TaskID, d.To.Status)
		slog.DebugContext(ctx, "task dropped", "task_id", d.TaskID, "from", string(d.From.Status), "to", string(d.To.Status), "index", d.To.Index)
	}
	return d, nil
}

// Cancel aborts the gesture without touching the store.
func (c *Coordinator) Cancel() (Drop, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Dragging {
		return Drop{}, ErrNotDragging
	}
	d := Drop{Phase: DroppedCancelled, TaskID: c.taskID, From: c.from, To: c.over}
	c.phase = DroppedCancelled
	c.over = nil
	return d, nil
}

// Snapshot describes the gesture for rendering.
type Snapshot struct {
	Phase  Phase
	TaskID string
	From   Position
	Over   *Position
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{Phase: c.phase}
	if c.phase == Dragging {
		s.TaskID = c.taskID
		s.From = c.from
		if c.over != nil {
			over := *c.over
			s.Over = &over
		}
	}
	return s
}

func (c *Coordinator) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == Dragging
}
