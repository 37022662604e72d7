package boardview

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kazz187/collabspace/internal/identity"
	"github.com/kazz187/collabspace/internal/task"
	"github.com/kazz187/collabspace/pkg/cerr"
)

// TaskEditor is the part of the task store the edit surface writes to.
type TaskEditor interface {
	Task(id string) (task.Task, bool)
	CreateTask(ctx context.Context, boardID string, f task.Fields)
	UpdateTask(ctx context.Context, taskID string, f task.Fields)
	Err() string
}

type Mode int

const (
	Closed Mode = iota
	Creating
	Editing
)

// Draft is the edit surface's form content as typed.
type Draft struct {
	Title       string
	Description string
	Status      string
	AssignedTo  string
	DueDate     string
}

func draftOf(f task.Fields) Draft {
	return Draft{
		Title:       f.Title,
		Description: f.Description,
		Status:      string(f.Status),
		AssignedTo:  f.AssignedTo,
		DueDate:     f.DueDate.String(),
	}
}

// View is the transient UI state of one open board.
type View struct {
	store   TaskEditor
	boardID string
	members func() []identity.User

	mu     sync.Mutex
	mode   Mode
	taskID string
	draft  Draft
}

type Option func(*View)

// WithMembers supplies the workspace members used for assignee checks and
// card names.
func WithMembers(members func() []identity.User) Option {
	return func(v *View) { v.members = members }
}

func New(store TaskEditor, boardID string, opts ...Option) *View {
	v := &View{
		store:   store,
		boardID: boardID,
		members: func() []identity.User { return nil },
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *View) BoardID() string { return v.boardID }

func (v *View) Members() []identity.User { return v.members() }

func (v *View) Mode() Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// EditingID is the task open in the edit surface, "" when creating or closed.
func (v *View) EditingID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.taskID
}

func (v *View) Draft() Draft {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

func (v *View) SetDraft(d Draft) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draft = d
}

// OpenCreate opens an empty draft in To Do.
func (v *View) OpenCreate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = Creating
	v.taskID = ""
	v.draft = Draft{Status: string(task.StatusToDo)}
}

// OpenEdit opens the draft pre-filled from the store's current fields.
func (v *View) OpenEdit(taskID string) error {
	t, ok := v.store.Task(taskID)
	if !ok {
		return cerr.NewError(cerr.NotFound, fmt.Sprintf("task %s is not on this board", taskID), nil)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = Editing
	v.taskID = taskID
	v.draft = draftOf(t.Fields())
	return nil
}

func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = Closed
	v.taskID = ""
	v.draft = Draft{}
}

// Submit validates the draft and writes it through the store. The surface
// stays open when validation fails or the store reports an error.
func (v *View) Submit(ctx context.Context) error {
	v.mu.Lock()
	mode, taskID, draft := v.mode, v.taskID, v.draft
	v.mu.Unlock()
	if mode == Closed {
		return cerr.NewError(cerr.FailedPrecondition, "nothing to submit", nil)
	}

	f, err := Validate(draft, v.members())
	if err != nil {
		return err
	}
	if mode == Creating {
		v.store.CreateTask(ctx, v.boardID, f)
	} else {
		v.store.UpdateTask(ctx, taskID, f)
	}
	if msg := v.store.Err(); msg != "" {
		return cerr.NewError(cerr.Unavailable, "failed to save task: "+msg, nil)
	}
	v.Close()
	return nil
}

// Validate turns a draft into task fields. All problems are reported
// together as one InvalidArgument error. The assignee is checked only when
// members are known.
func Validate(d Draft, members []identity.User) (task.Fields, error) {
	verr := cerr.NewError(cerr.InvalidArgument, "invalid task", nil)
	invalid := false
	violate := func(msg, rule string) {
		_ = verr.AddDetailMessageWithCode(msg, rule)
		invalid = true
	}

	f := task.Fields{
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		AssignedTo:  strings.TrimSpace(d.AssignedTo),
	}
	if f.Title == "" {
		violate("title is required", "title.required")
	}
	status, err := task.ParseStatus(d.Status)
	if err != nil {
		violate(fmt.Sprintf("status %q is not one of To Do, In Progress, Done", d.Status), "status.enum")
	}
	f.Status = status
	due, err := task.ParseDate(d.DueDate)
	if err != nil {
		violate("due date must be YYYY-MM-DD", "due_date.format")
	}
	f.DueDate = due
	if f.AssignedTo != "" && len(members) > 0 && !isMember(members, f.AssignedTo) {
		violate("assignee is not a member of this workspace", "assigned_to.member")
	}
	if invalid {
		return task.Fields{}, verr
	}
	return f, nil
}

func isMember(members []identity.User, uid string) bool {
	for _, m := range members {
		if m.UID == uid {
			return true
		}
	}
	return false
}
