package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/kazz187/collabspace/internal/gateway"
	"github.com/kazz187/collabspace/pkg/cerr"
)

const Collection = "tasks"

// Status is also the id of the board column a task is shown in.
type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// Statuses lists every status in column order.
var Statuses = [...]Status{StatusToDo, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus accepts the display labels and the usual CLI spellings
// ("todo", "in-progress", "done").
func ParseStatus(s string) (Status, error) {
	norm := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "todo":
		return StatusToDo, nil
	case "inprogress", "doing":
		return StatusInProgress, nil
	case "done":
		return StatusDone, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// Date is a calendar date without time of day. The zero Date means unset.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

type Task struct {
	ID          string
	BoardID     string
	Title       string
	Description string
	Status      Status
	AssignedTo  string
	DueDate     Date
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Fields are the user-editable parts of a task.
type Fields struct {
	Title       string
	Description string
	Status      Status
	AssignedTo  string
	DueDate     Date
}

func (t Task) Fields() Fields {
	return Fields{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		AssignedTo:  t.AssignedTo,
		DueDate:     t.DueDate,
	}
}

func (t *Task) apply(f Fields) {
	t.Title = f.Title
	t.Description = f.Description
	t.Status = f.Status
	t.AssignedTo = f.AssignedTo
	t.DueDate = f.DueDate
}

// Validate reports every rule the fields break as one InvalidArgument error.
func (f Fields) Validate() error {
	verr := cerr.NewError(cerr.InvalidArgument, "invalid task", nil)
	invalid := false
	if strings.TrimSpace(f.Title) == "" {
		_ = verr.AddDetailMessageWithCode("title is required", "title.required")
		invalid = true
	}
	if !f.Status.Valid() {
		_ = verr.AddDetailMessageWithCode(fmt.Sprintf("status %q is not one of To Do, In Progress, Done", f.Status), "status.enum")
		invalid = true
	}
	if invalid {
		return verr
	}
	return nil
}

func (f Fields) normalized() Fields {
	if f.Status == "" {
		f.Status = StatusToDo
	}
	return f
}

func (f Fields) document() gateway.Fields {
	return gateway.Fields{
		"title":       f.Title,
		"description": f.Description,
		"status":      string(f.Status),
		"assignedTo":  f.AssignedTo,
		"dueDate":     f.DueDate.String(),
	}
}

// fromDocument applies the defaulting rules for stored tasks: absent text
// becomes "", absent status becomes To Do. An unknown status or an
// unparsable due date rejects the document.
func fromDocument(doc *gateway.Document) (Task, error) {
	f := doc.Fields
	status := StatusToDo
	if raw := f.String("status"); raw != "" {
		status = Status(raw)
		if !status.Valid() {
			return Task{}, fmt.Errorf("task %s: unknown status %q", doc.ID, raw)
		}
	}
	due, err := ParseDate(f.String("dueDate"))
	if err != nil {
		return Task{}, fmt.Errorf("task %s: %w", doc.ID, err)
	}
	return Task{
		ID:          doc.ID,
		BoardID:     f.String("boardId"),
		Title:       f.String("title"),
		Description: f.String("description"),
		Status:      status,
		AssignedTo:  f.String("assignedTo"),
		DueDate:     due,
		CreatedBy:   f.String("createdBy"),
		CreatedAt:   f.Time("createdAt"),
		UpdatedAt:   f.Time("updatedAt"),
	}, nil
}
