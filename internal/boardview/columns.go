// Package boardview projects a board's tasks into columns and owns the
// task edit surface. It holds no task data of its own.
package boardview

import (
	"fmt"

	"github.com/kazz187/collabspace/internal/identity"
	"github.com/kazz187/collabspace/internal/task"
)

type Column struct {
	Status task.Status
	Tasks  []task.Task
}

// Group splits tasks into the To Do, In Progress and Done columns, keeping
// list order inside each column.
func Group(tasks []task.Task) [3]Column {
	var cols [3]Column
	for i, st := range task.Statuses {
		cols[i].Status = st
	}
	for _, t := range tasks {
		i := ColumnIndex(t.Status)
		if i < 0 {
			continue
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}
	return cols
}

// ColumnIndex returns the column of status, -1 when unknown.
func ColumnIndex(status task.Status) int {
	for i, st := range task.Statuses {
		if st == status {
			return i
		}
	}
	return -1
}

// Card is what a task shows on the board.
type Card struct {
	ID       string
	Title    string
	Assignee string
	Due      string
}

// NewCard resolves the assignee against the workspace members. Assignees
// that are not resolvable show their uid.
func NewCard(t task.Task, members []identity.User) Card {
	c := Card{ID: t.ID, Title: t.Title, Assignee: "Unassigned"}
	if t.AssignedTo != "" {
		c.Assignee = t.AssignedTo
		for _, m := range members {
			if m.UID == t.AssignedTo {
				c.Assignee = m.DisplayName()
				break
			}
		}
	}
	if !t.DueDate.IsZero() {
		c.Due = fmt.Sprintf("%.3s %d", t.DueDate.Month, t.DueDate.Day)
	}
	return c
}
