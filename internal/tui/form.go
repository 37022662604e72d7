package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kazz187/collabspace/internal/boardview"
	"github.com/kazz187/collabspace/pkg/cerr"
)

const (
	fieldTitle = iota
	fieldDescription
	fieldStatus
	fieldAssignee
	fieldDue
	fieldCount
)

var fieldLabels = [fieldCount]string{"Title", "Description", "Status", "Assignee", "Due date"}

// taskForm is the terminal rendition of the edit surface.
type taskForm struct {
	heading string
	inputs  [fieldCount]textinput.Model
	focus   int
	errMsg  string
	details []string
}

func newTaskForm(heading string, d boardview.Draft) *taskForm {
	f := &taskForm{heading: heading}
	values := [fieldCount]string{d.Title, d.Description, d.Status, d.AssignedTo, d.DueDate}
	placeholders := [fieldCount]string{"required", "", "To Do | In Progress | Done", "member uid", "YYYY-MM-DD"}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 200
		ti.Placeholder = placeholders[i]
		ti.SetValue(values[i])
		f.inputs[i] = ti
	}
	f.inputs[f.focus].Focus()
	return f
}

func (f *taskForm) draft() boardview.Draft {
	return boardview.Draft{
		Title:       f.inputs[fieldTitle].Value(),
		Description: f.inputs[fieldDescription].Value(),
		Status:      f.inputs[fieldStatus].Value(),
		AssignedTo:  f.inputs[fieldAssignee].Value(),
		DueDate:     f.inputs[fieldDue].Value(),
	}
}

func (f *taskForm) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	f.inputs[f.focus].Focus()
}

func (f *taskForm) setError(err error) {
	f.details = f.details[:0]
	for _, v := range cerr.Violations(err) {
		f.details = append(f.details, v.GetMessage())
	}
	if len(f.details) > 0 {
		f.errMsg = "Please fix the following:"
		return
	}
	f.errMsg = cerr.Message(err)
}

func (f *taskForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}
