// Package tui is the terminal board: three columns of task cards that can be
// dragged between columns with the keyboard.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kazz187/collabspace/internal/boardview"
	"github.com/kazz187/collabspace/internal/dnd"
	"github.com/kazz187/collabspace/internal/identity"
	"github.com/kazz187/collabspace/internal/task"
	"github.com/kazz187/collabspace/pkg/cerr"
)

const outside = -1

type (
	tasksFetchedMsg  struct{}
	moveFinishedMsg  struct{ drop dnd.Drop }
	formSubmittedMsg struct{ err error }
)

type Option func(*App)

func WithMembers(members func() []identity.User) Option {
	return func(a *App) { a.members = members }
}

func WithTitle(title string) Option {
	return func(a *App) { a.title = title }
}

// App is the bubbletea model of one open board.
type App struct {
	ctx     context.Context
	tasks   *task.Store
	drag    *dnd.Coordinator
	view    *boardview.View
	members func() []identity.User
	title   string

	col, row int

	// drop target while dragging; targetCol is outside when the target left
	// the board
	targetCol, targetIdx int

	form   *taskForm
	status string

	width, height int
}

func New(ctx context.Context, tasks *task.Store, boardID string, opts ...Option) *App {
	a := &App{
		ctx:     ctx,
		tasks:   tasks,
		drag:    dnd.New(tasks),
		members: func() []identity.User { return nil },
		title:   boardID,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.view = boardview.New(tasks, boardID, boardview.WithMembers(a.members))
	return a
}

func (a *App) Init() tea.Cmd {
	return a.fetch()
}

func (a *App) fetch() tea.Cmd {
	return func() tea.Msg {
		a.tasks.FetchTasks(a.ctx, a.view.BoardID())
		return tasksFetchedMsg{}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tasksFetchedMsg:
		a.clampCursor()
		if errMsg := a.tasks.Err(); errMsg != "" {
			a.status = "Refresh failed: " + errMsg
		} else {
			a.status = fmt.Sprintf("%d tasks", len(a.tasks.Tasks()))
		}
		return a, nil

	case moveFinishedMsg:
		if err := msg.drop.Move.Err(); err != nil {
			a.status = "Move not saved: " + cerr.Message(err)
		} else if msg.drop.Move.Applied() {
			a.status = fmt.Sprintf("Moved to %s", msg.drop.To.Status)
		} else {
			a.status = "Order within a column is not saved"
		}
		return a, nil

	case formSubmittedMsg:
		if a.form == nil {
			return a, nil
		}
		if msg.err != nil {
			a.form.setError(msg.err)
			return a, nil
		}
		a.form = nil
		a.status = "Saved"
		a.clampCursor()
		return a, nil

	case tea.KeyMsg:
		if a.form != nil {
			return a.updateForm(msg)
		}
		return a.updateBoard(msg)
	}
	return a, nil
}

func (a *App) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	dragging := a.drag.Dragging()
	switch msg.String() {
	case "ctrl+c", "q":
		return a, tea.Quit
	case "r":
		a.status = "Refreshing..."
		return a, a.fetch()
	case " ":
		if dragging {
			return a, a.release()
		}
		a.grab()
	case "esc":
		if dragging {
			if _, err := a.drag.Cancel(); err == nil {
				a.status = "Drag cancelled"
			}
		}
	case "left", "h":
		a.step(-1, 0, dragging)
	case "right", "l":
		a.step(1, 0, dragging)
	case "up", "k":
		a.step(0, -1, dragging)
	case "down", "j":
		a.step(0, 1, dragging)
	case "n":
		if dragging {
			break
		}
		a.view.OpenCreate()
		a.form = newTaskForm("New task", a.view.Draft())
	case "e", "enter":
		if dragging {
			break
		}
		t, ok := a.selected()
		if !ok {
			break
		}
		if err := a.view.OpenEdit(t.ID); err != nil {
			a.status = cerr.Message(err)
			break
		}
		a.form = newTaskForm("Edit task", a.view.Draft())
	}
	return a, nil
}

func (a *App) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "esc":
		a.view.Close()
		a.form = nil
		a.status = "Edit discarded"
		return a, nil
	case "tab", "down":
		a.form.move(1)
		return a, nil
	case "shift+tab", "up":
		a.form.move(-1)
		return a, nil
	case "enter":
		a.view.SetDraft(a.form.draft())
		return a, func() tea.Msg {
			return formSubmittedMsg{err: a.view.Submit(a.ctx)}
		}
	}
	return a, a.form.update(msg)
}

func (a *App) columns() [3]boardview.Column {
	return boardview.Group(a.tasks.Tasks())
}

func (a *App) selected() (task.Task, bool) {
	cols := a.columns()
	tasks := cols[a.col].Tasks
	if a.row < 0 || a.row >= len(tasks) {
		return task.Task{}, false
	}
	return tasks[a.row], true
}

func (a *App) clampCursor() {
	cols := a.columns()
	a.col = max(0, min(a.col, len(cols)-1))
	a.row = max(0, min(a.row, len(cols[a.col].Tasks)-1))
}

func (a *App) step(dc, dr int, dragging bool) {
	if !dragging {
		cols := a.columns()
		if dc != 0 {
			a.col = max(0, min(a.col+dc, len(cols)-1))
		}
		a.row += dr
		a.clampCursor()
		return
	}

	cols := a.columns()
	if dc != 0 {
		switch {
		case a.targetCol == outside && dc > 0:
			a.targetCol = 0
		case a.targetCol == outside:
			a.targetCol = len(cols) - 1
		default:
			a.targetCol += dc
			if a.targetCol < 0 || a.targetCol >= len(cols) {
				a.targetCol = outside
			}
		}
		if a.targetCol != outside {
			a.targetIdx = min(a.targetIdx, len(cols[a.targetCol].Tasks))
		}
	}
	if dr != 0 && a.targetCol != outside {
		a.targetIdx = max(0, min(a.targetIdx+dr, len(cols[a.targetCol].Tasks)))
	}
	if a.targetCol == outside {
		a.drag.Leave()
		return
	}
	a.drag.Hover(dnd.Position{Status: task.Statuses[a.targetCol], Index: a.targetIdx})
}

func (a *App) grab() {
	t, ok := a.selected()
	if !ok {
		a.status = "Nothing to move"
		return
	}
	from := dnd.Position{Status: t.Status, Index: a.row}
	if err := a.drag.Grab(t.ID, from); err != nil {
		a.status = err.Error()
		return
	}
	a.targetCol, a.targetIdx = a.col, a.row
	a.drag.Hover(from)
	a.status = fmt.Sprintf("Moving %q: arrows choose a column, space drops, esc cancels", t.Title)
}

func (a *App) release() tea.Cmd {
	drop, err := a.drag.Release(a.ctx)
	if err != nil {
		a.status = err.Error()
		return nil
	}
	if drop.Phase != dnd.DroppedValid {
		a.status = "Drop cancelled"
		return nil
	}
	a.col = boardview.ColumnIndex(drop.To.Status)
	for i, t := range a.columns()[a.col].Tasks {
		if t.ID == drop.TaskID {
			a.row = i
		}
	}
	a.status = "Saving..."
	return func() tea.Msg {
		_ = drop.Move.Wait(context.WithoutCancel(a.ctx))
		return moveFinishedMsg{drop: drop}
	}
}

func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	sections := []string{a.renderHeader()}
	if a.form != nil {
		sections = append(sections, a.renderForm())
	} else {
		sections = append(sections, a.renderColumns(width))
	}
	sections = append(sections, a.renderFooter())
	return strings.Join(sections, "\n")
}

func (a *App) renderHeader() string {
	head := headerStyle.Render("▦ " + a.title)
	if a.tasks.Loading() {
		head += mutedStyle.Render("  loading…")
	}
	if errMsg := a.tasks.Err(); errMsg != "" {
		head += "\n" + errorStyle.Render("error: "+errMsg)
	}
	return head
}

func (a *App) renderColumns(width int) string {
	colWidth := max(20, (width-6)/3)
	snap := a.drag.Snapshot()
	members := a.members()
	cols := a.columns()
	boxes := make([]string, 0, len(cols))
	for ci, col := range cols {
		isTarget := snap.Phase == dnd.Dragging && a.targetCol == ci
		lines := []string{columnTitleStyle.Render(fmt.Sprintf("%s (%d)", col.Status, len(col.Tasks)))}
		for ri, t := range col.Tasks {
			if isTarget && a.targetIdx == ri {
				lines = append(lines, dropMarkerStyle.Render("▸ drop here"))
			}
			lines = append(lines, a.renderCard(t, members, ci, ri, snap, colWidth-4))
		}
		if isTarget && a.targetIdx >= len(col.Tasks) {
			lines = append(lines, dropMarkerStyle.Render("▸ drop here"))
		}
		if len(col.Tasks) == 0 && !isTarget {
			lines = append(lines, mutedStyle.Render("no tasks"))
		}
		style := columnStyle
		if isTarget {
			style = targetColumnStyle
		}
		boxes = append(boxes, style.Width(colWidth).Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (a *App) renderCard(t task.Task, members []identity.User, ci, ri int, snap dnd.Snapshot, width int) string {
	card := boardview.NewCard(t, members)
	meta := assigneeStyle(t.AssignedTo).Render(card.Assignee)
	if card.Due != "" {
		meta += mutedStyle.Render(" · " + card.Due)
	}
	body := card.Title + "\n" + meta
	style := cardStyle
	switch {
	case snap.Phase == dnd.Dragging && snap.TaskID == t.ID:
		style = grabbedCardStyle
	case ci == a.col && ri == a.row:
		style = selectedCardStyle
	}
	return style.Width(max(10, width)).Render(body)
}

func (a *App) renderForm() string {
	f := a.form
	lines := []string{headerStyle.Render(f.heading), ""}
	for i, in := range f.inputs {
		lines = append(lines, labelStyle.Render(fieldLabels[i])+in.View())
	}
	if ms := a.members(); len(ms) > 0 {
		names := make([]string, 0, len(ms))
		for _, m := range ms {
			names = append(names, fmt.Sprintf("%s (%s)", m.DisplayName(), m.UID))
		}
		lines = append(lines, "", mutedStyle.Render("members: "+strings.Join(names, ", ")))
	}
	if f.errMsg != "" {
		lines = append(lines, "", errorStyle.Render(f.errMsg))
		for _, d := range f.details {
			lines = append(lines, errorStyle.Render("  • "+d))
		}
	}
	lines = append(lines, "", mutedStyle.Render("tab next field · enter save · esc cancel"))
	return formStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) renderFooter() string {
	help := "←/→/↑/↓ select · space grab/drop · esc cancel · n new · e edit · r refresh · q quit"
	return mutedStyle.Render(help) + "\n" + a.status
}
