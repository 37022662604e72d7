package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kazz187/collabspace/internal/boardview"
	"github.com/kazz187/collabspace/internal/identity"
	"github.com/kazz187/collabspace/internal/task"
	"github.com/kazz187/collabspace/internal/tui"
	"github.com/kazz187/collabspace/pkg/cerr"
)

var headingStyle = lipgloss.NewStyle().Bold(true)

func render(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}

func (c *client) register(ctx context.Context, email, password, name string) error {
	c.session.Register(ctx, email, password, name)
	if err := storeErr(c.session.Err()); err != nil {
		return err
	}
	u := c.session.User()
	fmt.Printf("Signed in as %s (%s)\n", u.DisplayName(), u.UID)
	return nil
}

func (c *client) login(ctx context.Context, email, password string) error {
	c.session.SignIn(ctx, email, password)
	if err := storeErr(c.session.Err()); err != nil {
		return err
	}
	u := c.session.User()
	fmt.Printf("Signed in as %s (%s)\n", u.DisplayName(), u.UID)
	return nil
}

func (c *client) logout(ctx context.Context) error {
	if c.session.User() == nil {
		fmt.Println("Not signed in")
		return nil
	}
	c.session.SignOut(ctx)
	if msg := c.session.Err(); msg != "" {
		fmt.Printf("Signed out locally (%s)\n", msg)
		return nil
	}
	fmt.Println("Signed out")
	return nil
}

func (c *client) whoami(_ context.Context) error {
	u, err := c.requireUser()
	if err != nil {
		return err
	}
	fmt.Println(render([]string{"UID", "NAME", "EMAIL"}, [][]string{{u.UID, u.DisplayName(), u.Email}}))
	return nil
}

func (c *client) listWorkspaces(ctx context.Context, refresh bool) error {
	u, err := c.requireUser()
	if err != nil {
		return err
	}
	if refresh {
		c.workspaces.RefreshWorkspaces(ctx, u.UID)
	} else {
		c.workspaces.FetchWorkspaces(ctx, u.UID)
	}
	if err := storeErr(c.workspaces.Err()); err != nil {
		return err
	}
	list := c.workspaces.Workspaces()
	if len(list) == 0 {
		fmt.Println("No workspaces")
		return nil
	}
	rows := make([][]string, 0, len(list))
	for _, w := range list {
		rows = append(rows, []string{w.ID, w.Name, fmt.Sprint(len(w.Members)), w.Description})
	}
	fmt.Println(render([]string{"ID", "NAME", "MEMBERS", "DESCRIPTION"}, rows))
	return nil
}

func (c *client) createWorkspace(ctx context.Context, name, description string) error {
	u, err := c.requireUser()
	if err != nil {
		return err
	}
	c.workspaces.CreateWorkspace(ctx, name, description, u.UID)
	if err := storeErr(c.workspaces.Err()); err != nil {
		return err
	}
	// The created workspace is always the last entry.
	if list := c.workspaces.Workspaces(); len(list) > 0 {
		fmt.Printf("Created workspace %s\n", list[len(list)-1].ID)
	}
	return nil
}

func (c *client) showWorkspace(ctx context.Context, id string) error {
	if _, err := c.requireUser(); err != nil {
		return err
	}
	w := c.workspaces.FetchWorkspace(ctx, id)
	if err := storeErr(c.workspaces.Err()); err != nil {
		return err
	}
	if w == nil {
		return fmt.Errorf("workspace %s not found", id)
	}
	c.workspaces.FetchMembers(ctx, id)
	c.boards.FetchBoards(ctx, id)
	if err := storeErr(c.workspaces.Err()); err != nil {
		return err
	}
	if err := storeErr(c.boards.Err()); err != nil {
		return err
	}

	fmt.Println(headingStyle.Render(w.Name))
	if w.Description != "" {
		fmt.Println(w.Description)
	}
	var members [][]string
	for _, m := range c.workspaces.Members() {
		members = append(members, []string{m.UID, m.DisplayName(), m.Email})
	}
	fmt.Println(render([]string{"UID", "NAME", "EMAIL"}, members))
	var boards [][]string
	for _, b := range c.boards.Boards() {
		boards = append(boards, []string{b.ID, b.Title})
	}
	fmt.Println(render([]string{"BOARD", "TITLE"}, boards))
	return nil
}

func (c *client) addMember(ctx context.Context, workspaceID, uid string) error {
	if _, err := c.requireUser(); err != nil {
		return err
	}
	c.workspaces.AddMember(ctx, workspaceID, uid)
	if err := storeErr(c.workspaces.Err()); err != nil {
		return err
	}
	fmt.Printf("Added %s to workspace %s\n", uid, workspaceID)
	return nil
}

func (c *client) listBoards(ctx context.Context, workspaceID string) error {
	if _, err := c.requireUser(); err != nil {
		return err
	}
	c.boards.FetchBoards(ctx, workspaceID)
	if err := storeErr(c.boards.Err()); err != nil {
		return err
	}
	var rows [][]string
	for _, b := range c.boards.Boards() {
		rows = append(rows, []string{b.ID, b.Title, b.CreatedAt.Local().Format("2006-01-02 15:04")})
	}
	if len(rows) == 0 {
		fmt.Println("No boards")
		return nil
	}
	fmt.Println(render([]string{"ID", "TITLE", "CREATED"}, rows))
	return nil
}

func (c *client) createBoard(ctx context.Context, workspaceID, title string) error {
	u, err := c.requireUser()
	if err != nil {
		return err
	}
	c.boards.CreateBoard(ctx, workspaceID, title, u.UID)
	if err := storeErr(c.boards.Err()); err != nil {
		return err
	}
	list := c.boards.Boards()
	fmt.Printf("Created board %s\n", list[len(list)-1].ID)
	return nil
}

func (c *client) listTasks(ctx context.Context, boardID string) error {
	if _, err := c.requireUser(); err != nil {
		return err
	}
	b, members, err := c.boardMembers(ctx, boardID)
	if err != nil {
		return err
	}
	c.tasks.FetchTasks(ctx, boardID)
	if err := storeErr(c.tasks.Err()); err != nil {
		return err
	}

	fmt.Println(headingStyle.Render(b.Title))
	for _, col := range boardview.Group(c.tasks.Tasks()) {
		rows := make([][]string, 0, len(col.Tasks))
		for _, t := range col.Tasks {
			card := boardview.NewCard(t, members)
			rows = append(rows, []string{card.ID, card.Title, card.Assignee, card.Due})
		}
		fmt.Printf("%s (%d)\n", col.Status, len(col.Tasks))
		fmt.Println(render([]string{"ID", "TITLE", "ASSIGNEE", "DUE"}, rows))
	}
	return nil
}

func boardviewDraft(title, description, status, assignee, due string) boardview.Draft {
	return boardview.Draft{
		Title:       title,
		Description: description,
		Status:      status,
		AssignedTo:  assignee,
		DueDate:     due,
	}
}

func (c *client) createTask(ctx context.Context, boardID string, d boardview.Draft) error {
	if _, err := c.requireUser(); err != nil {
		return err
	}
	_, members, err := c.boardMembers(ctx, boardID)
	if err != nil {
		return err
	}
	view := boardview.New(c.tasks, boardID, boardview.WithMembers(func() []identity.User { return members }))
	view.OpenCreate()
	if d.Status == "" {
		d.Status = view.Draft().Status
	}
	view.SetDraft(d)
	if err := view.Submit(ctx); err != nil {
		return describe(err)
	}
	list := c.tasks.Tasks()
	fmt.Printf("Created task %s\n", list[len(list)-1].ID)
	return nil
}

func (c *client) moveTask(ctx context.Context, boardID, taskID, target string) error {
	if _, err := c.requireUser(); err != nil {
		return err
	}
	status, err := task.ParseStatus(target)
	if err != nil {
		return describe(err)
	}
	c.tasks.FetchTasks(ctx, boardID)
	if err := storeErr(c.tasks.Err()); err != nil {
		return err
	}
	if _, ok := c.tasks.Task(taskID); !ok {
		return fmt.Errorf("task %s not found on board %s", taskID, boardID)
	}
	m := c.tasks.MoveTask(ctx, taskID, status)
	if !m.Applied() {
		fmt.Printf("Task %s is already in %s\n", taskID, status)
		return nil
	}
	if err := m.Wait(ctx); err != nil {
		return fmt.Errorf("move not saved: %s", cerr.Message(err))
	}
	fmt.Printf("Moved %s: %s → %s\n", taskID, m.From, m.To)
	return nil
}

func (c *client) activity(day string) error {
	d, err := time.ParseInLocation(time.DateOnly, day, time.Local)
	if err != nil {
		return fmt.Errorf("invalid day %q: expected YYYY-MM-DD", day)
	}
	events, err := c.journal.Read(d)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No activity")
		return nil
	}
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.CreatedAt.Local().Format(time.TimeOnly),
			string(e.Type),
			e.ResourceID,
			e.Payload,
		})
	}
	fmt.Println(render([]string{"TIME", "EVENT", "RESOURCE", "DETAIL"}, rows))
	return nil
}

// describe appends field violations to the error message.
func describe(err error) error {
	vs := cerr.Violations(err)
	if len(vs) == 0 {
		return err
	}
	lines := []string{cerr.Message(err)}
	for _, v := range vs {
		lines = append(lines, fmt.Sprintf("  %s: %s", v.GetRuleId(), v.GetMessage()))
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

func (c *client) runUI(ctx context.Context, boardID string) error {
	if _, err := c.requireUser(); err != nil {
		return err
	}
	b, members, err := c.boardMembers(ctx, boardID)
	if err != nil {
		return err
	}

	app := tui.New(ctx, c.tasks, boardID,
		tui.WithTitle(b.Title),
		tui.WithMembers(func() []identity.User { return members }),
	)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	// Signing out from another terminal closes the board.
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	unsubscribe := c.session.OnChange(func(u *identity.User) {
		if u == nil {
			p.Quit()
		}
	})
	defer unsubscribe()
	go func() {
		if err := c.session.Watch(watchCtx); err != nil {
			slog.Warn("session watch stopped", "error", err)
		}
	}()

	_, err = p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
