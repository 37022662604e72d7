package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
)

var (
	app = kingpin.New("collabspace", "Workspaces, boards and tasks from the terminal")

	registerCmd      = app.Command("register", "Create an account and sign in")
	registerEmail    = registerCmd.Arg("email", "Email address").Required().String()
	registerName     = registerCmd.Flag("name", "Display name").String()
	registerPassword = registerCmd.Flag("password", "Password").Envar("COLLABSPACE_PASSWORD").Required().String()

	loginCmd      = app.Command("login", "Sign in")
	loginEmail    = loginCmd.Arg("email", "Email address").Required().String()
	loginPassword = loginCmd.Flag("password", "Password").Envar("COLLABSPACE_PASSWORD").Required().String()

	logoutCmd = app.Command("logout", "Sign out and forget the stored session")
	whoamiCmd = app.Command("whoami", "Show the signed-in user")

	workspaceCmd = app.Command("workspace", "Workspace commands").Alias("ws")

	workspaceListCmd     = workspaceCmd.Command("list", "List workspaces you are a member of")
	workspaceListRefresh = workspaceListCmd.Flag("refresh", "Ignore the local cache").Bool()

	workspaceCreateCmd  = workspaceCmd.Command("create", "Create a workspace")
	workspaceCreateName = workspaceCreateCmd.Arg("name", "Workspace name").Required().String()
	workspaceCreateDesc = workspaceCreateCmd.Flag("description", "Workspace description").String()

	workspaceShowCmd = workspaceCmd.Command("show", "Show a workspace with its members and boards")
	workspaceShowID  = workspaceShowCmd.Arg("id", "Workspace ID").Required().String()

	workspaceAddMemberCmd = workspaceCmd.Command("add-member", "Add a user to a workspace")
	workspaceAddMemberID  = workspaceAddMemberCmd.Arg("id", "Workspace ID").Required().String()
	workspaceAddMemberUID = workspaceAddMemberCmd.Arg("uid", "User ID").Required().String()

	boardCmd = app.Command("board", "Board commands")

	boardListCmd = boardCmd.Command("list", "List boards of a workspace")
	boardListWS  = boardListCmd.Arg("workspace", "Workspace ID").Required().String()

	boardCreateCmd   = boardCmd.Command("create", "Create a board")
	boardCreateWS    = boardCreateCmd.Arg("workspace", "Workspace ID").Required().String()
	boardCreateTitle = boardCreateCmd.Arg("title", "Board title").Required().String()

	taskCmd = app.Command("task", "Task commands")

	taskListCmd   = taskCmd.Command("list", "List tasks of a board by column")
	taskListBoard = taskListCmd.Arg("board", "Board ID").Required().String()

	taskCreateCmd      = taskCmd.Command("create", "Create a task")
	taskCreateBoard    = taskCreateCmd.Arg("board", "Board ID").Required().String()
	taskCreateTitle    = taskCreateCmd.Arg("title", "Task title").Required().String()
	taskCreateDesc     = taskCreateCmd.Flag("description", "Task description").String()
	taskCreateStatus   = taskCreateCmd.Flag("status", "Initial status (todo, in-progress, done)").String()
	taskCreateAssignee = taskCreateCmd.Flag("assignee", "Assignee user ID").String()
	taskCreateDue      = taskCreateCmd.Flag("due", "Due date (YYYY-MM-DD)").String()

	taskMoveCmd    = taskCmd.Command("move", "Move a task to another column")
	taskMoveBoard  = taskMoveCmd.Arg("board", "Board ID").Required().String()
	taskMoveID     = taskMoveCmd.Arg("id", "Task ID").Required().String()
	taskMoveStatus = taskMoveCmd.Arg("status", "Target status (todo, in-progress, done)").Required().String()

	activityCmd = app.Command("activity", "Show changes made from this machine")
	activityDay = activityCmd.Flag("day", "Day to show (YYYY-MM-DD)").Default(time.Now().Format(time.DateOnly)).String()

	uiCmd   = app.Command("ui", "Open a board in the terminal UI")
	uiBoard = uiCmd.Arg("board", "Board ID").Required().String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := newClient(ctx, command == uiCmd.FullCommand())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	if err := run(ctx, c, command); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		c.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client, command string) error {
	switch command {
	case registerCmd.FullCommand():
		return c.register(ctx, *registerEmail, *registerPassword, *registerName)
	case loginCmd.FullCommand():
		return c.login(ctx, *loginEmail, *loginPassword)
	case logoutCmd.FullCommand():
		return c.logout(ctx)
	case whoamiCmd.FullCommand():
		return c.whoami(ctx)
	case workspaceListCmd.FullCommand():
		return c.listWorkspaces(ctx, *workspaceListRefresh)
	case workspaceCreateCmd.FullCommand():
		return c.createWorkspace(ctx, *workspaceCreateName, *workspaceCreateDesc)
	case workspaceShowCmd.FullCommand():
		return c.showWorkspace(ctx, *workspaceShowID)
	case workspaceAddMemberCmd.FullCommand():
		return c.addMember(ctx, *workspaceAddMemberID, *workspaceAddMemberUID)
	case boardListCmd.FullCommand():
		return c.listBoards(ctx, *boardListWS)
	case boardCreateCmd.FullCommand():
		return c.createBoard(ctx, *boardCreateWS, *boardCreateTitle)
	case taskListCmd.FullCommand():
		return c.listTasks(ctx, *taskListBoard)
	case taskCreateCmd.FullCommand():
		return c.createTask(ctx, *taskCreateBoard, boardviewDraft(*taskCreateTitle, *taskCreateDesc, *taskCreateStatus, *taskCreateAssignee, *taskCreateDue))
	case taskMoveCmd.FullCommand():
		return c.moveTask(ctx, *taskMoveBoard, *taskMoveID, *taskMoveStatus)
	case activityCmd.FullCommand():
		return c.activity(*activityDay)
	case uiCmd.FullCommand():
		return c.runUI(ctx, *uiBoard)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
