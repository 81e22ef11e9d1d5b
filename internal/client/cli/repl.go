package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context) error
	UpdateProfile(ctx context.Context) error
	ListChats(ctx context.Context) error
	NewChat(ctx context.Context, title string) error
	RenameChat(ctx context.Context, chatID int64, title string) error
	DeleteChat(ctx context.Context, chatID int64) error
	OpenChat(ctx context.Context, chatID int64) error
	Entities(ctx context.Context) error
	TaskLog(ctx context.Context, taskID string) error
	Archived(ctx context.Context, chatID int64) error
}

// runREPL starts the top-level read–eval–print loop.
//
// It reads a line, parses the first token as the command and dispatches to
// methods on 'a'. The loop exits on EOF or when the user types "exit" or
// "quit".
//
//	Not logged in:
//	  - help                 show available commands
//	  - register             create an account
//	  - login                authenticate
//	  - exit | quit          leave the program
//
//	Logged in:
//	  - (l)ist | chats       list chats
//	  - new <title>          create a chat
//	  - open <id>            enter a chat
//	  - rename <id> <title>  rename a chat
//	  - delete <id>          delete a chat
//	  - profile | passwd     show or change the account
//	  - entities             list detectable entity kinds
//	  - task <id>            show a redaction task log
//	  - archive <chat id>    list archived redacted images
//	  - logout
//
// Errors returned by handlers are ignored here; handlers report them to the
// user themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	say := func(args ...any) { fmt.Fprintln(w, args...) }

	for {
		fmt.Fprintf(w, "anonify %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if !a.isLoggedIn() {
			switch cmd {
			case "help":
				say("Available commands: register, login, exit")
			case "register":
				_ = a.Register(ctx)
			case "login":
				_ = a.Login(ctx)
			case "exit", "quit":
				say("Bye!")
				return
			default:
				say("Please log in first (login, register)")
			}
			continue
		}

		switch cmd {
		case "help":
			say("Available commands: (l)ist, new, open, rename, delete, profile, passwd, entities, task, archive, logout, exit")

		case "l", "list", "chats":
			_ = a.ListChats(ctx)

		case "new":
			_ = a.NewChat(ctx, strings.Join(args, " "))

		case "open":
			if id, ok := chatIDArg(w, args, "open <id>"); ok {
				_ = a.OpenChat(ctx, id)
			}

		case "rename":
			if id, ok := chatIDArg(w, args, "rename <id> <title>"); ok {
				_ = a.RenameChat(ctx, id, strings.Join(args[1:], " "))
			}

		case "delete":
			if id, ok := chatIDArg(w, args, "delete <id>"); ok {
				_ = a.DeleteChat(ctx, id)
			}

		case "profile":
			_ = a.Profile(ctx)

		case "passwd":
			_ = a.UpdateProfile(ctx)

		case "entities":
			_ = a.Entities(ctx)

		case "task":
			if len(args) == 0 {
				say("Usage: task <id>")
				continue
			}
			_ = a.TaskLog(ctx, args[0])

		case "archive":
			if id, ok := chatIDArg(w, args, "archive <chat id>"); ok {
				_ = a.Archived(ctx, id)
			}

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			say("Bye!")
			return

		default:
			say("Unknown command:", cmd)
		}
	}
}

func chatIDArg(w io.Writer, args []string, usage string) (int64, bool) {
	if len(args) == 0 {
		fmt.Fprintln(w, "Usage: "+usage)
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintln(w, "Invalid chat id:", args[0])
		return 0, false
	}
	return id, true
}

func (a *App) getStatus() string {
	s := a.userName
	if mode := a.currentMode(); mode != "" {
		if s != "" {
			s += " "
		}
		s += string(mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root greets the user, asks for credentials when there is no stored
// session and runs the REPL.
func (a *App) Root(ctx context.Context) {
	a.println("Welcome to Anonify CLI (type 'help' for commands)")
	if !a.isLoggedIn() {
		_ = a.Login(ctx)
	}
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}
