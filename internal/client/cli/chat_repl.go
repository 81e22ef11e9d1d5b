package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/anonify/internal/client/attachment"
	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/client/redaction"
	"github.com/dmitrijs2005/anonify/internal/common"
)

// loadAttachment is a test seam for attachment.FromPath.
var loadAttachment = attachment.FromPath

// chatSession is the part of workflow.ChatView the chat REPL drives.
type chatSession interface {
	Title() string
	State() redaction.State
	StageAttachment(file models.Upload) (*attachment.Pending, error)
	RemoveAttachment() bool
	HasAttachment() bool
	SubmitTurn(ctx context.Context, text string) error
	Rename(ctx context.Context, title string) (*models.Chat, error)
	Delete(ctx context.Context) error
}

const chatHelp = `Type a message and press Enter to send it.
  /attach <path>   stage an image; the next Enter sends it for redaction
  /detach          drop the staged image
  /rename <title>  rename this chat
  /delete          delete this chat and leave
  /quit            leave the chat`

// runChatREPL reads lines and turns them into chat actions. It returns on
// EOF, /quit, after /delete, or once ended reports that the session is over.
func runChatREPL(ctx context.Context, s chatSession, w io.Writer, reader *bufio.Reader, ended func() bool) {
	say := func(format string, args ...any) { fmt.Fprintf(w, format+"\n", args...) }

	for !ended() {
		prompt := s.Title()
		if s.HasAttachment() {
			prompt += " +image"
		}
		fmt.Fprintf(w, "%s> ", prompt)

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		line = strings.TrimSpace(line)

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "/help":
			say(chatHelp)

		case "/attach":
			if arg == "" {
				say("Usage: /attach <path>")
				continue
			}
			file, err := loadAttachment(arg)
			if err != nil {
				say("Cannot attach %s: %s", arg, err)
				continue
			}
			p, err := s.StageAttachment(file)
			if err != nil {
				say("Cannot attach %s: %s", arg, describe(err))
				continue
			}
			say("Attached %s (preview: %s). Press Enter to send.", file.Name, p.PreviewURI())

		case "/detach":
			if s.RemoveAttachment() {
				say("Attachment removed")
			} else {
				say("Nothing attached")
			}

		case "/rename":
			if _, err := s.Rename(ctx, arg); err != nil {
				say("Cannot rename: %s", describe(err))
			}

		case "/delete":
			if err := s.Delete(ctx); err != nil {
				say("Cannot delete: %s", describe(err))
				continue
			}
			say("Chat deleted")
			return

		case "/quit", "/exit", "/back":
			return

		default:
			if strings.HasPrefix(cmd, "/") {
				say("Unknown command: %s (try /help)", cmd)
				continue
			}
			if line == "" && !s.HasAttachment() {
				continue
			}
			submit(ctx, s, line, say)
		}
	}
}

func submit(ctx context.Context, s chatSession, text string, say func(string, ...any)) {
	err := s.SubmitTurn(ctx, text)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrUnauthorized):
		// the session listener has already told the user
	case errors.Is(err, redaction.ErrBusy):
		say("Still working on the previous message")
	case errors.Is(err, redaction.ErrEmptyTurn):
		// nothing to send
	default:
		say("Not sent: %s", describe(err))
	}
}
