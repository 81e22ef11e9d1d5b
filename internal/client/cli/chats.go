package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/anonify/internal/common"
)

const timeLayout = "2006-01-02 15:04"

// ListChats prints the user's chats, newest first.
func (a *App) ListChats(ctx context.Context) error {
	chats, err := a.dir.List(ctx)
	if err != nil {
		a.printf("Cannot list chats: %s\n", describe(err))
		return err
	}
	if len(chats) == 0 {
		a.println("No chats yet. Create one with: new <title>")
		return nil
	}
	for _, c := range chats {
		a.printf("%6d  %-40s  %s\n", c.ID, c.Title, c.CreatedAt.Local().Format(timeLayout))
	}
	return nil
}

func (a *App) NewChat(ctx context.Context, title string) error {
	chat, err := a.dir.Create(ctx, title)
	if err != nil {
		a.printf("Cannot create chat: %s\n", describe(err))
		return err
	}
	a.printf("Created chat %d: %s\n", chat.ID, chat.Title)
	return nil
}

// RenameChat renames a chat. An open view of the chat picks up the new title.
func (a *App) RenameChat(ctx context.Context, chatID int64, title string) error {
	chat, err := a.engine.Rename(ctx, chatID, title)
	if err != nil {
		a.printf("Cannot rename chat %d: %s\n", chatID, describe(err))
		return err
	}
	a.printf("Chat %d renamed to %s\n", chat.ID, chat.Title)
	return nil
}

func (a *App) DeleteChat(ctx context.Context, chatID int64) error {
	if err := a.engine.Delete(ctx, chatID); err != nil {
		a.printf("Cannot delete chat %d: %s\n", chatID, describe(err))
		return err
	}
	a.printf("Chat %d deleted\n", chatID)
	return nil
}

// Entities prints the entity kinds the backend can detect.
func (a *App) Entities(ctx context.Context) error {
	entities, err := a.api.Entities(ctx)
	if err != nil {
		a.printf("Cannot list entities: %s\n", describe(err))
		return err
	}
	a.println(strings.Join(entities, ", "))
	return nil
}

// TaskLog prints the processing log of a redaction task.
func (a *App) TaskLog(ctx context.Context, taskID string) error {
	log, err := a.api.TaskLog(ctx, taskID)
	if err != nil {
		a.printf("Cannot fetch task %s: %s\n", taskID, describe(err))
		return err
	}
	a.printf("status: %s\n", log.Status)
	if log.Details != "" {
		a.printf("details: %s\n", log.Details)
	}
	return nil
}

// Archived lists the redacted images archived locally for a chat.
func (a *App) Archived(ctx context.Context, chatID int64) error {
	list, err := a.results.ListByChat(ctx, chatID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.printf("Nothing archived for chat %d\n", chatID)
		return nil
	}
	for _, r := range list {
		a.printf("%s  %s  %d region(s)  %s\n",
			r.CreatedAt.Local().Format(timeLayout), r.TaskID, r.DetectionsCount, r.Location)
	}
	return nil
}

// OpenChat loads a chat and runs the chat REPL until the user leaves it, the
// chat is deleted or the session ends.
func (a *App) OpenChat(ctx context.Context, chatID int64) error {
	view, err := a.engine.Open(ctx, chatID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			a.printf("Chat %d does not exist\n", chatID)
		} else {
			a.printf("Cannot open chat %d: %s\n", chatID, describe(err))
		}
		return err
	}
	defer view.Close()

	if view.LoadErr() != nil {
		a.printf("Could not load earlier messages: %s\n", describe(view.LoadErr()))
	}

	printer := newMessagePrinter(a.out)
	unsubscribe := view.Timeline().Subscribe(printer.onEvent)
	defer unsubscribe()

	a.printf("== %s ==\n", view.Title())
	for _, m := range view.Timeline().Messages() {
		printer.print(m)
	}
	if view.IsEmpty() {
		a.println("Send a message, or /attach <image> to redact a picture. /help lists commands.")
	}

	runChatREPL(ctx, view, a.out, a.reader, a.sessionEnded.Load)
	if a.sessionEnded.Load() {
		view.Close()
		return a.Login(ctx)
	}
	return nil
}
