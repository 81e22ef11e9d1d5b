package workflow

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/anonify/internal/client/attachment"
	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/client/redaction"
	"github.com/dmitrijs2005/anonify/internal/client/timeline"
)

// ChatView is one open chat.
type ChatView struct {
	engine   *Engine
	chatID   int64
	timeline *timeline.Timeline
	runner   *redaction.Runner
	loadErr  error

	mu    sync.Mutex
	title string
}

func (v *ChatView) ChatID() int64 { return v.chatID }

func (v *ChatView) Title() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.title
}

func (v *ChatView) setTitle(t string) {
	if t == "" {
		return
	}
	v.mu.Lock()
	v.title = t
	v.mu.Unlock()
}

func (v *ChatView) Timeline() *timeline.Timeline { return v.timeline }

// LoadErr is the error of the initial message load, if it failed.
func (v *ChatView) LoadErr() error { return v.loadErr }

func (v *ChatView) State() redaction.State { return v.runner.State() }

// IsEmpty reports whether the chat has no messages yet.
func (v *ChatView) IsEmpty() bool { return v.timeline.IsEmpty() }

func (v *ChatView) SetText(text string) error { return v.runner.SetText(text) }

func (v *ChatView) StageAttachment(file models.Upload) (*attachment.Pending, error) {
	return v.runner.StageAttachment(file)
}

func (v *ChatView) RemoveAttachment() bool { return v.runner.RemoveAttachment() }

func (v *ChatView) HasAttachment() bool { return v.runner.HasAttachment() }

func (v *ChatView) SubmitTurn(ctx context.Context, text string) error {
	return v.runner.SubmitTurn(ctx, text)
}

func (v *ChatView) Rename(ctx context.Context, title string) (*models.Chat, error) {
	return v.engine.Rename(ctx, v.chatID, title)
}

func (v *ChatView) Delete(ctx context.Context) error {
	return v.engine.Delete(ctx, v.chatID)
}

// Close releases the staged attachment, drops scheduled replies and cancels
// in-flight requests. It is idempotent.
func (v *ChatView) Close() {
	v.closeRunner()
	v.engine.forget(v)
}

func (v *ChatView) closeRunner() { v.runner.Close() }
