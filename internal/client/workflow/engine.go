// Package workflow binds a chat's timeline, redaction runner and directory
// entry into a ChatView, and owns the set of open views.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/anonify/internal/client/attachment"
	"github.com/dmitrijs2005/anonify/internal/client/directory"
	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/client/redaction"
	"github.com/dmitrijs2005/anonify/internal/client/timeline"
	"github.com/dmitrijs2005/anonify/internal/common"
	"github.com/dmitrijs2005/anonify/internal/logging"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Backend is everything a chat view needs from the API client.
type Backend interface {
	directory.Backend
	redaction.Backend
	timeline.Loader
}

type Engine struct {
	backend   Backend
	dir       *directory.Directory
	clock     clockwork.Clock
	log       logging.Logger
	cfg       redaction.Config
	previewer attachment.Previewer
	onResult  redaction.ResultHook

	mu    sync.Mutex
	views map[int64]*ChatView
}

type Option func(*Engine)

func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithRunnerConfig(cfg redaction.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

func WithPreviewer(p attachment.Previewer) Option {
	return func(e *Engine) { e.previewer = p }
}

func WithResultHook(h redaction.ResultHook) Option {
	return func(e *Engine) { e.onResult = h }
}

func NewEngine(backend Backend, dir *directory.Directory, opts ...Option) *Engine {
	e := &Engine{
		backend: backend,
		dir:     dir,
		clock:   clockwork.NewRealClock(),
		log:     logging.Nop(),
		cfg:     redaction.Config{ReplyDelay: redaction.DefaultReplyDelay},
		views:   make(map[int64]*ChatView),
	}
	for _, o := range opts {
		o(e)
	}
	if e.previewer == nil {
		e.previewer = attachment.NewTempFilePreviewer("")
	}
	return e
}

// Open loads a chat's title and messages concurrently and returns a view
// bound to it. The two loads are independent: a failed title falls back to
// "Chat #<id>", a failed message load leaves an empty timeline with LoadErr
// set. A chat that no longer exists yields common.ErrNotFound, and an
// authentication failure is returned as is.
func (e *Engine) Open(ctx context.Context, chatID int64) (*ChatView, error) {
	tl := timeline.New(chatID, e.backend)

	var (
		chat     *models.Chat
		titleErr error
		loadErr  error
		g        errgroup.Group
	)
	g.Go(func() error {
		chat, titleErr = e.dir.Get(ctx, chatID)
		return nil
	})
	g.Go(func() error {
		_, loadErr = tl.Load(ctx)
		return nil
	})
	_ = g.Wait()

	for _, err := range []error{titleErr, loadErr} {
		if errors.Is(err, common.ErrUnauthorized) {
			return nil, fmt.Errorf("open chat %d: %w", chatID, err)
		}
	}
	if errors.Is(loadErr, common.ErrNotFound) {
		return nil, fmt.Errorf("open chat %d: %w", chatID, common.ErrNotFound)
	}

	title := fmt.Sprintf("Chat #%d", chatID)
	if titleErr != nil {
		e.log.Warn(ctx, "chat title unavailable", "chat_id", chatID, "error", titleErr)
	} else if chat.Title != "" {
		title = chat.Title
	}
	if loadErr != nil {
		e.log.Warn(ctx, "chat messages unavailable", "chat_id", chatID, "error", loadErr)
	}

	runner := redaction.NewRunner(chatID, e.backend, tl,
		redaction.WithClock(e.clock),
		redaction.WithLogger(e.log),
		redaction.WithConfig(e.cfg),
		redaction.WithPreviewer(e.previewer),
		redaction.WithResultHook(e.onResult),
	)
	v := &ChatView{engine: e, chatID: chatID, title: title, timeline: tl, runner: runner, loadErr: loadErr}

	e.mu.Lock()
	prev := e.views[chatID]
	e.views[chatID] = v
	e.mu.Unlock()
	if prev != nil {
		prev.closeRunner()
	}

	e.log.Debug(ctx, "chat opened", "chat_id", chatID, "messages", tl.Len())
	return v, nil
}

// View returns the open view of a chat.
func (e *Engine) View(chatID int64) (*ChatView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.views[chatID]
	return v, ok
}

// Rename renames a chat through the directory and updates its open view.
func (e *Engine) Rename(ctx context.Context, chatID int64, title string) (*models.Chat, error) {
	chat, err := e.dir.Rename(ctx, chatID, title)
	if err != nil {
		return nil, err
	}
	if v, ok := e.View(chatID); ok {
		if chat.Title != "" {
			v.setTitle(chat.Title)
		} else {
			v.setTitle(strings.TrimSpace(title))
		}
	}
	return chat, nil
}

// Delete deletes a chat through the directory and closes its open view.
func (e *Engine) Delete(ctx context.Context, chatID int64) error {
	if err := e.dir.Delete(ctx, chatID); err != nil {
		return err
	}
	if v, ok := e.View(chatID); ok {
		v.Close()
	}
	return nil
}

// Close closes every open view.
func (e *Engine) Close() {
	e.mu.Lock()
	views := make([]*ChatView, 0, len(e.views))
	for _, v := range e.views {
		views = append(views, v)
	}
	e.views = make(map[int64]*ChatView)
	e.mu.Unlock()

	for _, v := range views {
		v.closeRunner()
	}
}

func (e *Engine) forget(v *ChatView) {
	e.mu.Lock()
	if e.views[v.chatID] == v {
		delete(e.views, v.chatID)
	}
	e.mu.Unlock()
}
