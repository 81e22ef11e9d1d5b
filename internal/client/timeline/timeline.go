// Package timeline keeps the ordered, append-only list of messages shown for
// one chat and notifies subscribers synchronously on every change.
package timeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/anonify/internal/client/models"
)

// Loader fetches a chat's persisted messages. api.Client satisfies it.
type Loader interface {
	ListMessages(ctx context.Context, chatID int64) ([]models.Message, error)
}

// Event describes a timeline change. Reset is true after Load replaced the
// whole list; otherwise Message is the appended tail.
type Event struct {
	Reset   bool
	Message models.Message
}

type Timeline struct {
	chatID int64
	loader Loader

	mu        sync.Mutex
	messages  []models.Message
	nextID    int
	listeners map[int]func(Event)
}

func New(chatID int64, loader Loader) *Timeline {
	return &Timeline{chatID: chatID, loader: loader, listeners: make(map[int]func(Event))}
}

func (t *Timeline) ChatID() int64 { return t.chatID }

// Load replaces the contents with the server's messages, in server order.
// On error the contents are left untouched. Errors keep the sentinel from
// the loader (common.ErrNotFound, common.ErrUnavailable, ...).
func (t *Timeline) Load(ctx context.Context) ([]models.Message, error) {
	msgs, err := t.loader.ListMessages(ctx, t.chatID)
	if err != nil {
		return nil, fmt.Errorf("load messages for chat %d: %w", t.chatID, err)
	}

	t.mu.Lock()
	t.messages = append([]models.Message(nil), msgs...)
	fns := t.snapshotLocked()
	t.mu.Unlock()

	for _, fn := range fns {
		fn(Event{Reset: true})
	}
	return t.Messages(), nil
}

// Append adds msg at the tail. Subscribers have run when Append returns.
func (t *Timeline) Append(msg models.Message) {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	fns := t.snapshotLocked()
	t.mu.Unlock()

	for _, fn := range fns {
		fn(Event{Message: msg})
	}
}

// Messages returns a copy of the current list.
func (t *Timeline) Messages() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Message(nil), t.messages...)
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

func (t *Timeline) IsEmpty() bool { return t.Len() == 0 }

// Subscribe registers fn for change events and returns its unsubscribe func.
func (t *Timeline) Subscribe(fn func(Event)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// snapshotLocked returns the listeners in subscription order.
func (t *Timeline) snapshotLocked() []func(Event) {
	fns := make([]func(Event), 0, len(t.listeners))
	for id := 0; id < t.nextID; id++ {
		if fn, ok := t.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}
