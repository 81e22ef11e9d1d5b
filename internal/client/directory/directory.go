// Package directory lists and edits the user's chats and keeps a local copy
// of the last listing.
package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/common"
)

// Backend is the part of api.Client the directory calls.
type Backend interface {
	ListChats(ctx context.Context) ([]models.Chat, error)
	GetChat(ctx context.Context, chatID int64) (*models.Chat, error)
	CreateChat(ctx context.Context, chat models.NewChat) (*models.Chat, error)
	RenameChat(ctx context.Context, chatID int64, title string) (*models.Chat, error)
	DeleteChat(ctx context.Context, chatID int64) error
}

type Directory struct {
	backend Backend

	mu    sync.Mutex
	cache []models.Chat
}

func New(backend Backend) *Directory {
	return &Directory{backend: backend}
}

// List fetches the chats (newest first, as the server orders them) and
// replaces the cache.
func (d *Directory) List(ctx context.Context) ([]models.Chat, error) {
	chats, err := d.backend.ListChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	d.mu.Lock()
	d.cache = append([]models.Chat(nil), chats...)
	d.mu.Unlock()
	return chats, nil
}

func (d *Directory) Get(ctx context.Context, chatID int64) (*models.Chat, error) {
	chat, err := d.backend.GetChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get chat %d: %w", chatID, err)
	}
	return chat, nil
}

// Create creates a chat and puts it at the head of the cache.
func (d *Directory) Create(ctx context.Context, title string) (*models.Chat, error) {
	chat, err := d.backend.CreateChat(ctx, models.NewChat{Title: strings.TrimSpace(title)})
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	d.mu.Lock()
	d.cache = append([]models.Chat{*chat}, d.cache...)
	d.mu.Unlock()
	return chat, nil
}

// Rename sets the title of a chat. A blank title is rejected before any
// network call. Only the matching cache entry changes.
func (d *Directory) Rename(ctx context.Context, chatID int64, title string) (*models.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("rename chat %d: empty title: %w", chatID, common.ErrValidation)
	}

	chat, err := d.backend.RenameChat(ctx, chatID, title)
	if err != nil {
		return nil, fmt.Errorf("rename chat %d: %w", chatID, err)
	}

	newTitle := chat.Title
	if newTitle == "" {
		newTitle = title
	}
	d.mu.Lock()
	for i := range d.cache {
		if d.cache[i].ID == chatID {
			d.cache[i].Title = newTitle
		}
	}
	d.mu.Unlock()
	return chat, nil
}

// Delete deletes a chat and drops it from the cache.
func (d *Directory) Delete(ctx context.Context, chatID int64) error {
	if err := d.backend.DeleteChat(ctx, chatID); err != nil {
		return fmt.Errorf("delete chat %d: %w", chatID, err)
	}

	d.mu.Lock()
	kept := d.cache[:0]
	for _, c := range d.cache {
		if c.ID != chatID {
			kept = append(kept, c)
		}
	}
	d.cache = kept
	d.mu.Unlock()
	return nil
}

// Cached returns a copy of the last known listing.
func (d *Directory) Cached() []models.Chat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Chat(nil), d.cache...)
}

// CachedTitle returns the cached title of a chat.
func (d *Directory) CachedTitle(chatID int64) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.cache {
		if c.ID == chatID {
			return c.Title, true
		}
	}
	return "", false
}
