// Package session owns the authenticated-session lifecycle: the credential
// Store, and the Guard transport that attaches the credential to outbound
// requests and resets the session on authentication failure.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/anonify/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/anonify/internal/common"
)

// Reason tells OnCleared subscribers why the credential was destroyed.
type Reason string

const (
	ReasonLogout       Reason = "logout"
	ReasonUnauthorized Reason = "unauthorized"
	ReasonExpired      Reason = "expired"
)

// Store holds the session credential. It is the only writer of the
// access_token slot; when repo is nil the credential lives in memory only.
type Store struct {
	mu        sync.Mutex
	repo      metadata.Repository
	token     string
	nextID    int
	listeners map[int]func(Reason)
}

// NewStore returns a Store backed by repo, loading any persisted credential.
func NewStore(ctx context.Context, repo metadata.Repository) (*Store, error) {
	s := &Store{repo: repo, listeners: make(map[int]func(Reason))}
	if repo == nil {
		return s, nil
	}
	tok, ok, err := repo.Get(ctx, common.AccessTokenSlot)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if ok {
		s.token = tok
	}
	return s, nil
}

// NewMemoryStore returns a Store that does not persist the credential.
func NewMemoryStore(token string) *Store {
	return &Store{token: token, listeners: make(map[int]func(Reason))}
}

// Token returns the current credential or "" when signed out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Set replaces the credential.
func (s *Store) Set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("set session: empty token: %w", common.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Set(ctx, common.AccessTokenSlot, token); err != nil {
			return fmt.Errorf("set session: %w", err)
		}
	}
	s.token = token
	return nil
}

// Clear destroys the credential unconditionally. It reports whether a
// credential was present.
func (s *Store) Clear(ctx context.Context, reason Reason) (bool, error) {
	return s.clear(ctx, reason, func(string) bool { return true })
}

// ClearIf destroys the credential only if it still equals token. Concurrent
// callers racing on the same token produce exactly one clear, and a stale
// token never wipes a newer one.
func (s *Store) ClearIf(ctx context.Context, token string, reason Reason) (bool, error) {
	return s.clear(ctx, reason, func(cur string) bool { return cur == token })
}

func (s *Store) clear(ctx context.Context, reason Reason, match func(string) bool) (bool, error) {
	s.mu.Lock()
	if s.token == "" || !match(s.token) {
		s.mu.Unlock()
		return false, nil
	}
	s.token = ""

	var err error
	if s.repo != nil {
		if derr := s.repo.Delete(ctx, common.AccessTokenSlot); derr != nil {
			err = fmt.Errorf("clear session: %w", derr)
		}
	}

	fns := make([]func(Reason), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(reason)
	}
	return true, err
}

// OnCleared registers fn to run after every actual clear. The returned
// function unsubscribes it.
func (s *Store) OnCleared(fn func(Reason)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
