package attachment

import (
	"sync"

	"github.com/dmitrijs2005/anonify/internal/client/models"
)

// Slot holds at most one Pending attachment for a composer.
type Slot struct {
	previewer Previewer

	mu      sync.Mutex
	pending *Pending
}

func NewSlot(p Previewer) *Slot {
	return &Slot{previewer: p}
}

// Stage replaces the staged attachment with file. The previous one, if
// any, is released.
func (s *Slot) Stage(file models.Upload) (*Pending, error) {
	p, err := NewPending(s.previewer, file)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.pending
	s.pending = p
	s.mu.Unlock()

	prev.Release()
	return p, nil
}

// Remove releases and drops the staged attachment. It reports whether
// anything was staged.
func (s *Slot) Remove() bool {
	s.mu.Lock()
	prev := s.pending
	s.pending = nil
	s.mu.Unlock()

	prev.Release()
	return prev != nil
}

// Take transfers ownership of the staged attachment to the caller, who must
// Release it. It returns nil when nothing is staged.
func (s *Slot) Take() *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pending
	s.pending = nil
	return p
}

// Peek returns the staged attachment without transferring ownership.
func (s *Slot) Peek() *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Slot) Has() bool {
	return s.Peek() != nil
}
