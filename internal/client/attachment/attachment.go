// Package attachment manages the file staged in a chat's composer and the
// lifetime of its preview handle.
//
// A Previewer hands out Handles; every Handle is revoked exactly once, by
// whoever owns the Pending attachment at the time: the Slot while the file
// is staged, the redaction runner once the turn is submitted.
package attachment

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/common"
)

// MaxFileSize bounds files accepted by FromPath.
const MaxFileSize = 20 << 20

// FromPath reads a file from disk and sniffs its content type.
func FromPath(path string) (models.Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Upload{}, fmt.Errorf("read attachment: %w", err)
	}
	if info.IsDir() {
		return models.Upload{}, fmt.Errorf("read attachment %s: is a directory: %w", path, common.ErrValidation)
	}
	if info.Size() > MaxFileSize {
		return models.Upload{}, fmt.Errorf("read attachment %s: %d bytes exceeds limit: %w", path, info.Size(), common.ErrValidation)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Upload{}, fmt.Errorf("read attachment: %w", err)
	}
	return models.Upload{
		Name:        filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

// Pending is a staged file together with its preview handle.
type Pending struct {
	File   models.Upload
	Handle Handle

	previewer Previewer
	once      sync.Once
}

// NewPending acquires a preview handle for file.
func NewPending(p Previewer, file models.Upload) (*Pending, error) {
	if len(file.Data) == 0 {
		return nil, fmt.Errorf("stage %q: empty file: %w", file.Name, common.ErrValidation)
	}
	h, err := p.Acquire(file)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", file.Name, err)
	}
	return &Pending{File: file, Handle: h, previewer: p}, nil
}

// PreviewURI is the URI the optimistic user message shows.
func (p *Pending) PreviewURI() string { return p.Handle.URI }

// Release revokes the preview handle. Only the first call has an effect.
func (p *Pending) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.previewer.Revoke(p.Handle)
	})
}
