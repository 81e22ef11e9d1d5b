package attachment

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/google/uuid"
)

// Handle identifies an acquired preview.
type Handle struct {
	ID  uuid.UUID
	URI string
}

// Previewer turns a file into something the timeline can reference and
// frees it again on Revoke.
type Previewer interface {
	Acquire(file models.Upload) (Handle, error)
	Revoke(h Handle)
}

// TempFilePreviewer writes each preview to a file under Dir and hands out
// its file:// URI. Revoke deletes the file.
type TempFilePreviewer struct {
	Dir string

	mu    sync.Mutex
	paths map[uuid.UUID]string
}

func NewTempFilePreviewer(dir string) *TempFilePreviewer {
	if dir == "" {
		dir = os.TempDir()
	}
	return &TempFilePreviewer{Dir: dir, paths: make(map[uuid.UUID]string)}
}

func (p *TempFilePreviewer) Acquire(file models.Upload) (Handle, error) {
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return Handle{}, fmt.Errorf("preview dir: %w", err)
	}
	id := uuid.New()
	path := filepath.Join(p.Dir, "preview-"+id.String()+safeExt(file.Name))
	if err := os.WriteFile(path, file.Data, 0o600); err != nil {
		return Handle{}, fmt.Errorf("write preview: %w", err)
	}

	p.mu.Lock()
	p.paths[id] = path
	p.mu.Unlock()

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return Handle{ID: id, URI: u.String()}, nil
}

func (p *TempFilePreviewer) Revoke(h Handle) {
	p.mu.Lock()
	path, ok := p.paths[h.ID]
	delete(p.paths, h.ID)
	p.mu.Unlock()

	if ok {
		_ = os.Remove(path)
	}
}

// Outstanding reports how many previews have not been revoked.
func (p *TempFilePreviewer) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.paths)
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return ext
}
