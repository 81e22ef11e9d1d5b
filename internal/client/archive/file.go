package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/anonify/internal/filex"
)

// FileArchive writes objects below a root directory.
type FileArchive struct {
	root string
}

// NewFileArchive creates dir if needed. A relative dir is resolved against
// the working directory.
func NewFileArchive(dir string) (*FileArchive, error) {
	var (
		root string
		err  error
	)
	if filepath.IsAbs(dir) {
		root = dir
		err = os.MkdirAll(root, 0o770)
	} else {
		root, err = filex.EnsureSubdDir(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("archive dir: %w", err)
	}
	return &FileArchive{root: root}, nil
}

func (a *FileArchive) Root() string { return a.root }

func (a *FileArchive) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(a.root, filepath.FromSlash(key))
	if err := filex.WriteFileAtomic(path, data, 0o640); err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}
	return path, nil
}
