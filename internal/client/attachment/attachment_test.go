package attachment

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPreviewer struct {
	mu         sync.Mutex
	acquired   int
	revoked    map[uuid.UUID]int
	acquireErr error
}

func newCountingPreviewer() *countingPreviewer {
	return &countingPreviewer{revoked: map[uuid.UUID]int{}}
}

func (c *countingPreviewer) Acquire(file models.Upload) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acquireErr != nil {
		return Handle{}, c.acquireErr
	}
	c.acquired++
	id := uuid.New()
	return Handle{ID: id, URI: "preview://" + id.String()}, nil
}

func (c *countingPreviewer) Revoke(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[h.ID]++
}

func (c *countingPreviewer) totalRevokes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.revoked {
		n += v
	}
	return n
}

var png = models.Upload{Name: "car.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n....")}

func TestSlot_StageStageRemove_RevokesEachHandleOnce(t *testing.T) {
	pv := newCountingPreviewer()
	s := NewSlot(pv)

	first, err := s.Stage(png)
	require.NoError(t, err)
	second, err := s.Stage(png)
	require.NoError(t, err)

	assert.Equal(t, 1, pv.revoked[first.Handle.ID])
	assert.Zero(t, pv.revoked[second.Handle.ID])

	assert.True(t, s.Remove())
	assert.False(t, s.Remove())

	assert.Equal(t, 2, pv.acquired)
	assert.Equal(t, 2, pv.totalRevokes())
	assert.Equal(t, 1, pv.revoked[second.Handle.ID])
	assert.False(t, s.Has())
}

func TestSlot_TakeTransfersOwnership(t *testing.T) {
	pv := newCountingPreviewer()
	s := NewSlot(pv)

	_, err := s.Stage(png)
	require.NoError(t, err)

	p := s.Take()
	require.NotNil(t, p)
	assert.Nil(t, s.Take())
	assert.False(t, s.Remove(), "slot no longer owns the attachment")
	assert.Zero(t, pv.totalRevokes())

	p.Release()
	p.Release()
	assert.Equal(t, 1, pv.totalRevokes())
}

func TestSlot_StageFailureKeepsPrevious(t *testing.T) {
	pv := newCountingPreviewer()
	s := NewSlot(pv)

	prev, err := s.Stage(png)
	require.NoError(t, err)

	pv.acquireErr = errors.New("no space")
	_, err = s.Stage(png)
	require.Error(t, err)
	assert.Same(t, prev, s.Peek())
	assert.Zero(t, pv.totalRevokes())
}

func TestNewPending_RejectsEmptyFile(t *testing.T) {
	_, err := NewPending(newCountingPreviewer(), models.Upload{Name: "x.png"})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestPending_ReleaseNil(t *testing.T) {
	var p *Pending
	assert.NotPanics(t, p.Release)
}

func TestTempFilePreviewer_AcquireRevoke(t *testing.T) {
	pv := NewTempFilePreviewer(t.TempDir())

	h, err := pv.Acquire(png)
	require.NoError(t, err)

	u, err := url.Parse(h.URI)
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.Equal(t, ".png", filepath.Ext(u.Path))

	data, err := os.ReadFile(filepath.FromSlash(u.Path))
	require.NoError(t, err)
	assert.Equal(t, png.Data, data)
	assert.Equal(t, 1, pv.Outstanding())

	pv.Revoke(h)
	pv.Revoke(h)
	_, err = os.Stat(filepath.FromSlash(u.Path))
	assert.True(t, os.IsNotExist(err))
	assert.Zero(t, pv.Outstanding())
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plate.png")
	require.NoError(t, os.WriteFile(path, png.Data, 0o600))

	f, err := FromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "plate.png", f.Name)
	assert.Equal(t, "image/png", f.ContentType)
	assert.Equal(t, png.Data, f.Data)

	_, err = FromPath(dir)
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = FromPath(filepath.Join(dir, "missing.png"))
	require.Error(t, err)
}
