package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/binrec/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Archive(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "nested", "backup")

	path := filepath.Join(src, "run.bin.jz1")
	require.NoError(t, os.WriteFile(path, []byte("segment"), 0o644))

	l := NewLocal(dst)
	require.NoError(t, l.Archive(context.Background(), path))

	data, err := os.ReadFile(filepath.Join(dst, "run.bin.jz1"))
	require.NoError(t, err)
	assert.Equal(t, "segment", string(data))
	assert.Equal(t, dst, l.Dir())

	// The source is left alone.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLocal_Errors(t *testing.T) {
	t.Run("MissingSource", func(t *testing.T) {
		l := NewLocal(t.TempDir())
		err := l.Archive(context.Background(), filepath.Join(t.TempDir(), "missing.gz"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		l := NewLocal(t.TempDir())
		assert.ErrorIs(t, l.Archive(ctx, "x.gz"), context.Canceled)
	})

	t.Run("PartialCopyRemoved", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "run.bin.gz")
		require.NoError(t, os.WriteFile(src, make([]byte, 4096), 0o644))

		dir := t.TempDir()
		faulty := fs.NewFaultyFS(fs.LocalFS{})
		faulty.AddRule(filepath.Join(dir, "run.bin.gz"), fs.Fault{FailAfterBytes: 100})

		l := &Local{dir: dir, fsys: faulty}
		err := l.Archive(context.Background(), src)
		assert.ErrorIs(t, err, fs.ErrInjected)

		_, err = os.Stat(filepath.Join(dir, "run.bin.gz"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
