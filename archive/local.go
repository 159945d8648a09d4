package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/binrec/internal/fs"
)

// Local copies segments into a directory.
type Local struct {
	dir  string
	fsys fs.FileSystem
}

// NewLocal creates an archiver rooted at dir. The directory is created on
// first use.
func NewLocal(dir string) *Local {
	return &Local{dir: dir, fsys: fs.LocalFS{}}
}

// Dir returns the target directory.
func (l *Local) Dir() string { return l.dir }

// Archive copies the segment at path into the target directory under its
// base name. A partial copy is removed.
func (l *Local) Archive(ctx context.Context, path string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.fsys.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	src, err := l.fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer func() { _ = src.Close() }()

	target := filepath.Join(l.dir, filepath.Base(path))
	dst, err := l.fsys.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = l.fsys.Remove(target)
		}
	}()

	if _, err = io.Copy(dst, &ctxReader{ctx: ctx, r: src}); err != nil {
		_ = dst.Close()
		return fmt.Errorf("archive %s: %w", path, err)
	}
	if err = dst.Sync(); err != nil {
		_ = dst.Close()
		return fmt.Errorf("archive %s: %w", path, err)
	}
	if err = dst.Close(); err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
