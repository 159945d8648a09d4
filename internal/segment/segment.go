// Package segment names and locates the physical files of a logical record
// stream.
//
// A logical name X is stored as:
//
//	X        plain, uncompressed
//	X.gz     a single compressed segment
//	X.jz1    first segment once the stream was split
//	X.jz2... continuation segments, concatenated at read time
package segment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hupe1980/binrec/internal/fs"
)

const (
	// CompressedSuffix marks the single compressed segment of a stream.
	CompressedSuffix = ".gz"
	// ContinuationSuffix precedes the segment number of a split stream.
	ContinuationSuffix = ".jz"
)

// Kind identifies the physical form of a resolved stream.
type Kind int

const (
	// Plain is an uncompressed record file.
	Plain Kind = iota
	// Compressed is a single ".gz" segment.
	Compressed
	// Continuation is the first ".jzN" segment of a split stream.
	Continuation
)

func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Compressed:
		return "compressed"
	case Continuation:
		return "continuation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrNotFound is returned by Resolve when no variant of a name exists.
var ErrNotFound = errors.New("no plain, compressed or continuation file")

// Logical strips a trailing ".gz" or ".jzN" from name.
func Logical(name string) string {
	if strings.HasSuffix(name, CompressedSuffix) {
		return strings.TrimSuffix(name, CompressedSuffix)
	}
	if n, ok := Number(name); ok && n > 0 {
		return name[:strings.LastIndex(name, ContinuationSuffix)]
	}
	return name
}

// IsCompressed reports whether name carries a compressed segment suffix.
func IsCompressed(name string) bool {
	if strings.HasSuffix(name, CompressedSuffix) {
		return true
	}
	_, ok := Number(name)
	return ok
}

// CompressedName returns the single-segment name of logical.
func CompressedName(logical string) string {
	return logical + CompressedSuffix
}

// ContinuationName returns the name of segment n (1-based) of logical.
func ContinuationName(logical string, n int) string {
	return logical + ContinuationSuffix + strconv.Itoa(n)
}

// Number extracts the segment number from a ".jzN" name.
func Number(name string) (int, bool) {
	i := strings.LastIndex(name, ContinuationSuffix)
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[i+len(ContinuationSuffix):])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Resolve finds the physical file to read for name.
//
// The logical name is probed as plain, then compressed, then first
// continuation. A name given explicitly with a ".gz" suffix is tried before
// that sequence.
func Resolve(fsys fs.FileSystem, name string) (string, Kind, error) {
	logical := Logical(name)
	if strings.HasSuffix(name, CompressedSuffix) && fs.Exists(fsys, name) {
		return name, Compressed, nil
	}
	candidates := []struct {
		path string
		kind Kind
	}{
		{logical, Plain},
		{CompressedName(logical), Compressed},
		{ContinuationName(logical, 1), Continuation},
	}
	for _, c := range candidates {
		if fs.Exists(fsys, c.path) {
			return c.path, c.kind, nil
		}
	}
	return "", Plain, fmt.Errorf("%w: %s", ErrNotFound, logical)
}

// Exists reports whether any variant of name exists.
func Exists(fsys fs.FileSystem, name string) bool {
	_, _, err := Resolve(fsys, name)
	return err == nil
}

// List returns the continuation segments of logical that exist on disk, in
// segment order, stopping at the first gap.
func List(fsys fs.FileSystem, logical string) []string {
	var out []string
	for n := 1; ; n++ {
		p := ContinuationName(logical, n)
		if !fs.Exists(fsys, p) {
			return out
		}
		out = append(out, p)
	}
}

// RemoveAll deletes every file that belongs to the logical stream of name:
// the plain file, the ".gz" segment and any ".jzN" continuation.
func RemoveAll(fsys fs.FileSystem, name string) error {
	logical := Logical(name)
	if err := fsys.Remove(logical); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return RemoveSegments(fsys, logical)
}

// RemoveSegments deletes the ".gz" segment and every ".jzN" continuation of
// name. A plain file of the same logical name is kept.
func RemoveSegments(fsys fs.FileSystem, name string) error {
	logical := Logical(name)
	if err := fsys.Remove(CompressedName(logical)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	dir, base := filepath.Split(logical)
	if dir == "" {
		dir = "."
	}
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	prefix := base + ContinuationSuffix
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if err := fsys.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("unable to delete %s: %w", e.Name(), err)
		}
	}
	return nil
}
