// Package compress provides the streaming codecs used for compressed record
// segments.
//
// Writers are selected by Algorithm. Readers detect the algorithm from the
// stream's magic bytes, so continuation segments (".jzN") need no suffix that
// names their codec.
package compress

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm defines the compression algorithm of a segment stream.
type Algorithm uint8

const (
	// Gzip is DEFLATE in a gzip container. It is the default and the only
	// format readable by the original tooling.
	Gzip Algorithm = iota
	// Zstd trades some CPU for a better ratio.
	Zstd
	// LZ4 is the fastest option, with the weakest ratio.
	LZ4
)

// DefaultLevel is the gzip level used for segments. Level 4 yields output
// about 2% larger than level 6 at roughly 55% less CPU.
const DefaultLevel = 4

var (
	// ErrUnknownAlgorithm is returned for an Algorithm or name without a codec.
	ErrUnknownAlgorithm = errors.New("unknown compression algorithm")
	// ErrUnknownFormat is returned when a stream carries no known magic.
	ErrUnknownFormat = errors.New("unrecognized compressed stream")
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm maps a name ("gzip", "zstd", "lz4") to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "gzip", "gz", "":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// NewWriter returns a compressing writer on top of w.
//
// level follows gzip semantics (1-9). For zstd it is mapped with
// zstd.EncoderLevelFromZstd, for lz4 levels above 1 select the high
// compression mode.
func NewWriter(w io.Writer, alg Algorithm, level int) (io.WriteCloser, error) {
	switch alg {
	case Gzip:
		zw, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, err
		}
		return zw, nil
	case Zstd:
		zw, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, err
		}
		return zw, nil
	case LZ4:
		zw := lz4.NewWriter(w)
		opts := []lz4.Option{lz4.ConcurrencyOption(1)}
		if level > 1 {
			opts = append(opts, lz4.CompressionLevelOption(lz4.Level5))
		}
		if err := zw.Apply(opts...); err != nil {
			return nil, err
		}
		return zw, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, alg)
	}
}

// Detect peeks at the first bytes of br and reports the stream's algorithm.
func Detect(br *bufio.Reader) (Algorithm, error) {
	head, err := br.Peek(4)
	if err != nil && len(head) < len(gzipMagic) {
		if errors.Is(err, io.EOF) {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, err
	}
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip, nil
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd, nil
	case bytes.HasPrefix(head, lz4Magic):
		return LZ4, nil
	default:
		return 0, fmt.Errorf("%w: magic % x", ErrUnknownFormat, head)
	}
}

// NewReader returns a decompressing reader for r, selecting the codec from
// the stream's magic bytes. The returned Closer releases codec state only;
// it does not close r.
func NewReader(r io.Reader) (io.ReadCloser, Algorithm, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	alg, err := Detect(br)
	if err != nil {
		return nil, 0, err
	}
	switch alg {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, alg, err
		}
		return zr, alg, nil
	case Zstd:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, alg, err
		}
		return zr.IOReadCloser(), alg, nil
	default:
		return io.NopCloser(lz4.NewReader(br)), alg, nil
	}
}
