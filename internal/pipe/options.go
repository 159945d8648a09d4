package pipe

import (
	"github.com/hupe1980/binrec/internal/compress"
	"github.com/hupe1980/binrec/internal/fs"
	"github.com/hupe1980/binrec/internal/resource"
	"github.com/hupe1980/binrec/internal/ring"
)

const (
	// DefaultChunkSize is the size of one ring buffer.
	DefaultChunkSize = 64 * 1024

	// DefaultSegmentLimit keeps the uncompressed bytes of one segment just
	// below 2 GiB.
	DefaultSegmentLimit = 2<<30 - 2<<20
)

// Direction selects whether a pipe compresses or decompresses.
type Direction int

const (
	// Compress accepts buffers from the producer and writes segments.
	Compress Direction = iota
	// Decompress reads segments and hands buffers to the consumer.
	Decompress
)

func (d Direction) String() string {
	if d == Compress {
		return "compress"
	}
	return "decompress"
}

// Options contains configuration for a pipe.
type Options struct {
	// FS is the filesystem holding the segments. Default: fs.Default.
	FS fs.FileSystem

	// Algorithm is the codec of newly written segments. Readers detect the
	// codec of each segment on their own.
	Algorithm compress.Algorithm

	// Level is the compression level (gzip semantics, 1-9).
	Level int

	// SegmentLimit is the maximum number of uncompressed bytes per segment.
	SegmentLimit int64

	// ChunkSize is the size of the buffers handed to the consumer when
	// decompressing.
	ChunkSize int

	// Capacity is the number of ring slots.
	Capacity int

	// Controller bounds background workers and segment IO. May be nil.
	Controller *resource.Controller

	// Observer receives pipe events. May be nil.
	Observer Observer

	// Archiver receives sealed segments. May be nil.
	Archiver Archiver

	// ArchiveConcurrency bounds in-flight archive uploads. Default: 2.
	ArchiveConcurrency int

	// KeepPlain leaves an existing plain file X in place when the writer
	// replaces the segments of X. The caller becomes responsible for
	// removing it.
	KeepPlain bool
}

// DefaultOptions returns default pipe options.
func DefaultOptions() Options {
	return Options{
		FS:                 fs.Default,
		Algorithm:          compress.Gzip,
		Level:              compress.DefaultLevel,
		SegmentLimit:       DefaultSegmentLimit,
		ChunkSize:          DefaultChunkSize,
		Capacity:           ring.DefaultCapacity,
		ArchiveConcurrency: 2,
	}
}

func (o *Options) normalize() {
	def := DefaultOptions()
	if o.FS == nil {
		o.FS = def.FS
	}
	if o.Level == 0 {
		o.Level = def.Level
	}
	if o.SegmentLimit <= 0 {
		o.SegmentLimit = def.SegmentLimit
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = def.ChunkSize
	}
	if o.Capacity <= 0 {
		o.Capacity = def.Capacity
	}
	if o.ArchiveConcurrency <= 0 {
		o.ArchiveConcurrency = def.ArchiveConcurrency
	}
	if o.Observer == nil {
		o.Observer = NoopObserver{}
	}
}
