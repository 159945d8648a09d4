package binrec

import (
	"context"
	"log/slog"

	"github.com/hupe1980/binrec/internal/compress"
	"github.com/hupe1980/binrec/internal/fs"
	"github.com/hupe1980/binrec/internal/pipe"
)

// Codec selects the stream codec of newly written compressed segments.
// Readers detect the codec of each segment on their own.
type Codec = compress.Algorithm

// Supported segment codecs.
const (
	CodecGzip = compress.Gzip
	CodecZstd = compress.Zstd
	CodecLZ4  = compress.LZ4
)

// DefaultLevel is the default compression level.
const DefaultLevel = compress.DefaultLevel

// DefaultSegmentLimit is the default number of uncompressed bytes per
// compressed segment.
const DefaultSegmentLimit = pipe.DefaultSegmentLimit

// ErrUnknownCodec is returned by ParseCodec for an unsupported name.
var ErrUnknownCodec = compress.ErrUnknownAlgorithm

// ParseCodec parses a codec name ("gzip", "zstd" or "lz4").
func ParseCodec(name string) (Codec, error) {
	return compress.ParseAlgorithm(name)
}

// Archiver receives every sealed compressed segment. See the archive package
// for local, S3 and MinIO implementations.
type Archiver interface {
	Archive(ctx context.Context, path string) error
}

type options struct {
	ctx              context.Context
	fs               fs.FileSystem
	registry         *Registry
	logger           *Logger
	metricsCollector MetricsCollector
	failure          FailureHandler
	compression      bool
	codec            Codec
	level            int
	segmentLimit     int64
	bufferSize       int
	report           bool
	archiver         Archiver
	keepPlain        bool
}

// Option configures Open, Create and the package-level helpers.
type Option func(*options)

// WithContext sets the context that bounds background compression. Cancelling
// it aborts the pipe of a compressed file. Default: context.Background().
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// WithRegistry configures the registry that tracks the file.
//
// If nil is passed, DefaultRegistry() is used.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithCompression forces Create to write compressed segments even if the
// name has no ".gz" suffix.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compression = enabled
	}
}

// WithCodec configures the codec of newly written segments.
func WithCodec(c Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithLevel configures the compression level (1-9).
func WithLevel(level int) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithSegmentLimit configures the maximum number of uncompressed bytes per
// compressed segment. Values <= 0 select DefaultSegmentLimit.
func WithSegmentLimit(limit int64) Option {
	return func(o *options) {
		o.segmentLimit = limit
	}
}

// WithBufferSize configures the transport buffer size in bytes. The size is
// rounded down to whole words.
func WithBufferSize(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// WithReport enables logging of the compression ratio of every finished
// segment. Default: false.
func WithReport(enabled bool) Option {
	return func(o *options) {
		o.report = enabled
	}
}

// WithArchiver configures a destination for sealed segments.
func WithArchiver(a Archiver) Option {
	return func(o *options) {
		o.archiver = a
	}
}

// WithFailureHandler configures the handler that sees every terminal error
// before it is returned. See FatalHandler.
func WithFailureHandler(h FailureHandler) Option {
	return func(o *options) {
		o.failure = h
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &binrec.BasicMetricsCollector{}
//	f, _ := binrec.Create("trace.bin.gz", binrec.WithMetricsCollector(metrics))
//	// ... write records, close ...
//	stats := metrics.GetStats()
//	fmt.Printf("records: %d, ratio: %.1f%%\n", stats.RecordsWritten, stats.CompressionRatio())
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := binrec.NewJSONLogger(slog.LevelInfo)
//	f, _ := binrec.Open("trace.bin", binrec.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// withFileSystem replaces the filesystem. Used by tests for fault injection.
func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// withKeepPlain keeps the plain source of a compressed output until the
// caller removes it.
func withKeepPlain() Option {
	return func(o *options) {
		o.keepPlain = true
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		ctx:              context.Background(),
		fs:               fs.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		codec:            CodecGzip,
		level:            DefaultLevel,
		segmentLimit:     DefaultSegmentLimit,
		bufferSize:       pipe.DefaultChunkSize,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.ctx == nil {
		o.ctx = context.Background()
	}
	if o.fs == nil {
		o.fs = fs.Default
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}

func (o *options) pipeOptions(obs pipe.Observer) pipe.Options {
	po := pipe.DefaultOptions()
	po.FS = o.fs
	po.Algorithm = o.codec
	po.Level = o.level
	po.SegmentLimit = o.segmentLimit
	po.ChunkSize = o.bufferSize
	po.Controller = o.registry.controller
	po.Observer = obs
	po.KeepPlain = o.keepPlain
	if o.archiver != nil {
		po.Archiver = o.archiver
	}
	return po
}
