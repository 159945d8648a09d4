// Package pipe runs compression or decompression of a record stream on a
// dedicated worker goroutine.
//
// The application side and the worker exchange 64 KiB buffers through a
// bounded ring. A compressing pipe splits its output into segments whenever
// the uncompressed bytes of the current segment would exceed the configured
// limit:
//
//	X.gz              while the stream fits in one segment
//	X.jz1, X.jz2, ... once it was split; X.gz is renamed to X.jz1
//
// A decompressing pipe chains the continuation segments in numeric order.
//
// Storage errors are terminal: the worker stops, the pipe is cancelled and
// the error is returned from PutBuffer, GetBuffer and Wait.
package pipe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/binrec/internal/compress"
	"github.com/hupe1980/binrec/internal/fs"
	"github.com/hupe1980/binrec/internal/pool"
	"github.com/hupe1980/binrec/internal/resource"
	"github.com/hupe1980/binrec/internal/ring"
	"github.com/hupe1980/binrec/internal/segment"
)

var (
	// ErrInterrupted is returned by ring operations after Interrupt.
	ErrInterrupted = errors.New("pipe interrupted")
	// ErrNotStarted is returned by Wait on a pipe that was never started.
	ErrNotStarted = errors.New("pipe not started")
)

// SegmentError reports a storage failure on one segment file.
type SegmentError struct {
	Op   string
	Path string
	Err  error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("%s segment %s: %v", e.Op, e.Path, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// Pipe moves buffers between one producer and one consumer while a worker
// goroutine (de)compresses them.
type Pipe struct {
	opts      Options
	direction Direction
	logical   string

	ring    *ring.Ring
	buffers *pool.Buffers
	ctx     context.Context
	cancel  context.CancelFunc

	started     atomic.Bool
	interrupted atomic.Bool
	done        chan struct{}
	errMu       sync.Mutex
	err         error

	uploads errgroup.Group

	// Worker state. Only the worker touches these while it runs.
	seq     int
	path    string
	file    fs.File
	counter *countingWriter
	bw      *bufio.Writer
	zw      io.WriteCloser
	zr      io.ReadCloser
	written int64

	split     atomic.Bool
	current   atomic.Pointer[string]
	lastRatio atomic.Uint64 // math.Float64bits of the last segment ratio
	totalIn   atomic.Int64
	totalOut  atomic.Int64
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func newPipe(ctx context.Context, logical string, direction Direction, opts Options) *Pipe {
	opts.normalize()
	pctx, cancel := context.WithCancel(ctx)
	p := &Pipe{
		opts:      opts,
		direction: direction,
		logical:   segment.Logical(logical),
		ring:      ring.New(opts.Capacity),
		buffers:   pool.New(opts.ChunkSize),
		ctx:       pctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	p.uploads.SetLimit(opts.ArchiveConcurrency)
	return p
}

// NewWriter creates a compressing pipe for the logical stream name.
//
// Every earlier file of the logical stream (X, X.gz, X.jzN) is deleted
// first, so readers resolving X only ever find the new run. With KeepPlain
// the plain X survives. The first segment X.gz is created immediately.
func NewWriter(ctx context.Context, name string, opts Options) (*Pipe, error) {
	p := newPipe(ctx, name, Compress, opts)
	remove := segment.RemoveAll
	if p.opts.KeepPlain {
		remove = segment.RemoveSegments
	}
	if err := remove(p.opts.FS, p.logical); err != nil {
		p.cancel()
		return nil, &SegmentError{Op: "delete", Path: p.logical, Err: err}
	}
	p.seq = 1
	if err := p.openOutput(segment.CompressedName(p.logical)); err != nil {
		p.cancel()
		return nil, err
	}
	return p, nil
}

// NewReader creates a decompressing pipe. path is the first physical
// segment, either X.gz or X.jzN.
func NewReader(ctx context.Context, path string, opts Options) (*Pipe, error) {
	p := newPipe(ctx, path, Decompress, opts)
	p.seq, _ = segment.Number(path)
	if err := p.openInput(path); err != nil {
		p.cancel()
		return nil, err
	}
	return p, nil
}

// Direction returns whether p compresses or decompresses.
func (p *Pipe) Direction() Direction { return p.direction }

// Path returns the segment the worker is currently on.
func (p *Pipe) Path() string {
	if cur := p.current.Load(); cur != nil {
		return *cur
	}
	return ""
}

// Split reports whether the output was split into continuation segments.
func (p *Pipe) Split() bool { return p.split.Load() }

// Ratio returns the compressed/uncompressed percentage of the most recently
// sealed segment.
func (p *Pipe) Ratio() float64 {
	return math.Float64frombits(p.lastRatio.Load())
}

// Totals returns the uncompressed and compressed bytes processed so far.
func (p *Pipe) Totals() (uncompressed, compressed int64) {
	return p.totalIn.Load(), p.totalOut.Load()
}

// Start launches the worker goroutine. It blocks while the controller has no
// free background slot.
func (p *Pipe) Start() error {
	if !p.started.CompareAndSwap(false, true) {
		return nil
	}
	if !p.opts.Controller.TryAcquireBackground() {
		p.opts.Observer.Backpressure()
		if err := p.opts.Controller.AcquireBackground(p.ctx); err != nil {
			p.started.Store(false)
			return err
		}
	}
	go func() {
		defer close(p.done)
		defer p.opts.Controller.ReleaseBackground()

		var err error
		if p.direction == Compress {
			err = p.compressLoop()
		} else {
			err = p.decompressLoop()
		}
		if uerr := p.uploads.Wait(); err == nil {
			err = uerr
		}
		if err != nil {
			p.fail(err)
		}
	}()
	return nil
}

// PutBuffer hands buf to the worker, blocking while the ring is full.
// A nil buf signals end of input. Exactly one goroutine may call PutBuffer.
func (p *Pipe) PutBuffer(buf []byte) error {
	if !p.ring.TryPut(buf) {
		p.opts.Observer.Backpressure()
		if err := p.ring.Put(p.ctx, buf); err != nil {
			return p.cause(err)
		}
	}
	return nil
}

// GetBuffer returns the next buffer from the worker, blocking while the ring
// is empty. A nil buffer signals end of input. Exactly one goroutine may call
// GetBuffer.
func (p *Pipe) GetBuffer() ([]byte, error) {
	buf, err := p.ring.Get(p.ctx)
	if err != nil {
		return nil, p.cause(err)
	}
	return buf, nil
}

// AllocBuffer returns a buffer of size bytes, reusing one the worker has
// finished with when size matches the chunk size.
func (p *Pipe) AllocBuffer(size int) []byte {
	if size == p.buffers.Size() {
		return p.buffers.Get()
	}
	return make([]byte, size)
}

// Recycle returns a buffer obtained from GetBuffer once the consumer no
// longer needs it.
func (p *Pipe) Recycle(buf []byte) { p.buffers.Put(buf) }

// BufferStats returns how many chunk buffers were allocated and how many
// were reused.
func (p *Pipe) BufferStats() (allocated, reused int64) { return p.buffers.Stats() }

// Interrupt aborts the worker. Pending ring waits on either side return
// immediately.
func (p *Pipe) Interrupt() {
	p.interrupted.Store(true)
	p.cancel()
}

// Wait blocks until the worker has finished and returns its error. An
// interruption requested through Interrupt is not an error.
func (p *Pipe) Wait() error {
	if !p.started.Load() {
		return ErrNotStarted
	}
	<-p.done
	return p.Err()
}

// Err returns the terminal error of the worker, if any.
func (p *Pipe) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

// Close releases the segment files. For a compressing pipe the current
// segment is sealed if the worker did not already do so; callers push the
// end-of-input sentinel and Wait before closing during a normal shutdown.
func (p *Pipe) Close() error {
	if p.started.Load() {
		if p.direction == Decompress {
			p.Interrupt()
		}
		<-p.done
	}
	defer p.cancel()

	var err error
	if p.direction == Compress {
		if p.file != nil {
			err = p.sealOutput()
		}
	} else if p.file != nil {
		err = p.closeInput()
	}
	if werr := p.Err(); werr != nil {
		return werr
	}
	return err
}

func (p *Pipe) fail(err error) {
	if p.interrupted.Load() && errors.Is(err, context.Canceled) {
		return
	}
	p.errMu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.errMu.Unlock()
	p.cancel()
}

// cause maps a ring wait failure to the error that cancelled the pipe.
func (p *Pipe) cause(err error) error {
	if werr := p.Err(); werr != nil {
		return werr
	}
	if p.interrupted.Load() {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return err
}

func (p *Pipe) compressLoop() error {
	for {
		buf, err := p.ring.Get(p.ctx)
		if err != nil {
			return err
		}
		if buf == nil {
			if err := p.sealOutput(); err != nil {
				return err
			}
			p.archive(p.path)
			return nil
		}

		if p.written > 0 && p.written+int64(len(buf)) > p.opts.SegmentLimit {
			if err := p.rollover(); err != nil {
				return err
			}
		}

		if _, err := p.zw.Write(buf); err != nil {
			return &SegmentError{Op: "write", Path: p.path, Err: err}
		}
		p.written += int64(len(buf))
		p.buffers.Put(buf)
	}
}

// rollover seals the current segment and opens the next continuation. On the
// first rollover X.gz is renamed to X.jz1 because it is no longer the only
// segment of the stream.
func (p *Pipe) rollover() error {
	if err := p.sealOutput(); err != nil {
		return err
	}
	if !p.split.Load() {
		from, to := p.path, segment.ContinuationName(p.logical, 1)
		if err := p.opts.FS.Rename(from, to); err != nil {
			return &SegmentError{Op: "rename", Path: from, Err: err}
		}
		p.split.Store(true)
		p.setPath(to)
		p.opts.Observer.StreamSplit(from, to)
	}
	p.archive(p.path)

	p.seq++
	return p.openOutput(segment.ContinuationName(p.logical, p.seq))
}

func (p *Pipe) openOutput(path string) error {
	f, err := p.opts.FS.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &SegmentError{Op: "create", Path: path, Err: err}
	}

	p.setPath(path)
	p.file = f
	p.counter = &countingWriter{w: resource.NewRateLimitedWriter(p.ctx, f, p.opts.Controller)}
	p.bw = bufio.NewWriterSize(p.counter, p.opts.ChunkSize)
	zw, err := compress.NewWriter(p.bw, p.opts.Algorithm, p.opts.Level)
	if err != nil {
		_ = f.Close()
		p.file = nil
		return &SegmentError{Op: "create", Path: path, Err: err}
	}
	p.zw = zw
	p.written = 0
	return nil
}

func (p *Pipe) sealOutput() error {
	f := p.file
	if f == nil {
		return nil
	}
	p.file = nil

	if err := p.zw.Close(); err != nil {
		_ = f.Close()
		return &SegmentError{Op: "seal", Path: p.path, Err: err}
	}
	if err := p.bw.Flush(); err != nil {
		_ = f.Close()
		return &SegmentError{Op: "seal", Path: p.path, Err: err}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return &SegmentError{Op: "sync", Path: p.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &SegmentError{Op: "close", Path: p.path, Err: err}
	}

	p.report(SegmentEvent{
		Direction:    Compress,
		Path:         p.path,
		Uncompressed: p.written,
		Compressed:   p.counter.n,
	})
	return nil
}

func (p *Pipe) decompressLoop() error {
	for {
		buf := p.buffers.Get()
		n, err := io.ReadFull(p.zr, buf)
		if n > 0 {
			p.written += int64(n)
			if perr := p.ring.Put(p.ctx, buf[:n]); perr != nil {
				return perr
			}
		} else {
			p.buffers.Put(buf)
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			// A truncated segment (e.g. one still being written) ends the
			// stream the same way a complete one does.
			if cerr := p.closeInput(); cerr != nil {
				return cerr
			}
			next, ok := p.nextInput()
			if !ok {
				return p.ring.Put(p.ctx, nil)
			}
			if oerr := p.openInput(next); oerr != nil {
				return oerr
			}
		default:
			return &SegmentError{Op: "read", Path: p.path, Err: err}
		}
	}
}

func (p *Pipe) nextInput() (string, bool) {
	if p.seq == 0 {
		// A lone X.gz has no continuations.
		return "", false
	}
	next := segment.ContinuationName(p.logical, p.seq+1)
	if !fs.Exists(p.opts.FS, next) {
		return "", false
	}
	p.seq++
	return next, true
}

func (p *Pipe) openInput(path string) error {
	f, err := p.opts.FS.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return &SegmentError{Op: "open", Path: path, Err: err}
	}
	p.counter = &countingWriter{}
	zr, _, err := compress.NewReader(resource.NewRateLimitedReader(p.ctx, &countingReader{r: f, cw: p.counter}, p.opts.Controller))
	if err != nil {
		_ = f.Close()
		return &SegmentError{Op: "open", Path: path, Err: err}
	}
	p.setPath(path)
	p.file = f
	p.zr = zr
	p.written = 0
	return nil
}

func (p *Pipe) closeInput() error {
	f := p.file
	if f == nil {
		return nil
	}
	p.file = nil
	_ = p.zr.Close()
	if err := f.Close(); err != nil {
		return &SegmentError{Op: "close", Path: p.path, Err: err}
	}
	p.report(SegmentEvent{
		Direction:    Decompress,
		Path:         p.path,
		Uncompressed: p.written,
		Compressed:   p.counter.n,
	})
	return nil
}

type countingReader struct {
	r  io.Reader
	cw *countingWriter
}

func (cr *countingReader) Read(b []byte) (int, error) {
	n, err := cr.r.Read(b)
	cr.cw.n += int64(n)
	return n, err
}

func (p *Pipe) setPath(path string) {
	p.path = path
	p.current.Store(&path)
}

func (p *Pipe) report(ev SegmentEvent) {
	p.lastRatio.Store(math.Float64bits(ev.Ratio()))
	p.totalIn.Add(ev.Uncompressed)
	p.totalOut.Add(ev.Compressed)
	p.opts.Observer.SegmentSealed(ev)
}

func (p *Pipe) archive(path string) {
	if p.opts.Archiver == nil {
		return
	}
	ctx := p.ctx
	p.uploads.Go(func() error {
		if err := p.opts.Archiver.Archive(ctx, path); err != nil {
			return &SegmentError{Op: "archive", Path: path, Err: err}
		}
		return nil
	})
}
