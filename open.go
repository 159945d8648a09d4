package binrec

import (
	"os"

	"github.com/hupe1980/binrec/internal/channel"
	"github.com/hupe1980/binrec/internal/fs"
	"github.com/hupe1980/binrec/internal/pipe"
	"github.com/hupe1980/binrec/internal/resource"
	"github.com/hupe1980/binrec/internal/segment"
)

// Stdio is the name that selects standard input or standard output.
const Stdio = "-"

// Open opens name for reading.
//
// The name is resolved to the first existing of the plain file, the
// compressed segment "name.gz" and the first continuation "name.jz1". A name
// given with an explicit ".gz" suffix is tried as is first. Compressed input
// is decompressed on a background worker. Stdio reads standard input.
func Open(name string, optFns ...Option) (*File, error) {
	o := applyOptions(optFns)
	f := newFile(name, o, false)
	if err := o.registry.add(f); err != nil {
		return nil, f.fail("open", err)
	}
	if err := f.openInput(); err != nil {
		f.closed = true
		o.registry.remove(f)
		return nil, f.fail("open", err)
	}
	return f, nil
}

func (f *File) openInput() error {
	o := &f.opts
	if f.name == Stdio {
		f.r = channel.NewReader(os.Stdin, o.bufferSize)
		return nil
	}

	path, kind, err := segment.Resolve(o.fs, f.name)
	if err != nil {
		return &OpError{Op: "open", Name: f.name, Err: err}
	}

	if kind == segment.Plain {
		file, err := o.fs.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			return &OpError{Op: "open", Name: path, Err: err}
		}
		f.size = fs.Size(o.fs, path)
		f.closer = file
		f.r = channel.NewReader(resource.NewRateLimitedReader(o.ctx, file, o.registry.controller), o.bufferSize)
		return nil
	}

	p, err := pipe.NewReader(o.ctx, path, o.pipeOptions(&fileObserver{f: f}))
	if err != nil {
		return &OpError{Op: "open", Name: path, Err: err}
	}
	if err := p.Start(); err != nil {
		_ = p.Close()
		return &OpError{Op: "open", Name: path, Err: err}
	}
	f.pipe = p
	f.r = channel.NewPipeReader(p)
	return nil
}

// Create opens name for writing, truncating earlier content.
//
// Output is compressed when the name ends in ".gz" or WithCompression is
// set. Compressed output replaces the plain file and every earlier segment of
// the same logical name and is split into continuation segments once it outgrows the segment
// limit. Stdio writes to standard output.
func Create(name string, optFns ...Option) (*File, error) {
	o := applyOptions(optFns)
	f := newFile(name, o, true)
	if err := o.registry.add(f); err != nil {
		return nil, f.fail("create", err)
	}
	if err := f.openOutput(); err != nil {
		f.closed = true
		o.registry.remove(f)
		return nil, f.fail("create", err)
	}
	f.startRecord()
	return f, nil
}

func (f *File) openOutput() error {
	o := &f.opts
	if f.name == Stdio {
		f.w = channel.NewWriter(os.Stdout, o.bufferSize)
		return nil
	}

	if !o.compression && !segment.IsCompressed(f.name) {
		file, err := o.fs.OpenFile(f.name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return &OpError{Op: "create", Name: f.name, Err: err}
		}
		f.closer = file
		f.w = channel.NewWriter(resource.NewRateLimitedWriter(o.ctx, file, o.registry.controller), o.bufferSize)
		return nil
	}

	p, err := pipe.NewWriter(o.ctx, segment.Logical(f.name), o.pipeOptions(&fileObserver{f: f}))
	if err != nil {
		return &OpError{Op: "create", Name: f.name, Err: err}
	}
	if err := p.Start(); err != nil {
		_ = p.Close()
		return &OpError{Op: "create", Name: f.name, Err: err}
	}
	f.pipe = p
	f.w = channel.NewPipeWriter(p, o.bufferSize)
	return nil
}

// OpenFake opens an in-memory input that reads the records of store.
func OpenFake(store *Records, optFns ...Option) (*File, error) {
	o := applyOptions(optFns)
	f := newFile("fake", o, false)
	f.fake = store
	if err := o.registry.add(f); err != nil {
		return nil, f.fail("open", err)
	}
	return f, nil
}

// CreateFake opens an in-memory output that appends every record to store.
func CreateFake(store *Records, optFns ...Option) (*File, error) {
	o := applyOptions(optFns)
	f := newFile("fake", o, true)
	f.fake = store
	if err := o.registry.add(f); err != nil {
		return nil, f.fail("create", err)
	}
	f.startRecord()
	return f, nil
}

// Exists reports whether name exists as a plain file, a compressed segment
// or a split compressed stream.
func Exists(name string, optFns ...Option) bool {
	o := applyOptions(optFns)
	return segment.Exists(o.fs, name)
}

// Segments returns the physical files that hold name in read order: the
// plain file, the compressed segment or every continuation segment. It
// returns nil when no variant exists.
func Segments(name string, optFns ...Option) []string {
	o := applyOptions(optFns)
	path, kind, err := segment.Resolve(o.fs, name)
	if err != nil {
		return nil
	}
	if kind == segment.Continuation {
		return segment.List(o.fs, segment.Logical(path))
	}
	return []string{path}
}

// Remove deletes name together with its compressed segment and all of its
// continuation segments. Missing files are not an error.
func Remove(name string, optFns ...Option) error {
	o := applyOptions(optFns)
	err := segment.RemoveAll(o.fs, name)
	o.logger.LogRemove(o.ctx, name, err)
	if err != nil {
		return &OpError{Op: "remove", Name: name, Err: err}
	}
	return nil
}

// fileObserver forwards pipe events to the logger and metrics of a file.
type fileObserver struct {
	f *File
}

func (ob *fileObserver) SegmentSealed(ev pipe.SegmentEvent) {
	o := &ob.f.opts
	o.metricsCollector.RecordSegment(ev.Direction.String(), ev.Uncompressed, ev.Compressed)
	if o.report {
		o.logger.LogSegmentSealed(o.ctx, ev.Direction.String(), ev.Path, ev.Uncompressed, ev.Compressed, ev.Ratio())
	}
}

func (ob *fileObserver) StreamSplit(from, to string) {
	o := &ob.f.opts
	o.metricsCollector.RecordSplit()
	o.logger.LogStreamSplit(o.ctx, from, to)
}

func (ob *fileObserver) Backpressure() {
	ob.f.opts.metricsCollector.RecordBackpressure()
}
