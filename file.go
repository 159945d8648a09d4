package binrec

import (
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/binrec/internal/channel"
	"github.com/hupe1980/binrec/internal/pipe"
)

const (
	wordSize     = channel.WordSize
	initialWords = 4096
)

// Records is the in-memory store of a fake file. Each element is the raw
// word array of one record.
type Records struct {
	mu      sync.Mutex
	records [][]uint64
}

// Len returns the number of stored records.
func (r *Records) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *Records) append(words []uint64) {
	r.mu.Lock()
	r.records = append(r.records, words)
	r.mu.Unlock()
}

func (r *Records) at(i int) ([]uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.records) {
		return nil, false
	}
	return r.records[i], true
}

// File is a stream of word-packed records opened either for reading or for
// writing.
//
// Fields of the current record are appended with the Put methods and
// committed with WriteRecord, or read with the Get methods after ReadRecord.
// Field errors are sticky: the first one is kept, later field calls are
// no-ops, and the error is returned by the next WriteRecord or ReadRecord and
// by Err.
//
// A File is not safe for concurrent use.
type File struct {
	name string
	opts options

	// Current record.
	words   []uint64
	offset  int
	left    int
	count   int
	typ     uint8
	version uint8
	err     error

	// broken is the read error that lost the record framing of a stream.
	broken error

	writing bool
	closed  bool
	eof     bool

	fake      *Records
	fakeIndex int

	w      *channel.Writer
	r      *channel.Reader
	closer io.Closer
	pipe   *pipe.Pipe
	size   int64
}

func newFile(name string, o options, writing bool) *File {
	return &File{
		name:    name,
		opts:    o,
		writing: writing,
		words:   make([]uint64, initialWords),
	}
}

// Name returns the name the file was opened with.
func (f *File) Name() string { return f.name }

// IsFake reports whether f stores records in memory.
func (f *File) IsFake() bool { return f.fake != nil }

// EOF reports whether ReadRecord reached the end of the input.
func (f *File) EOF() bool { return f.eof }

// Err returns the sticky field error of the current record.
func (f *File) Err() error { return f.err }

// Type returns the type of the record read last.
func (f *File) Type() uint8 { return f.typ }

// Version returns the version of the record read last.
func (f *File) Version() uint8 { return f.version }

// Words returns the length in words, header included, of the record read
// last.
func (f *File) Words() int { return f.count }

// RawWords returns the words of the record read last. The slice is reused
// by the next ReadRecord.
func (f *File) RawWords() []uint64 { return f.words[:f.count] }

// Progress returns how far, in percent, a plain input file has been read.
// It is 0 for output, compressed and fake files.
func (f *File) Progress() int {
	if f.writing || f.size == 0 || f.r == nil {
		return 0
	}
	return int(f.r.Consumed() * 100 / f.size)
}

// CompressionRatio returns the compressed size of the last finished segment
// as a percentage of its uncompressed size. It is 0 without compression.
func (f *File) CompressionRatio() float64 {
	if f.pipe == nil {
		return 0
	}
	return f.pipe.Ratio()
}

func (f *File) checkWrite() error {
	switch {
	case f.closed:
		return ErrClosed
	case !f.writing:
		return ErrNotOpenForWrite
	}
	return nil
}

func (f *File) checkRead() error {
	switch {
	case f.closed:
		return ErrClosed
	case f.writing:
		return ErrNotOpenForRead
	}
	return nil
}

// fail hands a terminal error to the failure handler and returns it.
func (f *File) fail(op string, err error) error {
	if f.opts.failure != nil {
		f.opts.failure(f.name, op, err)
	}
	return err
}

func (f *File) startRecord() {
	f.words[0] = 0
	f.offset = 0
	f.left = 0
	f.err = nil
}

// WriteRecord commits the fields added since the previous WriteRecord as one
// record of the given type and version.
func (f *File) WriteRecord(typ, version uint8) error {
	if err := f.checkWrite(); err != nil {
		return f.fail("write", err)
	}
	if err := f.err; err != nil {
		f.startRecord()
		return f.fail("write", err)
	}
	if typ > MaxType || version > MaxType {
		f.startRecord()
		return f.fail("write", fmt.Errorf("%w: type %d version %d", ErrInvalidType, typ, version))
	}

	f.align(wordSize)
	count := f.offset
	if count > MaxRecordWords {
		f.startRecord()
		err := fmt.Errorf("%w: %d words", ErrRecordTooLarge, count)
		f.opts.metricsCollector.RecordWrite(count, err)
		return f.fail("write", err)
	}
	f.words[0] = makeHeader(typ, version, count)
	if !validHeader(f.words[0]) {
		return f.fail("write", &CorruptionError{Name: f.name, Expected: EyeCatcher, Actual: f.words[0]})
	}

	var err error
	if f.fake != nil {
		f.fake.append(append([]uint64(nil), f.words[:count]...))
	} else if werr := f.w.PutWords(f.words[:count]); werr != nil {
		err = &OpError{Op: "write", Name: f.name, Err: werr}
	}
	f.opts.metricsCollector.RecordWrite(count, err)
	f.startRecord()
	if err != nil {
		return f.fail("write", err)
	}
	return nil
}

// ReadRecord reads the next record. It returns false at the end of the
// input. A record cut short by the end of the input also counts as the end.
// After a corrupt header or an I/O error on a stream every later call returns
// the same error.
func (f *File) ReadRecord() (bool, error) {
	if err := f.checkRead(); err != nil {
		return false, f.fail("read", err)
	}
	if f.broken != nil {
		return false, f.fail("read", f.broken)
	}
	if err := f.err; err != nil {
		f.err = nil
		return false, f.fail("read", err)
	}
	if f.eof {
		return false, nil
	}
	f.count = 0

	var (
		ok  bool
		err error
	)
	if f.fake != nil {
		ok, err = f.readFake()
	} else {
		ok, err = f.readStream()
		f.broken = err
	}
	if err != nil {
		f.opts.metricsCollector.RecordRead(0, err)
		return false, f.fail("read", err)
	}
	if !ok {
		f.eof = true
		f.count = 0
		return false, nil
	}

	f.typ = headerType(f.words[0])
	f.version = headerVersion(f.words[0])
	f.offset = 0
	f.left = 0
	f.opts.metricsCollector.RecordRead(f.count, nil)
	return true, nil
}

func (f *File) readFake() (bool, error) {
	words, ok := f.fake.at(f.fakeIndex)
	if !ok {
		return false, nil
	}
	f.fakeIndex++
	if len(words) == 0 || !validHeader(words[0]) {
		var h uint64
		if len(words) > 0 {
			h = words[0]
		}
		return false, &CorruptionError{Name: f.name, Expected: EyeCatcher, Actual: h}
	}
	f.grow(len(words))
	copy(f.words, words)
	f.count = len(words)
	return true, nil
}

func (f *File) readStream() (bool, error) {
	if f.r.Buffered() == 0 {
		ok, err := f.r.Refill()
		if err != nil {
			return false, &OpError{Op: "read", Name: f.name, Err: err}
		}
		if !ok {
			return false, nil
		}
	}

	h := f.r.Word()
	if !validHeader(h) {
		return false, &CorruptionError{Name: f.name, Expected: EyeCatcher, Actual: h}
	}
	n := headerWords(h)
	if n == 0 {
		return false, &CorruptionError{Name: f.name, Expected: EyeCatcher, Actual: h}
	}
	f.grow(n)
	f.words[0] = h

	if f.r.Buffered() >= n-1 {
		f.r.Words(f.words[1:n])
	} else {
		for i := 1; i < n; i++ {
			if f.r.Buffered() == 0 {
				ok, err := f.r.Refill()
				if err != nil {
					return false, &OpError{Op: "read", Name: f.name, Err: err}
				}
				if !ok {
					return false, nil
				}
			}
			f.words[i] = f.r.Word()
		}
	}
	f.count = n
	return true, nil
}

// CopyTo appends the record read last to out without decoding its fields
// and commits it with the same type and version.
func (f *File) CopyTo(out *File) error {
	if err := f.checkRead(); err != nil {
		return f.fail("copy", err)
	}
	if f.count == 0 {
		return f.fail("copy", ErrNoRecord)
	}
	if err := out.checkWrite(); err != nil {
		return out.fail("copy", err)
	}

	out.startRecord()
	out.grow(f.count + 1)
	copy(out.words[1:f.count], f.words[1:f.count])
	out.offset = f.count - 1
	out.left = 0
	return out.WriteRecord(f.typ, f.version)
}

// Flush hands the pending output buffer to the transport.
func (f *File) Flush() error {
	if err := f.checkWrite(); err != nil {
		return f.fail("flush", err)
	}
	if f.fake != nil {
		return nil
	}
	if err := f.w.Flush(); err != nil {
		return f.fail("flush", &OpError{Op: "write", Name: f.name, Err: err})
	}
	return nil
}

// Close flushes an output file and waits for its compression to finish, or
// stops the decompression of an input file. The file is removed from its
// registry. Closing twice returns ErrClosed.
func (f *File) Close() error {
	if err := f.close(); err != nil {
		return f.fail("close", err)
	}
	return nil
}

func (f *File) close() error {
	if f.closed {
		return ErrClosed
	}
	f.closed = true
	defer f.opts.registry.remove(f)

	if f.fake != nil {
		return nil
	}
	if f.writing {
		return f.closeOutput()
	}
	return f.closeInput()
}

func (f *File) closeOutput() error {
	err := f.w.Flush()
	if f.pipe != nil {
		if err == nil {
			err = f.pipe.PutBuffer(nil)
		}
		if err != nil {
			f.pipe.Interrupt()
		}
		if werr := f.pipe.Wait(); err == nil {
			err = werr
		}
		if cerr := f.pipe.Close(); err == nil {
			err = cerr
		}
	} else if f.closer != nil {
		if cerr := f.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return &OpError{Op: "close", Name: f.name, Err: err}
	}
	return nil
}

func (f *File) closeInput() error {
	var err error
	if f.pipe != nil {
		err = f.pipe.Close()
	}
	if f.closer != nil {
		if cerr := f.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return &OpError{Op: "close", Name: f.name, Err: err}
	}
	return nil
}
