// Package channel adapts a raw byte stream or a compression pipe to the
// whole-word interface used by record files.
//
// Words are stored big-endian. Partial trailing words are carried across
// refills and are never surfaced to the caller.
package channel

import (
	"encoding/binary"
	"errors"
	"io"
)

// DefaultBufferSize is the size of one transport buffer.
const DefaultBufferSize = 64 * 1024

// WordSize is the number of bytes in one word.
const WordSize = 8

// BufferSink accepts ownership of complete buffers. Pipes implement it.
type BufferSink interface {
	PutBuffer(buf []byte) error
}

// BufferSource produces buffers until it returns nil. Pipes implement it.
type BufferSource interface {
	GetBuffer() ([]byte, error)
}

// BufferAllocator is implemented by sinks that hand out recycled buffers.
type BufferAllocator interface {
	AllocBuffer(size int) []byte
}

// BufferRecycler is implemented by sources that take back drained buffers.
type BufferRecycler interface {
	Recycle(buf []byte)
}

// Writer collects words into a fixed buffer and forwards full buffers to
// the transport.
type Writer struct {
	w    io.Writer
	sink BufferSink

	buf     []byte
	n       int
	written int64
}

// NewWriter returns a Writer that writes to a raw stream and reuses its
// buffer after every flush.
func NewWriter(w io.Writer, size int) *Writer {
	return &Writer{w: w, buf: make([]byte, bufferSize(size))}
}

// NewPipeWriter returns a Writer that hands every filled buffer to sink and
// allocates a fresh one.
func NewPipeWriter(sink BufferSink, size int) *Writer {
	w := &Writer{sink: sink}
	w.buf = w.alloc(bufferSize(size))
	return w
}

func (w *Writer) alloc(size int) []byte {
	if a, ok := w.sink.(BufferAllocator); ok {
		return a.AllocBuffer(size)
	}
	return make([]byte, size)
}

func bufferSize(size int) int {
	if size <= 0 {
		size = DefaultBufferSize
	}
	// Keep buffers word aligned.
	if size < WordSize {
		size = WordSize
	}
	return size &^ (WordSize - 1)
}

// Size returns the buffer size in bytes.
func (w *Writer) Size() int { return len(w.buf) }

// Buffered returns the number of pending bytes.
func (w *Writer) Buffered() int { return w.n }

// Written returns the number of bytes handed to the transport.
func (w *Writer) Written() int64 { return w.written }

// PutWords appends words to the pending buffer. The pending buffer is flushed
// first when it cannot hold all of them, so the words of one call are never
// split between two buffers. Calls larger than the whole buffer are emitted
// as a dedicated buffer.
func (w *Writer) PutWords(words []uint64) error {
	need := len(words) * WordSize
	if need > len(w.buf)-w.n {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if need > len(w.buf) {
		big := make([]byte, need)
		encode(big, words)
		return w.emit(big, false)
	}
	encode(w.buf[w.n:], words)
	w.n += need
	return nil
}

// Flush forwards the pending bytes, if any.
func (w *Writer) Flush() error {
	if w.n == 0 {
		return nil
	}
	n := w.n
	w.n = 0
	return w.emit(w.buf[:n], true)
}

func (w *Writer) emit(b []byte, pending bool) error {
	if w.sink == nil {
		if _, err := w.w.Write(b); err != nil {
			return err
		}
		w.written += int64(len(b))
		return nil
	}
	if err := w.sink.PutBuffer(b); err != nil {
		return err
	}
	w.written += int64(len(b))
	if pending {
		w.buf = w.alloc(len(w.buf))
	}
	return nil
}

func encode(dst []byte, words []uint64) {
	for i, v := range words {
		binary.BigEndian.PutUint64(dst[i*WordSize:], v)
	}
}

// Reader serves whole words from a raw stream or a pipe.
type Reader struct {
	r   io.Reader
	src BufferSource

	buf      []byte
	pos, end int
	eof      bool
	consumed int64
}

// NewReader returns a Reader over a raw stream.
func NewReader(r io.Reader, size int) *Reader {
	return &Reader{r: r, buf: make([]byte, bufferSize(size))}
}

// NewPipeReader returns a Reader over the buffers of src.
func NewPipeReader(src BufferSource) *Reader {
	return &Reader{src: src}
}

// Buffered returns the number of whole words available without a refill.
func (r *Reader) Buffered() int { return (r.end - r.pos) / WordSize }

// Consumed returns the number of bytes returned as words so far.
func (r *Reader) Consumed() int64 { return r.consumed }

// Refill makes sure at least one whole word is buffered. It returns false
// once the transport is exhausted; a trailing partial word counts as end of
// input.
func (r *Reader) Refill() (bool, error) {
	for r.end-r.pos < WordSize {
		if r.eof {
			return false, nil
		}
		var err error
		if r.src != nil {
			err = r.fillPipe()
		} else {
			err = r.fillRaw()
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

func (r *Reader) fillRaw() error {
	if r.pos > 0 {
		r.end = copy(r.buf, r.buf[r.pos:r.end])
		r.pos = 0
	}
	n, err := r.r.Read(r.buf[r.end:])
	r.end += n
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		r.eof = true
		return nil
	default:
		return err
	}
}

func (r *Reader) fillPipe() error {
	chunk, err := r.src.GetBuffer()
	if err != nil {
		return err
	}
	if chunk == nil {
		r.eof = true
		return nil
	}
	old := r.buf
	if rest := r.end - r.pos; rest > 0 {
		joined := make([]byte, rest+len(chunk))
		copy(joined, r.buf[r.pos:r.end])
		copy(joined[rest:], chunk)
		r.recycle(chunk)
		chunk = joined
	}
	r.recycle(old)
	r.buf = chunk
	r.pos, r.end = 0, len(chunk)
	return nil
}

func (r *Reader) recycle(buf []byte) {
	if rc, ok := r.src.(BufferRecycler); ok && buf != nil {
		rc.Recycle(buf)
	}
}

// Word returns the next buffered word. Callers check Buffered or Refill
// first.
func (r *Reader) Word() uint64 {
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += WordSize
	r.consumed += WordSize
	return v
}

// Words fills dst from the buffered words. len(dst) must not exceed
// Buffered().
func (r *Reader) Words(dst []uint64) {
	for i := range dst {
		dst[i] = binary.BigEndian.Uint64(r.buf[r.pos+i*WordSize:])
	}
	r.pos += len(dst) * WordSize
	r.consumed += int64(len(dst) * WordSize)
}
