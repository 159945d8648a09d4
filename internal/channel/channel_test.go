package channel

import (
	"bytes"
	"errors"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferQueue struct {
	bufs [][]byte
	err  error
}

func (q *bufferQueue) PutBuffer(buf []byte) error {
	if q.err != nil {
		return q.err
	}
	q.bufs = append(q.bufs, buf)
	return nil
}

func (q *bufferQueue) GetBuffer() ([]byte, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(q.bufs) == 0 {
		return nil, nil
	}
	b := q.bufs[0]
	q.bufs = q.bufs[1:]
	return b, nil
}

func readAll(t *testing.T, r *Reader) []uint64 {
	t.Helper()
	var out []uint64
	for {
		ok, err := r.Refill()
		require.NoError(t, err)
		if !ok {
			return out
		}
		for r.Buffered() > 0 {
			out = append(out, r.Word())
		}
	}
}

func sequence(n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = uint64(i)*0x0101010101010101 + 7
	}
	return out
}

func TestWriter_RawReusesBuffer(t *testing.T) {
	var sink bytes.Buffer
	w := NewWriter(&sink, 32)
	first := &w.buf[0]

	require.NoError(t, w.PutWords(sequence(3)))
	assert.Equal(t, 24, w.Buffered())
	assert.Equal(t, 0, sink.Len())

	// Two more words do not fit; the pending three are flushed first.
	require.NoError(t, w.PutWords(sequence(2)))
	assert.Equal(t, 24, sink.Len())
	assert.Equal(t, 16, w.Buffered())
	assert.Same(t, first, &w.buf[0])

	require.NoError(t, w.Flush())
	assert.Equal(t, int64(40), w.Written())
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 7}, sink.Bytes()[:8])
}

func TestWriter_PipeHandsOverBuffers(t *testing.T) {
	q := &bufferQueue{}
	w := NewPipeWriter(q, 16)

	require.NoError(t, w.PutWords(sequence(2)))
	require.NoError(t, w.PutWords(sequence(1)))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Flush())

	require.Len(t, q.bufs, 2)
	assert.Len(t, q.bufs[0], 16)
	assert.Len(t, q.bufs[1], 8)
	assert.NotSame(t, &q.bufs[0][0], &q.bufs[1][0])
}

func TestWriter_OversizedCall(t *testing.T) {
	q := &bufferQueue{}
	w := NewPipeWriter(q, 16)

	require.NoError(t, w.PutWords(sequence(1)))
	require.NoError(t, w.PutWords(sequence(5)))

	require.Len(t, q.bufs, 2)
	assert.Len(t, q.bufs[0], 8)
	assert.Len(t, q.bufs[1], 40)
	assert.Equal(t, 0, w.Buffered())

	r := NewPipeReader(q)
	assert.Equal(t, append(sequence(1), sequence(5)...), readAll(t, r))
}

func TestWriter_Error(t *testing.T) {
	boom := errors.New("boom")
	w := NewPipeWriter(&bufferQueue{err: boom}, 8)
	require.NoError(t, w.PutWords(sequence(1)))
	assert.ErrorIs(t, w.PutWords(sequence(1)), boom)
}

func TestReader_RawPartialReads(t *testing.T) {
	var sink bytes.Buffer
	w := NewWriter(&sink, 0)
	want := sequence(100)
	require.NoError(t, w.PutWords(want))
	require.NoError(t, w.Flush())

	r := NewReader(iotest.OneByteReader(bytes.NewReader(sink.Bytes())), 64)
	assert.Equal(t, want, readAll(t, r))
	assert.Equal(t, int64(800), r.Consumed())
}

func TestReader_TrailingPartialWordIsEOF(t *testing.T) {
	var sink bytes.Buffer
	w := NewWriter(&sink, 0)
	require.NoError(t, w.PutWords(sequence(2)))
	require.NoError(t, w.Flush())
	sink.Write([]byte{1, 2, 3})

	r := NewReader(&sink, 0)
	assert.Equal(t, sequence(2), readAll(t, r))
}

func TestReader_RawError(t *testing.T) {
	boom := errors.New("disk")
	r := NewReader(iotest.ErrReader(boom), 0)
	ok, err := r.Refill()
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestReader_PipeCarriesPartialWords(t *testing.T) {
	var sink bytes.Buffer
	w := NewWriter(&sink, 0)
	want := sequence(10)
	require.NoError(t, w.PutWords(want))
	require.NoError(t, w.Flush())

	data := sink.Bytes()
	q := &bufferQueue{bufs: [][]byte{data[:5], data[5:13], data[13:14], data[14:]}}
	r := NewPipeReader(q)

	ok, err := r.Refill()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, r.Buffered())

	got := []uint64{r.Word()}
	got = append(got, readAll(t, r)...)
	assert.Equal(t, want, got)
}

func TestReader_Words(t *testing.T) {
	var sink bytes.Buffer
	w := NewWriter(&sink, 0)
	want := sequence(6)
	require.NoError(t, w.PutWords(want))
	require.NoError(t, w.Flush())

	r := NewReader(&sink, 0)
	ok, err := r.Refill()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 6, r.Buffered())

	dst := make([]uint64, 4)
	r.Words(dst)
	assert.Equal(t, want[:4], dst)
	assert.Equal(t, 2, r.Buffered())
}

type recyclingQueue struct {
	bufferQueue
	allocs   []int
	recycled [][]byte
}

func (q *recyclingQueue) AllocBuffer(size int) []byte {
	q.allocs = append(q.allocs, size)
	return make([]byte, size)
}

func (q *recyclingQueue) Recycle(buf []byte) { q.recycled = append(q.recycled, buf) }

func TestPipe_RecyclesBuffers(t *testing.T) {
	q := &recyclingQueue{}
	w := NewPipeWriter(q, 16)
	want := sequence(5)
	for _, v := range want {
		require.NoError(t, w.PutWords([]uint64{v}))
	}
	require.NoError(t, w.Flush())

	// One initial buffer plus one per handed over buffer.
	assert.Equal(t, []int{16, 16, 16, 16}, q.allocs)
	require.Len(t, q.bufs, 3)

	r := NewPipeReader(q)
	assert.Equal(t, want, readAll(t, r))
	// Every drained chunk except the current one goes back.
	assert.Len(t, q.recycled, 2)
}
