// Package pool recycles the fixed-size byte buffers that travel between a
// record file and its compression worker.
package pool

import (
	"sync"
	"sync/atomic"
)

// Buffers is a pool of byte slices of one size.
type Buffers struct {
	size int
	pool sync.Pool

	allocated atomic.Int64
	reused    atomic.Int64
}

// New creates a pool of buffers of size bytes.
func New(size int) *Buffers {
	return &Buffers{size: size}
}

// Size returns the buffer size of the pool.
func (b *Buffers) Size() int { return b.size }

// Get returns a buffer of Size bytes. Its content is undefined.
func (b *Buffers) Get() []byte {
	if v, ok := b.pool.Get().(*[]byte); ok {
		b.reused.Add(1)
		return (*v)[:b.size]
	}
	b.allocated.Add(1)
	return make([]byte, b.size)
}

// Put returns buf to the pool. Buffers whose capacity differs from Size are
// dropped. The caller must not use buf afterwards.
func (b *Buffers) Put(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	buf = buf[:b.size]
	b.pool.Put(&buf)
}

// Stats returns how many buffers Get allocated and how many it reused.
func (b *Buffers) Stats() (allocated, reused int64) {
	return b.allocated.Load(), b.reused.Load()
}
