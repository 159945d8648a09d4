// Package ring implements the bounded single-producer/single-consumer buffer
// ring that connects a record file to its compression worker.
//
// Two counting semaphores gate the ring: one counts free slots, the other
// filled slots. Each side touches only its own slot index, so no mutex is
// needed beyond the semaphores themselves.
package ring

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultCapacity is the number of slots in a pipe ring.
const DefaultCapacity = 8

// Ring is a fixed-capacity FIFO of byte buffers.
//
// A nil buffer is the end-of-input sentinel. Ring is safe for exactly one
// producer and one consumer.
type Ring struct {
	slots  [][]byte
	free   *semaphore.Weighted
	filled *semaphore.Weighted
	put    int
	get    int
	count  atomic.Int64
}

// New creates a ring with the given number of slots (DefaultCapacity if <= 0).
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	r := &Ring{
		slots:  make([][]byte, capacity),
		free:   semaphore.NewWeighted(int64(capacity)),
		filled: semaphore.NewWeighted(int64(capacity)),
	}
	// The filled counter starts empty.
	r.filled.TryAcquire(int64(capacity))
	return r
}

// Cap returns the number of slots.
func (r *Ring) Cap() int { return len(r.slots) }

// Len returns the number of buffers currently queued.
func (r *Ring) Len() int { return int(r.count.Load()) }

// Put stores buf in the next slot, blocking while the ring is full.
// It returns ctx.Err() if ctx is cancelled while waiting.
func (r *Ring) Put(ctx context.Context, buf []byte) error {
	if err := r.free.Acquire(ctx, 1); err != nil {
		return err
	}
	r.slots[r.put] = buf
	r.put = (r.put + 1) % len(r.slots)
	r.count.Add(1)
	r.filled.Release(1)
	return nil
}

// TryPut stores buf only if a slot is free right now.
func (r *Ring) TryPut(buf []byte) bool {
	if !r.free.TryAcquire(1) {
		return false
	}
	r.slots[r.put] = buf
	r.put = (r.put + 1) % len(r.slots)
	r.count.Add(1)
	r.filled.Release(1)
	return true
}

// Get removes the oldest buffer, blocking while the ring is empty.
// A nil buffer with a nil error is the end-of-input sentinel.
func (r *Ring) Get(ctx context.Context) ([]byte, error) {
	if err := r.filled.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	buf := r.slots[r.get]
	r.slots[r.get] = nil
	r.get = (r.get + 1) % len(r.slots)
	r.count.Add(-1)
	r.free.Release(1)
	return buf, nil
}
