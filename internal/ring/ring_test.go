package ring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO(t *testing.T) {
	r := New(0)
	assert.Equal(t, DefaultCapacity, r.Cap())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Put(ctx, []byte{byte(i)}))
	}
	assert.Equal(t, 5, r.Len())
	for i := 0; i < 5; i++ {
		buf, err := r.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, buf)
	}
	assert.Equal(t, 0, r.Len())

	require.NoError(t, r.Put(ctx, nil))
	buf, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, buf)
}

func TestBackpressure(t *testing.T) {
	r := New(8)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.True(t, r.TryPut([]byte{byte(i)}))
	}
	assert.False(t, r.TryPut([]byte{8}), "ninth outstanding buffer must not fit")

	unblocked := make(chan struct{})
	go func() {
		defer close(unblocked)
		assert.NoError(t, r.Put(ctx, []byte{8}))
	}()

	select {
	case <-unblocked:
		t.Fatal("producer should block on a full ring")
	case <-time.After(50 * time.Millisecond):
	}

	buf, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, buf)

	select {
	case <-unblocked:
	case <-time.After(2 * time.Second):
		t.Fatal("producer should resume once a slot frees")
	}

	for i := 1; i <= 8; i++ {
		buf, err := r.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i)}, buf)
	}
}

func TestConcurrentNoLossNoDup(t *testing.T) {
	r := New(8)
	ctx := context.Background()
	const n = 10000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			buf := []byte{byte(i), byte(i >> 8)}
			if err := r.Put(ctx, buf); err != nil {
				t.Error(err)
				return
			}
		}
		_ = r.Put(ctx, nil)
	}()

	next := 0
	for {
		buf, err := r.Get(ctx)
		require.NoError(t, err)
		if buf == nil {
			break
		}
		got := int(buf[0]) | int(buf[1])<<8
		require.Equal(t, next&0xffff, got)
		next++
	}
	wg.Wait()
	assert.Equal(t, n, next)
}

func TestCancelReleasesWaiters(t *testing.T) {
	r := New(1)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := r.Get(ctx)
		errc <- err
	}()
	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Get should return after cancellation")
	}

	require.NoError(t, r.Put(context.Background(), []byte{1}))
	assert.ErrorIs(t, r.Put(ctx, []byte{2}), context.Canceled)
}
