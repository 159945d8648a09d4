package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrTooManyOpen is returned when the open-file cap would be exceeded.
var ErrTooManyOpen = errors.New("too many record files open")

// DefaultMaxOpenFiles is the leak guard applied when Config.MaxOpenFiles is 0.
const DefaultMaxOpenFiles = 15000

// Config holds resource limits.
type Config struct {
	// MaxOpenFiles is the hard limit of concurrently open record files.
	// If 0, DefaultMaxOpenFiles is used.
	MaxOpenFiles int64

	// MaxBackgroundWorkers is the maximum number of concurrently running
	// compression pipes. If 0, the number of pipes is bounded only by
	// MaxOpenFiles.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec is the maximum segment throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages process-wide limits for record files.
type Controller struct {
	cfg Config

	fileSem *semaphore.Weighted
	open    atomic.Int64

	bgSem *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxOpenFiles <= 0 {
		cfg.MaxOpenFiles = DefaultMaxOpenFiles
	}
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = cfg.MaxOpenFiles
	}

	c := &Controller{
		cfg:     cfg,
		fileSem: semaphore.NewWeighted(cfg.MaxOpenFiles),
		bgSem:   semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquireFile reserves one open-file slot.
// Returns ErrTooManyOpen if the cap is reached. Non-blocking.
func (c *Controller) AcquireFile() error {
	if c == nil {
		return nil
	}
	if !c.fileSem.TryAcquire(1) {
		return ErrTooManyOpen
	}
	c.open.Add(1)
	return nil
}

// ReleaseFile releases an open-file slot.
func (c *Controller) ReleaseFile() {
	if c == nil {
		return
	}
	c.fileSem.Release(1)
	c.open.Add(-1)
}

// OpenFiles returns the number of reserved open-file slots.
func (c *Controller) OpenFiles() int64 {
	if c == nil {
		return 0
	}
	return c.open.Load()
}

// MaxOpenFiles returns the configured open-file cap.
func (c *Controller) MaxOpenFiles() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MaxOpenFiles
}

// AcquireBackground reserves a background worker slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.bgSem.Acquire(ctx, 1)
}

// TryAcquireBackground attempts to reserve a background worker slot without blocking.
func (c *Controller) TryAcquireBackground() bool {
	if c == nil {
		return true
	}
	return c.bgSem.TryAcquire(1)
}

// ReleaseBackground releases a background worker slot.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgSem.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than one second of budget are split into burst-sized waits.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// TryAcquireIO attempts to acquire IO tokens without blocking.
func (c *Controller) TryAcquireIO(bytes int) bool {
	if c == nil || c.ioLimiter == nil {
		return true
	}
	return c.ioLimiter.AllowN(time.Now(), bytes)
}
