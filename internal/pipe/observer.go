package pipe

import "context"

// SegmentEvent describes one sealed (or fully read) segment.
type SegmentEvent struct {
	Direction    Direction
	Path         string
	Uncompressed int64
	Compressed   int64
}

// Ratio returns compressed size as a percentage of the uncompressed size.
func (e SegmentEvent) Ratio() float64 {
	if e.Uncompressed == 0 {
		return 0
	}
	return float64(e.Compressed) * 100 / float64(e.Uncompressed)
}

// Observer receives notifications from the pipe worker. Calls happen on the
// worker goroutine, except Backpressure, which runs on the producer whenever
// it has to wait for a ring slot or a background worker slot.
type Observer interface {
	SegmentSealed(ev SegmentEvent)
	StreamSplit(from, to string)
	Backpressure()
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) SegmentSealed(SegmentEvent)  {}
func (NoopObserver) StreamSplit(string, string) {}
func (NoopObserver) Backpressure()              {}

// Archiver ships a sealed segment somewhere else. The segment file is not
// modified after it is handed over.
type Archiver interface {
	Archive(ctx context.Context, path string) error
}
