package binrec

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus
// (see the observability package).
type MetricsCollector interface {
	// RecordWrite is called after each WriteRecord.
	// words is the record length including the header word.
	RecordWrite(words int, err error)

	// RecordRead is called after each record read from a file.
	RecordRead(words int, err error)

	// RecordSegment is called when a pipe finishes a segment.
	// direction is "compress" or "decompress".
	RecordSegment(direction string, uncompressed, compressed int64)

	// RecordSplit is called when a compressed output is split into
	// continuation segments for the first time.
	RecordSplit()

	// RecordBackpressure is called when a producer has to wait for a free
	// pipe slot.
	RecordBackpressure()

	// RecordOpenFiles is called with the number of open files of a registry
	// after every open and close.
	RecordOpenFiles(n int)

	// RecordTranscode is called after each CompressFile.
	RecordTranscode(records int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordWrite(int, error)                    {}
func (NoopMetricsCollector) RecordRead(int, error)                     {}
func (NoopMetricsCollector) RecordSegment(string, int64, int64)        {}
func (NoopMetricsCollector) RecordSplit()                              {}
func (NoopMetricsCollector) RecordBackpressure()                       {}
func (NoopMetricsCollector) RecordOpenFiles(int)                       {}
func (NoopMetricsCollector) RecordTranscode(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	RecordsWritten     atomic.Int64
	WordsWritten       atomic.Int64
	WriteErrors        atomic.Int64
	RecordsRead        atomic.Int64
	WordsRead          atomic.Int64
	ReadErrors         atomic.Int64
	SegmentsCompressed atomic.Int64
	SegmentsExpanded   atomic.Int64
	BytesUncompressed  atomic.Int64
	BytesCompressed    atomic.Int64
	Splits             atomic.Int64
	BackpressureWaits  atomic.Int64
	OpenFiles          atomic.Int64
	TranscodeCount     atomic.Int64
	TranscodeRecords   atomic.Int64
	TranscodeErrors    atomic.Int64
	TranscodeNanos     atomic.Int64
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(words int, err error) {
	if err != nil {
		b.WriteErrors.Add(1)
		return
	}
	b.RecordsWritten.Add(1)
	b.WordsWritten.Add(int64(words))
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(words int, err error) {
	if err != nil {
		b.ReadErrors.Add(1)
		return
	}
	b.RecordsRead.Add(1)
	b.WordsRead.Add(int64(words))
}

// RecordSegment implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSegment(direction string, uncompressed, compressed int64) {
	if direction == "compress" {
		b.SegmentsCompressed.Add(1)
	} else {
		b.SegmentsExpanded.Add(1)
	}
	b.BytesUncompressed.Add(uncompressed)
	b.BytesCompressed.Add(compressed)
}

// RecordSplit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSplit() {
	b.Splits.Add(1)
}

// RecordBackpressure implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBackpressure() {
	b.BackpressureWaits.Add(1)
}

// RecordOpenFiles implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpenFiles(n int) {
	b.OpenFiles.Store(int64(n))
}

// RecordTranscode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTranscode(records int, duration time.Duration, err error) {
	b.TranscodeCount.Add(1)
	b.TranscodeRecords.Add(int64(records))
	b.TranscodeNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.TranscodeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RecordsWritten:     b.RecordsWritten.Load(),
		WordsWritten:       b.WordsWritten.Load(),
		WriteErrors:        b.WriteErrors.Load(),
		RecordsRead:        b.RecordsRead.Load(),
		WordsRead:          b.WordsRead.Load(),
		ReadErrors:         b.ReadErrors.Load(),
		SegmentsCompressed: b.SegmentsCompressed.Load(),
		SegmentsExpanded:   b.SegmentsExpanded.Load(),
		BytesUncompressed:  b.BytesUncompressed.Load(),
		BytesCompressed:    b.BytesCompressed.Load(),
		Splits:             b.Splits.Load(),
		BackpressureWaits:  b.BackpressureWaits.Load(),
		OpenFiles:          b.OpenFiles.Load(),
		TranscodeCount:     b.TranscodeCount.Load(),
		TranscodeRecords:   b.TranscodeRecords.Load(),
		TranscodeErrors:    b.TranscodeErrors.Load(),
		TranscodeAvgNanos:  b.getAvgTranscodeNanos(),
	}
}

func (b *BasicMetricsCollector) getAvgTranscodeNanos() int64 {
	count := b.TranscodeCount.Load()
	if count == 0 {
		return 0
	}
	return b.TranscodeNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RecordsWritten     int64
	WordsWritten       int64
	WriteErrors        int64
	RecordsRead        int64
	WordsRead          int64
	ReadErrors         int64
	SegmentsCompressed int64
	SegmentsExpanded   int64
	BytesUncompressed  int64
	BytesCompressed    int64
	Splits             int64
	BackpressureWaits  int64
	OpenFiles          int64
	TranscodeCount     int64
	TranscodeRecords   int64
	TranscodeErrors    int64
	TranscodeAvgNanos  int64
}

// CompressionRatio returns the compressed size of all finished segments as a
// percentage of their uncompressed size.
func (s BasicMetricsStats) CompressionRatio() float64 {
	if s.BytesUncompressed == 0 {
		return 0
	}
	return float64(s.BytesCompressed) * 100 / float64(s.BytesUncompressed)
}
