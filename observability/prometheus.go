// Package observability exports binrec metrics to Prometheus.
package observability

import (
	"time"

	"github.com/hupe1980/binrec"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements binrec.MetricsCollector on top of
// Prometheus metric vectors.
type PrometheusCollector struct {
	records      *prometheus.CounterVec
	words        *prometheus.CounterVec
	errors       *prometheus.CounterVec
	segments     *prometheus.CounterVec
	bytes        *prometheus.CounterVec
	ratio        *prometheus.HistogramVec
	splits       prometheus.Counter
	backpressure prometheus.Counter
	openFiles    prometheus.Gauge
	transcodes   *prometheus.HistogramVec
}

var _ binrec.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers its metrics
// with reg. A nil reg selects prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &PrometheusCollector{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binrec_records_total",
			Help: "Records written or read",
		}, []string{"op"}),
		words: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binrec_words_total",
			Help: "64-bit words written or read, headers included",
		}, []string{"op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binrec_errors_total",
			Help: "Failed record operations",
		}, []string{"op"}),
		segments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binrec_segments_total",
			Help: "Compressed segments finished by the pipe workers",
		}, []string{"direction"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "binrec_segment_bytes_total",
			Help: "Bytes passed through the pipe workers",
		}, []string{"direction", "form"}),
		ratio: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "binrec_compression_ratio_percent",
			Help:    "Compressed size of a segment as a percentage of its uncompressed size",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}, []string{"direction"}),
		splits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "binrec_stream_splits_total",
			Help: "Compressed outputs that were split into continuation segments",
		}),
		backpressure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "binrec_backpressure_events_total",
			Help: "Times a producer waited for a free pipe slot",
		}),
		openFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "binrec_open_files",
			Help: "Record files currently open",
		}),
		transcodes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "binrec_transcode_duration_seconds",
			Help:    "Duration of plain to compressed conversions",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
	}

	for _, m := range []prometheus.Collector{
		c.records, c.words, c.errors, c.segments, c.bytes, c.ratio,
		c.splits, c.backpressure, c.openFiles, c.transcodes,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordWrite implements binrec.MetricsCollector.
func (c *PrometheusCollector) RecordWrite(words int, err error) {
	c.record("write", words, err)
}

// RecordRead implements binrec.MetricsCollector.
func (c *PrometheusCollector) RecordRead(words int, err error) {
	c.record("read", words, err)
}

func (c *PrometheusCollector) record(op string, words int, err error) {
	if err != nil {
		c.errors.WithLabelValues(op).Inc()
		return
	}
	c.records.WithLabelValues(op).Inc()
	c.words.WithLabelValues(op).Add(float64(words))
}

// RecordSegment implements binrec.MetricsCollector.
func (c *PrometheusCollector) RecordSegment(direction string, uncompressed, compressed int64) {
	c.segments.WithLabelValues(direction).Inc()
	c.bytes.WithLabelValues(direction, "uncompressed").Add(float64(uncompressed))
	c.bytes.WithLabelValues(direction, "compressed").Add(float64(compressed))
	if uncompressed > 0 {
		c.ratio.WithLabelValues(direction).Observe(float64(compressed) * 100 / float64(uncompressed))
	}
}

// RecordSplit implements binrec.MetricsCollector.
func (c *PrometheusCollector) RecordSplit() { c.splits.Inc() }

// RecordBackpressure implements binrec.MetricsCollector.
func (c *PrometheusCollector) RecordBackpressure() { c.backpressure.Inc() }

// RecordOpenFiles implements binrec.MetricsCollector.
func (c *PrometheusCollector) RecordOpenFiles(n int) { c.openFiles.Set(float64(n)) }

// RecordTranscode implements binrec.MetricsCollector.
func (c *PrometheusCollector) RecordTranscode(records int, d time.Duration, err error) {
	c.transcodes.WithLabelValues(status(err)).Observe(d.Seconds())
	if err == nil {
		c.records.WithLabelValues("transcode").Add(float64(records))
	}
}
