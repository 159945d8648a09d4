package observability

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/binrec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	c.RecordWrite(3, nil)
	c.RecordWrite(5, nil)
	c.RecordWrite(0, errors.New("boom"))
	c.RecordRead(3, nil)
	c.RecordSegment("compress", 1000, 250)
	c.RecordSplit()
	c.RecordBackpressure()
	c.RecordOpenFiles(7)
	c.RecordTranscode(12, time.Second, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.records.WithLabelValues("write")))
	assert.Equal(t, 8.0, testutil.ToFloat64(c.words.WithLabelValues("write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.records.WithLabelValues("read")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.records.WithLabelValues("transcode")))
	assert.Equal(t, 250.0, testutil.ToFloat64(c.bytes.WithLabelValues("compress", "compressed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.splits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.backpressure))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.openFiles))

	// Registering twice on the same registry fails.
	_, err = NewPrometheusCollector(reg)
	assert.Error(t, err)
}

func TestPrometheusCollector_WithFile(t *testing.T) {
	c, err := NewPrometheusCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	name := filepath.Join(t.TempDir(), "m.bin.gz")
	f, err := binrec.Create(name, binrec.WithMetricsCollector(c), binrec.WithRegistry(binrec.NewRegistry(binrec.RegistryConfig{})))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		f.PutLong(int64(i))
		require.NoError(t, f.WriteRecord(binrec.RecordDate, 0))
	}
	require.NoError(t, f.Close())

	assert.Equal(t, 10.0, testutil.ToFloat64(c.records.WithLabelValues("write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.segments.WithLabelValues("compress")))
}
