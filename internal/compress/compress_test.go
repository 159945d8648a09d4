package compress

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("interval statistics 0123456789 "), 4096)

	for _, alg := range []Algorithm{Gzip, Zstd, LZ4} {
		t.Run(alg.String(), func(t *testing.T) {
			var buf bytes.Buffer
			zw, err := NewWriter(&buf, alg, DefaultLevel)
			require.NoError(t, err)
			_, err = zw.Write(payload)
			require.NoError(t, err)
			require.NoError(t, zw.Close())
			assert.Less(t, buf.Len(), len(payload))

			zr, got, err := NewReader(&buf)
			require.NoError(t, err)
			assert.Equal(t, alg, got)
			out, err := io.ReadAll(zr)
			require.NoError(t, err)
			require.NoError(t, zr.Close())
			assert.Equal(t, payload, out)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		name string
		want Algorithm
	}{
		{"", Gzip},
		{"gzip", Gzip},
		{"gz", Gzip},
		{"zstd", Zstd},
		{"zst", Zstd},
		{"lz4", LZ4},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := ParseAlgorithm("brotli")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	assert.Equal(t, "Algorithm(9)", Algorithm(9).String())

	_, err = NewWriter(io.Discard, Algorithm(9), 1)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestDetect(t *testing.T) {
	_, err := Detect(bufio.NewReader(strings.NewReader("plain text")))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Detect(bufio.NewReader(strings.NewReader("")))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	alg, err := Detect(bufio.NewReader(bytes.NewReader([]byte{0x1f, 0x8b})))
	require.NoError(t, err)
	assert.Equal(t, Gzip, alg)
}
