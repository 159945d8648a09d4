package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/hupe1980/binrec"
	"github.com/hupe1980/binrec/archive"
	"github.com/hupe1980/binrec/archive/minio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{flags: DefaultConfig()}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFixture(t *testing.T, name string) {
	t.Helper()
	f, err := binrec.Create(name)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		f.PutLong(int64(i))
		if i%2 == 0 {
			f.PutStr("op")
			require.NoError(t, f.WriteRecord(binrec.RecordStringArray, 1))
		} else {
			require.NoError(t, f.WriteRecord(binrec.RecordDate, 0))
		}
	}
	require.NoError(t, f.Close())
}

func TestStat(t *testing.T) {
	name := filepath.Join(t.TempDir(), "run.bin")
	writeFixture(t, name)

	t.Run("Text", func(t *testing.T) {
		out, err := execute(t, "stat", name)
		require.NoError(t, err)
		assert.Contains(t, out, "records  6")
		assert.Contains(t, out, "segment  "+name)
		assert.Contains(t, out, "TYPE")
	})

	t.Run("JSON", func(t *testing.T) {
		out, err := execute(t, "stat", "--json", name)
		require.NoError(t, err)

		var st fileStats
		require.NoError(t, json.Unmarshal([]byte(out), &st))
		assert.Equal(t, int64(6), st.Records)
		// Three records of 2 words and three of 3 words.
		assert.Equal(t, int64(15), st.Words)
		assert.Equal(t, int64(120), st.Bytes)
		assert.Equal(t, []typeStats{
			{Type: binrec.RecordDate, Version: 0, Records: 3, Words: 6},
			{Type: binrec.RecordStringArray, Version: 1, Records: 3, Words: 9},
		}, st.Types)
	})
}

func TestDump(t *testing.T) {
	name := filepath.Join(t.TempDir(), "run.bin")
	writeFixture(t, name)

	out, err := execute(t, "dump", "--limit", "2", "--words", name)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "0 type=31 version=1 words=3 EEEE1F0100000003 0000000000000000 0002006F00700000", lines[0])
	assert.Equal(t, "1 type=1 version=0 words=2 EEEE010000000002 0000000000000001", lines[1])
}

func TestCompress(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(t.TempDir(), "backup")
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	writeFixture(t, a)
	writeFixture(t, b)

	_, err := execute(t, "compress", "--jobs", "2", "--codec", "zstd", "--archive", backup, a, b)
	require.NoError(t, err)

	for _, name := range []string{a, b} {
		_, err := os.Stat(name)
		assert.ErrorIs(t, err, os.ErrNotExist)
		_, err = os.Stat(name + ".gz")
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(backup, filepath.Base(name)+".gz"))
		assert.NoError(t, err)
	}

	// The logical name still resolves.
	out, err := execute(t, "stat", "--json", a)
	require.NoError(t, err)
	var st fileStats
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, int64(6), st.Records)
	assert.Greater(t, st.CompressionRatio, 0.0)
	assert.Equal(t, []string{a + ".gz"}, st.Segments)
}

func TestExistsAndRm(t *testing.T) {
	name := filepath.Join(t.TempDir(), "run.bin")
	writeFixture(t, name)

	_, err := execute(t, "exists", name)
	assert.NoError(t, err)

	_, err = execute(t, "rm", name)
	require.NoError(t, err)

	_, err = execute(t, "exists", name)
	var ee *exitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 1, ee.code)
}

func TestConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
codec: zstd
level: 3
segment_limit: 64MiB
io_limit: 10MB
log_format: json
jobs: 8
`), 0o644))

	a := &app{flags: DefaultConfig()}
	root := newRootCmd(a)
	root.SetArgs([]string{"--config", path, "--level", "5", "exists", filepath.Join(t.TempDir(), "x")})
	_ = root.ExecuteContext(context.Background())

	assert.Equal(t, "zstd", a.cfg.Codec)
	assert.Equal(t, 5, a.cfg.Level)
	assert.Equal(t, 8, a.cfg.Jobs)
	assert.Equal(t, binrec.CodecZstd, a.settings.codec)
	assert.Equal(t, int64(64<<20), a.settings.segmentLimit)
	assert.Equal(t, int64(10_000_000), a.settings.ioLimit)
	assert.Nil(t, a.failure)
}

func TestConfig_Errors(t *testing.T) {
	_, err := execute(t, "--codec", "brotli", "exists", "x")
	assert.ErrorIs(t, err, binrec.ErrUnknownCodec)

	_, err = execute(t, "--segment-limit", "lots", "exists", "x")
	assert.ErrorContains(t, err, "segment-limit")

	_, err = execute(t, "--log-format", "xml", "exists", "x")
	assert.ErrorContains(t, err, "log-format")

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "exists", "x")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewArchiver(t *testing.T) {
	ctx := context.Background()

	a, err := newArchiver(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = newArchiver(ctx, "/tmp/backup")
	require.NoError(t, err)
	assert.IsType(t, &archive.Local{}, a)

	a, err = newArchiver(ctx, "minio+http://localhost:9000/bucket/runs/42")
	require.NoError(t, err)
	require.IsType(t, &minio.Archiver{}, a)
	assert.Equal(t, "runs/42/x.gz", a.(*minio.Archiver).Key("x.gz"))

	for _, target := range []string{"s3:///prefix", "minio://localhost:9000", "ftp://host/x"} {
		_, err := newArchiver(ctx, target)
		assert.Error(t, err, target)
	}
}
