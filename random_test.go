package binrec

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/binrec/testutil"
)

func putRecord(t *testing.T, f *File, rec testutil.Record) {
	t.Helper()
	for _, fd := range rec.Fields {
		switch fd.Kind {
		case testutil.KindLong:
			f.PutLong(fd.Long)
		case testutil.KindInt:
			f.PutInt(fd.Int)
		case testutil.KindShort:
			f.PutShort(fd.Short)
		case testutil.KindChar:
			f.PutChar(fd.Char)
		case testutil.KindByte:
			f.PutByte(fd.Byte)
		case testutil.KindString:
			f.PutStr(fd.Str)
		}
	}
	require.NoError(t, f.WriteRecord(rec.Type, rec.Version))
}

func checkRecord(t *testing.T, f *File, rec testutil.Record, i int) {
	t.Helper()
	ok, err := f.ReadRecord()
	require.NoError(t, err, "record %d", i)
	require.True(t, ok, "record %d", i)
	assert.Equal(t, rec.Type, f.Type(), "record %d", i)
	assert.Equal(t, rec.Version, f.Version(), "record %d", i)
	assert.Equal(t, rec.Words(), f.Words(), "record %d", i)

	for j, fd := range rec.Fields {
		switch fd.Kind {
		case testutil.KindLong:
			assert.Equal(t, fd.Long, f.GetLong(), "record %d field %d", i, j)
		case testutil.KindInt:
			assert.Equal(t, fd.Int, f.GetInt(), "record %d field %d", i, j)
		case testutil.KindShort:
			assert.Equal(t, fd.Short, f.GetShort(), "record %d field %d", i, j)
		case testutil.KindChar:
			assert.Equal(t, fd.Char, f.GetChar(), "record %d field %d", i, j)
		case testutil.KindByte:
			assert.Equal(t, fd.Byte, f.GetByte(), "record %d field %d", i, j)
		case testutil.KindString:
			assert.Equal(t, fd.Str, f.GetStr(), "record %d field %d", i, j)
		}
	}
	require.NoError(t, f.Err(), "record %d", i)
}

func TestFile_RandomRecords(t *testing.T) {
	recs := testutil.NewRNG(42).Records(2000, 16)

	tests := []struct {
		name string
		file string
		opts []Option
	}{
		{"Plain", "random.bin", nil},
		{"Gzip", "random.bin.gz", nil},
		// Small buffers and segments force records across buffer and
		// segment boundaries.
		{"SmallSegments", "random.bin.gz", []Option{WithBufferSize(256), WithSegmentLimit(8 << 10)}},
		{"LZ4", "random.bin.gz", []Option{WithCodec(CodecLZ4), WithBufferSize(512)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := filepath.Join(t.TempDir(), tt.file)
			opts := append([]Option{WithRegistry(NewRegistry(RegistryConfig{}))}, tt.opts...)

			w, err := Create(name, opts...)
			require.NoError(t, err)
			for _, rec := range recs {
				putRecord(t, w, rec)
			}
			require.NoError(t, w.Close())

			r, err := Open(name, opts...)
			require.NoError(t, err)
			for i, rec := range recs {
				checkRecord(t, r, rec, i)
			}
			ok, err := r.ReadRecord()
			require.NoError(t, err)
			assert.False(t, ok)
			require.NoError(t, r.Close())
		})
	}
}

func TestFile_RandomRecordsFake(t *testing.T) {
	recs := testutil.NewRNG(7).Records(300, 24)
	store := &Records{}

	w, err := CreateFake(store)
	require.NoError(t, err)
	for _, rec := range recs {
		putRecord(t, w, rec)
	}
	require.NoError(t, w.Close())
	assert.Equal(t, len(recs), store.Len())

	// Copying every record yields identical words.
	r, err := OpenFake(store)
	require.NoError(t, err)
	copied := &Records{}
	out, err := CreateFake(copied)
	require.NoError(t, err)
	for {
		ok, err := r.ReadRecord()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.NoError(t, r.CopyTo(out))
	}
	require.NoError(t, r.Close())
	require.NoError(t, out.Close())
	assert.Equal(t, store.records, copied.records)
}
