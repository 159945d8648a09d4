package s3

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUploader struct {
	mock.Mock
	body []byte
}

func (m *mockUploader) Upload(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if input.Body != nil {
		m.body, _ = io.ReadAll(input.Body)
	}
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*manager.UploadOutput)
	return out, args.Error(1)
}

func TestArchiver_Archive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.bin.jz2")
	require.NoError(t, os.WriteFile(path, []byte("compressed"), 0o644))

	t.Run("Success", func(t *testing.T) {
		u := new(mockUploader)
		a := NewArchiver(u, "bucket", "runs/42")
		a.checksum = true

		u.On("Upload", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return *in.Bucket == "bucket" &&
				*in.Key == "runs/42/run.bin.jz2" &&
				in.ChecksumAlgorithm == types.ChecksumAlgorithmCrc32c
		})).Return(&manager.UploadOutput{}, nil).Once()

		require.NoError(t, a.Archive(context.Background(), path))
		assert.Equal(t, "compressed", string(u.body))
		u.AssertExpectations(t)
	})

	t.Run("UploadError", func(t *testing.T) {
		u := new(mockUploader)
		a := NewArchiver(u, "bucket", "")
		boom := errors.New("boom")

		u.On("Upload", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return *in.Key == "run.bin.jz2" && in.ChecksumAlgorithm == ""
		})).Return(nil, boom).Once()

		err := a.Archive(context.Background(), path)
		assert.ErrorIs(t, err, boom)
		u.AssertExpectations(t)
	})

	t.Run("MissingSegment", func(t *testing.T) {
		u := new(mockUploader)
		a := NewArchiver(u, "bucket", "")
		err := a.Archive(context.Background(), filepath.Join(t.TempDir(), "missing.gz"))
		assert.ErrorIs(t, err, os.ErrNotExist)
		u.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})
}

func TestArchiver_Key(t *testing.T) {
	a := NewArchiver(nil, "b", "a/b/")
	assert.Equal(t, "a/b/x.bin.gz", a.Key("/tmp/out/x.bin.gz"))
	assert.Equal(t, "x.bin.gz", NewArchiver(nil, "b", "").Key("x.bin.gz"))
}
