package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucket, object, filePath, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func TestArchiver_Archive(t *testing.T) {
	c := new(mockClient)
	a := NewArchiver(c, "bucket", "runs")

	c.On("FPutObject", mock.Anything, "bucket", "runs/x.bin.jz1", "/data/x.bin.jz1", mock.Anything).
		Return(minio.UploadInfo{Size: 10}, nil).Once()
	assert.NoError(t, a.Archive(context.Background(), "/data/x.bin.jz1"))

	boom := errors.New("boom")
	c.On("FPutObject", mock.Anything, "bucket", "runs/x.bin.jz2", "/data/x.bin.jz2", mock.Anything).
		Return(minio.UploadInfo{}, boom).Once()
	assert.ErrorIs(t, a.Archive(context.Background(), "/data/x.bin.jz2"), boom)

	c.AssertExpectations(t)
}

func TestNew(t *testing.T) {
	a, err := New("localhost:9000", "bucket", "", false)
	assert.NoError(t, err)
	assert.Equal(t, "x.gz", a.Key("x.gz"))
}
