// Package minio archives sealed segments to MinIO or any other
// S3-compatible object store reachable through minio-go.
package minio

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client is the subset of *minio.Client used by Archiver.
type Client interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Archiver uploads segments to one bucket.
type Archiver struct {
	client Client
	bucket string
	prefix string
}

// New connects to endpoint with the credentials found in the MINIO_ACCESS_KEY
// and MINIO_SECRET_KEY environment variables.
func New(endpoint, bucket, prefix string, secure bool) (*Archiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewEnvMinio(),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio archive: %w", err)
	}
	return NewArchiver(client, bucket, prefix), nil
}

// NewArchiver returns an archiver that uploads with client.
func NewArchiver(client Client, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object name a segment is stored under.
func (a *Archiver) Key(segmentPath string) string {
	return path.Join(a.prefix, filepath.Base(segmentPath))
}

// Archive uploads the segment at segmentPath.
func (a *Archiver) Archive(ctx context.Context, segmentPath string) error {
	_, err := a.client.FPutObject(ctx, a.bucket, a.Key(segmentPath), segmentPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("minio archive %s: %w", segmentPath, err)
	}
	return nil
}
