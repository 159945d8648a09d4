// Package s3 archives sealed segments to Amazon S3.
//
//	dst, err := s3.New(ctx, "my-bucket", s3.WithPrefix("runs/42"), s3.WithRegion("eu-west-1"))
//	f, err := binrec.Create("stats.bin.gz", binrec.WithArchiver(dst))
//
// Segments are streamed with the multipart upload manager, so a segment of
// almost 2 GiB never has to be held in memory.
package s3

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Uploader is the subset of *manager.Uploader used by Archiver.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// UploadConfig configures the multipart uploader.
type UploadConfig struct {
	// PartSize is the size of one multipart part. Default: 16 MiB.
	PartSize int64

	// Concurrency is the number of parts uploaded in parallel. Default: 4.
	Concurrency int

	// EnableChecksum requests a CRC32C checksum for every object.
	// Default: true.
	EnableChecksum bool
}

// DefaultUploadConfig returns the upload settings used by New.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:       16 * 1024 * 1024,
		Concurrency:    4,
		EnableChecksum: true,
	}
}

type options struct {
	prefix   string
	region   string
	endpoint string
	upload   UploadConfig
}

// Option configures New.
type Option func(*options)

// WithPrefix sets the key prefix under which segments are stored.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithRegion overrides the region of the shared AWS configuration.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithEndpoint points the client at an S3-compatible endpoint and switches
// to path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithUploadConfig overrides the multipart upload settings.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(o *options) { o.upload = cfg }
}

// Archiver uploads segments to one bucket.
type Archiver struct {
	uploader Uploader
	bucket   string
	prefix   string
	checksum bool
}

// New loads the default AWS configuration and returns an archiver for
// bucket.
func New(ctx context.Context, bucket string, optFns ...Option) (*Archiver, error) {
	o := options{upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&o)
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 archive: load config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
			so.UsePathStyle = true
		}
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = o.upload.PartSize
		u.Concurrency = o.upload.Concurrency
	})

	a := NewArchiver(uploader, bucket, o.prefix)
	a.checksum = o.upload.EnableChecksum
	return a, nil
}

// NewArchiver returns an archiver that uploads with u.
func NewArchiver(u Uploader, bucket, prefix string) *Archiver {
	return &Archiver{uploader: u, bucket: bucket, prefix: prefix}
}

// Key returns the object key a segment is stored under.
func (a *Archiver) Key(segmentPath string) string {
	return path.Join(a.prefix, filepath.Base(segmentPath))
}

// Archive uploads the segment at segmentPath.
func (a *Archiver) Archive(ctx context.Context, segmentPath string) error {
	f, err := os.Open(segmentPath)
	if err != nil {
		return fmt.Errorf("s3 archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(segmentPath)),
		Body:        f,
		ContentType: aws.String("application/octet-stream"),
	}
	if a.checksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	if _, err := a.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3 archive %s: %w", segmentPath, err)
	}
	return nil
}
