package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hupe1980/binrec"
	"github.com/hupe1980/binrec/archive"
	"github.com/hupe1980/binrec/archive/minio"
	"github.com/hupe1980/binrec/archive/s3"
)

// newArchiver builds the archiver named by target:
//
//	/backup/dir                         local directory
//	s3://bucket/prefix                  Amazon S3
//	minio://endpoint/bucket/prefix      MinIO over TLS
//	minio+http://endpoint/bucket/prefix MinIO without TLS
//
// An empty target disables archiving.
func newArchiver(ctx context.Context, target string) (binrec.Archiver, error) {
	if target == "" {
		return nil, nil
	}
	if !strings.Contains(target, "://") {
		return archive.NewLocal(target), nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	prefix := strings.Trim(u.Path, "/")

	switch u.Scheme {
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("archive: missing bucket in %q", target)
		}
		var opts []s3.Option
		if prefix != "" {
			opts = append(opts, s3.WithPrefix(prefix))
		}
		if region := u.Query().Get("region"); region != "" {
			opts = append(opts, s3.WithRegion(region))
		}
		if endpoint := u.Query().Get("endpoint"); endpoint != "" {
			opts = append(opts, s3.WithEndpoint(endpoint))
		}
		a, err := s3.New(ctx, u.Host, opts...)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "minio", "minio+http":
		bucket, rest, _ := strings.Cut(prefix, "/")
		if u.Host == "" || bucket == "" {
			return nil, fmt.Errorf("archive: want minio://endpoint/bucket[/prefix], got %q", target)
		}
		a, err := minio.New(u.Host, bucket, rest, u.Scheme == "minio")
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("archive: unsupported scheme %q", u.Scheme)
	}
}
