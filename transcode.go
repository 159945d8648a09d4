package binrec

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/binrec/internal/fs"
	"github.com/hupe1980/binrec/internal/segment"
)

// CompressFile rewrites the plain record file name as the compressed file
// "name.gz" and deletes the plain file. Records are copied without decoding
// their fields. Empty and missing files are skipped.
func CompressFile(ctx context.Context, name string, optFns ...Option) error {
	o := applyOptions(optFns)
	size := fs.Size(o.fs, name)
	if size == 0 {
		return nil
	}

	optFns = append([]Option{WithContext(ctx)}, optFns...)
	start := time.Now()
	records, err := compressFile(ctx, name, o, optFns)
	o.metricsCollector.RecordTranscode(records, time.Since(start), err)
	o.logger.LogTranscode(ctx, name, records, size, err)
	return err
}

func compressFile(ctx context.Context, name string, o options, optFns []Option) (records int, err error) {
	in, err := Open(name, optFns...)
	if err != nil {
		return 0, err
	}
	defer func() {
		if in != nil {
			_ = in.close()
		}
	}()

	out, err := Create(segment.CompressedName(name), append(optFns, withKeepPlain())...)
	if err != nil {
		return 0, err
	}
	defer func() {
		if out != nil {
			_ = out.close()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		ok, err := in.ReadRecord()
		if err != nil {
			return records, err
		}
		if !ok {
			break
		}
		if err := in.CopyTo(out); err != nil {
			return records, err
		}
		records++
	}

	ierr := in.Close()
	in = nil
	oerr := out.Close()
	out = nil
	if err := errors.Join(ierr, oerr); err != nil {
		return records, err
	}

	if err := o.fs.Remove(name); err != nil {
		err = &OpError{Op: "remove", Name: name, Err: err}
		if o.failure != nil {
			o.failure(name, "remove", err)
		}
		return records, err
	}
	return records, nil
}
