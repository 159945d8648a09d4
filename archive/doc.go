// Package archive ships sealed compressed segments to a second location.
//
// An archiver is handed every segment as soon as the compression worker has
// finished it, while the next segment is still being written:
//
//	dst := archive.NewLocal("/backup/run-42")
//	f, err := binrec.Create("stats.bin.gz", binrec.WithArchiver(dst))
//
// The s3 and minio subpackages upload to object storage instead. Uploads run
// concurrently with compression; Close on the record file waits for them and
// returns the first upload error.
package archive
