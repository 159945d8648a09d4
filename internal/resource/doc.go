// Package resource implements the Controller that bounds the resources a
// process spends on record files.
//
// The Controller governs three things:
//
//   - Open files: a hard cap on concurrently open record files, enforced
//     fail-fast as a leak guard
//   - Background workers: the number of compression pipes running at once
//   - IO: a token bucket limiting segment bytes per second
//
// # Open files
//
//	rc := resource.NewController(resource.Config{MaxOpenFiles: 15000})
//	if err := rc.AcquireFile(); err != nil {
//	    // ErrTooManyOpen
//	}
//	defer rc.ReleaseFile()
//
// # IO rate limiting
//
//	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 64 << 20})
//	w := resource.NewRateLimitedWriter(ctx, segmentFile, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops.
package resource
