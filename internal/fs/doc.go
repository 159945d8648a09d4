// Package fs provides the filesystem abstraction used by record files and
// segment pipes.
//
// The package defines two interfaces:
//
//   - [File]: an open file with read/write/sync capabilities
//   - [FileSystem]: open, remove, rename, stat and directory listing
//
// # Implementations
//
//   - [LocalFS]: production implementation on top of the os package
//   - [FaultyFS]: test utility that injects I/O errors per file name pattern
//
// Production code uses fs.Default:
//
//	f, err := fs.Default.OpenFile(path, os.O_RDONLY, 0)
//
// Tests inject [FaultyFS] to exercise the failure paths of a compression run:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".jz2", fs.Fault{FailOnOpen: true})
//
// Filesystem calls carry no context.Context. Segment I/O is interrupted by
// cancelling the owning pipe, not individual syscalls.
package fs
