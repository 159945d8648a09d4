//go:build linux

package fs

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential tells the kernel that f is read front to back, which
// doubles the readahead window for segment and record files.
func adviseSequential(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
