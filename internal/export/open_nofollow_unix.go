//go:build unix

package export

import (
	"os"

	"golang.org/x/sys/unix"
)

// createNoFollow opens path for writing without following a symlink in the
// final path component. Without overwrite an existing file is an error.
func createNoFollow(path string, overwrite bool) (*os.File, error) {
	flag := os.O_WRONLY | os.O_CREATE | unix.O_NOFOLLOW
	if overwrite {
		flag |= os.O_TRUNC
	} else {
		flag |= os.O_EXCL
	}
	return os.OpenFile(path, flag, 0o644)
}
