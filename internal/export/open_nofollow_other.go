//go:build !unix

package export

import (
	"fmt"
	"os"
)

// createNoFollow is a best-effort equivalent of the unix version: the
// symlink check and the open are not atomic here.
func createNoFollow(path string, overwrite bool) (*os.File, error) {
	if st, err := os.Lstat(path); err == nil && st.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("%q is a symlink", path)
	}
	flag := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flag |= os.O_TRUNC
	} else {
		flag |= os.O_EXCL
	}
	return os.OpenFile(path, flag, 0o644)
}
