// Package fileutil holds small file helpers shared by the commands that
// write to disk.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecureMkdirAll creates a directory path and all parents that do not yet
// exist.
func SecureMkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// EnsureDir creates dir if needed and checks that it is a real directory,
// not a symlink to one. It returns the cleaned absolute path.
func EnsureDir(dir string, perm os.FileMode) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", dir, err)
	}
	if err := SecureMkdirAll(abs, perm); err != nil {
		return "", fmt.Errorf("create %q: %w", abs, err)
	}
	st, err := os.Lstat(abs)
	if err != nil {
		return "", err
	}
	if st.Mode()&os.ModeSymlink != 0 {
		return "", fmt.Errorf("%q is a symlink", abs)
	}
	if !st.IsDir() {
		return "", fmt.Errorf("%q is not a directory", abs)
	}
	return abs, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
