package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// NewMaildir creates the cur/new/tmp layout of a maildir at root/name and
// returns its path. An empty name makes root itself the maildir.
func NewMaildir(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	for _, sub := range []string{"cur", "new", "tmp"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			t.Fatalf("create maildir: %v", err)
		}
	}
	return dir
}

// DeliverCur writes raw into dir/cur under the given file name (which may
// carry a ":2,FLAGS" suffix) and returns its path.
func DeliverCur(t *testing.T, dir, name string, raw []byte) string {
	t.Helper()
	return WriteFile(t, dir, filepath.Join("cur", name), raw)
}

// DeliverNew writes raw into dir/new.
func DeliverNew(t *testing.T, dir, name string, raw []byte) string {
	t.Helper()
	return WriteFile(t, dir, filepath.Join("new", name), raw)
}
