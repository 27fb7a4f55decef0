package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// assertPermNoMoreThan checks that the file at path has permissions no more
// permissive than want. A umask may only remove bits.
func assertPermNoMoreThan(t *testing.T, path string, want os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	got := info.Mode().Perm()
	if got&^want != 0 {
		t.Errorf("perm = %04o, has bits beyond %04o (extra: %04o)", got, want, got&^want)
	}
}

func TestSecureMkdirAll(t *testing.T) {
	tests := []struct {
		name string
		perm os.FileMode
	}{
		{"owner_only_0700", 0700},
		{"permissive_0755", 0755},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "a", "b", "c")
			if err := SecureMkdirAll(path, tt.perm); err != nil {
				t.Fatalf("SecureMkdirAll: %v", err)
			}
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if !info.IsDir() {
				t.Error("expected directory")
			}
			if runtime.GOOS != "windows" {
				assertPermNoMoreThan(t, path, tt.perm)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	base := t.TempDir()

	got, err := EnsureDir(filepath.Join(base, "out", "parts"), 0o755)
	if err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if want := filepath.Join(base, "out", "parts"); got != want {
		t.Errorf("EnsureDir = %q, want %q", got, want)
	}

	file := filepath.Join(base, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := EnsureDir(file, 0o755); err == nil {
		t.Error("EnsureDir on a regular file succeeded")
	}

	if runtime.GOOS == "windows" {
		return
	}
	link := filepath.Join(base, "link")
	if err := os.Symlink(filepath.Join(base, "out"), link); err != nil {
		t.Fatal(err)
	}
	if _, err := EnsureDir(link, 0o755); err == nil {
		t.Error("EnsureDir on a symlink succeeded")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		in, want string
	}{
		{"~", home},
		{"~/mail", filepath.Join(home, "mail")},
		{"/abs/path", "/abs/path"},
		{"rel/~", "rel/~"},
		{"~other/x", "~other/x"},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
