// Package maildir finds maildirs below a root directory and lists their
// messages.
package maildir

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/whunmr/mu/internal/fields"
)

// noIndexMarker in a directory excludes it and everything below it.
const noIndexMarker = ".noindex"

// Maildir is one directory with cur/ and new/ subdirectories.
type Maildir struct {
	// Path is the absolute path of the maildir.
	Path string
	// Name is the path relative to the root with a leading slash, "/" for
	// the root itself. It is what the maildir field stores.
	Name string
}

// File is a message file inside a maildir.
type File struct {
	Path    string
	Maildir string // Maildir.Name
	Flags   fields.MsgFlags
	MTime   int64
	Size    int64
}

// Discover walks root and returns every maildir below it, sorted by path.
func Discover(root string) ([]Maildir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("maildir discover: abs path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("maildir discover: stat %q: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("maildir discover: %q is not a directory", abs)
	}

	var dirs []Maildir
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == abs {
				return err
			}
			return nil // unreadable subtree
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case "cur", "new", "tmp":
			if isMaildir(filepath.Dir(path)) {
				return filepath.SkipDir
			}
		}
		if exists(filepath.Join(path, noIndexMarker)) {
			return filepath.SkipDir
		}
		if isMaildir(path) {
			dirs = append(dirs, Maildir{Path: path, Name: NameFromPath(abs, path)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("maildir discover: walk: %w", err)
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Path < dirs[j].Path })
	return dirs, nil
}

// NameFromPath returns the maildir name of dir relative to root.
func NameFromPath(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return "/"
	}
	if strings.HasPrefix(rel, "..") {
		return "/" + filepath.Base(dir)
	}
	return "/" + filepath.ToSlash(rel)
}

func isMaildir(path string) bool {
	return isDir(filepath.Join(path, "cur")) && isDir(filepath.Join(path, "new"))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Files lists the messages in cur/ and new/ of md. Hidden files and
// directories are skipped; a file that vanishes while listing is ignored.
func (md Maildir) Files() ([]File, error) {
	var files []File
	for _, sub := range []string{"new", "cur"} {
		dir := filepath.Join(md.Path, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			files = append(files, File{
				Path:    filepath.Join(dir, e.Name()),
				Maildir: md.Name,
				Flags:   ParseFlags(e.Name(), sub == "new"),
				MTime:   info.ModTime().Unix(),
				Size:    info.Size(),
			})
		}
	}
	return files, nil
}
