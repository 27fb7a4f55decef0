// Package export writes message parts to files.
package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/whunmr/mu/internal/fileutil"
	"github.com/whunmr/mu/internal/mime"
)

// defaultExt picks an extension for parts that carry no file name.
var defaultExt = map[string]string{
	"text/plain":       ".txt",
	"text/html":        ".html",
	"text/calendar":    ".ics",
	"message/rfc822":   ".eml",
	"application/pdf":  ".pdf",
	"application/zip":  ".zip",
	"application/json": ".json",
	"image/png":        ".png",
	"image/jpeg":       ".jpg",
	"image/gif":        ".gif",
}

// Saver writes parts into one directory. Parts saved through the same Saver
// that would end up with the same name are numbered apart.
type Saver struct {
	dir       string
	overwrite bool
	used      map[string]int
}

// NewSaver prepares dir, creating it if needed. With overwrite, existing
// files of the same name are replaced; otherwise saving over one fails.
func NewSaver(dir string, overwrite bool) (*Saver, error) {
	abs, err := fileutil.EnsureDir(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("target dir: %w", err)
	}
	return &Saver{dir: abs, overwrite: overwrite, used: make(map[string]int)}, nil
}

// Save writes the decoded content of p and returns the path written.
func (s *Saver) Save(p mime.Part) (string, error) {
	name := s.uniqueName(PartFilename(p))
	path := filepath.Join(s.dir, name)

	f, err := createNoFollow(path, s.overwrite)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%s exists (use overwrite to replace it): %w", path, err)
		}
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	b := p.Content
	for len(b) > 0 {
		n, err := f.Write(b)
		if err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("write %s: %w", path, err)
		}
		b = b[n:]
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func (s *Saver) uniqueName(filename string) string {
	count, exists := s.used[filename]
	s.used[filename] = count + 1
	if !exists {
		return filename
	}
	ext := filepath.Ext(filename)
	base := filename[:len(filename)-len(ext)]
	return fmt.Sprintf("%s_%d%s", base, count+1, ext)
}

// PartFilename is the file name a part is saved under: its own name made
// safe, or "part-<index>" with an extension guessed from its type.
func PartFilename(p mime.Part) string {
	name := SanitizeFilename(filepath.Base(p.FileName))
	name = strings.TrimLeft(name, ".")
	if strings.TrimSpace(name) != "" {
		return name
	}
	return fmt.Sprintf("part-%d%s", p.Index, defaultExt[p.MimeType+"/"+p.MimeSubtype])
}

// SanitizeFilename removes or replaces characters that are invalid in filenames.
func SanitizeFilename(s string) string {
	var result []rune
	for _, r := range s {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r', '\t', 0:
			result = append(result, '_')
		default:
			result = append(result, r)
		}
	}
	return string(result)
}

// FormatBytesLong formats a byte count with two decimals.
func FormatBytesLong(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
