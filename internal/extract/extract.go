// Package extract lists the MIME parts of a message file and saves chosen
// parts to disk.
package extract

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/whunmr/mu/internal/export"
	"github.com/whunmr/mu/internal/mime"
)

// InvalidPartIndexError reports a part index argument that is not a
// positive integer.
type InvalidPartIndexError struct {
	Arg string
}

func (e *InvalidPartIndexError) Error() string {
	return fmt.Sprintf("not a valid part index: %q", e.Arg)
}

// List writes one line per part of msg:
//
//	index filename type/subtype [disposition]
//
// with "<none>" standing in for a missing file name or disposition.
func List(w io.Writer, msg *mime.Message) error {
	for _, p := range msg.Parts() {
		if _, err := fmt.Fprintf(w, "%d %s %s/%s [%s]\n",
			p.Index, orNone(p.FileName), p.MimeType, p.MimeSubtype, orNone(p.Disposition)); err != nil {
			return err
		}
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}

// ParseIndices turns part index arguments into numbers. The first argument
// that is not a positive integer yields an *InvalidPartIndexError.
func ParseIndices(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n <= 0 {
			return nil, &InvalidPartIndexError{Arg: a}
		}
		out = append(out, n)
	}
	return out, nil
}

// Options configures Run.
type Options struct {
	TargetDir string // defaults to "."
	Overwrite bool
	Logger    *slog.Logger
}

// Run is the extract command: with no index arguments it lists the parts
// of the message at path to w; otherwise it saves each requested part.
// All indices are checked before anything is written, and saving stops at
// the first part that fails.
func Run(w io.Writer, path string, indexArgs []string, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	indices, err := ParseIndices(indexArgs)
	if err != nil {
		return err
	}

	msg, err := mime.Open(path)
	if err != nil {
		return err
	}
	if len(indices) == 0 {
		return List(w, msg)
	}

	dir := opts.TargetDir
	if dir == "" {
		dir = "."
	}
	saver, err := export.NewSaver(dir, opts.Overwrite)
	if err != nil {
		return err
	}
	for _, idx := range indices {
		part, err := msg.Part(idx)
		if err != nil {
			return fmt.Errorf("failed to save part %d of %s: %w", idx, path, err)
		}
		out, err := saver.Save(part)
		if err != nil {
			return fmt.Errorf("failed to save part %d of %s: %w", idx, path, err)
		}
		log.Debug("saved part", "index", idx, "path", out, "size", export.FormatBytesLong(int64(len(part.Content))))
	}
	return nil
}
