// Package indexer brings the index store in line with the maildirs below a
// root directory.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/whunmr/mu/internal/maildir"
	"github.com/whunmr/mu/internal/mime"
	"github.com/whunmr/mu/internal/store"
)

// Status classifies a file (or stale document) during a run.
type Status int

const (
	StatusNew Status = iota
	StatusUpdate
	StatusUpToDate
	StatusCleanup   // document whose file is gone
	StatusCleanedUp // ...after it was removed
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusUpdate:
		return "update"
	case StatusUpToDate:
		return "uptodate"
	case StatusCleanup:
		return "cleanup"
	case StatusCleanedUp:
		return "cleaned-up"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Stats counts what a run did.
type Stats struct {
	New       int64
	Updated   int64
	UpToDate  int64
	CleanedUp int64
	Errors    int64 // files that could not be read or parsed
	Duration  time.Duration
}

// Processed is the number of files looked at.
func (s Stats) Processed() int64 {
	return s.New + s.Updated + s.UpToDate + s.Errors
}

// Options configures an Indexer.
type Options struct {
	// Workers is the number of files parsed concurrently. Defaults to
	// GOMAXPROCS.
	Workers int
	// MaxBodyRunes limits how much of each body is indexed. 0 means all.
	MaxBodyRunes int
	// Cleanup removes documents whose files no longer exist.
	Cleanup bool
	// Progress, when set, is called from the writer after every
	// ProgressEvery documents and once at the end.
	Progress      func(Stats)
	ProgressEvery int
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Indexer walks maildirs and writes documents to a store. Only one run
// should write to a store at a time.
type Indexer struct {
	store *store.Store
	opts  Options
	log   *slog.Logger
}

// New returns an indexer writing to st.
func New(st *store.Store, opts Options) *Indexer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 500
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{store: st, opts: opts, log: log}
}

type job struct {
	file   maildir.File
	status Status
}

type result struct {
	job
	doc *store.Document
	err error
}

// Run indexes every maildir below root. Files whose mtime matches the
// stored one are skipped. Unreadable messages are counted and logged, not
// fatal; store errors abort the run.
func (ix *Indexer) Run(ctx context.Context, root string) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	dirs, err := maildir.Discover(root)
	if err != nil {
		return nil, err
	}
	known, err := ix.store.DocumentMTimes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load indexed documents: %w", err)
	}

	var jobs []job
	var skipped []string
	seen := make(map[string]bool, len(known))
	for _, md := range dirs {
		files, err := md.Files()
		if err != nil {
			ix.log.Warn("skipping maildir", "path", md.Path, "error", err)
			skipped = append(skipped, md.Path)
			continue
		}
		for _, f := range files {
			seen[f.Path] = true
			info, ok := known[f.Path]
			switch {
			case !ok:
				jobs = append(jobs, job{file: f, status: StatusNew})
			case info.MTime != f.MTime:
				jobs = append(jobs, job{file: f, status: StatusUpdate})
			default:
				stats.UpToDate++
				metricFiles.WithLabelValues(StatusUpToDate.String()).Inc()
			}
		}
	}
	ix.log.Info("indexing", "root", root, "maildirs", len(dirs),
		"to_index", len(jobs), "up_to_date", stats.UpToDate)

	if err := ix.index(ctx, jobs, stats); err != nil {
		return nil, err
	}

	if ix.opts.Cleanup {
		if err := ix.cleanup(ctx, known, seen, skipped, stats); err != nil {
			return nil, err
		}
	}

	if err := ix.store.SetLastIndexed(ctx, ix.opts.Now().Unix()); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	metricRunDuration.Observe(stats.Duration.Seconds())
	if ix.opts.Progress != nil {
		ix.opts.Progress(*stats)
	}
	ix.log.Info("indexing done", "new", stats.New, "updated", stats.Updated,
		"up_to_date", stats.UpToDate, "cleaned_up", stats.CleanedUp,
		"errors", stats.Errors, "duration", stats.Duration)
	return stats, nil
}

// index parses files on a bounded pool of workers and writes the results
// from the calling goroutine.
func (ix *Indexer) index(ctx context.Context, jobs []job, stats *Stats) error {
	if len(jobs) == 0 {
		return nil
	}

	// Cancelled on the first write error so no more files are parsed.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(wctx)
	g.SetLimit(ix.opts.Workers)
	results := make(chan result, ix.opts.Workers)

	go func() {
		defer close(results)
		for _, j := range jobs {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				r := result{job: j}
				msg, err := mime.Open(j.file.Path)
				if err != nil {
					r.err = err
				} else {
					r.doc = buildDocument(j.file, msg, ix.opts.MaxBodyRunes)
					ix.log.Debug("parsed", "path", j.file.Path, "subject", summary(msg))
				}
				select {
				case results <- r:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		_ = g.Wait()
	}()

	var writeErr error
	n := 0
	for r := range results {
		if writeErr != nil {
			continue // drain
		}
		if r.err != nil {
			stats.Errors++
			metricFiles.WithLabelValues("error").Inc()
			var oe *mime.MessageOpenError
			if errors.As(r.err, &oe) {
				ix.log.Warn("cannot index message", "path", oe.Path, "error", oe.Err)
			} else {
				ix.log.Warn("cannot index message", "path", r.file.Path, "error", r.err)
			}
			continue
		}
		if _, err := ix.store.AddDocument(ctx, r.doc); err != nil {
			writeErr = fmt.Errorf("index %s: %w", r.file.Path, err)
			cancel()
			continue
		}
		if r.status == StatusNew {
			stats.New++
		} else {
			stats.Updated++
		}
		metricFiles.WithLabelValues(r.status.String()).Inc()

		n++
		if ix.opts.Progress != nil && n%ix.opts.ProgressEvery == 0 {
			ix.opts.Progress(*stats)
		}
	}

	if writeErr != nil {
		return writeErr
	}
	return ctx.Err()
}

// cleanup removes documents whose files were not seen. Documents below a
// maildir that could not be listed are kept.
func (ix *Indexer) cleanup(ctx context.Context, known map[string]store.DocumentInfo, seen map[string]bool, skipped []string, stats *Stats) error {
	for path, info := range known {
		if seen[path] || under(path, skipped) {
			continue
		}
		ix.log.Debug("removing stale document", "path", path, "status", StatusCleanup)
		if err := ix.store.RemoveDocument(ctx, info.ID); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		stats.CleanedUp++
		metricFiles.WithLabelValues(StatusCleanedUp.String()).Inc()
	}
	return nil
}

func under(path string, dirs []string) bool {
	for _, d := range dirs {
		if strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
