// Package query compiles search expressions against the index store and
// returns ordered result iterators.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/whunmr/mu/internal/fields"
	"github.com/whunmr/mu/internal/search"
	"github.com/whunmr/mu/internal/store"
)

// Engine runs queries against one index store. It is safe for concurrent
// use; each Run returns an independent iterator.
type Engine struct {
	store  *store.Store
	dates  search.DateParser
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used for relative dates such as "7d".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.dates.Now = now }
}

// WithLocation sets the zone calendar dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.dates.Location = loc }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Sort selects the result order. The zero value orders by relevance.
type Sort struct {
	field fields.ID
	set   bool
}

// SortBy orders results by the stored value of id. fields.None orders by
// relevance.
func SortBy(id fields.ID) Sort {
	if id == fields.None {
		return Sort{}
	}
	return Sort{field: id, set: true}
}

// Field returns the sort field, or fields.None for relevance.
func (s Sort) Field() fields.ID {
	if !s.set {
		return fields.None
	}
	return s.field
}

func (s Sort) String() string {
	if !s.set {
		return "relevance"
	}
	return s.field.String()
}

// RunOptions controls ordering and batching of a query. The zero value
// orders by relevance, best first, in one batch.
type RunOptions struct {
	Sort Sort
	// Reverse sorts largest first; for relevance it means worst first.
	Reverse bool
	// BatchSize is the number of ids fetched per round trip. 0 fetches
	// everything at once.
	BatchSize int
}

// DefaultRunOptions orders by relevance, best first, in one batch.
func DefaultRunOptions() RunOptions {
	return RunOptions{}
}

// New returns an engine over st. The store must carry the current schema.
func New(st *store.Store, opts ...Option) (*Engine, error) {
	e := &Engine{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if st == nil {
		return nil, &StoreUnavailableError{Op: "open", Err: errors.New("no store")}
	}

	v, err := st.Version(context.Background())
	if err != nil {
		return nil, &StoreUnavailableError{Op: "schema version", Err: err}
	}
	if v != store.SchemaVersion {
		return nil, &StoreUnavailableError{
			Op:  "schema version",
			Err: fmt.Errorf("index has schema version %d, want %d", v, store.SchemaVersion),
		}
	}
	return e, nil
}

// Explain returns the canonical form of expr without touching the store.
func (e *Engine) Explain(expr string) (string, error) {
	c, err := e.compile(expr)
	if err != nil {
		return "", err
	}
	return c.text, nil
}

// Count returns the number of documents matching expr.
func (e *Engine) Count(ctx context.Context, expr string) (int64, error) {
	c, err := e.compile(expr)
	if err != nil {
		metricQueries.WithLabelValues("compile_error").Inc()
		return 0, err
	}
	var n int64
	err = e.store.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents d WHERE "+c.where, c.args...).Scan(&n)
	if err != nil {
		metricQueries.WithLabelValues("store_error").Inc()
		return 0, &StoreUnavailableError{Op: "count", Err: err}
	}
	metricQueries.WithLabelValues("ok").Inc()
	return n, nil
}

// Run compiles expr and returns an iterator over the matching documents in
// the requested order. Compile errors never yield an iterator; a query with
// no matches yields an iterator that is immediately exhausted.
func (e *Engine) Run(ctx context.Context, expr string, opts RunOptions) (*Iterator, error) {
	it, err := e.run(ctx, expr, opts)
	switch {
	case errors.Is(err, ErrCompile):
		metricQueries.WithLabelValues("compile_error").Inc()
	case err != nil:
		metricQueries.WithLabelValues("store_error").Inc()
	default:
		metricQueries.WithLabelValues("ok").Inc()
	}
	return it, err
}

func (e *Engine) run(ctx context.Context, expr string, opts RunOptions) (*Iterator, error) {
	if opts.BatchSize < 0 {
		return nil, compileErrorf(expr, "negative batch size %d", opts.BatchSize)
	}
	c, err := e.compile(expr)
	if err != nil {
		return nil, err
	}
	query, args, err := buildSelect(expr, c, opts)
	if err != nil {
		return nil, err
	}

	batch := opts.BatchSize
	if batch == 0 {
		n, err := e.store.DocumentCount(ctx)
		if err != nil {
			return nil, &StoreUnavailableError{Op: "count documents", Err: err}
		}
		batch = int(max(n, 1))
	}

	e.logger.Debug("run query", "expr", expr, "canonical", c.text,
		"sort", opts.Sort.String(), "reverse", opts.Reverse, "batch", batch)

	it := &Iterator{
		engine: e,
		query:  query,
		args:   args,
		batch:  batch,
		pos:    -1,
	}
	// Fetch the first batch now so an unreadable store fails here rather
	// than on the first Next.
	if err := it.fetch(ctx); err != nil {
		return nil, err
	}
	return it, nil
}

// buildSelect turns a compiled expression into the id query; LIMIT and
// OFFSET are appended per batch.
func buildSelect(expr string, c *compiled, opts RunOptions) (string, []any, error) {
	var sb strings.Builder
	var args []any

	dir := "ASC"
	if opts.Reverse {
		dir = "DESC"
	}

	if !opts.Sort.set {
		score, scoreArgs := scoreExpr(c.scoreTerms)
		sb.WriteString("SELECT d.id, " + score + " AS score FROM documents d WHERE ")
		args = append(args, scoreArgs...)
		sb.WriteString(c.where)
		args = append(args, c.args...)
		// Best first unless reversed.
		dir = "DESC"
		if opts.Reverse {
			dir = "ASC"
		}
		sb.WriteString(" ORDER BY score " + dir + ", d.id ASC")
		return sb.String(), args, nil
	}

	d, ok := fields.Lookup(opts.Sort.field)
	if !ok {
		return "", nil, compileErrorf(expr, "sort field: %w",
			&fields.LookupError{Name: opts.Sort.field.String()})
	}
	if !d.SortValueStored() {
		return "", nil, compileErrorf(expr, "sort on %q: %w", d.Name, errNotSortable)
	}

	collate := ""
	if d.Type == fields.TypeString {
		collate = " COLLATE NOCASE"
	}
	sb.WriteString("SELECT d.id, sv.value FROM documents d" +
		" LEFT JOIN doc_values sv ON sv.docid = d.id AND sv.field = ? WHERE ")
	args = append(args, int(d.ID))
	sb.WriteString(c.where)
	args = append(args, c.args...)
	sb.WriteString(" ORDER BY sv.value" + collate + " " + dir + ", d.id ASC")
	return sb.String(), args, nil
}
