package query

import (
	"context"
	"fmt"
	"iter"
	"time"
)

// Iterator walks the results of one query in order, fetching ids in
// batches. It is not safe for concurrent use, and becomes invalid once the
// store is closed.
type Iterator struct {
	engine *Engine
	query  string
	args   []any
	batch  int

	ids    []int64
	offset int  // rows fetched so far
	more   bool // the last batch was full
	pos    int  // index into ids, -1 before the first Next
	done   bool
	err    error

	msg    *Message
	msgPos int
}

// fetch loads the next batch of ids, replacing the current one.
func (it *Iterator) fetch(ctx context.Context) error {
	start := time.Now()
	rows, err := it.engine.store.DB().QueryContext(ctx,
		it.query+" LIMIT ? OFFSET ?", append(it.args, it.batch, it.offset)...)
	if err != nil {
		return &StoreUnavailableError{Op: "fetch results", Err: err}
	}
	defer rows.Close()

	ids := it.ids[:0]
	for rows.Next() {
		var id int64
		var key any
		if err := rows.Scan(&id, &key); err != nil {
			return &StoreUnavailableError{Op: "fetch results", Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return &StoreUnavailableError{Op: "fetch results", Err: err}
	}

	metricBatches.Inc()
	metricBatchDuration.Observe(time.Since(start).Seconds())

	it.ids = ids
	it.offset += len(ids)
	it.more = len(ids) == it.batch
	it.pos = -1
	return nil
}

// Next advances to the next document and reports whether there is one.
// Once it returns false it keeps returning false; check Err.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	it.msg = nil
	if it.pos+1 < len(it.ids) {
		it.pos++
		return true
	}
	if !it.more {
		it.done = true
		return false
	}
	if err := it.fetch(ctx); err != nil {
		it.err = err
		it.done = true
		return false
	}
	if len(it.ids) == 0 {
		it.done = true
		return false
	}
	it.pos = 0
	return true
}

// DocID returns the id of the current document.
func (it *Iterator) DocID() int64 {
	if it.pos < 0 || it.pos >= len(it.ids) || it.done {
		return 0
	}
	return it.ids[it.pos]
}

// Message reads the current document's stored values. The result is cached
// until the next call to Next.
func (it *Iterator) Message(ctx context.Context) (*Message, error) {
	if it.pos < 0 || it.done {
		return nil, fmt.Errorf("iterator not positioned on a document")
	}
	if it.msg != nil && it.msgPos == it.pos {
		return it.msg, nil
	}
	id := it.ids[it.pos]
	doc, err := it.engine.store.GetDocument(ctx, id)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "read document", Err: err}
	}
	if doc == nil {
		return nil, fmt.Errorf("document %d no longer in the index", id)
	}
	it.msg = messageFromDocument(doc)
	it.msgPos = it.pos
	return it.msg, nil
}

// Err returns the error that stopped iteration, if any.
func (it *Iterator) Err() error { return it.err }

// Close releases the iterator. It is safe to call more than once.
func (it *Iterator) Close() error {
	it.done = true
	it.ids = nil
	it.msg = nil
	return nil
}

// All yields the remaining documents. Iteration stops after the first
// error.
func (it *Iterator) All(ctx context.Context) iter.Seq2[*Message, error] {
	return func(yield func(*Message, error) bool) {
		for it.Next(ctx) {
			m, err := it.Message(ctx)
			if !yield(m, err) || err != nil {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(nil, err)
		}
	}
}
