package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/whunmr/mu/internal/fields"
)

// Term is an exact-match term of a document.
type Term struct {
	Field fields.ID
	Term  string
}

// Posting is one full-text token of a document and its position within the
// field.
type Posting struct {
	Field fields.ID
	Term  string
	Pos   int
}

// Document is everything the index stores about one message file.
type Document struct {
	Path     string
	MTime    int64
	Terms    []Term
	Postings []Posting
	// Values holds int64 for numeric fields and string otherwise.
	Values map[fields.ID]any
}

// StoredDocument is a document read back from the index.
type StoredDocument struct {
	ID     int64
	Path   string
	MTime  int64
	Values map[fields.ID]any
}

// DocumentInfo is the indexer's bookkeeping for one file.
type DocumentInfo struct {
	ID    int64
	MTime int64
}

// AddDocument inserts doc, or replaces the document already stored for the
// same path, keeping its id. It returns the document id.
func (s *Store) AddDocument(ctx context.Context, doc *Document) (int64, error) {
	if err := s.checkWritable("add document"); err != nil {
		return 0, err
	}
	if doc.Path == "" {
		return 0, errors.New("add document: empty path")
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO documents (path, mtime) VALUES (?, ?)
			ON CONFLICT(path) DO UPDATE SET mtime = excluded.mtime, indexed_at = CURRENT_TIMESTAMP
			RETURNING id`, doc.Path, doc.MTime).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert document: %w", err)
		}

		for _, table := range []string{"terms", "postings", "doc_values"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE docid = ?", id); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		err = insertInChunks(ctx, tx, len(doc.Terms), 3,
			"INSERT OR IGNORE INTO terms (field, term, docid) VALUES ",
			func(start, end int) ([]string, []any) {
				values := make([]string, 0, end-start)
				args := make([]any, 0, (end-start)*3)
				for _, t := range doc.Terms[start:end] {
					values = append(values, "(?, ?, ?)")
					args = append(args, int(t.Field), t.Term, id)
				}
				return values, args
			})
		if err != nil {
			return fmt.Errorf("insert terms: %w", err)
		}

		err = insertInChunks(ctx, tx, len(doc.Postings), 4,
			"INSERT OR IGNORE INTO postings (field, term, docid, pos) VALUES ",
			func(start, end int) ([]string, []any) {
				values := make([]string, 0, end-start)
				args := make([]any, 0, (end-start)*4)
				for _, p := range doc.Postings[start:end] {
					values = append(values, "(?, ?, ?, ?)")
					args = append(args, int(p.Field), p.Term, id, p.Pos)
				}
				return values, args
			})
		if err != nil {
			return fmt.Errorf("insert postings: %w", err)
		}

		ids := make([]fields.ID, 0, len(doc.Values))
		for f := range fields.All() {
			if _, ok := doc.Values[f]; ok {
				ids = append(ids, f)
			}
		}
		err = insertInChunks(ctx, tx, len(ids), 3,
			"INSERT INTO doc_values (docid, field, value) VALUES ",
			func(start, end int) ([]string, []any) {
				values := make([]string, 0, end-start)
				args := make([]any, 0, (end-start)*3)
				for _, f := range ids[start:end] {
					values = append(values, "(?, ?, ?)")
					args = append(args, id, int(f), doc.Values[f])
				}
				return values, args
			})
		if err != nil {
			return fmt.Errorf("insert values: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// RemoveDocument deletes a document and everything indexed for it.
func (s *Store) RemoveDocument(ctx context.Context, id int64) error {
	if err := s.checkWritable("remove document"); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove document %d: %w", id, err)
	}
	return nil
}

// DocumentMTimes returns the stored modification time of every indexed file,
// keyed by path.
func (s *Store) DocumentMTimes(ctx context.Context) (map[string]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, mtime FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make(map[string]DocumentInfo)
	for rows.Next() {
		var path string
		var info DocumentInfo
		if err := rows.Scan(&info.ID, &path, &info.MTime); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out[path] = info
	}
	return out, rows.Err()
}

// DocumentCount returns the number of indexed documents.
func (s *Store) DocumentCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// GetDocument reads a document and its sort values. It returns nil, nil when
// no document has that id.
func (s *Store) GetDocument(ctx context.Context, id int64) (*StoredDocument, error) {
	doc := &StoredDocument{ID: id, Values: make(map[fields.ID]any)}
	err := s.db.QueryRowContext(ctx, `SELECT path, mtime FROM documents WHERE id = ?`, id).
		Scan(&doc.Path, &doc.MTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT field, value FROM doc_values WHERE docid = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get values of %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var f int
		var v any
		if err := rows.Scan(&f, &v); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		// The driver hands TEXT back as []byte through an any destination.
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		doc.Values[fields.ID(f)] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get values of %d: %w", id, err)
	}
	return doc, nil
}

// DocumentTerms returns the exact terms stored for a document, ordered by
// field then term.
func (s *Store) DocumentTerms(ctx context.Context, id int64) ([]Term, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, term FROM terms WHERE docid = ? ORDER BY field, term`, id)
	if err != nil {
		return nil, fmt.Errorf("get terms of %d: %w", id, err)
	}
	defer rows.Close()

	var terms []Term
	for rows.Next() {
		var t Term
		var f int
		if err := rows.Scan(&f, &t.Term); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		t.Field = fields.ID(f)
		terms = append(terms, t)
	}
	return terms, rows.Err()
}
