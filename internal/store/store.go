// Package store is the SQLite-backed index: documents, their exact terms,
// full-text postings and sort values.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// SchemaVersion is the layout version written by InitSchema. Readers refuse
// indexes with any other version.
const SchemaVersion = 1

const (
	defaultSQLiteParams  = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
	readOnlySQLiteParams = "?mode=ro&_busy_timeout=5000"

	metaSchemaVersion = "schema_version"
	metaLastIndexed   = "last_indexed"
)

// ErrReadOnly is returned by writes to a store opened with OpenReadOnly.
var ErrReadOnly = errors.New("index is open read-only")

// Store is an open index database.
type Store struct {
	db       *sql.DB
	dbPath   string
	readOnly bool
}

// isSQLiteError checks if err is a sqlite3.Error with a message containing
// substr. The driver returns both value and pointer forms.
func isSQLiteError(err error, substr string) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), substr)
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return strings.Contains(sqliteErrPtr.Error(), substr)
	}
	return false
}

// Open opens or creates the index at dbPath for reading and writing.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	return open(dbPath, dbPath+defaultSQLiteParams, false)
}

// OpenReadOnly opens an existing index without write access. It fails if
// the file does not exist.
func OpenReadOnly(dbPath string) (*Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return open(dbPath, "file:"+dbPath+readOnlySQLiteParams, true)
}

func open(dbPath, dsn string, readOnly bool) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, dbPath: dbPath, readOnly: readOnly}, nil
}

// Close closes the database connection. Iterators over the store become
// unusable.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReadOnly reports whether the store was opened with OpenReadOnly.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// checkWritable fails writes on a read-only store before they reach SQLite.
func (s *Store) checkWritable(op string) error {
	if s.readOnly {
		return fmt.Errorf("%s: %w", op, ErrReadOnly)
	}
	return nil
}

// DB returns the underlying connection for the query engine.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// withTx runs fn in a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// insertInChunks executes a multi-value INSERT in chunks to stay within
// SQLite's parameter limit (999). valueBuilder returns the VALUES tuples and
// args for rows [start, end).
func insertInChunks(ctx context.Context, tx *sql.Tx, totalRows, valuesPerRow int, queryPrefix string, valueBuilder func(start, end int) ([]string, []any)) error {
	const maxParams = 900
	chunkSize := max(maxParams/valuesPerRow, 1)

	for i := 0; i < totalRows; i += chunkSize {
		end := min(i+chunkSize, totalRows)
		values, args := valueBuilder(i, end)
		if _, err := tx.ExecContext(ctx, queryPrefix+strings.Join(values, ","), args...); err != nil {
			return err
		}
	}
	return nil
}

// InitSchema creates the tables if they don't exist and records the schema
// version on a fresh index.
func (s *Store) InitSchema() error {
	if err := s.checkWritable("init schema"); err != nil {
		return err
	}
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema.sql: %w", err)
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("execute schema.sql: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR IGNORE INTO metadata (key, value) VALUES (?, ?)`,
		metaSchemaVersion, strconv.Itoa(SchemaVersion))
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// Version returns the schema version stored in the index, or 0 when the
// index has never been initialized.
func (s *Store) Version(ctx context.Context) (int, error) {
	v, err := s.Meta(ctx, metaSchemaVersion)
	if err != nil {
		return 0, err
	}
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("bad schema version %q: %w", v, err)
	}
	return n, nil
}

// Meta returns a metadata value, or "" when unset or when the index has no
// metadata table yet.
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil && isSQLiteError(err, "no such table"):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return v, nil
}

// SetMeta stores a metadata value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	if err := s.checkWritable("set metadata"); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// LastIndexed returns the unix time of the last completed index run, or 0.
func (s *Store) LastIndexed(ctx context.Context) (int64, error) {
	v, err := s.Meta(ctx, metaLastIndexed)
	if err != nil || v == "" {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// SetLastIndexed records the completion time of an index run.
func (s *Store) SetLastIndexed(ctx context.Context, unix int64) error {
	return s.SetMeta(ctx, metaLastIndexed, strconv.FormatInt(unix, 10))
}

// Stats holds index statistics.
type Stats struct {
	DocumentCount int64
	TermCount     int64
	PostingCount  int64
	DatabaseSize  int64
}

// GetStats returns statistics about the index.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	queries := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM documents", &stats.DocumentCount},
		{"SELECT COUNT(*) FROM terms", &stats.TermCount},
		{"SELECT COUNT(*) FROM postings", &stats.PostingCount},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			if isSQLiteError(err, "no such table") {
				continue
			}
			return nil, fmt.Errorf("get stats %q: %w", q.query, err)
		}
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}
