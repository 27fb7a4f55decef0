package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/whunmr/mu/internal/fields"
	"github.com/whunmr/mu/internal/store"
	"github.com/whunmr/mu/internal/testutil"
)

func sampleDocument(path string) *store.Document {
	return &store.Document{
		Path:  path,
		MTime: 1700000000,
		Terms: []store.Term{
			{Field: fields.Flags, Term: "seen"},
			{Field: fields.Maildir, Term: "/inbox"},
			{Field: fields.From, Term: "alice@example.com"},
			{Field: fields.From, Term: "alice@example.com"}, // duplicate is ignored
		},
		Postings: []store.Posting{
			{Field: fields.Subject, Term: "hello", Pos: 0},
			{Field: fields.Subject, Term: "world", Pos: 1},
			{Field: fields.BodyText, Term: "hello", Pos: 0},
		},
		Values: map[fields.ID]any{
			fields.Subject: "Hello World",
			fields.Size:    int64(2048),
			fields.Date:    int64(1699999999),
		},
	}
}

func TestStore_OpenAndVersion(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	v, err := st.Version(ctx)
	testutil.MustNoErr(t, err, "Version")
	if v != store.SchemaVersion {
		t.Errorf("Version = %d, want %d", v, store.SchemaVersion)
	}

	// InitSchema is idempotent.
	testutil.MustNoErr(t, st.InitSchema(), "second InitSchema")
}

func TestStore_VersionUninitialized(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "raw.db"))
	testutil.MustNoErr(t, err, "Open")
	defer st.Close()

	v, err := st.Version(context.Background())
	testutil.MustNoErr(t, err, "Version")
	if v != 0 {
		t.Errorf("Version of uninitialized store = %d, want 0", v)
	}
}

func TestStore_OpenReadOnlyMissing(t *testing.T) {
	if _, err := store.OpenReadOnly(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Fatal("OpenReadOnly on missing file should fail")
	}
}

func TestStore_OpenReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	rw, err := store.Open(path)
	testutil.MustNoErr(t, err, "Open")
	testutil.MustNoErr(t, rw.InitSchema(), "InitSchema")
	rw.Close()

	ro, err := store.OpenReadOnly(path)
	testutil.MustNoErr(t, err, "OpenReadOnly")
	defer ro.Close()

	ctx := context.Background()
	if !ro.ReadOnly() {
		t.Error("ReadOnly() = false for OpenReadOnly store")
	}
	if _, err := ro.AddDocument(ctx, sampleDocument("/m/cur/1")); !errors.Is(err, store.ErrReadOnly) {
		t.Errorf("AddDocument on read-only store = %v, want ErrReadOnly", err)
	}
	if err := ro.RemoveDocument(ctx, 1); !errors.Is(err, store.ErrReadOnly) {
		t.Errorf("RemoveDocument on read-only store = %v, want ErrReadOnly", err)
	}
	if err := ro.SetLastIndexed(ctx, 1); !errors.Is(err, store.ErrReadOnly) {
		t.Errorf("SetLastIndexed on read-only store = %v, want ErrReadOnly", err)
	}
	if err := ro.InitSchema(); !errors.Is(err, store.ErrReadOnly) {
		t.Errorf("InitSchema on read-only store = %v, want ErrReadOnly", err)
	}
}

func TestStore_AddAndGetDocument(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	id, err := st.AddDocument(ctx, sampleDocument("/m/cur/1"))
	testutil.MustNoErr(t, err, "AddDocument")

	doc, err := st.GetDocument(ctx, id)
	testutil.MustNoErr(t, err, "GetDocument")
	if doc == nil {
		t.Fatal("GetDocument returned nil")
	}
	want := &store.StoredDocument{
		ID:    id,
		Path:  "/m/cur/1",
		MTime: 1700000000,
		Values: map[fields.ID]any{
			fields.Subject: "Hello World",
			fields.Size:    int64(2048),
			fields.Date:    int64(1699999999),
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("GetDocument mismatch (-want +got):\n%s", diff)
	}

	terms, err := st.DocumentTerms(ctx, id)
	testutil.MustNoErr(t, err, "DocumentTerms")
	wantTerms := []store.Term{
		{Field: fields.Flags, Term: "seen"},
		{Field: fields.From, Term: "alice@example.com"},
		{Field: fields.Maildir, Term: "/inbox"},
	}
	if diff := cmp.Diff(wantTerms, terms); diff != "" {
		t.Errorf("DocumentTerms mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_GetDocumentMissing(t *testing.T) {
	st := testutil.NewTestStore(t)
	doc, err := st.GetDocument(context.Background(), 999)
	if err != nil || doc != nil {
		t.Errorf("GetDocument(999) = %v, %v; want nil, nil", doc, err)
	}
}

func TestStore_AddDocumentReplacesByPath(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	id1, err := st.AddDocument(ctx, sampleDocument("/m/cur/1"))
	testutil.MustNoErr(t, err, "first AddDocument")

	updated := &store.Document{
		Path:   "/m/cur/1",
		MTime:  1800000000,
		Terms:  []store.Term{{Field: fields.Flags, Term: "replied"}},
		Values: map[fields.ID]any{fields.Subject: "Changed"},
	}
	id2, err := st.AddDocument(ctx, updated)
	testutil.MustNoErr(t, err, "second AddDocument")
	if id1 != id2 {
		t.Errorf("replacement changed id from %d to %d", id1, id2)
	}

	n, err := st.DocumentCount(ctx)
	testutil.MustNoErr(t, err, "DocumentCount")
	if n != 1 {
		t.Errorf("DocumentCount = %d, want 1", n)
	}

	doc, err := st.GetDocument(ctx, id1)
	testutil.MustNoErr(t, err, "GetDocument")
	if doc.MTime != 1800000000 || len(doc.Values) != 1 || doc.Values[fields.Subject] != "Changed" {
		t.Errorf("document not replaced: %+v", doc)
	}
	terms, err := st.DocumentTerms(ctx, id1)
	testutil.MustNoErr(t, err, "DocumentTerms")
	if len(terms) != 1 || terms[0].Term != "replied" {
		t.Errorf("terms not replaced: %v", terms)
	}

	stats, err := st.GetStats(ctx)
	testutil.MustNoErr(t, err, "GetStats")
	if stats.PostingCount != 0 {
		t.Errorf("PostingCount = %d, want 0 after replacement", stats.PostingCount)
	}
}

func TestStore_AddDocumentEmptyPath(t *testing.T) {
	st := testutil.NewTestStore(t)
	if _, err := st.AddDocument(context.Background(), &store.Document{}); err == nil {
		t.Error("AddDocument with empty path should fail")
	}
}

func TestStore_RemoveDocumentCascades(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	id, err := st.AddDocument(ctx, sampleDocument("/m/cur/1"))
	testutil.MustNoErr(t, err, "AddDocument")
	testutil.MustNoErr(t, st.RemoveDocument(ctx, id), "RemoveDocument")

	stats, err := st.GetStats(ctx)
	testutil.MustNoErr(t, err, "GetStats")
	if stats.DocumentCount != 0 || stats.TermCount != 0 || stats.PostingCount != 0 {
		t.Errorf("stats after remove = %+v", stats)
	}
}

func TestStore_DocumentMTimes(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	a, err := st.AddDocument(ctx, &store.Document{Path: "/m/cur/a", MTime: 10})
	testutil.MustNoErr(t, err, "add a")
	b, err := st.AddDocument(ctx, &store.Document{Path: "/m/new/b", MTime: 20})
	testutil.MustNoErr(t, err, "add b")

	got, err := st.DocumentMTimes(ctx)
	testutil.MustNoErr(t, err, "DocumentMTimes")
	want := map[string]store.DocumentInfo{
		"/m/cur/a": {ID: a, MTime: 10},
		"/m/new/b": {ID: b, MTime: 20},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DocumentMTimes mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ManyTermsChunked(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	doc := &store.Document{Path: "/m/cur/big"}
	for i := range 1000 {
		doc.Postings = append(doc.Postings, store.Posting{Field: fields.BodyText, Term: "w", Pos: i})
	}
	_, err := st.AddDocument(ctx, doc)
	testutil.MustNoErr(t, err, "AddDocument")

	stats, err := st.GetStats(ctx)
	testutil.MustNoErr(t, err, "GetStats")
	if stats.PostingCount != 1000 {
		t.Errorf("PostingCount = %d, want 1000", stats.PostingCount)
	}
}

func TestStore_Meta(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	last, err := st.LastIndexed(ctx)
	testutil.MustNoErr(t, err, "LastIndexed")
	if last != 0 {
		t.Errorf("LastIndexed on fresh store = %d", last)
	}
	testutil.MustNoErr(t, st.SetLastIndexed(ctx, 1234), "SetLastIndexed")
	testutil.MustNoErr(t, st.SetLastIndexed(ctx, 5678), "SetLastIndexed again")
	last, err = st.LastIndexed(ctx)
	testutil.MustNoErr(t, err, "LastIndexed")
	if last != 5678 {
		t.Errorf("LastIndexed = %d, want 5678", last)
	}
}
