package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/whunmr/mu/internal/fields"
	"github.com/whunmr/mu/internal/query"
	"github.com/whunmr/mu/internal/store"
	"github.com/whunmr/mu/internal/testutil"
	"github.com/whunmr/mu/internal/textutil"
)

// fixedNow is the clock used by engines built in tests.
var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// testDoc describes a message the way the indexer would store it.
type testDoc struct {
	path    string
	maildir string
	msgid   string
	subject string
	body    string
	from    string // address only
	date    time.Time
	size    int64
	flags   fields.MsgFlags
	prio    fields.Priority
}

func (d testDoc) document(t *testing.T) *store.Document {
	t.Helper()
	doc := &store.Document{
		Path:   d.path,
		MTime:  1,
		Values: map[fields.ID]any{fields.Path: d.path},
	}
	addTerm := func(id fields.ID, value string) {
		term, err := fields.ExactTerm(id, value)
		if err != nil {
			t.Fatalf("exact term %s=%q: %v", id, value, err)
		}
		doc.Terms = append(doc.Terms, store.Term{Field: id, Term: term})
	}
	addPostings := func(id fields.ID, text string) {
		for i, tok := range textutil.Tokenize(text) {
			doc.Postings = append(doc.Postings, store.Posting{Field: id, Term: tok, Pos: i})
		}
	}

	addTerm(fields.Path, d.path)
	if d.maildir != "" {
		addTerm(fields.Maildir, d.maildir)
		doc.Values[fields.Maildir] = d.maildir
	}
	if d.msgid != "" {
		addTerm(fields.MsgID, d.msgid)
		doc.Values[fields.MsgID] = d.msgid
	}
	if d.subject != "" {
		addPostings(fields.Subject, d.subject)
		doc.Values[fields.Subject] = d.subject
	}
	addPostings(fields.BodyText, d.body)
	if d.from != "" {
		addTerm(fields.From, d.from)
		addPostings(fields.From, d.from)
		doc.Values[fields.From] = d.from
	}
	if !d.date.IsZero() {
		doc.Values[fields.Date] = d.date.Unix()
	}
	doc.Values[fields.Size] = d.size
	doc.Values[fields.Flags] = int64(d.flags)
	for _, name := range d.flags.Names() {
		addTerm(fields.Flags, name)
	}
	prio := d.prio
	if prio == 0 {
		prio = fields.PrioNormal
	}
	addTerm(fields.Prio, prio.String())
	doc.Values[fields.Prio] = int64(prio)
	return doc
}

// newTestEngine indexes docs into a fresh store and returns an engine over
// it plus the document ids in input order.
func newTestEngine(t *testing.T, docs ...testDoc) (*query.Engine, *store.Store, []int64) {
	t.Helper()
	st := testutil.NewTestStore(t)
	ids := make([]int64, len(docs))
	for i, d := range docs {
		id, err := st.AddDocument(context.Background(), d.document(t))
		if err != nil {
			t.Fatalf("add %s: %v", d.path, err)
		}
		ids[i] = id
	}
	eng, err := query.New(st,
		query.WithClock(func() time.Time { return fixedNow }),
		query.WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng, st, ids
}

// runIDs runs expr and collects the document ids in result order.
func runIDs(t *testing.T, eng *query.Engine, expr string, opts query.RunOptions) []int64 {
	t.Helper()
	ctx := context.Background()
	it, err := eng.Run(ctx, expr, opts)
	if err != nil {
		t.Fatalf("Run(%q): %v", expr, err)
	}
	defer it.Close()

	var ids []int64
	for it.Next(ctx) {
		ids = append(ids, it.DocID())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterate %q: %v", expr, err)
	}
	return ids
}

// pick maps input positions to document ids.
func pick(ids []int64, idx ...int) []int64 {
	out := make([]int64, len(idx))
	for i, n := range idx {
		out[i] = ids[n]
	}
	return out
}

// corpus is a small mailbox shared by most tests.
func corpus() []testDoc {
	day := func(d, h int) time.Time { return time.Date(2024, 1, d, h, 0, 0, 0, time.UTC) }
	return []testDoc{
		{ // 0
			path: "/mail/inbox/cur/1:2,S", maildir: "/inbox", msgid: "one@example.com",
			subject: "Quick brown fox", body: "The quick brown fox jumps over the lazy dog.",
			from: "alice@example.com", date: day(15, 10), size: 1500,
			flags: fields.FlagSeen, prio: fields.PrioHigh,
		},
		{ // 1
			path: "/mail/inbox/cur/2:2,", maildir: "/inbox", msgid: "two@example.com",
			subject: "Lunch at the café", body: "Brown bread and fox sandwiches, quick quick.",
			from: "bob@example.org", date: day(16, 9), size: 3000,
			flags: fields.FlagUnread,
		},
		{ // 2
			path: "/mail/archive/cur/3:2,RS", maildir: "/archive", msgid: "three@example.com",
			subject: "Quarterly report", body: "Numbers are in the attached report.",
			from: "alice@example.com", date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), size: 1500,
			flags: fields.FlagSeen | fields.FlagReplied | fields.FlagHasAttach, prio: fields.PrioLow,
		},
		{ // 3
			path: "/mail/archive/cur/4:2,S", maildir: "/archive", msgid: "four@example.com",
			subject: "Hello world", body: "hello there, helicopter pilot",
			from: "carol@example.net", date: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC), size: 512,
			flags: fields.FlagSeen,
		},
	}
}
