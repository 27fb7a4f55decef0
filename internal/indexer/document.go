package indexer

import (
	"strings"

	"github.com/whunmr/mu/internal/fields"
	"github.com/whunmr/mu/internal/maildir"
	"github.com/whunmr/mu/internal/mime"
	"github.com/whunmr/mu/internal/store"
	"github.com/whunmr/mu/internal/textutil"
)

// addressGap separates the tokens of consecutive addresses in a contact
// field so a phrase cannot span two addresses.
const addressGap = 1

type docBuilder struct {
	doc  *store.Document
	next map[fields.ID]int // next posting position per field
}

func (b *docBuilder) term(id fields.ID, value string) {
	if value == "" {
		return
	}
	t, err := fields.ExactTerm(id, value)
	if err != nil || t == "" {
		return
	}
	b.doc.Terms = append(b.doc.Terms, store.Term{Field: id, Term: t})
}

func (b *docBuilder) text(id fields.ID, s string) {
	pos := b.next[id]
	for _, tok := range textutil.Tokenize(s) {
		b.doc.Postings = append(b.doc.Postings, store.Posting{Field: id, Term: tok, Pos: pos})
		pos++
	}
	b.next[id] = pos
}

func (b *docBuilder) value(id fields.ID, v any) {
	if s, ok := v.(string); ok && s == "" {
		return
	}
	b.doc.Values[id] = v
}

func (b *docBuilder) contacts(id fields.ID, addrs []mime.Address) {
	for _, a := range addrs {
		b.term(id, a.Email)
		b.text(id, a.Name+" "+a.Email)
		b.next[id] += addressGap
	}
	b.value(id, mime.JoinAddresses(addrs))
}

// buildDocument turns a parsed message into what the index stores for it.
// maxBody limits the number of body runes indexed; 0 means no limit.
func buildDocument(f maildir.File, msg *mime.Message, maxBody int) *store.Document {
	b := &docBuilder{
		doc: &store.Document{
			Path:   f.Path,
			MTime:  f.MTime,
			Values: make(map[fields.ID]any),
		},
		next: make(map[fields.ID]int),
	}

	b.term(fields.Path, f.Path)
	b.value(fields.Path, f.Path)
	b.term(fields.Maildir, f.Maildir)
	b.value(fields.Maildir, f.Maildir)

	b.term(fields.MsgID, msg.MessageID)
	b.value(fields.MsgID, msg.MessageID)

	subject := textutil.EnsureUTF8(msg.Subject)
	b.text(fields.Subject, subject)
	b.value(fields.Subject, subject)

	body := textutil.EnsureUTF8(bodyText(msg))
	if maxBody > 0 {
		body = textutil.TruncateRunes(body, maxBody)
	}
	b.text(fields.BodyText, body)

	b.contacts(fields.From, msg.From)
	b.contacts(fields.To, msg.To)
	b.contacts(fields.Cc, msg.Cc)

	if !msg.Date.IsZero() {
		b.value(fields.Date, msg.Date.Unix())
	}
	b.value(fields.Timestamp, f.MTime)
	b.value(fields.Size, f.Size)

	flags := f.Flags | msg.ContentFlags()
	for _, name := range flags.Names() {
		b.term(fields.Flags, name)
	}
	b.value(fields.Flags, int64(flags))

	prio := msg.Priority
	if prio == 0 {
		prio = fields.PrioNormal
	}
	b.term(fields.Prio, prio.String())
	b.value(fields.Prio, int64(prio))

	return b.doc
}

// bodyText is the text body, or failing that the first inline text part.
func bodyText(msg *mime.Message) string {
	if s := msg.IndexText(); s != "" {
		return s
	}
	for _, p := range msg.Parts() {
		if p.MimeType == "text" && !p.IsAttachment() {
			if p.MimeSubtype == "html" {
				return mime.StripHTML(p.Text())
			}
			return p.Text()
		}
	}
	return ""
}

// summary is a short form of the subject for log lines.
func summary(msg *mime.Message) string {
	return textutil.TruncateRunes(strings.TrimSpace(msg.Subject), 60)
}
