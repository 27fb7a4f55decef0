package query

import (
	"strconv"
	"time"

	"github.com/whunmr/mu/internal/fields"
	"github.com/whunmr/mu/internal/store"
)

// Message is the metadata of one matching document, read from its stored
// sort values.
type Message struct {
	DocID     int64           `json:"docid"`
	Path      string          `json:"path"`
	Maildir   string          `json:"maildir,omitempty"`
	MsgID     string          `json:"msgid,omitempty"`
	Subject   string          `json:"subject,omitempty"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
	Cc        string          `json:"cc,omitempty"`
	Date      time.Time       `json:"date"`
	Timestamp time.Time       `json:"timestamp"`
	Size      int64           `json:"size"`
	Flags     fields.MsgFlags `json:"-"`
	FlagNames []string        `json:"flags,omitempty"`
	Prio      fields.Priority `json:"-"`
	PrioName  string          `json:"prio,omitempty"`
}

func messageFromDocument(doc *store.StoredDocument) *Message {
	m := &Message{DocID: doc.ID, Path: doc.Path}

	str := func(id fields.ID) string {
		s, _ := doc.Values[id].(string)
		return s
	}
	num := func(id fields.ID) int64 {
		n, _ := doc.Values[id].(int64)
		return n
	}
	unix := func(id fields.ID) time.Time {
		if _, ok := doc.Values[id]; !ok {
			return time.Time{}
		}
		return time.Unix(num(id), 0)
	}

	m.Maildir = str(fields.Maildir)
	m.MsgID = str(fields.MsgID)
	m.Subject = str(fields.Subject)
	m.From = str(fields.From)
	m.To = str(fields.To)
	m.Cc = str(fields.Cc)
	m.Date = unix(fields.Date)
	m.Timestamp = unix(fields.Timestamp)
	m.Size = num(fields.Size)
	m.Flags = fields.MsgFlags(num(fields.Flags))
	m.FlagNames = m.Flags.Names()
	if p := fields.Priority(num(fields.Prio)); p != 0 {
		m.Prio = p
		m.PrioName = p.String()
	}
	return m
}

// Value renders one field for display; fields that are not stored as
// values render as "".
func (m *Message) Value(id fields.ID) string {
	switch id {
	case fields.Path:
		return m.Path
	case fields.Maildir:
		return m.Maildir
	case fields.MsgID:
		return m.MsgID
	case fields.Subject:
		return m.Subject
	case fields.From:
		return m.From
	case fields.To:
		return m.To
	case fields.Cc:
		return m.Cc
	case fields.Date:
		return formatTime(m.Date)
	case fields.Timestamp:
		return formatTime(m.Timestamp)
	case fields.Size:
		return strconv.FormatInt(m.Size, 10)
	case fields.Flags:
		return m.Flags.String()
	case fields.Prio:
		return m.PrioName
	}
	return ""
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
