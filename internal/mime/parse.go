// Package mime reads message files and exposes their headers, bodies and
// MIME parts, using enmime.
package mime

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/whunmr/mu/internal/fields"
)

// Message is a parsed message file.
type Message struct {
	Path       string // empty when parsed from memory
	Size       int64
	Subject    string
	Date       time.Time
	From       []Address
	To         []Address
	Cc         []Address
	Bcc        []Address
	ReplyTo    []Address
	MessageID  string
	InReplyTo  string
	References []string
	BodyText   string
	BodyHTML   string
	Priority   fields.Priority
	Errors     []string // non-fatal parse problems

	parts        []Part
	contentFlags fields.MsgFlags
}

// Address is an email address with optional display name.
type Address struct {
	Name   string
	Email  string
	Domain string
}

// String renders the address the way it would appear in a header.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

// MessageOpenError reports a message file that could not be read or parsed.
type MessageOpenError struct {
	Path string
	Err  error
}

func (e *MessageOpenError) Error() string {
	return fmt.Sprintf("open message %s: %v", e.Path, e.Err)
}

func (e *MessageOpenError) Unwrap() error { return e.Err }

// Open reads and parses the message file at path.
func Open(path string) (*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &MessageOpenError{Path: path, Err: err}
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, &MessageOpenError{Path: path, Err: err}
	}
	if !st.Mode().IsRegular() {
		return nil, &MessageOpenError{Path: path, Err: fmt.Errorf("not a regular file")}
	}

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, &MessageOpenError{Path: path, Err: err}
	}
	msg, err := Parse(raw)
	if err != nil {
		return nil, &MessageOpenError{Path: path, Err: err}
	}
	msg.Path = path
	return msg, nil
}

// Parse parses raw RFC 5322 data.
func Parse(raw []byte) (*Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Size:      int64(len(raw)),
		Subject:   env.GetHeader("Subject"),
		MessageID: strings.Trim(strings.TrimSpace(env.GetHeader("Message-ID")), "<>"),
		InReplyTo: strings.Trim(strings.TrimSpace(env.GetHeader("In-Reply-To")), "<>"),
		BodyText:  env.Text,
		BodyHTML:  env.HTML,
		Priority:  parsePriority(env),
	}

	if dateStr := env.GetHeader("Date"); dateStr != "" {
		if t, err := parseDate(dateStr); err == nil {
			msg.Date = t
		}
	}

	msg.From = parseAddressList(env, "From")
	msg.To = parseAddressList(env, "To")
	msg.Cc = parseAddressList(env, "Cc")
	msg.Bcc = parseAddressList(env, "Bcc")
	msg.ReplyTo = parseAddressList(env, "Reply-To")

	if refs := env.GetHeader("References"); refs != "" {
		msg.References = parseReferences(refs)
	}

	msg.parts, msg.contentFlags = collectParts(env.Root)

	for _, e := range env.Errors {
		msg.Errors = append(msg.Errors, e.Error())
	}
	return msg, nil
}

func parseAddressList(env *enmime.Envelope, header string) []Address {
	list, err := env.AddressList(header)
	if err != nil || list == nil {
		return nil
	}

	addresses := make([]Address, 0, len(list))
	for _, addr := range list {
		if addr.Address == "" {
			continue
		}
		addresses = append(addresses, Address{
			Name:   addr.Name,
			Email:  strings.ToLower(addr.Address),
			Domain: extractDomain(addr.Address),
		})
	}
	return addresses
}

func extractDomain(email string) string {
	if idx := strings.LastIndex(email, "@"); idx >= 0 {
		return strings.ToLower(email[idx+1:])
	}
	return ""
}

// parsePriority reads X-Priority, Priority and Importance, in that order.
// Messages without any of them are normal priority.
func parsePriority(env *enmime.Envelope) fields.Priority {
	if v := strings.TrimSpace(env.GetHeader("X-Priority")); v != "" {
		switch v[0] {
		case '1', '2':
			return fields.PrioHigh
		case '4', '5':
			return fields.PrioLow
		}
		return fields.PrioNormal
	}
	switch strings.ToLower(strings.TrimSpace(env.GetHeader("Priority"))) {
	case "urgent":
		return fields.PrioHigh
	case "non-urgent":
		return fields.PrioLow
	}
	switch strings.ToLower(strings.TrimSpace(env.GetHeader("Importance"))) {
	case "high":
		return fields.PrioHigh
	case "low":
		return fields.PrioLow
	}
	return fields.PrioNormal
}

func parseReferences(refs string) []string {
	var result []string
	for _, ref := range strings.Fields(refs) {
		ref = strings.Trim(ref, "<>")
		if ref != "" {
			result = append(result, ref)
		}
	}
	return result
}

var dateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700", // no weekday
	"2 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	time.RFC3339,
	"2006-01-02 15:04:05 -0700", // SQL-like
	"2006-01-02 15:04:05",
}

// parseDate tries the common Date header layouts and returns UTC. An
// unparseable date yields the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")

	// "(UTC)" style comments after the offset
	baseStr := s
	if idx := strings.LastIndex(s, "("); idx > 0 {
		baseStr = strings.TrimSpace(s[:idx])
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, baseStr); err == nil {
			return t.UTC(), nil
		}
	}
	if baseStr != s {
		for _, format := range dateFormats {
			if t, err := time.Parse(format, s); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return time.Time{}, nil
}

var blockTagRe = regexp.MustCompile(`(?i)<(/?)(p|div|br|hr|h[1-6]|li|tr|td|th|blockquote|pre|table|ul|ol|dl|dt|dd)[^>]*>`)

// One pattern per tag: RE2 has no backreferences.
var scriptTagRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
var styleTagRe = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
var headTagRe = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// StripHTML turns an HTML body into plain text for indexing: tags are
// removed, entities decoded, block elements become line breaks and runs of
// spaces collapse.
func StripHTML(rawHTML string) string {
	text := scriptTagRe.ReplaceAllString(rawHTML, "")
	text = styleTagRe.ReplaceAllString(text, "")
	text = headTagRe.ReplaceAllString(text, "")

	text = blockTagRe.ReplaceAllString(text, "\n")
	text = htmlTagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00A0", " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	text = strings.Join(lines, "\n")

	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}

// IndexText returns the body to index: the text part, or the HTML part
// stripped of markup.
func (m *Message) IndexText() string {
	if m.BodyText != "" {
		return m.BodyText
	}
	if m.BodyHTML != "" {
		return StripHTML(m.BodyHTML)
	}
	return ""
}

// ContentFlags returns the flags derived from the message structure:
// attachments, signatures and encryption.
func (m *Message) ContentFlags() fields.MsgFlags {
	return m.contentFlags
}

// JoinAddresses renders a header's addresses as they are stored for
// display and sorting.
func JoinAddresses(addrs []Address) string {
	s := make([]string, len(addrs))
	for i, a := range addrs {
		s[i] = a.String()
	}
	return strings.Join(s, ", ")
}
