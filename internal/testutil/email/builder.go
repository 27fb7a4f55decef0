// Package email builds RFC 5322 messages for tests.
package email

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Attachment is a non-text part added to a multipart message.
type Attachment struct {
	Filename    string
	ContentType string
	// Disposition defaults to "attachment"; "inline" and "none" (no header)
	// are also understood.
	Disposition string
	Data        []byte
}

// MessageBuilder constructs messages with a fluent API. Lines end in \n
// unless CRLF is called.
type MessageBuilder struct {
	headers     [][2]string
	contentType string
	body        string
	html        string
	attachments []Attachment
	boundary    string
	crlf        bool
}

// NewMessage returns a builder preloaded with From, To, Subject, Date and
// Message-ID headers.
func NewMessage() *MessageBuilder {
	b := &MessageBuilder{
		body:     "This is a test message body.",
		boundary: "boundary123",
	}
	b.Header("From", "sender@example.com")
	b.Header("To", "recipient@example.com")
	b.Header("Subject", "Test Message")
	b.Header("Date", "Mon, 01 Jan 2024 12:00:00 +0000")
	b.Header("Message-ID", "<test@example.com>")
	return b
}

// Header sets a header, replacing any existing one with the same name
// (case-insensitive). An empty value removes the header.
func (b *MessageBuilder) Header(key, value string) *MessageBuilder {
	for i, h := range b.headers {
		if strings.EqualFold(h[0], key) {
			if value == "" {
				b.headers = append(b.headers[:i], b.headers[i+1:]...)
			} else {
				b.headers[i][1] = value
			}
			return b
		}
	}
	if value != "" {
		b.headers = append(b.headers, [2]string{key, value})
	}
	return b
}

func (b *MessageBuilder) From(v string) *MessageBuilder      { return b.Header("From", v) }
func (b *MessageBuilder) To(v string) *MessageBuilder        { return b.Header("To", v) }
func (b *MessageBuilder) Cc(v string) *MessageBuilder        { return b.Header("Cc", v) }
func (b *MessageBuilder) Subject(v string) *MessageBuilder   { return b.Header("Subject", v) }
func (b *MessageBuilder) Date(v string) *MessageBuilder      { return b.Header("Date", v) }
func (b *MessageBuilder) MessageID(v string) *MessageBuilder { return b.Header("Message-ID", "<"+v+">") }

// ContentType overrides the Content-Type of a single-part message.
func (b *MessageBuilder) ContentType(v string) *MessageBuilder { b.contentType = v; return b }

// Body sets the plain text body.
func (b *MessageBuilder) Body(v string) *MessageBuilder { b.body = v; return b }

// HTML adds a text/html alternative to the body.
func (b *MessageBuilder) HTML(v string) *MessageBuilder { b.html = v; return b }

// Boundary sets the outer multipart boundary.
func (b *MessageBuilder) Boundary(v string) *MessageBuilder { b.boundary = v; return b }

// WithAttachment adds a base64-encoded attachment.
func (b *MessageBuilder) WithAttachment(filename, contentType string, data []byte) *MessageBuilder {
	b.attachments = append(b.attachments, Attachment{Filename: filename, ContentType: contentType, Data: data})
	return b
}

// WithPart adds an arbitrary part.
func (b *MessageBuilder) WithPart(a Attachment) *MessageBuilder {
	b.attachments = append(b.attachments, a)
	return b
}

// CRLF switches to \r\n line endings.
func (b *MessageBuilder) CRLF() *MessageBuilder { b.crlf = true; return b }

// Bytes renders the message.
func (b *MessageBuilder) Bytes() []byte {
	nl := "\n"
	if b.crlf {
		nl = "\r\n"
	}
	var s strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&s, format, args...)
		s.WriteString(nl)
	}

	for _, h := range b.headers {
		line("%s: %s", h[0], h[1])
	}

	if len(b.attachments) == 0 && b.html == "" {
		ct := b.contentType
		if ct == "" {
			ct = `text/plain; charset="utf-8"`
		}
		line("Content-Type: %s", ct)
		line("")
		line("%s", b.body)
		return []byte(s.String())
	}

	line("MIME-Version: 1.0")
	line("Content-Type: multipart/mixed; boundary=%q", b.boundary)
	line("")

	line("--%s", b.boundary)
	if b.html != "" {
		alt := "alt-" + b.boundary
		line("Content-Type: multipart/alternative; boundary=%q", alt)
		line("")
		line("--%s", alt)
		line(`Content-Type: text/plain; charset="utf-8"`)
		line("")
		line("%s", b.body)
		line("--%s", alt)
		line(`Content-Type: text/html; charset="utf-8"`)
		line("")
		line("%s", b.html)
		line("--%s--", alt)
	} else {
		line(`Content-Type: text/plain; charset="utf-8"`)
		line("")
		line("%s", b.body)
	}

	for _, a := range b.attachments {
		line("--%s", b.boundary)
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		if a.Filename != "" {
			line("Content-Type: %s; name=%q", ct, a.Filename)
		} else {
			line("Content-Type: %s", ct)
		}
		switch disp := a.Disposition; {
		case disp == "none":
		case a.Filename != "":
			if disp == "" {
				disp = "attachment"
			}
			line("Content-Disposition: %s; filename=%q", disp, a.Filename)
		default:
			if disp == "" {
				disp = "attachment"
			}
			line("Content-Disposition: %s", disp)
		}
		line("Content-Transfer-Encoding: base64")
		line("")
		line("%s", base64.StdEncoding.EncodeToString(a.Data))
	}
	line("--%s--", b.boundary)
	return []byte(s.String())
}
