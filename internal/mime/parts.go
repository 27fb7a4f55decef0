package mime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/whunmr/mu/internal/fields"
	"github.com/whunmr/mu/internal/textutil"
)

// ErrNoSuchPart is returned by Part for an index outside the message.
var ErrNoSuchPart = errors.New("no such part")

// Part is a leaf MIME part. Parts are numbered from 1 in depth-first order.
type Part struct {
	Index       int
	FileName    string // "" when the part names no file
	MimeType    string // e.g. "text"
	MimeSubtype string // e.g. "plain"
	Disposition string // "attachment", "inline" or ""
	ContentID   string
	Charset     string
	Content     []byte // decoded
}

// IsAttachment reports whether the part is meant to be saved rather than
// read inline.
func (p Part) IsAttachment() bool {
	return p.Disposition == "attachment" || p.FileName != ""
}

// Text returns the content of a text part as UTF-8.
func (p Part) Text() string {
	return textutil.ToUTF8(p.Content, p.Charset)
}

// Parts returns the leaf parts of the message in depth-first order.
func (m *Message) Parts() []Part {
	return m.parts
}

// Part returns the part with the given 1-based index.
func (m *Message) Part(index int) (Part, error) {
	if index < 1 || index > len(m.parts) {
		return Part{}, fmt.Errorf("%w %d (message has %d)", ErrNoSuchPart, index, len(m.parts))
	}
	return m.parts[index-1], nil
}

// collectParts walks the MIME tree depth-first. Multipart containers are
// not numbered; only their leaves are.
func collectParts(root *enmime.Part) ([]Part, fields.MsgFlags) {
	var parts []Part
	var flags fields.MsgFlags

	var walk func(p *enmime.Part)
	walk = func(p *enmime.Part) {
		for ; p != nil; p = p.NextSibling {
			typ, sub := splitMediaType(p.ContentType)
			if typ == "multipart" {
				switch sub {
				case "signed":
					flags |= fields.FlagSigned
				case "encrypted":
					flags |= fields.FlagEncrypted
				}
			}
			if p.FirstChild != nil {
				walk(p.FirstChild)
				continue
			}
			part := Part{
				Index:       len(parts) + 1,
				FileName:    p.FileName,
				MimeType:    typ,
				MimeSubtype: sub,
				Disposition: strings.ToLower(p.Disposition),
				ContentID:   p.ContentID,
				Charset:     p.Charset,
				Content:     p.Content,
			}
			if part.IsAttachment() {
				flags |= fields.FlagHasAttach
			}
			parts = append(parts, part)
		}
	}
	walk(root)
	return parts, flags
}

// splitMediaType splits "text/plain; charset=x" into "text" and "plain".
// A missing type defaults to text/plain.
func splitMediaType(ct string) (string, string) {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" {
		return "text", "plain"
	}
	typ, sub, ok := strings.Cut(ct, "/")
	if !ok {
		return typ, ""
	}
	return typ, sub
}
