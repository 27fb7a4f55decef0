package mime

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/whunmr/mu/internal/fields"
	"github.com/whunmr/mu/internal/testutil"
	testemail "github.com/whunmr/mu/internal/testutil/email"
)

// mustParse calls Parse and fails the test on error.
func mustParse(t *testing.T, raw []byte) *Message {
	t.Helper()
	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	return msg
}

// assertAddress checks that got has exactly wantLen elements and got[idx] has the expected email and (optionally) domain.
func assertAddress(t *testing.T, got []Address, wantLen, idx int, wantEmail, wantDomain string) {
	t.Helper()
	if len(got) != wantLen {
		t.Fatalf("Address slice length = %d, want %d", len(got), wantLen)
	}
	if got[idx].Email != wantEmail {
		t.Errorf("Address[%d].Email = %q, want %q", idx, got[idx].Email, wantEmail)
	}
	if wantDomain != "" && got[idx].Domain != wantDomain {
		t.Errorf("Address[%d].Domain = %q, want %q", idx, got[idx].Domain, wantDomain)
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		email  string
		domain string
	}{
		{"user@example.com", "example.com"},
		{"USER@EXAMPLE.COM", "example.com"},
		{"user@sub.domain.org", "sub.domain.org"},
		{"nodomain", ""},
		{"", ""},
	}

	for _, tc := range tests {
		if got := extractDomain(tc.email); got != tc.domain {
			t.Errorf("extractDomain(%q) = %q, want %q", tc.email, got, tc.domain)
		}
	}
}

func TestParseReferences(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"<abc@example.com>", []string{"abc@example.com"}},
		{"<a@x.com> <b@y.com>", []string{"a@x.com", "b@y.com"}},
		{"<a@x.com>\n\t<b@y.com>", []string{"a@x.com", "b@y.com"}},
		{"", nil},
		{"   ", nil},
	}

	for _, tc := range tests {
		got := parseReferences(tc.input)
		if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("parseReferences(%q) mismatch (-want +got):\n%s", tc.input, diff)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time // zero means unparseable
	}{
		{"RFC1123Z", "Mon, 02 Jan 2006 15:04:05 -0700",
			time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC)},
		{"no weekday", "02 Jan 2006 15:04:05 -0700",
			time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC)},
		{"parenthesized zone", "Mon, 02 Jan 2006 15:04:05 -0700 (PST)",
			time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC)},
		{"double space after comma", "Mon,  2 Dec 2024 11:42:03 +0000 (UTC)",
			time.Date(2024, 12, 2, 11, 42, 3, 0, time.UTC)},
		{"ISO 8601 offset", "2006-01-02T15:04:05-07:00",
			time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC)},
		{"SQL-like no tz", "2006-01-02 15:04:05",
			time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)},

		{"empty", "", time.Time{}},
		{"garbage", "not a date", time.Time{}},
		{"date only", "2006-01-02", time.Time{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseDate(tc.input)
			if err != nil {
				t.Fatalf("parseDate(%q) unexpected error: %v", tc.input, err)
			}
			if tc.want.IsZero() {
				if !got.IsZero() {
					t.Errorf("parseDate(%q) = %v, want zero time", tc.input, got)
				}
				return
			}
			if !got.Equal(tc.want) {
				t.Errorf("parseDate(%q) = %v, want %v", tc.input, got, tc.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("parseDate(%q) location = %v, want UTC", tc.input, got.Location())
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"paragraph", "<p>Hello</p>", "Hello"},
		{"inline_tags", "<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"empty", "", ""},
		{"script_removed", "<script>alert('xss')</script>Text", "Text"},
		{"style_removed", "<style>.class{color:red}</style>Content", "Content"},
		{"head_removed", "<head><title>Title</title></head>Body", "Body"},
		{"crlf_to_lf", "Line1\r\nLine2", "Line1\nLine2"},
		{"collapse_newlines", "Multiple\n\n\n\nNewlines", "Multiple\n\nNewlines"},
		{"entities", "Tom &amp; Jerry &lt;3", "Tom & Jerry <3"},
		{"nbsp_spaces", "Hello&nbsp;&nbsp;World", "Hello World"},
		{"br_tag", "Line1<br>Line2", "Line1\nLine2"},
		{"paragraph_breaks", "<p>Para1</p><p>Para2</p>", "Para1\n\nPara2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripHTML(tc.input); got != tc.want {
				t.Errorf("StripHTML() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMessage_IndexText(t *testing.T) {
	msg := &Message{BodyText: "plain", BodyHTML: "<p>html</p>"}
	if got := msg.IndexText(); got != "plain" {
		t.Errorf("IndexText() = %q, want %q", got, "plain")
	}

	msg = &Message{BodyHTML: "<p>html only</p>"}
	if got := msg.IndexText(); got != "html only" {
		t.Errorf("IndexText() = %q, want %q", got, "html only")
	}

	if got := (&Message{}).IndexText(); got != "" {
		t.Errorf("IndexText() = %q, want empty", got)
	}
}

func TestParse_Headers(t *testing.T) {
	raw := testemail.NewMessage().
		From(`"Alice Example" <Alice@Example.com>`).
		To("bob@example.org, carol@example.net").
		Cc("dave@example.com").
		Subject("Quarterly numbers").
		Date("Mon, 02 Jan 2006 15:04:05 -0700").
		MessageID("abc@example.com").
		Header("References", "<r1@x> <r2@x>").
		Body("Body text").
		Bytes()

	msg := mustParse(t, raw)

	assertAddress(t, msg.From, 1, 0, "alice@example.com", "example.com")
	if msg.From[0].Name != "Alice Example" {
		t.Errorf("From name = %q", msg.From[0].Name)
	}
	assertAddress(t, msg.To, 2, 1, "carol@example.net", "example.net")
	assertAddress(t, msg.Cc, 1, 0, "dave@example.com", "")
	if msg.Subject != "Quarterly numbers" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.MessageID != "abc@example.com" {
		t.Errorf("MessageID = %q, want angle brackets stripped", msg.MessageID)
	}
	if want := time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC); !msg.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", msg.Date, want)
	}
	testutil.AssertStrings(t, msg.References, "r1@x", "r2@x")
	if got := strings.TrimSpace(msg.BodyText); got != "Body text" {
		t.Errorf("BodyText = %q", got)
	}
	if msg.Size != int64(len(raw)) {
		t.Errorf("Size = %d, want %d", msg.Size, len(raw))
	}
	if msg.Priority != fields.PrioNormal {
		t.Errorf("Priority = %v, want normal", msg.Priority)
	}
}

func TestParse_Priority(t *testing.T) {
	tests := []struct {
		header, value string
		want          fields.Priority
	}{
		{"X-Priority", "1 (Highest)", fields.PrioHigh},
		{"X-Priority", "2", fields.PrioHigh},
		{"X-Priority", "3 (Normal)", fields.PrioNormal},
		{"X-Priority", "5 (Lowest)", fields.PrioLow},
		{"Priority", "urgent", fields.PrioHigh},
		{"Priority", "non-urgent", fields.PrioLow},
		{"Importance", "High", fields.PrioHigh},
		{"Importance", "low", fields.PrioLow},
		{"Importance", "whatever", fields.PrioNormal},
	}
	for _, tc := range tests {
		raw := testemail.NewMessage().Header(tc.header, tc.value).Bytes()
		if got := mustParse(t, raw).Priority; got != tc.want {
			t.Errorf("%s: %s gives %v, want %v", tc.header, tc.value, got, tc.want)
		}
	}
}

func TestParse_Latin1Charset(t *testing.T) {
	raw := []byte("From: sender@example.com\r\nTo: recipient@example.com\r\nSubject: Caf\xe9\r\nContent-Type: text/plain; charset=iso-8859-1\r\n\r\nCaf\xe9 au lait")

	msg := mustParse(t, raw)
	if msg.BodyText != "Café au lait" {
		t.Errorf("BodyText = %q, want %q", msg.BodyText, "Café au lait")
	}
}

func TestParse_GroupAddress(t *testing.T) {
	msg := mustParse(t, testemail.NewMessage().To("undisclosed-recipients:;").Bytes())
	if len(msg.To) != 0 {
		t.Errorf("To = %v, want empty for undisclosed-recipients group", msg.To)
	}

	msg = mustParse(t, testemail.NewMessage().To("team: alice@example.com, bob@example.com;").Bytes())
	got := make([]string, len(msg.To))
	for i, addr := range msg.To {
		got[i] = addr.Email
	}
	testutil.AssertStrings(t, got, "alice@example.com", "bob@example.com")
}

func TestAddress_String(t *testing.T) {
	if got := (Address{Email: "a@b.c"}).String(); got != "a@b.c" {
		t.Errorf("String() = %q", got)
	}
	if got := (Address{Name: "A B", Email: "a@b.c"}).String(); got != "A B <a@b.c>" {
		t.Errorf("String() = %q", got)
	}
	got := JoinAddresses([]Address{{Email: "a@b.c"}, {Name: "D", Email: "d@e.f"}})
	if got != "a@b.c, D <d@e.f>" {
		t.Errorf("JoinAddresses() = %q", got)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	raw := testemail.NewMessage().Subject("On disk").Bytes()
	path := testutil.WriteFile(t, dir, "msg.eml", raw)

	msg, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if msg.Path != path || msg.Subject != "On disk" {
		t.Errorf("Open() = path %q subject %q", msg.Path, msg.Subject)
	}
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing"))
	var oe *MessageOpenError
	if !errors.As(err, &oe) {
		t.Fatalf("Open(missing) = %v, want *MessageOpenError", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error does not wrap fs.ErrNotExist: %v", err)
	}

	if _, err := Open(dir); !errors.As(err, &oe) {
		t.Errorf("Open(dir) = %v, want *MessageOpenError", err)
	}
}
