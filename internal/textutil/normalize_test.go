package textutil

import (
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in       string
		foldCase bool
		want     string
	}{
		{"Café", false, "Cafe"},
		{"CAFÉ", true, "cafe"},
		{"Straße", false, "Strasse"},
		{"Straße", true, "strasse"},
		{"ÆSIR", false, "AeSIR"},
		{"ÆSIR", true, "aesir"},
		{"Þór", false, "Thor"},
		{"Ĳssel", false, "IJssel"},
		{"Œuvre", true, "oeuvre"},
		{"Łódź", false, "Lodz"},
		{"Łódź", true, "lodz"},
		{"Ģirts", true, "girts"},
		{"ģ", false, "g"},
		{"Ŋ", false, "N"},
		{"ſ", false, "s"},
		{"Hello World", true, "hello world"},
		{"Hello World", false, "Hello World"},
		{"", true, ""},
		// Unmapped two-byte sequences are kept.
		{"2×3÷1", false, "2×3÷1"},
		{"Ørsted", true, "Ørsted"},
		// Outside the accent blocks nothing changes but ASCII case.
		{"Привет ABC", true, "Привет abc"},
		{"日本", false, "日本"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in, tt.foldCase); got != tt.want {
			t.Errorf("Normalize(%q, %v) = %q, want %q", tt.in, tt.foldCase, got, tt.want)
		}
	}
}

func TestNormalize_MalformedInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lead byte at end", "abc\xc3", "abc\xc3"},
		{"lone lead byte", "\xc4", "\xc4"},
		{"lead without continuation", "\xc3A", "\xc3a"},
		{"lead then mapped pair", "\xc5\xc3\xa9", "\xc5e"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in, true); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Properties(t *testing.T) {
	inputs := []string{
		"Café", "Straße", "ÆØÅ æøå", "Łódź Ŀŀ Ĳĳ Œœ ŉ", "2×3÷1", "plain ascii",
		"abc\xc3", "\xc3A", "mixed 日本 Ĝĝ Ţţ Žž", "\xff\xfe\xc4",
	}
	for _, in := range inputs {
		for _, fold := range []bool{false, true} {
			once := Normalize(in, fold)
			if len(once) > len(in) {
				t.Errorf("Normalize(%q, %v) grew from %d to %d bytes", in, fold, len(in), len(once))
			}
			if twice := Normalize(once, fold); twice != once {
				t.Errorf("Normalize(%q, %v) not idempotent: %q then %q", in, fold, once, twice)
			}
			if utf8.ValidString(in) && !utf8.ValidString(once) {
				t.Errorf("Normalize(%q, %v) produced invalid UTF-8 %q", in, fold, once)
			}
		}
	}
}

// Every letter in the two-byte Latin blocks either maps to ASCII or is kept.
func TestNormalize_WholeBlocks(t *testing.T) {
	for r := rune(0xc0); r <= 0x17f; r++ {
		in := string(r)
		for _, fold := range []bool{false, true} {
			got := Normalize(in, fold)
			if got == in {
				continue
			}
			for i := 0; i < len(got); i++ {
				if got[i] >= utf8.RuneSelf {
					t.Errorf("Normalize(%q, %v) = %q: mapped to non-ASCII", in, fold, got)
				}
			}
		}
	}
}

func TestNormalizeBytes_InPlace(t *testing.T) {
	buf := []byte("Ünïcödé Straße")
	out := NormalizeBytes(buf, false)
	if string(out) != "Unicode Strasse" {
		t.Errorf("NormalizeBytes = %q", out)
	}
	if &out[0] != &buf[0] {
		t.Error("NormalizeBytes did not reuse the input buffer")
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"Re: Café meeting @ 10:30", []string{"re", "cafe", "meeting", "10", "30"}},
		{"  ", nil},
		{"Grüße aus Köln", []string{"grusse", "aus", "koln"}},
		{"user@example.com", []string{"user", "example", "com"}},
		{"Привет МИР", []string{"привет", "мир"}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
