package textutil

import (
	"testing"
	"unicode/utf8"
)

func TestEnsureUTF8_ValidInputUnchanged(t *testing.T) {
	for _, s := range []string{"", "Hello, World!", "你好世界", "Привет мир", "Hello 👋"} {
		if got := EnsureUTF8(s); got != s {
			t.Errorf("EnsureUTF8(%q) = %q", s, got)
		}
	}
}

func TestEnsureUTF8_Latin1(t *testing.T) {
	// "Café résumé" in ISO-8859-1.
	in := string([]byte{'C', 'a', 'f', 0xe9, ' ', 'r', 0xe9, 's', 'u', 'm', 0xe9})
	got := EnsureUTF8(in)
	if !utf8.ValidString(got) {
		t.Fatalf("EnsureUTF8 returned invalid UTF-8: %q", got)
	}
	if got != "Café résumé" {
		t.Errorf("EnsureUTF8 = %q, want %q", got, "Café résumé")
	}
}

func TestToUTF8_DeclaredCharset(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		charset string
		want    string
	}{
		{"utf-8 passes through", []byte("naïve"), "iso-8859-1", "naïve"},
		{"latin1", []byte{'n', 'a', 0xef, 'v', 'e'}, "ISO-8859-1", "naïve"},
		{"windows-1252 smart quotes", []byte{0x93, 'h', 'i', 0x94}, "windows-1252", "“hi”"},
		{"koi8-r", []byte{0xf0, 0xd2, 0xc9, 0xd7, 0xc5, 0xd4}, "KOI8-R", "Привет"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToUTF8(tt.data, tt.charset); got != tt.want {
				t.Errorf("ToUTF8 = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToUTF8_UnknownCharsetStillValid(t *testing.T) {
	got := ToUTF8([]byte{'a', 0xff, 0xfe, 'b'}, "x-unknown")
	if !utf8.ValidString(got) {
		t.Errorf("ToUTF8 returned invalid UTF-8: %q", got)
	}
}

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello", "hello"},
		{"a\xffb", "a�b"},
		{"\xff\xfe", "��"},
		{"ok 世界", "ok 世界"},
	}
	for _, tt := range tests {
		if got := SanitizeUTF8(tt.in); got != tt.want {
			t.Errorf("SanitizeUTF8(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetEncodingByName(t *testing.T) {
	known := []string{
		"windows-1252", "CP1252", "ISO-8859-1", "latin1", "iso-8859-15",
		"ISO-8859-2", "Shift_JIS", "EUC-JP", "iso-2022-jp", "EUC-KR",
		"GB2312", "gb18030", "Big5", "KOI8-R", "koi8-u", " latin2 ",
	}
	for _, name := range known {
		if GetEncodingByName(name) == nil {
			t.Errorf("GetEncodingByName(%q) = nil", name)
		}
	}
	for _, name := range []string{"", "utf-8", "x-made-up"} {
		if GetEncodingByName(name) != nil {
			t.Errorf("GetEncodingByName(%q) != nil", name)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"日本語テキスト", 5, "日本..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateRunes(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
