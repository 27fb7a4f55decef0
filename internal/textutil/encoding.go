// Package textutil holds the text handling shared by the indexer and the
// query engine: accent normalization, tokenizing and charset repair.
package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// fallbackEncodings are tried in order when detection is inconclusive.
// Western single-byte charsets are by far the most common in mail.
var fallbackEncodings = []encoding.Encoding{
	charmap.Windows1252,
	charmap.ISO8859_1,
	charmap.ISO8859_15,
	japanese.ShiftJIS,
	japanese.EUCJP,
	korean.EUCKR,
	simplifiedchinese.GBK,
	traditionalchinese.Big5,
}

// ToUTF8 decodes data declared as charset. When the declaration is missing,
// unknown or wrong, it falls back to EnsureUTF8.
func ToUTF8(data []byte, charset string) string {
	if utf8.Valid(data) {
		return string(data)
	}
	if enc := GetEncodingByName(charset); enc != nil {
		if out, ok := decode(enc, data); ok {
			return out
		}
	}
	return EnsureUTF8(string(data))
}

// EnsureUTF8 returns s unchanged when it is valid UTF-8. Otherwise it guesses
// the charset, first with chardet and then from a list of common mail
// charsets, and as a last resort replaces the invalid bytes.
func EnsureUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	data := []byte(s)

	// chardet is unreliable on short samples; accept a weaker guess there.
	threshold := 30
	if len(data) > 50 {
		threshold = 50
	}
	if best, err := chardet.NewTextDetector().DetectBest(data); err == nil && best.Confidence >= threshold {
		if enc := GetEncodingByName(best.Charset); enc != nil {
			if out, ok := decode(enc, data); ok {
				return out
			}
		}
	}

	for _, enc := range fallbackEncodings {
		if out, ok := decode(enc, data); ok {
			return out
		}
	}
	return SanitizeUTF8(s)
}

func decode(enc encoding.Encoding, data []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	return string(out), true
}

// SanitizeUTF8 replaces every invalid byte with U+FFFD.
func SanitizeUTF8(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		// range yields RuneError for each invalid byte.
		sb.WriteRune(r)
	}
	return sb.String()
}

// GetEncodingByName maps an IANA charset name (case-insensitive) to its
// decoder, or nil when the charset is unknown.
func GetEncodingByName(name string) encoding.Encoding {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15
	case "iso-8859-2", "latin2":
		return charmap.ISO8859_2
	case "shift_jis", "shift-jis", "sjis":
		return japanese.ShiftJIS
	case "euc-jp", "eucjp":
		return japanese.EUCJP
	case "iso-2022-jp":
		return japanese.ISO2022JP
	case "euc-kr", "euckr":
		return korean.EUCKR
	case "gb2312", "gbk":
		return simplifiedchinese.GBK
	case "gb18030":
		return simplifiedchinese.GB18030
	case "big5", "big-5":
		return traditionalchinese.Big5
	case "koi8-r":
		return charmap.KOI8R
	case "koi8-u":
		return charmap.KOI8U
	}
	return nil
}

// TruncateRunes shortens s to at most maxRunes runes, ending in "..." when
// anything was cut.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}
