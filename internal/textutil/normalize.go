package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Accented Latin letters live in three two-byte UTF-8 blocks: lead byte 0xC3
// (Latin-1 Supplement, U+00C0..U+00FF) and 0xC4/0xC5 (Latin Extended-A,
// U+0100..U+017F). Each replacement is at most two ASCII bytes, so a
// normalized string is never longer than its input.
const (
	firstLead = 0xc3
	lastLead  = 0xc5
)

// accentTable holds the replacement for every continuation byte of every
// lead byte; "" means the sequence is copied through.
type accentTable [lastLead - firstLead + 1][0x40]string

var (
	asIs   accentTable // upper variants map to upper ASCII
	folded accentTable // everything lower-cased
)

var accentMap = []struct {
	chars string
	repl  string
}{
	// Latin-1 Supplement. × ÷ Ø ø are not mapped.
	{"ÀÁÂÃÄÅ", "A"}, {"Æ", "Ae"}, {"Ç", "C"}, {"ÈÉÊË", "E"}, {"ÌÍÎÏ", "I"},
	{"Ð", "D"}, {"Ñ", "N"}, {"ÒÓÔÕÖ", "O"}, {"ÙÚÛÜ", "U"}, {"Ý", "Y"},
	{"Þ", "Th"}, {"ß", "ss"},
	{"àáâãäå", "a"}, {"æ", "ae"}, {"ç", "c"}, {"èéêë", "e"}, {"ìíîï", "i"},
	{"ð", "d"}, {"ñ", "n"}, {"òóôõö", "o"}, {"ùúûü", "u"}, {"ýÿ", "y"},
	{"þ", "th"},

	// Latin Extended-A, U+0100..U+013F.
	{"ĀĂĄ", "A"}, {"āăą", "a"}, {"ĆĈĊČ", "C"}, {"ćĉċč", "c"},
	{"ĎĐ", "D"}, {"ďđ", "d"}, {"ĒĔĖĘĚ", "E"}, {"ēĕėęě", "e"},
	{"ĜĞĠĢ", "G"}, {"ĝğġģ", "g"}, {"ĤĦ", "H"}, {"ĥħ", "h"},
	{"ĨĪĬĮİ", "I"}, {"ĩīĭįı", "i"}, {"Ĳ", "IJ"}, {"ĳ", "ij"},
	{"Ĵ", "J"}, {"ĵ", "j"}, {"Ķ", "K"}, {"ķĸ", "k"},
	{"ĹĻĽĿ", "L"}, {"ĺļľ", "l"},

	// Latin Extended-A, U+0140..U+017F.
	{"ŀł", "l"}, {"Ł", "L"}, {"ŃŅŇŊ", "N"}, {"ńņňŉŋ", "n"},
	{"ŌŎŐ", "O"}, {"ōŏő", "o"}, {"Œ", "Oe"}, {"œ", "oe"},
	{"ŔŖŘ", "R"}, {"ŕŗř", "r"}, {"ŚŜŞŠ", "S"}, {"śŝşšſ", "s"},
	{"ŢŤŦ", "T"}, {"ţťŧ", "t"}, {"ŨŪŬŮŰŲ", "U"}, {"ũūŭůűų", "u"},
	{"Ŵ", "W"}, {"ŵ", "w"}, {"ŶŸ", "Y"}, {"ŷ", "y"},
	{"ŹŻŽ", "Z"}, {"źżž", "z"},
}

func init() {
	var buf [utf8.UTFMax]byte
	for _, m := range accentMap {
		for _, r := range m.chars {
			if n := utf8.EncodeRune(buf[:], r); n != 2 || buf[0] < firstLead || buf[0] > lastLead {
				panic("textutil: accent table entry outside the two-byte Latin blocks: " + string(r))
			}
			lead, cont := buf[0]-firstLead, buf[1]&0x3f
			asIs[lead][cont] = m.repl
			folded[lead][cont] = strings.ToLower(m.repl)
		}
	}
}

// Normalize strips accents from Latin-1 Supplement and Latin Extended-A
// letters, mapping them to their closest ASCII spelling (é → e, ß → ss,
// Æ → Ae). With foldCase, the result is also lower-cased (ASCII only);
// without it, case is preserved. The result is never longer than s and
// Normalize(Normalize(s, f), f) == Normalize(s, f).
func Normalize(s string, foldCase bool) string {
	return string(NormalizeBytes([]byte(s), foldCase))
}

// NormalizeBytes is Normalize rewriting b in place. It returns the prefix of
// b holding the result.
func NormalizeBytes(b []byte, foldCase bool) []byte {
	table := &asIs
	if foldCase {
		table = &folded
	}

	w := 0
	for r := 0; r < len(b); {
		c := b[r]
		if c < firstLead || c > lastLead || r+1 >= len(b) || b[r+1]&0xc0 != 0x80 {
			// Not a two-byte sequence we know, a lone lead byte at the end,
			// or a lead byte without a continuation byte.
			if foldCase && c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			b[w] = c
			w++
			r++
			continue
		}

		cont := b[r+1]
		repl := table[c-firstLead][cont&0x3f]
		if repl == "" {
			b[w], b[w+1] = c, cont
			w += 2
		} else {
			w += copy(b[w:], repl)
		}
		r += 2
	}
	return b[:w]
}

// Tokenize normalizes s with case folding and splits it into index terms on
// anything that is not a letter or a digit. Letters outside ASCII that the
// normalizer keeps are lower-cased too.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(Normalize(s, true)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
