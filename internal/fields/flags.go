package fields

import "strings"

// MsgFlags is the bitmask stored in the Flags field.
type MsgFlags uint32

const (
	FlagNew MsgFlags = 1 << iota
	FlagPassed
	FlagReplied
	FlagSeen
	FlagTrashed
	FlagDraft
	FlagFlagged
	FlagSigned
	FlagEncrypted
	FlagHasAttach
	FlagUnread
)

type flagInfo struct {
	flag   MsgFlags
	name   string
	letter byte
}

// flagTable is in bit order; the letters double as the maildir info
// characters for the upper-case ones.
var flagTable = []flagInfo{
	{FlagNew, "new", 'N'},
	{FlagPassed, "passed", 'P'},
	{FlagReplied, "replied", 'R'},
	{FlagSeen, "seen", 'S'},
	{FlagTrashed, "trashed", 'T'},
	{FlagDraft, "draft", 'D'},
	{FlagFlagged, "flagged", 'F'},
	{FlagSigned, "signed", 'z'},
	{FlagEncrypted, "encrypted", 'x'},
	{FlagHasAttach, "attach", 'a'},
	{FlagUnread, "unread", 'u'},
}

// Names returns the names of the set flags in bit order.
func (f MsgFlags) Names() []string {
	var names []string
	for _, fi := range flagTable {
		if f&fi.flag != 0 {
			names = append(names, fi.name)
		}
	}
	return names
}

// String renders the flags as their letters, e.g. "SR".
func (f MsgFlags) String() string {
	var sb strings.Builder
	for _, fi := range flagTable {
		if f&fi.flag != 0 {
			sb.WriteByte(fi.letter)
		}
	}
	return sb.String()
}

// FlagFromName accepts a flag name or its letter (case-insensitive) and
// returns the flag's canonical term name.
func FlagFromName(s string) (MsgFlags, string, bool) {
	if len(s) == 1 {
		for _, fi := range flagTable {
			if fi.letter|0x20 == s[0]|0x20 {
				return fi.flag, fi.name, true
			}
		}
		return 0, "", false
	}
	s = strings.ToLower(s)
	for _, fi := range flagTable {
		if fi.name == s {
			return fi.flag, fi.name, true
		}
	}
	return 0, "", false
}

// Priority is stored in the Prio field.
type Priority int

const (
	PrioLow    Priority = 1
	PrioNormal Priority = 2
	PrioHigh   Priority = 3
)

func (p Priority) String() string {
	switch p {
	case PrioLow:
		return "low"
	case PrioHigh:
		return "high"
	default:
		return "normal"
	}
}

// PriorityFromName accepts "low", "normal", "high" or their first letter.
func PriorityFromName(s string) (Priority, bool) {
	switch strings.ToLower(s) {
	case "l", "low":
		return PrioLow, true
	case "n", "normal":
		return PrioNormal, true
	case "h", "high":
		return PrioHigh, true
	}
	return 0, false
}
