package maildir

import (
	"path/filepath"
	"strings"

	"github.com/whunmr/mu/internal/fields"
)

// ParseFlags reads the flags from a maildir file name. The info part after
// ":2," carries one letter per flag, see https://cr.yp.to/proto/maildir.html.
// Files in new/ have no info part and are new.
func ParseFlags(name string, inNew bool) fields.MsgFlags {
	var flags fields.MsgFlags
	if inNew {
		flags |= fields.FlagNew
	}

	if _, info, ok := strings.Cut(filepath.Base(name), ":2,"); ok {
		for _, c := range info {
			switch c {
			case 'P':
				flags |= fields.FlagPassed
			case 'R':
				flags |= fields.FlagReplied
			case 'S':
				flags |= fields.FlagSeen
			case 'T':
				flags |= fields.FlagTrashed
			case 'D':
				flags |= fields.FlagDraft
			case 'F':
				flags |= fields.FlagFlagged
			}
		}
	}

	if flags&fields.FlagSeen == 0 {
		flags |= fields.FlagUnread
	}
	return flags
}
