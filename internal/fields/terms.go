package fields

import (
	"fmt"
	"strings"

	"github.com/whunmr/mu/internal/textutil"
)

// ExactTerm returns the term stored for value in an exact-term or contact
// field. The indexer and the query engine both go through it so that the two
// sides agree.
//
// Flags and priorities accept names or letters and store the canonical name;
// paths are kept as they are; everything else is accent-stripped and
// lower-cased.
func ExactTerm(id ID, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch id {
	case Flags:
		_, name, ok := FlagFromName(value)
		if !ok {
			return "", fmt.Errorf("unknown flag %q", value)
		}
		return name, nil
	case Prio:
		p, ok := PriorityFromName(value)
		if !ok {
			return "", fmt.Errorf("unknown priority %q", value)
		}
		return p.String(), nil
	case Path:
		return value, nil
	}
	if !ExactTermIndexed(id) && !ContactIndexed(id) {
		return "", fmt.Errorf("field %s has no exact terms", Name(id))
	}
	return strings.ToLower(textutil.Normalize(value, true)), nil
}
