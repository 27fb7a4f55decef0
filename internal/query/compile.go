package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/whunmr/mu/internal/fields"
	"github.com/whunmr/mu/internal/search"
	"github.com/whunmr/mu/internal/textutil"
)

// compiled is a query expression translated to a condition on d.id, plus
// the canonical text of the expression.
type compiled struct {
	where string
	args  []any
	text  string

	// scoreTerms are the positive full-text matches, counted for relevance.
	scoreTerms []postingMatch
}

type postingMatch struct {
	fields []fields.ID
	term   string
	prefix bool
}

type compiler struct {
	expr    string
	dates   search.DateParser
	negated int
	scores  []postingMatch
}

func (e *Engine) compile(expr string) (*compiled, error) {
	root, err := search.Parse(expr)
	if err != nil {
		return nil, &CompileError{Expr: expr, Err: err}
	}
	c := &compiler{expr: expr, dates: e.dates}
	where, args, text, err := c.node(root)
	if err != nil {
		return nil, err
	}
	return &compiled{where: where, args: args, text: text, scoreTerms: c.scores}, nil
}

func (c *compiler) errorf(format string, args ...any) error {
	return compileErrorf(c.expr, format, args...)
}

func (c *compiler) node(n search.Node) (string, []any, string, error) {
	switch n := n.(type) {
	case *search.And:
		return c.group("AND", n.Children)
	case *search.Or:
		return c.group("OR", n.Children)
	case *search.Not:
		c.negated++
		where, args, text, err := c.node(n.Child)
		c.negated--
		if err != nil || text == nothingText {
			return where, args, text, err
		}
		return "NOT (" + where + ")", args, "(NOT " + text + ")", nil
	case *search.MatchAll:
		return "1", nil, "*", nil
	case *search.Term:
		return c.term(n)
	case *search.Range:
		return c.rangeClause(n)
	}
	return "", nil, "", c.errorf("unsupported clause %T", n)
}

// group joins the children with op. Children without searchable content
// (punctuation-only terms) are left out; a group made only of them matches
// nothing.
func (c *compiler) group(op string, children []search.Node) (string, []any, string, error) {
	wheres := make([]string, 0, len(children))
	texts := make([]string, 0, len(children))
	var args []any
	for _, child := range children {
		w, a, t, err := c.node(child)
		if err != nil {
			return "", nil, "", err
		}
		if t == nothingText {
			continue
		}
		wheres = append(wheres, w)
		texts = append(texts, t)
		args = append(args, a...)
	}
	switch len(texts) {
	case 0:
		return nothing()
	case 1:
		return wheres[0], args, texts[0], nil
	}
	return "(" + strings.Join(wheres, ") "+op+" (") + ")", args, "(" + op + " " + strings.Join(texts, " ") + ")", nil
}

// nothingText marks a clause with no searchable content.
const nothingText = "(NOTHING)"

func nothing() (string, []any, string, error) {
	return "0", nil, nothingText, nil
}

func (c *compiler) resolve(name string) (fields.Descriptor, error) {
	id, err := fields.Resolve(name)
	if err != nil {
		return fields.Descriptor{}, c.errorf("unknown field %q: %w", name, err)
	}
	d, _ := fields.Lookup(id)
	if !d.Searchable() {
		return fields.Descriptor{}, c.errorf("field %q is not searchable", d.Name)
	}
	return d, nil
}

func (c *compiler) term(t *search.Term) (string, []any, string, error) {
	if t.Field == "" {
		return c.fullText(fields.FullTextFields(), t)
	}

	d, err := c.resolve(t.Field)
	if err != nil {
		return "", nil, "", err
	}
	switch {
	case d.FullTextIndexed():
		return c.fullText([]fields.ID{d.ID}, t)
	case d.ContactIndexed():
		return c.contact(d, t)
	case d.ExactTermIndexed():
		term, err := c.exactTerm(d, t)
		if err != nil {
			return "", nil, "", err
		}
		where, args := termsCond(d.ID, term, t.Prefix)
		return where, args, leafText(d, term, t.Prefix), nil
	case d.Type == fields.TypeUnixTime:
		// A single date covers its whole span: a day, or then..now.
		l, h, err := c.dates.Bounds(t.Value)
		if err != nil {
			return "", nil, "", c.errorf("%s: %w", d.Name, err)
		}
		where, args := valueRangeCond(d.ID, &l, &h)
		return where, args, rangeText(d, &l, &h), nil
	default: // numeric, single value
		lo, hi, err := c.bounds(d, t.Value, t.Value)
		if err != nil {
			return "", nil, "", err
		}
		where, args := valueRangeCond(d.ID, lo, hi)
		return where, args, rangeText(d, lo, hi), nil
	}
}

// exactTerm normalizes the value of an exact-term clause. A prefix on flag
// or prio matches the stored canonical names ("se*" finds seen), so it is
// not required to name a flag or priority itself.
func (c *compiler) exactTerm(d fields.Descriptor, t *search.Term) (string, error) {
	if t.Prefix && (d.ID == fields.Flags || d.ID == fields.Prio) {
		return strings.ToLower(strings.TrimSpace(t.Value)), nil
	}
	term, err := fields.ExactTerm(d.ID, t.Value)
	if err != nil && !(t.Prefix && t.Value == "") {
		return "", c.errorf("%s: %w", d.Name, err)
	}
	return term, nil
}

func (c *compiler) fullText(ids []fields.ID, t *search.Term) (string, []any, string, error) {
	tokens := textutil.Tokenize(t.Value)
	if len(tokens) == 0 && !t.Prefix {
		// Nothing searchable in the value, e.g. punctuation only.
		return nothing()
	}
	if c.negated == 0 {
		for _, tok := range tokens {
			c.scores = append(c.scores, postingMatch{fields: ids, term: tok})
		}
		if t.Prefix && len(tokens) > 0 {
			c.scores[len(c.scores)-1].prefix = true
		}
	}

	where, args := postingsCond(ids, tokens, t.Prefix)
	phrase := strings.Join(tokens, " ")
	if len(ids) == 1 {
		d, _ := fields.Lookup(ids[0])
		return where, args, leafText(d, phrase, t.Prefix), nil
	}
	texts := make([]string, len(ids))
	for i, id := range ids {
		d, _ := fields.Lookup(id)
		texts[i] = leafText(d, phrase, t.Prefix)
	}
	return where, args, "(OR " + strings.Join(texts, " ") + ")", nil
}

// contact matches the whole address as an exact term, or the words of the
// display name and address.
func (c *compiler) contact(d fields.Descriptor, t *search.Term) (string, []any, string, error) {
	exact, err := fields.ExactTerm(d.ID, t.Value)
	if err != nil {
		return "", nil, "", c.errorf("%s: %w", d.Name, err)
	}
	where, args := termsCond(d.ID, exact, t.Prefix)
	if tokens := textutil.Tokenize(t.Value); len(tokens) > 0 {
		pw, pa := postingsCond([]fields.ID{d.ID}, tokens, t.Prefix)
		where = "(" + where + " OR " + pw + ")"
		args = append(args, pa...)
	}
	return where, args, leafText(d, exact, t.Prefix), nil
}

func (c *compiler) rangeClause(r *search.Range) (string, []any, string, error) {
	d, err := c.resolve(r.Field)
	if err != nil {
		return "", nil, "", err
	}
	if !d.IsNumeric() {
		return "", nil, "", c.errorf("range on non-numeric field %q", d.Name)
	}
	lo, hi, err := c.bounds(d, r.Lo, r.Hi)
	if err != nil {
		return "", nil, "", err
	}
	where, args := valueRangeCond(d.ID, lo, hi)
	return where, args, rangeText(d, lo, hi), nil
}

// bounds converts range endpoints to numbers; an empty endpoint is open
// (nil). Reversed endpoints are swapped before conversion.
func (c *compiler) bounds(d fields.Descriptor, loStr, hiStr string) (*int64, *int64, error) {
	parse := func(s string, upper bool) (*int64, error) {
		if s == "" {
			return nil, nil
		}
		var n int64
		var err error
		switch d.Type {
		case fields.TypeUnixTime:
			if upper {
				n, err = c.dates.Upper(s)
			} else {
				n, err = c.dates.Lower(s)
			}
		case fields.TypeByteSize:
			n, err = search.ParseSize(s)
		default:
			n, err = strconv.ParseInt(s, 10, 64)
		}
		if err != nil {
			return nil, c.errorf("%s: %w", d.Name, err)
		}
		return &n, nil
	}

	lo, err := parse(loStr, false)
	if err != nil {
		return nil, nil, err
	}
	hi, err := parse(hiStr, true)
	if err != nil {
		return nil, nil, err
	}
	if lo != nil && hi != nil && *lo > *hi && loStr != hiStr {
		return c.bounds(d, hiStr, loStr)
	}
	return lo, hi, nil
}

func fieldList(ids []fields.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ", ")
}

// prefixEnd is the smallest string greater than every string with the given
// prefix, as far as valid UTF-8 goes.
func prefixEnd(prefix string) string {
	return prefix + string(utf8.MaxRune)
}

func termMatch(col, term string, prefix bool) (string, []any) {
	if prefix {
		return col + " >= ? AND " + col + " < ?", []any{term, prefixEnd(term)}
	}
	return col + " = ?", []any{term}
}

func termsCond(id fields.ID, term string, prefix bool) (string, []any) {
	m, args := termMatch("term", term, prefix)
	return "d.id IN (SELECT docid FROM terms WHERE field = ? AND " + m + ")",
		append([]any{int(id)}, args...)
}

// postingsCond matches the tokens as a phrase: consecutive positions within
// one field. With prefix, the last token matches as a prefix.
func postingsCond(ids []fields.ID, tokens []string, prefix bool) (string, []any) {
	if len(tokens) == 0 {
		// Bare prefix over a whole field, e.g. subject:*
		m, args := termMatch("term", "", true)
		return fmt.Sprintf("d.id IN (SELECT docid FROM postings WHERE field IN (%s) AND %s)", fieldList(ids), m), args
	}

	var sb strings.Builder
	var args []any
	sb.WriteString("d.id IN (SELECT p0.docid FROM postings p0")
	for i := 1; i < len(tokens); i++ {
		m, a := termMatch(fmt.Sprintf("p%d.term", i), tokens[i], prefix && i == len(tokens)-1)
		fmt.Fprintf(&sb, " JOIN postings p%[1]d ON p%[1]d.docid = p0.docid AND p%[1]d.field = p0.field AND p%[1]d.pos = p0.pos + %[1]d AND %[2]s", i, m)
		args = append(args, a...)
	}
	m, a := termMatch("p0.term", tokens[0], prefix && len(tokens) == 1)
	fmt.Fprintf(&sb, " WHERE p0.field IN (%s) AND %s)", fieldList(ids), m)
	return sb.String(), append(args, a...)
}

func valueRangeCond(id fields.ID, lo, hi *int64) (string, []any) {
	where := "d.id IN (SELECT docid FROM doc_values WHERE field = ?"
	args := []any{int(id)}
	if lo != nil {
		where += " AND value >= ?"
		args = append(args, *lo)
	}
	if hi != nil {
		where += " AND value <= ?"
		args = append(args, *hi)
	}
	return where + ")", args
}

// scoreExpr counts the postings of a document that match any positive
// full-text clause.
func scoreExpr(matches []postingMatch) (string, []any) {
	if len(matches) == 0 {
		return "0", nil
	}
	conds := make([]string, len(matches))
	var args []any
	for i, m := range matches {
		tm, a := termMatch("sp.term", m.term, m.prefix)
		conds[i] = fmt.Sprintf("(sp.field IN (%s) AND %s)", fieldList(m.fields), tm)
		args = append(args, a...)
	}
	return "(SELECT COUNT(*) FROM postings sp WHERE sp.docid = d.id AND (" +
		strings.Join(conds, " OR ") + "))", args
}

func leafText(d fields.Descriptor, value string, prefix bool) string {
	s := string(d.TermPrefix()) + ":" + strconv.Quote(value)
	if prefix {
		s += "*"
	}
	return s
}

func rangeText(d fields.Descriptor, lo, hi *int64) string {
	var sb strings.Builder
	sb.WriteByte(d.TermPrefix())
	sb.WriteString(":[")
	if lo != nil {
		sb.WriteString(strconv.FormatInt(*lo, 10))
	}
	sb.WriteString("..")
	if hi != nil {
		sb.WriteString(strconv.FormatInt(*hi, 10))
	}
	sb.WriteByte(']')
	return sb.String()
}

var errNotSortable = errors.New("field has no sort values")
