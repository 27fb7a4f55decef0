// Package search parses mu query expressions into a syntax tree.
//
// The grammar is field-agnostic: field names are carried through as written
// and resolved by the query engine.
//
//	expr    = or
//	or      = and { "OR" and }
//	and     = unary { [ "AND" ] unary }
//	unary   = ( "NOT" | "-" ) unary | "+" unary | primary
//	primary = "(" expr ")" | clause
//	clause  = [ field ":" ] ( word | '"' phrase '"' )
//
// A word ending in '*' is a prefix match; a field value of the form lo..hi
// (either side may be empty) is a range. Keywords are upper case only.
package search

import (
	"fmt"
	"strings"
)

// Node is a node of the query tree.
type Node interface {
	node()
}

// And matches documents matching every child.
type And struct{ Children []Node }

// Or matches documents matching any child.
type Or struct{ Children []Node }

// Not matches documents not matching Child.
type Not struct{ Child Node }

// Term is a single search clause.
type Term struct {
	Field  string // as written; "" when unscoped
	Value  string
	Phrase bool // value was quoted
	Prefix bool // value ended in '*'
}

// Range is a field:lo..hi clause. An empty bound is open.
type Range struct {
	Field  string
	Lo, Hi string
}

// MatchAll is the bare "*" query.
type MatchAll struct{}

func (*And) node()      {}
func (*Or) node()       {}
func (*Not) node()      {}
func (*Term) node()     {}
func (*Range) node()    {}
func (*MatchAll) node() {}

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Pos int // byte offset into the expression
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokPlus
	tokClause
)

type token struct {
	kind tokenKind
	pos  int
	term Term // for tokClause
}

// Parse parses expr into a query tree.
func Parse(expr string) (Node, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	if p.peek().kind == tokEOF {
		return nil, &SyntaxError{Pos: 0, Msg: "empty query"}
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		if t.kind == tokRParen {
			return nil, &SyntaxError{Pos: t.pos, Msg: "unbalanced ')'"}
		}
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected token"}
	}
	return n, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// lex splits expr into tokens. Quoted text is kept whole, including a quoted
// value after "field:".
func lex(expr string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case isSpace(c):
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++
		case (c == '-' || c == '+') && i+1 < len(expr) && !isSpace(expr[i+1]) && expr[i+1] != ')':
			kind := tokNot
			if c == '+' {
				kind = tokPlus
			}
			toks = append(toks, token{kind: kind, pos: i})
			i++
		case c == '"':
			end := strings.IndexByte(expr[i+1:], '"')
			if end < 0 {
				return nil, &SyntaxError{Pos: i, Msg: "unterminated quote"}
			}
			toks = append(toks, token{kind: tokClause, pos: i, term: Term{
				Value:  expr[i+1 : i+1+end],
				Phrase: true,
			}})
			i += end + 2
		default:
			tok, next, err := lexWord(expr, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(expr)}), nil
}

func lexWord(expr string, start int) (token, int, error) {
	i := start
	for i < len(expr) && !isSpace(expr[i]) && expr[i] != '(' && expr[i] != ')' {
		if expr[i] == ':' && i+1 < len(expr) && expr[i+1] == '"' && i > start {
			// field:"quoted value"
			end := strings.IndexByte(expr[i+2:], '"')
			if end < 0 {
				return token{}, 0, &SyntaxError{Pos: i + 1, Msg: "unterminated quote"}
			}
			return token{kind: tokClause, pos: start, term: Term{
				Field:  expr[start:i],
				Value:  expr[i+2 : i+2+end],
				Phrase: true,
			}}, i + 3 + end, nil
		}
		i++
	}
	word := expr[start:i]

	switch word {
	case "AND":
		return token{kind: tokAnd, pos: start}, i, nil
	case "OR":
		return token{kind: tokOr, pos: start}, i, nil
	case "NOT":
		return token{kind: tokNot, pos: start}, i, nil
	}

	t := Term{Value: word}
	if idx := strings.IndexByte(word, ':'); idx > 0 {
		t.Field, t.Value = word[:idx], word[idx+1:]
		if t.Value == "" {
			return token{}, 0, &SyntaxError{Pos: i, Msg: fmt.Sprintf("missing value for %q", t.Field)}
		}
	}
	if strings.HasSuffix(t.Value, "*") {
		t.Value = strings.TrimSuffix(t.Value, "*")
		t.Prefix = true
	}
	return token{kind: tokClause, pos: start, term: t}, i, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for p.peek().kind == tokOr {
		p.next()
		n, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &Or{Children: children}, nil
}

func (p *parser) parseAnd() (Node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for {
		switch p.peek().kind {
		case tokAnd:
			p.next()
		case tokClause, tokLParen, tokNot, tokPlus:
			// juxtaposition
		default:
			if len(children) == 1 {
				return first, nil
			}
			return &And{Children: children}, nil
		}
		n, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
}

func (p *parser) parseUnary() (Node, error) {
	switch t := p.peek(); t.kind {
	case tokNot:
		p.next()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil
	case tokPlus:
		p.next()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokLParen:
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &SyntaxError{Pos: t.pos, Msg: "unbalanced '('"}
		}
		return n, nil
	case tokClause:
		return clauseNode(t)
	case tokEOF:
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected end of query"}
	case tokRParen:
		return nil, &SyntaxError{Pos: t.pos, Msg: "unbalanced ')'"}
	default:
		return nil, &SyntaxError{Pos: t.pos, Msg: "operator without operand"}
	}
}

func clauseNode(t token) (Node, error) {
	term := t.term
	if term.Field == "" && !term.Phrase && term.Prefix && term.Value == "" {
		return &MatchAll{}, nil
	}
	if term.Field != "" && !term.Phrase {
		if lo, hi, ok := strings.Cut(term.Value, ".."); ok {
			if term.Prefix {
				hi += "*"
			}
			if lo == "" && hi == "" {
				return nil, &SyntaxError{Pos: t.pos, Msg: "range without bounds"}
			}
			return &Range{Field: term.Field, Lo: lo, Hi: hi}, nil
		}
	}
	if term.Value == "" && !term.Prefix {
		return nil, &SyntaxError{Pos: t.pos, Msg: "empty term"}
	}
	return &term, nil
}
