package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape selects how an embedded resource is returned.
type Shape string

const (
	ShapeObject Shape = "object"
	ShapeArray  Shape = "array"
)

// JoinType is the join used to attach an embedded resource.
type JoinType string

const (
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinInner JoinType = "inner"
	JoinFull  JoinType = "full"
	JoinCross JoinType = "cross"
)

var joinKeywords = map[JoinType]string{
	JoinLeft:  "LEFT JOIN",
	JoinRight: "RIGHT JOIN",
	JoinInner: "INNER JOIN",
	JoinFull:  "FULL JOIN",
	JoinCross: "CROSS JOIN",
}

// SQL returns the join keyword. The zero value is a left join.
func (j JoinType) SQL() string {
	if kw, ok := joinKeywords[j]; ok {
		return kw
	}
	return joinKeywords[JoinLeft]
}

// Directives are the query controls given next to the predicate with the "$." prefix.
// They never appear in the expression tree.
type Directives struct {
	Limit    *uint64     `json:"limit,omitempty"`
	Offset   *uint64     `json:"offset,omitempty"`
	Order    []OrderSpec `json:"order,omitempty"`
	Group    []FieldPath `json:"group,omitempty"`
	Shape    Shape       `json:"shape,omitempty"`
	JoinType JoinType    `json:"join,omitempty"`
}

// IsZero reports whether no directive was given.
func (d Directives) IsZero() bool {
	return d.Limit == nil && d.Offset == nil && len(d.Order) == 0 && len(d.Group) == 0 &&
		d.Shape == "" && d.JoinType == ""
}

var directiveNames = []string{"limit", "offset", "order", "group", "shape", "join"}

// directive parses a query control and records it.
//
// "$" "." name "(" body ")"
func (s *state) directive() {
	s.advance()
	s.expect(dot, "'.' after '$'")

	nameTok := s.tok()
	if !nameTok.Kind.isName() {
		panic(s.unexpected(nameTok, "directive name"))
	}
	s.advance()

	name := nameTok.Text
	if !isDirective(name) {
		e := semanticError(nameTok.Pos, "unknown directive %q", name)
		e.Expected = strings.Join(directiveNames, ", ")
		e.Received = name
		panic(e)
	}
	if first, dup := s.seen[name]; dup {
		e := semanticError(nameTok.Pos, "duplicate directive %q", name)
		e.Detail = fmt.Sprintf("first given at line %d, column %d", first.Line, first.Column)
		panic(e)
	}
	s.seen[name] = nameTok.Pos
	s.dirsCount++

	open := s.expect(lparen, s.p.cfg.describe(lparen))

	switch name {
	case "order", "group":
		body := s.tok()
		if body.Kind != directiveBody {
			panic(s.unexpected(body, "directive body"))
		}
		s.advance()
		s.expect(rparen, s.p.cfg.describe(rparen))
		if strings.TrimSpace(body.Text) == "" {
			panic(semanticError(open.Pos, "empty %s directive", name))
		}
		sub := s.p.newState(s.p.subTokens(body))
		sub.depth = s.depth
		if name == "order" {
			s.dirs.Order = sub.orderList()
		} else {
			s.dirs.Group = sub.groupList()
		}
	case "limit", "offset":
		n := s.unsigned(name, s.single(name, open))
		if name == "limit" {
			s.dirs.Limit = &n
		} else {
			s.dirs.Offset = &n
		}
	case "shape":
		t := s.single(name, open)
		switch Shape(strings.ToLower(t.Text)) {
		case ShapeObject:
			s.dirs.Shape = ShapeObject
		case ShapeArray:
			s.dirs.Shape = ShapeArray
		default:
			panic(invalidDirective(t, name, "object or array"))
		}
	case "join":
		t := s.single(name, open)
		jt := JoinType(strings.ToLower(t.Text))
		if _, ok := joinKeywords[jt]; !ok {
			panic(invalidDirective(t, name, "left, right, inner, full or cross"))
		}
		s.dirs.JoinType = jt
	}
}

func isDirective(name string) bool {
	for _, n := range directiveNames {
		if n == name {
			return true
		}
	}
	return false
}

// single reads the one argument of a directive.
func (s *state) single(name string, open Lexeme) Lexeme {
	args := s.arguments(rparen)
	if len(args) != 1 {
		e := semanticError(open.Pos, "directive %q takes exactly one argument", name)
		e.Received = strconv.Itoa(len(args))
		panic(e)
	}
	return args[0]
}

func (s *state) unsigned(name string, t Lexeme) uint64 {
	if t.Kind != numberLit {
		panic(invalidDirective(t, name, "a non-negative integer"))
	}
	n, err := strconv.ParseUint(t.Text, 10, 64)
	if err != nil {
		panic(invalidDirective(t, name, "a non-negative integer"))
	}
	return n
}

func invalidDirective(t Lexeme, name, expected string) ParseError {
	e := semanticError(t.Pos, "invalid value for directive %q", name)
	e.Expected = expected
	e.Received = t.Text
	return e
}

// subTokens lexes a directive body in place, keeping positions relative to the whole input.
func (p *Parser) subTokens(body Lexeme) []Lexeme {
	toks, err := tokenize(newLexerAt([]byte(body.Text), &p.cfg, nil, body.Pos))
	if err != nil {
		panic(err)
	}
	return toks
}

// groupList parses the body of a group directive.
//
// field ( "," field )*
func (s *state) groupList() []FieldPath {
	var out []FieldPath
	for {
		out = append(out, s.fieldPath())
		if !s.at(comma) {
			break
		}
		s.advance()
	}
	s.expectEnd()
	return out
}
