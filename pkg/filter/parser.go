package filter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Parser turns filter strings into expressions. It is immutable once built and safe for
// concurrent use; every call works on its own cursor state.
type Parser struct {
	cfg Config
	ops map[string]struct{}
}

var defaultParser = mustParser(DefaultConfig())

// NewParser validates cfg and returns a parser using it.
func NewParser(cfg Config) (*Parser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter configuration: %w", err)
	}
	cfg.AllowedOperators = slices.Clone(cfg.AllowedOperators)
	return &Parser{cfg: cfg, ops: cfg.allowed()}, nil
}

func mustParser(cfg Config) *Parser {
	p, err := NewParser(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// Config returns a copy of the parser configuration.
func (p *Parser) Config() Config {
	cfg := p.cfg
	cfg.AllowedOperators = slices.Clone(p.cfg.AllowedOperators)
	return cfg
}

// Result is a parsed filter: the predicate and the query controls given alongside it.
type Result struct {
	// Expr is nil when the input holds no condition.
	Expr       Expression
	Directives Directives
}

// Parse parses input with the default configuration.
func Parse(input string) (*Result, error) {
	return defaultParser.Parse(input)
}

// Tokenize converts input into lexemes. The returned slice always ends with an eol lexeme.
func (p *Parser) Tokenize(input string) ([]Lexeme, error) {
	if err := p.checkLength(input); err != nil {
		return nil, err
	}
	return tokenize(newLexer([]byte(input), &p.cfg, p.ops))
}

// Parse uses panic/recover internally so recursive-descent methods can
// signal errors without threading (Expression, error) through every call.
// ParseError panics are caught here and returned as normal errors;
// any other panic (bug) is re-raised.
func (p *Parser) Parse(input string) (result *Result, err error) {
	defer recoverParseError(&err)

	toks, err := p.Tokenize(input)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	s := p.newState(toks)
	s.dirs = &res.Directives

	if !s.at(eol) {
		res.Expr = s.or(true)
	}
	s.expectEnd()

	return res, nil
}

func (p *Parser) checkLength(input string) error {
	if len(input) <= p.cfg.MaxInputLength {
		return nil
	}
	return ParseError{
		Kind:     ErrResourceLimit,
		Message:  fmt.Sprintf("input exceeds the maximum length of %d bytes", p.cfg.MaxInputLength),
		Position: Position{Line: 1, Column: 1},
		Received: fmt.Sprintf("%d bytes", len(input)),
	}
}

func recoverParseError(err *error) {
	if r := recover(); r != nil {
		if pe, ok := r.(ParseError); ok {
			*err = pe
			return
		}
		panic(r)
	}
}

// state is the cursor of a single parse call.
type state struct {
	p     *Parser
	toks  []Lexeme
	pos   int
	depth int

	dirs      *Directives
	seen      map[string]Position
	dirsCount int
}

func (p *Parser) newState(toks []Lexeme) *state {
	return &state{p: p, toks: toks, seen: make(map[string]Position)}
}

// or parses a disjunction. Directives are only accepted when top is set.
//
// and ( "|" and )*
func (s *state) or(top bool) Expression {
	before := s.dirsCount
	branches := []Expression{s.and(top)}

	for s.at(pipe) {
		pipeTok := s.advance()
		if s.dirsCount > before {
			panic(semanticError(pipeTok.Pos, "directives cannot be combined with %q", s.p.cfg.OrSymbol))
		}
		branches = append(branches, s.and(top))
		if s.dirsCount > before {
			panic(semanticError(pipeTok.Pos, "directives cannot be combined with %q", s.p.cfg.OrSymbol))
		}
	}

	return NewOr(branches...)
}

// and parses a conjunction.
//
// not ( "," not )*
func (s *state) and(top bool) Expression {
	operands := []Expression{s.operand(top)}
	for s.at(comma) {
		s.advance()
		operands = append(operands, s.operand(top))
	}
	return NewAnd(operands...)
}

func (s *state) operand(top bool) Expression {
	if s.at(special) {
		if !top {
			panic(semanticError(s.tok().Pos, "directives are only allowed at the top level"))
		}
		s.directive()
		return nil
	}
	return s.not()
}

// not parses a negation.
//
// "!" not | primary
func (s *state) not() Expression {
	if s.at(bang) {
		bangTok := s.advance()
		s.enter(bangTok)
		expr := s.not()
		s.leave()
		return NewNot(expr)
	}
	return s.primary()
}

// primary parses a group, a logical call, a cast condition or a condition.
func (s *state) primary() Expression {
	t := s.tok()
	switch t.Kind {
	case lparen:
		if s.castGroupAhead() {
			return s.castCondition()
		}
		return s.group()
	case lbrace:
		return s.castCondition()
	case identifier:
		if s.peek(1).Kind == lparen {
			switch t.Text {
			case "and", "or", "not":
				return s.logicalCall()
			}
		}
		return s.condition()
	case operator, columnRef:
		return s.condition()
	case special:
		panic(semanticError(t.Pos, "directives are only allowed at the top level"))
	case rparen, rsquare, rbrace:
		panic(s.unexpected(t, "condition").withHint("unbalanced closing delimiter"))
	default:
		panic(s.unexpected(t, "condition"))
	}
}

// group parses a parenthesised expression.
//
// "(" or ")"
func (s *state) group() Expression {
	open := s.advance()
	s.enter(open)
	if s.at(rparen) {
		panic(syntaxError(open.Pos, "empty group"))
	}
	expr := s.or(false)
	s.closing(open, rparen)
	s.leave()
	return expr
}

// logicalCall parses the function forms of the logical operators.
//
// ( "and" | "or" ) "(" chain ( "," chain )* ")" | "not" "(" or ")"
func (s *state) logicalCall() Expression {
	name := s.advance()
	open := s.advance()
	s.enter(name)
	if s.at(rparen) {
		panic(syntaxError(open.Pos, "empty %s()", name.Text))
	}

	var expr Expression
	if name.Text == "not" {
		expr = NewNot(s.or(false))
	} else {
		operands := []Expression{s.chain()}
		for s.at(comma) {
			s.advance()
			operands = append(operands, s.chain())
		}
		if name.Text == "and" {
			expr = NewAnd(operands...)
		} else {
			expr = NewOr(operands...)
		}
	}

	s.closing(open, rparen)
	s.leave()
	return expr
}

// chain parses one operand of a logical call.
//
// not ( "|" not )*
func (s *state) chain() Expression {
	operands := []Expression{s.not()}
	for s.at(pipe) {
		s.advance()
		operands = append(operands, s.not())
	}
	return NewOr(operands...)
}

// condition parses a field comparison.
//
// field "." operator args
func (s *state) condition() Expression {
	fp := s.fieldPath()
	return s.comparison(fp)
}

// castCondition parses a condition over a cast field.
//
// ( "{" field "}" | "(" field ")" ) "::" type "." operator args
func (s *state) castCondition() Expression {
	open := s.advance()
	closer := rbrace
	if open.Kind == lparen {
		closer = rparen
	}

	fp := s.fieldPath()
	if !s.at(closer) {
		e := syntaxError(open.Pos, "unclosed %q", open.Text)
		e.Expected = s.p.cfg.describe(closer)
		e.Received = s.tok().String()
		panic(e)
	}
	s.advance()

	s.expect(cast, "'::' followed by a type")
	typ := s.expect(identifier, "type name")
	fp.Cast = strings.ToLower(typ.Text)
	if s.at(lsquare) && s.peek(1).Kind == rsquare {
		s.advance()
		s.advance()
		fp.Cast += "[]"
	}
	if !castType.MatchString(fp.Cast) {
		panic(semanticError(typ.Pos, "invalid cast type %q", fp.Cast))
	}

	return s.comparison(fp)
}

// comparison parses the operator and arguments following a field.
//
// "." operator ( "(" values ")" | "[" values "]" )
func (s *state) comparison(fp FieldPath) Expression {
	if !s.at(dot) {
		panic(s.unexpected(s.tok(), "'.' followed by an operator"))
	}
	s.advance()

	opTok := s.tok()
	if opTok.Kind != operator && opTok.Kind != identifier {
		panic(s.unexpected(opTok, "operator"))
	}
	s.advance()

	name := opTok.Text
	op, known := operators[name]
	if opTok.Kind == identifier && !(known && s.p.cfg.AllowUnsafeOperators) {
		e := semanticError(opTok.Pos, "unknown operator %q", name)
		e.Received = name
		panic(e.withHint("allowed operators: " + strings.Join(s.p.cfg.AllowedOperators, ", ")))
	}

	var closer Token
	switch s.tok().Kind {
	case lparen:
		closer = rparen
	case lsquare:
		closer = rsquare
	default:
		panic(s.unexpected(s.tok(), "'(' or '['"))
	}
	s.advance()

	trusted := s.p.cfg.AllowRawValues && fp.Cast == "" && !fp.HasArrow()
	args := s.values(s.arguments(closer), trusted)
	if len(args) == 0 {
		args = []Value{Null()}
	}

	if err := op.checkArity(name, args); err != nil {
		pe := err.(ParseError)
		pe.Position = opTok.Pos
		panic(pe)
	}

	return &Condition{Field: fp, Operator: name, Arguments: args}
}

// fieldPath parses a column reference.
//
// name ( "." name | ( "->" | "->>" ) key )*
//
// A dot followed by a name and an opening delimiter ends the path: it belongs to the condition.
func (s *state) fieldPath() FieldPath {
	first := s.tok()
	if !first.Kind.isName() {
		panic(s.unexpected(first, "field name"))
	}
	s.advance()

	fp := FieldPath{Segments: []Segment{{Name: first.Text, Quoted: first.Kind == columnRef}}}
	arrowSeen := false

	for {
		switch t := s.tok(); t.Kind {
		case dot:
			next, after := s.peek(1), s.peek(2)
			if !next.Kind.isName() || after.Kind == lparen || after.Kind == lsquare {
				return fp
			}
			if arrowSeen {
				e := syntaxError(t.Pos, "'.' cannot follow a JSON arrow segment")
				panic(e.withHint("use '->' or '->>' to navigate nested JSON keys"))
			}
			s.advance()
			s.advance()
			fp.Segments = append(fp.Segments, Segment{Name: next.Text, Quoted: next.Kind == columnRef})
		case arrow, arrowText:
			s.advance()
			key := s.tok()
			switch key.Kind {
			case identifier, operator, columnRef, stringLit, numberLit:
			default:
				panic(s.unexpected(key, "JSON key"))
			}
			s.advance()
			a := ArrowJSON
			if t.Kind == arrowText {
				a = ArrowText
			}
			fp.Segments = append(fp.Segments, Segment{Name: key.Text, Arrow: a, Quoted: key.Kind == columnRef})
			arrowSeen = true
		default:
			return fp
		}
	}
}

// arguments reads the lexemes of an argument list up to and including closer.
func (s *state) arguments(closer Token) []Lexeme {
	if s.at(closer) {
		s.advance()
		return nil
	}

	var out []Lexeme
	for {
		t := s.tok()
		if t.Kind == comma || t.Kind == closer {
			panic(syntaxError(t.Pos, "empty argument"))
		}
		if !t.Kind.isValue() {
			panic(s.unexpected(t, "value"))
		}
		out = append(out, t)
		s.advance()

		switch s.tok().Kind {
		case comma:
			s.advance()
		case closer:
			s.advance()
			return out
		default:
			panic(s.unexpected(s.tok(), quoteChar(s.p.cfg.Separator)+" or "+s.p.cfg.describe(closer)))
		}
	}
}

func (s *state) values(toks []Lexeme, allowRaw bool) []Value {
	out := make([]Value, 0, len(toks))
	for _, t := range toks {
		out = append(out, s.value(t, allowRaw))
	}
	return out
}

func (s *state) value(t Lexeme, allowRaw bool) Value {
	switch t.Kind {
	case stringLit, word:
		return stringValue(t.Text)
	case numberLit:
		n, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			panic(semanticError(t.Pos, "invalid number %q", t.Text))
		}
		return Number(n)
	case booleanLit:
		return Bool(strings.EqualFold(t.Text, "true"))
	case nullLit:
		return Null()
	case undefinedLit:
		return Undefined()
	case columnRef:
		return Column(t.Text)
	case rawValue:
		if !allowRaw {
			panic(semanticError(t.Pos, "raw values are not allowed here"))
		}
		return Raw(t.Text)
	}
	panic(s.unexpected(t, "value"))
}

// castGroupAhead reports whether the current "(" opens a "(field)::type" cast condition.
func (s *state) castGroupAhead() bool {
	i := s.pos + 1
	if !s.at(lparen) || !s.kindAt(i).isName() {
		return false
	}
	i++
	for {
		switch s.kindAt(i) {
		case dot:
			if !s.kindAt(i + 1).isName() {
				return false
			}
			i += 2
		case arrow, arrowText:
			i += 2
		case rparen:
			return s.kindAt(i+1) == cast
		default:
			return false
		}
	}
}

// closing consumes the delimiter matching open, or fails pointing at open.
func (s *state) closing(open Lexeme, closer Token) {
	if s.at(closer) {
		s.advance()
		return
	}
	t := s.tok()
	e := syntaxError(open.Pos, "unclosed %q", open.Text)
	e.Expected = s.p.cfg.describe(closer)
	e.Received = t.String()
	e.Detail = fmt.Sprintf("found %s at line %d, column %d", t, t.Pos.Line, t.Pos.Column)
	panic(e)
}

// enter increments the nesting depth, failing once it exceeds the configured maximum.
func (s *state) enter(t Lexeme) {
	s.depth++
	if s.depth > s.p.cfg.MaxDepth {
		panic(depthError(t.Pos, s.p.cfg.MaxDepth))
	}
}

func (s *state) leave() {
	s.depth--
}

func (s *state) expectEnd() {
	t := s.tok()
	if t.Kind == eol {
		return
	}
	switch t.Kind {
	case rparen, rsquare, rbrace:
		panic(syntaxError(t.Pos, "unbalanced %q", t.Text))
	}
	panic(s.unexpected(t, "end of input"))
}

func (s *state) tok() Lexeme {
	return s.toks[s.pos]
}

func (s *state) peek(n int) Lexeme {
	if s.pos+n < len(s.toks) {
		return s.toks[s.pos+n]
	}
	return s.toks[len(s.toks)-1]
}

func (s *state) kindAt(i int) Token {
	if i < len(s.toks) {
		return s.toks[i].Kind
	}
	return eol
}

func (s *state) at(kind Token) bool {
	return s.tok().Kind == kind
}

// advance returns the current lexeme and moves past it. The trailing eol is never passed.
func (s *state) advance() Lexeme {
	t := s.toks[s.pos]
	if s.pos < len(s.toks)-1 {
		s.pos++
	}
	return t
}

func (s *state) expect(kind Token, what string) Lexeme {
	if !s.at(kind) {
		panic(s.unexpected(s.tok(), what))
	}
	return s.advance()
}

func (s *state) unexpected(t Lexeme, expected string) ParseError {
	e := syntaxError(t.Pos, "unexpected %s", t)
	e.Expected = expected
	e.Received = t.String()
	return e
}
