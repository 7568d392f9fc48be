package filter

import (
	"strings"
)

// SelectNode is an element of a selection list: a *SelectColumn or an *Embed.
type SelectNode interface {
	String() string
	isSelectNode()
}

// SelectColumn projects a column. Star selects every column of its resource.
type SelectColumn struct {
	Path  FieldPath
	Alias string
	Star  bool
}

func (c *SelectColumn) String() string {
	s := c.Path.String()
	if c.Star {
		s = "*"
	}
	if c.Alias != "" {
		return c.Alias + ":" + s
	}
	return s
}

// Embed selects a related resource. Constraint relates it to the enclosing resource and
// is nil when the relationship is left to the schema.
type Embed struct {
	Resource   string
	Alias      string
	Constraint Expression
	Select     []SelectNode
	JoinType   JoinType
	Shape      Shape
	Pos        Position
}

func (e *Embed) String() string {
	var sb strings.Builder
	if e.Alias != "" {
		sb.WriteString(e.Alias + ":")
	}
	sb.WriteString(e.Resource)
	if e.JoinType != "" {
		sb.WriteString("!" + string(e.JoinType))
	}
	if e.Shape != "" {
		sb.WriteString("!" + string(e.Shape))
	}
	if e.Constraint != nil {
		sb.WriteString("{" + e.Constraint.String() + "}")
	}
	items := make([]string, len(e.Select))
	for i, n := range e.Select {
		items[i] = n.String()
	}
	sb.WriteString("(" + strings.Join(items, ",") + ")")
	return sb.String()
}

func (*SelectColumn) isSelectNode() {}
func (*Embed) isSelectNode()        {}

// ParseSelect parses a selection list with the default configuration.
func ParseSelect(input string) ([]SelectNode, error) {
	return defaultParser.ParseSelect(input)
}

// ParseSelect parses a selection list.
//
//	id, name, total::numeric, tag:meta->>tag, author:users!inner{id=author_id}(id, name)
//
// The constraint of an embed only supports a single field=value equality. An unquoted
// value names a column of the enclosing resource, a quoted one is a literal.
func (p *Parser) ParseSelect(input string) (nodes []SelectNode, err error) {
	defer recoverParseError(&err)

	toks, err := p.Tokenize(input)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return nil, nil
	}

	s := p.newState(toks)
	nodes = s.selectList()
	s.expectEnd()
	return nodes, nil
}

// selectList parses a comma separated list of select items.
//
// item ( "," item )*
func (s *state) selectList() []SelectNode {
	var out []SelectNode
	for {
		out = append(out, s.selectItem())
		if !s.at(comma) {
			return out
		}
		s.advance()
	}
}

// selectItem parses a column or an embed.
//
// ( alias ":" )? ( "*" | field ( "::" type )? | embed )
func (s *state) selectItem() SelectNode {
	var alias string
	if s.tok().Kind.isName() && s.peek(1).Kind == colon {
		alias = s.advance().Text
		s.advance()
	}

	t := s.tok()
	if t.Kind == star {
		s.advance()
		return &SelectColumn{Alias: alias, Star: true}
	}
	if !t.Kind.isName() {
		panic(s.unexpected(t, "column or resource name"))
	}

	switch s.peek(1).Kind {
	case lparen, bang, lbrace:
		return s.embed(alias)
	}

	fp := s.fieldPath()
	if s.at(cast) {
		s.advance()
		typ := s.expect(identifier, "type name")
		fp.Cast = strings.ToLower(typ.Text)
		if !castType.MatchString(fp.Cast) {
			panic(semanticError(typ.Pos, "invalid cast type %q", fp.Cast))
		}
	}
	return &SelectColumn{Path: fp, Alias: alias}
}

// embed parses a related resource selection.
//
// resource ( "!" modifier )* ( "{" field "=" value "}" )? "(" items ")"
func (s *state) embed(alias string) SelectNode {
	name := s.advance()
	s.enter(name)

	e := &Embed{Resource: name.Text, Alias: alias, Pos: name.Pos}

	for s.at(bang) {
		s.advance()
		mod := s.expect(identifier, "join type or shape")
		switch m := strings.ToLower(mod.Text); {
		case joinKeywords[JoinType(m)] != "":
			if e.JoinType != "" {
				panic(semanticError(mod.Pos, "join type given more than once for %q", e.Resource))
			}
			e.JoinType = JoinType(m)
		case m == string(ShapeObject) || m == string(ShapeArray):
			if e.Shape != "" {
				panic(semanticError(mod.Pos, "shape given more than once for %q", e.Resource))
			}
			e.Shape = Shape(m)
		default:
			ex := semanticError(mod.Pos, "unknown embed modifier %q", mod.Text)
			ex.Expected = "left, right, inner, full, cross, object or array"
			panic(ex)
		}
	}

	if s.at(lbrace) {
		e.Constraint = s.embedConstraint()
	}

	open := s.expect(lparen, s.p.cfg.describe(lparen))
	if s.at(rparen) {
		panic(syntaxError(open.Pos, "empty selection for %q", e.Resource))
	}
	e.Select = s.selectList()
	s.closing(open, rparen)

	s.leave()
	return e
}

// embedConstraint parses the narrow constraint form.
//
// "{" name "=" ( name | string | number ) "}"
func (s *state) embedConstraint() Expression {
	open := s.advance()

	unsupported := func(t Lexeme) ParseError {
		e := semanticError(t.Pos, "unsupported embed constraint")
		e.Expected = "a single field=value equality"
		e.Received = t.String()
		return e.withHint("write the constraint as {column=parent_column} or {column='literal'}")
	}

	field := s.tok()
	if !field.Kind.isName() {
		panic(unsupported(field))
	}
	s.advance()
	if !s.at(equals) {
		panic(unsupported(s.tok()))
	}
	s.advance()

	var v Value
	switch t := s.tok(); t.Kind {
	case identifier, operator, columnRef:
		v = Column(t.Text)
	case stringLit:
		v = String(t.Text)
	case numberLit:
		v = s.value(t, false)
	default:
		panic(unsupported(t))
	}
	s.advance()

	if !s.at(rbrace) {
		if s.at(eol) {
			s.closing(open, rbrace)
		}
		panic(unsupported(s.tok()))
	}
	s.advance()

	return &Condition{
		Field:     FieldPath{Segments: []Segment{{Name: field.Text, Quoted: field.Kind == columnRef}}},
		Operator:  "eq",
		Arguments: []Value{v},
	}
}
