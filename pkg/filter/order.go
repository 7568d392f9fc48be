package filter

import "strings"

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Nulls places null values in an ordering. The zero value leaves it to the database.
type Nulls string

const (
	NullsFirst Nulls = "nullsfirst"
	NullsLast  Nulls = "nullslast"
)

// OrderSpec is one ordering term.
type OrderSpec struct {
	Path      FieldPath `json:"path"`
	Direction Direction `json:"direction"`
	Nulls     Nulls     `json:"nulls,omitempty"`
}

func (o OrderSpec) String() string {
	s := o.Path.String() + "." + string(o.Direction)
	if o.Nulls != "" {
		s += "." + string(o.Nulls)
	}
	return s
}

// SQL renders the ordering term, e.g. "created_at DESC NULLS LAST".
func (o OrderSpec) SQL(qualifier string) (string, error) {
	col, err := o.Path.SQL(qualifier)
	if err != nil {
		return "", err
	}
	return orderSQL(col, o.Direction, o.Nulls), nil
}

func orderSQL(col string, dir Direction, nulls Nulls) string {
	s := col + " ASC"
	if dir == Desc {
		s = col + " DESC"
	}
	switch nulls {
	case NullsFirst:
		s += " NULLS FIRST"
	case NullsLast:
		s += " NULLS LAST"
	}
	return s
}

// ParseOrder parses an ordering list with the default configuration, e.g. the value of a
// sort query parameter.
//
//	created_at.desc.nullslast, name, meta->>rank.asc
func ParseOrder(input string) ([]OrderSpec, error) {
	return defaultParser.ParseOrder(input)
}

// ParseOrder parses an ordering list. Direction defaults to ascending. The keywords asc,
// desc, nullsfirst and nullslast are matched case-insensitively; a column with one of
// those names must be written as a "quoted" reference.
func (p *Parser) ParseOrder(input string) (specs []OrderSpec, err error) {
	defer recoverParseError(&err)

	toks, err := p.Tokenize(input)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return nil, nil
	}
	return p.newState(toks).orderList(), nil
}

// orderList parses a list of ordering terms up to the end of input.
//
// term ( "," term )*
func (s *state) orderList() []OrderSpec {
	var out []OrderSpec
	for {
		out = append(out, s.orderTerm())
		if !s.at(comma) {
			break
		}
		s.advance()
	}
	s.expectEnd()
	return out
}

// orderTerm parses one ordering term.
//
// name ( "." name | ( "->" | "->>" ) key )* ( "." direction )? ( "." nulls )?
func (s *state) orderTerm() OrderSpec {
	first := s.tok()
	if !first.Kind.isName() {
		panic(s.unexpected(first, "field name"))
	}
	s.advance()

	spec := OrderSpec{
		Path:      FieldPath{Segments: []Segment{{Name: first.Text, Quoted: first.Kind == columnRef}}},
		Direction: Asc,
	}
	var dirSeen, arrowSeen bool

	for {
		switch t := s.tok(); t.Kind {
		case dot:
			s.advance()
			name := s.tok()
			if !name.Kind.isName() {
				panic(s.unexpected(name, "field name or ordering keyword"))
			}
			s.advance()

			if name.Kind != columnRef {
				switch kw := strings.ToLower(name.Text); kw {
				case "asc", "desc":
					if dirSeen || spec.Nulls != "" {
						panic(orderKeywordError(name, "direction"))
					}
					spec.Direction = Direction(kw)
					dirSeen = true
					continue
				case "nullsfirst", "nullslast":
					if spec.Nulls != "" {
						panic(orderKeywordError(name, "nulls placement"))
					}
					spec.Nulls = Nulls(kw)
					continue
				}
			}

			if dirSeen || spec.Nulls != "" {
				e := syntaxError(name.Pos, "unexpected %q after ordering keywords", name.Text)
				e.Expected = "asc, desc, nullsfirst or nullslast"
				panic(e)
			}
			if arrowSeen {
				e := syntaxError(t.Pos, "'.' cannot follow a JSON arrow segment")
				panic(e.withHint("use '->' or '->>' to navigate nested JSON keys"))
			}
			spec.Path.Segments = append(spec.Path.Segments, Segment{Name: name.Text, Quoted: name.Kind == columnRef})
		case arrow, arrowText:
			if dirSeen || spec.Nulls != "" {
				panic(s.unexpected(t, "',' or end of input"))
			}
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
			spec.Path.Segments = append(spec.Path.Segments, Segment{Name: key.Text, Arrow: a, Quoted: key.Kind == columnRef})
			arrowSeen = true
		default:
			return spec
		}
	}
}

func orderKeywordError(t Lexeme, what string) ParseError {
	e := syntaxError(t.Pos, "%s given more than once or out of order", what)
	e.Received = t.Text
	e.Detail = "the direction must come before the nulls placement, each at most once"
	return e
}
