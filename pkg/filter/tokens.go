package filter

import "fmt"

type Token int

const (
	illegal Token = iota
	eol
	stringLit
	numberLit
	booleanLit
	nullLit
	undefinedLit
	word
	identifier
	operator
	dot
	comma
	pipe
	bang
	lparen
	rparen
	lsquare
	rsquare
	lbrace
	rbrace
	arrow
	arrowText
	cast
	colon
	equals
	star
	columnRef
	rawValue
	special
	directiveBody
)

var tokenNames = map[Token]string{
	illegal:       "illegal",
	eol:           "eol",
	stringLit:     "stringLit",
	numberLit:     "numberLit",
	booleanLit:    "booleanLit",
	nullLit:       "nullLit",
	undefinedLit:  "undefinedLit",
	word:          "word",
	identifier:    "identifier",
	operator:      "operator",
	dot:           "dot",
	comma:         "comma",
	pipe:          "pipe",
	bang:          "bang",
	lparen:        "lparen",
	rparen:        "rparen",
	lsquare:       "lsquare",
	rsquare:       "rsquare",
	lbrace:        "lbrace",
	rbrace:        "rbrace",
	arrow:         "arrow",
	arrowText:     "arrowText",
	cast:          "cast",
	colon:         "colon",
	equals:        "equals",
	star:          "star",
	columnRef:     "columnRef",
	rawValue:      "rawValue",
	special:       "special",
	directiveBody: "directiveBody",
}

func (t Token) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// isValue reports whether the token kind can stand as an argument value.
func (t Token) isValue() bool {
	switch t {
	case stringLit, numberLit, booleanLit, nullLit, undefinedLit, word, columnRef, rawValue:
		return true
	default:
		return false
	}
}

// isName reports whether the token kind can be used as a field path segment.
func (t Token) isName() bool {
	return t == identifier || t == operator || t == columnRef
}

// Position locates a lexeme in the source. Line and Column are 1-based,
// Offset is a 0-based byte offset.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Lexeme is a classified, positioned fragment of the input.
type Lexeme struct {
	Kind Token
	Text string
	Pos  Position
	Len  int

	// err overrides the error kind reported for an illegal lexeme.
	err ErrorKind
}

func (l Lexeme) String() string {
	switch l.Kind {
	case eol:
		return "end of input"
	case illegal:
		return fmt.Sprintf("illegal %q", l.Text)
	}
	if l.Text == "" {
		return l.Kind.String()
	}
	return fmt.Sprintf("%s %q", l.Kind, l.Text)
}
