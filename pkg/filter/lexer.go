package filter

import (
	"strings"
)

type lexer struct {
	src  []byte
	ch   byte // current character, 0 at end of input
	off  int  // offset of ch
	line int
	col  int
	base Position

	cfg *Config
	ops map[string]struct{}

	// hist holds the last three emitted lexemes, most recent first.
	hist  [3]Lexeme
	queue []Lexeme

	// argClose is the delimiter closing the current argument list, 0 outside of one.
	argClose byte
	argStart Position
}

func newLexer(src []byte, cfg *Config, ops map[string]struct{}) *lexer {
	return newLexerAt(src, cfg, ops, Position{Line: 1, Column: 1})
}

// newLexerAt creates a lexer whose positions are relative to origin. It is used to
// re-lex spans cut out of a larger input, such as directive bodies.
func newLexerAt(src []byte, cfg *Config, ops map[string]struct{}, origin Position) *lexer {
	l := &lexer{
		src:  src,
		line: origin.Line,
		col:  origin.Column,
		base: origin,
		cfg:  cfg,
		ops:  ops,
	}
	if len(src) > 0 {
		l.ch = src[0]
	}
	return l
}

// Tokenize converts input into lexemes using the default configuration.
// The returned slice always ends with an eol lexeme.
func Tokenize(input string) ([]Lexeme, error) {
	return defaultParser.Tokenize(input)
}

func tokenize(l *lexer) ([]Lexeme, error) {
	var out []Lexeme
	for {
		lx := l.Scan()
		if lx.Kind == illegal {
			e := lexError(lx.Pos, "%s", lx.Text)
			if lx.err != 0 {
				e.Kind = lx.err
			}
			return nil, e
		}
		out = append(out, lx)
		if lx.Kind == eol {
			return out, nil
		}
	}
}

// Scan returns the next lexeme.
func (l *lexer) Scan() Lexeme {
	var lx Lexeme
	if len(l.queue) > 0 {
		lx = l.queue[0]
		l.queue = l.queue[1:]
	} else if l.argClose != 0 {
		lx = l.scanArgument()
	} else {
		lx = l.scanToken()
	}
	l.hist[2], l.hist[1], l.hist[0] = l.hist[1], l.hist[0], lx
	return lx
}

func (l *lexer) scanToken() Lexeme {
	l.skipWhitespace()

	pos := l.pos()
	start := l.off
	if l.ch == 0 && l.off >= len(l.src) {
		return Lexeme{Kind: eol, Pos: pos}
	}

	emit := func(kind Token) Lexeme {
		return Lexeme{Kind: kind, Text: string(l.src[start:l.off]), Pos: pos, Len: l.off - start}
	}

	ch := l.ch

	if isIdentifierStart(ch) {
		for isIdentifierPart(l.ch) {
			l.next()
		}
		lx := emit(identifier)
		if l.hist[0].Kind == dot {
			if _, ok := l.ops[lx.Text]; ok {
				lx.Kind = operator
			}
		}
		return lx
	}

	if isDigit(ch) || (ch == '-' && isDigit(l.peek(1))) {
		n := scanNumber(l.src[l.off:])
		for range n {
			l.next()
		}
		return emit(numberLit)
	}

	switch ch {
	case l.cfg.GroupOpen:
		l.next()
		return l.open(emit(lparen), l.cfg.GroupClose)
	case l.cfg.GroupClose:
		l.next()
		return emit(rparen)
	case l.cfg.Separator:
		l.next()
		return emit(comma)
	case l.cfg.OrSymbol:
		l.next()
		return emit(pipe)
	case l.cfg.NotSymbol:
		l.next()
		return emit(bang)
	}

	switch ch {
	case '.':
		l.next()
		return emit(dot)
	case '[':
		l.next()
		return l.open(emit(lsquare), ']')
	case ']':
		l.next()
		return emit(rsquare)
	case '{':
		l.next()
		return emit(lbrace)
	case '}':
		l.next()
		return emit(rbrace)
	case '$':
		l.next()
		return emit(special)
	case '=':
		l.next()
		return emit(equals)
	case '*':
		l.next()
		return emit(star)
	case ':':
		l.next()
		if l.ch == ':' {
			l.next()
			return emit(cast)
		}
		return emit(colon)
	case '-':
		if l.peek(1) == '>' {
			l.next()
			l.next()
			if l.ch == '>' {
				l.next()
				return emit(arrowText)
			}
			return emit(arrow)
		}
	case '"', '\'', '`':
		text, msg := l.quoted(ch)
		if msg != "" {
			return Lexeme{Kind: illegal, Text: msg, Pos: pos}
		}
		lx := emit(quoteKind(ch))
		lx.Text = text
		return lx
	}

	l.next()
	return Lexeme{Kind: illegal, Text: "unexpected character " + quoteChar(ch), Pos: pos, Len: l.off - start}
}

// open decides what follows an opening delimiter. After an operator-position name the
// lexer switches to argument mode; after "$.order" or "$.group" the content is read as
// one opaque span.
func (l *lexer) open(lx Lexeme, closer byte) Lexeme {
	name := l.hist[0]
	if !(name.Kind == operator || name.Kind == identifier) || l.hist[1].Kind != dot {
		return lx
	}

	if l.hist[2].Kind == special && lx.Kind == lparen && isSpanDirective(name.Text) {
		body, msg := l.span(closer)
		if msg != "" {
			return Lexeme{Kind: illegal, Text: msg, Pos: lx.Pos, err: ErrSyntax}
		}
		closePos := l.pos()
		l.next()
		l.queue = append(l.queue,
			body,
			Lexeme{Kind: rparen, Text: string(closer), Pos: closePos, Len: 1},
		)
		return lx
	}

	l.argClose = closer
	l.argStart = lx.Pos
	return lx
}

func isSpanDirective(name string) bool {
	return name == "order" || name == "group"
}

// span reads a balanced span up to (not including) closer.
func (l *lexer) span(closer byte) (Lexeme, string) {
	pos := l.pos()
	start := l.off
	depth := 0
	var quote byte
	for {
		if l.off >= len(l.src) {
			return Lexeme{}, "unterminated directive, missing " + quoteChar(closer)
		}
		ch := l.ch
		switch {
		case quote != 0:
			if ch == '\\' {
				l.next()
			} else if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case ch == l.cfg.GroupOpen || ch == '[' || ch == '{':
			depth++
		case ch == closer && depth == 0:
			return Lexeme{Kind: directiveBody, Text: string(l.src[start:l.off]), Pos: pos, Len: l.off - start}, ""
		case ch == l.cfg.GroupClose || ch == ']' || ch == '}':
			depth--
		}
		l.next()
	}
}

// scanArgument scans inside an argument list: quoted values, bare words, separators
// and the closing delimiter.
func (l *lexer) scanArgument() Lexeme {
	l.skipWhitespace()

	pos := l.pos()
	start := l.off

	if l.off >= len(l.src) {
		l.argClose = 0
		return Lexeme{Kind: illegal, Text: "unterminated argument list", Pos: l.argStart, err: ErrSyntax}
	}

	switch ch := l.ch; {
	case ch == l.argClose:
		kind := rparen
		if ch == ']' {
			kind = rsquare
		}
		l.argClose = 0
		l.next()
		return Lexeme{Kind: kind, Text: string(ch), Pos: pos, Len: 1}
	case ch == l.cfg.Separator:
		l.next()
		return Lexeme{Kind: comma, Text: string(ch), Pos: pos, Len: 1}
	case ch == '"' || ch == '\'' || ch == '`':
		text, msg := l.quoted(ch)
		if msg != "" {
			return Lexeme{Kind: illegal, Text: msg, Pos: pos}
		}
		lx := Lexeme{Kind: quoteKind(ch), Text: text, Pos: pos, Len: l.off - start}
		l.skipWhitespace()
		if l.off >= len(l.src) {
			l.argClose = 0
			return Lexeme{Kind: illegal, Text: "unterminated argument list", Pos: l.argStart, err: ErrSyntax}
		}
		if l.ch != l.cfg.Separator && l.ch != l.argClose {
			return Lexeme{Kind: illegal, Text: "unexpected character " + quoteChar(l.ch) + " after quoted value", Pos: l.pos()}
		}
		return lx
	}

	depth := 0
	var quote byte
	for {
		if l.off >= len(l.src) {
			l.argClose = 0
			return Lexeme{Kind: illegal, Text: "unterminated argument list", Pos: l.argStart, err: ErrSyntax}
		}
		ch := l.ch
		if quote != 0 {
			if ch == '\\' {
				l.next()
			} else if ch == quote {
				quote = 0
			}
			l.next()
			continue
		}
		if depth == 0 && (ch == l.cfg.Separator || ch == l.argClose) {
			break
		}
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			// a quote inside a word, as in O'Brien, is part of it
			if !isIdentifierPart(l.src[l.off-1]) {
				quote = ch
			}
		case ch == l.cfg.GroupOpen || ch == '[' || ch == '{':
			depth++
		case ch == l.cfg.GroupClose || ch == ']' || ch == '}':
			if depth == 0 {
				return Lexeme{Kind: illegal, Text: "unbalanced " + quoteChar(ch), Pos: l.pos(), err: ErrSyntax}
			}
			depth--
		}
		l.next()
	}

	text := strings.TrimRight(string(l.src[start:l.off]), " \t\r\n")
	return Lexeme{Kind: classifyWord(text), Text: text, Pos: pos, Len: len(text)}
}

func classifyWord(text string) Token {
	if scanNumber([]byte(text)) == len(text) {
		return numberLit
	}
	switch strings.ToLower(text) {
	case "true", "false":
		return booleanLit
	case "null":
		return nullLit
	case "undefined":
		return undefinedLit
	}
	return word
}

// quoted reads a quoted literal starting at the current quote character and returns its
// unescaped content, or an error message.
func (l *lexer) quoted(q byte) (string, string) {
	var sb strings.Builder
	l.next()
	for {
		if l.off >= len(l.src) {
			return "", "unterminated quoted literal"
		}
		ch := l.ch
		if ch == q {
			l.next()
			return sb.String(), ""
		}
		if ch == '\\' {
			l.next()
			if l.off >= len(l.src) {
				return "", "unterminated quoted literal"
			}
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '\'', '"', '`':
				sb.WriteByte(l.ch)
			default:
				// unknown escapes pass through untouched, e.g. regex classes
				sb.WriteByte('\\')
				sb.WriteByte(l.ch)
			}
			l.next()
			continue
		}
		sb.WriteByte(ch)
		l.next()
	}
}

func quoteKind(q byte) Token {
	switch q {
	case '"':
		return columnRef
	case '`':
		return rawValue
	default:
		return stringLit
	}
}

// next advances to the following byte and updates the line position.
func (l *lexer) next() {
	if l.off >= len(l.src) {
		l.ch = 0
		return
	}
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else if l.ch&0xC0 != 0x80 {
		l.col++
	}
	l.off++
	if l.off < len(l.src) {
		l.ch = l.src[l.off]
	} else {
		l.ch = 0
	}
}

func (l *lexer) peek(n int) byte {
	if l.off+n < len(l.src) {
		return l.src[l.off+n]
	}
	return 0
}

func (l *lexer) pos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.base.Offset + l.off}
}

func (l *lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.next()
	}
}

// scanNumber returns the length of the number at the start of b, 0 if there is none.
//
// "-"? digit+ ( "." digit+ )? ( [eE] [+-]? digit+ )?
func scanNumber(b []byte) int {
	i := 0
	if i < len(b) && b[i] == '-' {
		i++
	}
	digits := func() int {
		n := 0
		for i < len(b) && isDigit(b[i]) {
			i++
			n++
		}
		return n
	}
	if digits() == 0 {
		return 0
	}
	if i+1 < len(b) && b[i] == '.' && isDigit(b[i+1]) {
		i++
		digits()
	}
	if i < len(b) && (b[i] == 'e' || b[i] == 'E') {
		mark := i
		i++
		if i < len(b) && (b[i] == '+' || b[i] == '-') {
			i++
		}
		if digits() == 0 {
			i = mark
		}
	}
	return i
}

func isIdentifierStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentifierPart(ch byte) bool {
	return isIdentifierStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func quoteChar(ch byte) string {
	if ch == 0 {
		return "end of input"
	}
	return "'" + string(ch) + "'"
}
