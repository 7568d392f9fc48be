package filter

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Lexer", func() {
	kinds := func(input string) string {
		l := newLexer([]byte(input), &defaultParser.cfg, defaultParser.ops)

		tokens := []string{}
		for {
			lx := l.Scan()
			tokens = append(tokens, lx.Kind.String())
			if lx.Kind == eol || lx.Kind == illegal {
				break
			}
		}
		return strings.Join(tokens, " ")
	}

	Context("Scan", func() {
		type testCase struct {
			input  string
			output string
		}

		tests := []testCase{
			// ===== CONDITIONS =====
			{input: "name.eq(John)", output: "identifier dot operator lparen word rparen eol"},
			{input: "age.gt(18)", output: "identifier dot operator lparen numberLit rparen eol"},
			{input: "status.in[a,b,c]", output: "identifier dot operator lsquare word comma word comma word rsquare eol"},
			{input: "a.b.in(1)", output: "identifier dot identifier dot operator lparen numberLit rparen eol"},
			{input: "x.eq()", output: "identifier dot operator lparen rparen eol"},

			// Operator names are only operators after a dot
			{input: "and.eq(1)", output: "identifier dot operator lparen numberLit rparen eol"},
			{input: "a.in.eq(1)", output: "identifier dot operator dot operator lparen numberLit rparen eol"},
			{input: "eq", output: "identifier eol"},
			{input: "a.unknown(1)", output: "identifier dot identifier lparen numberLit rparen eol"},

			// ===== JSON ARROWS AND CASTS =====
			{input: "meta->role", output: "identifier arrow identifier eol"},
			{input: "meta->>role", output: "identifier arrowText identifier eol"},
			{input: "meta->'a b'", output: "identifier arrow stringLit eol"},
			{input: "{price}::numeric.gt(10)", output: "lbrace identifier rbrace cast identifier dot operator lparen numberLit rparen eol"},
			{input: "(price)::numeric", output: "lparen identifier rparen cast identifier eol"},
			{input: "a::b", output: "identifier cast identifier eol"},
			{input: "a:b", output: "identifier colon identifier eol"},

			// ===== LOGICAL =====
			{input: "!active.is(true)", output: "bang identifier dot operator lparen booleanLit rparen eol"},
			{input: "a | b", output: "identifier pipe identifier eol"},
			{input: "or(a.eq(1),b.eq(2))", output: "identifier lparen identifier dot operator lparen numberLit rparen comma identifier dot operator lparen numberLit rparen rparen eol"},

			// ===== ARGUMENT VALUES =====
			{input: "x.eq('O\\'Brien')", output: "identifier dot operator lparen stringLit rparen eol"},
			{input: `x.eq("other")`, output: "identifier dot operator lparen columnRef rparen eol"},
			{input: "x.eq(`now()`)", output: "identifier dot operator lparen rawValue rparen eol"},
			{input: "x.eq(null)", output: "identifier dot operator lparen nullLit rparen eol"},
			{input: "x.eq(NULL)", output: "identifier dot operator lparen nullLit rparen eol"},
			{input: "x.eq(undefined)", output: "identifier dot operator lparen undefinedLit rparen eol"},
			{input: "x.eq(TRUE)", output: "identifier dot operator lparen booleanLit rparen eol"},
			{input: "x.eq(-1.5e3)", output: "identifier dot operator lparen numberLit rparen eol"},
			{input: "x.eq(John Smith)", output: "identifier dot operator lparen word rparen eol"},
			{input: "x.eq(2024-01-02T10:00:00Z)", output: "identifier dot operator lparen word rparen eol"},
			{input: "x.in(f(1),2)", output: "identifier dot operator lparen word comma numberLit rparen eol"},
			{input: "x.eq( 1 )", output: "identifier dot operator lparen numberLit rparen eol"},
			{input: "x.eq(O'Brien)", output: "identifier dot operator lparen word rparen eol"},
			{input: "x.cs({'a,b'})", output: "identifier dot operator lparen word rparen eol"},

			// ===== DIRECTIVES =====
			{input: "$.order(created_at.desc)", output: "special dot identifier lparen directiveBody rparen eol"},
			{input: "$.group(a, (b))", output: "special dot identifier lparen directiveBody rparen eol"},
			{input: "$.limit(10)", output: "special dot identifier lparen numberLit rparen eol"},

			// ===== SELECT PUNCTUATION =====
			{input: "*", output: "star eol"},
			{input: "a=b", output: "identifier equals identifier eol"},
			{input: `"first name"`, output: "columnRef eol"},

			// ===== WHITESPACE =====
			{input: "", output: "eol"},
			{input: "   ", output: "eol"},
			{input: "\tname\n", output: "identifier eol"},

			// ===== ILLEGAL =====
			{input: "@", output: "illegal"},
			{input: "#", output: "illegal"},
			{input: ";", output: "illegal"},
			{input: "'unclosed", output: "illegal"},
			{input: `"unclosed`, output: "illegal"},
			{input: "x.eq(1", output: "identifier dot operator lparen illegal"},
		}

		for _, test := range tests {
			test := test
			It("should tokenize: "+test.input, func() {
				Expect(kinds(test.input)).To(Equal(test.output))
			})
		}
	})

	Context("Lexeme text", func() {
		It("should unescape quoted literals", func() {
			toks, err := Tokenize(`x.eq('a\'b\\c\n')`)
			Expect(err).ToNot(HaveOccurred())
			Expect(toks[4].Kind).To(Equal(stringLit))
			Expect(toks[4].Text).To(Equal("a'b\\c\n"))
		})

		It("should keep unknown escapes", func() {
			toks, err := Tokenize(`x.match('\d+')`)
			Expect(err).ToNot(HaveOccurred())
			Expect(toks[4].Text).To(Equal(`\d+`))
		})

		It("should trim bare words", func() {
			toks, err := Tokenize("x.eq(  John Smith  )")
			Expect(err).ToNot(HaveOccurred())
			Expect(toks[4].Text).To(Equal("John Smith"))
		})

		It("should read directive bodies verbatim", func() {
			toks, err := Tokenize("$.order(a.desc, b->>'c,d')")
			Expect(err).ToNot(HaveOccurred())
			Expect(toks[4].Kind).To(Equal(directiveBody))
			Expect(toks[4].Text).To(Equal("a.desc, b->>'c,d'"))
			Expect(toks[4].Pos.Offset).To(Equal(8))
		})

		It("should end with eol", func() {
			toks, err := Tokenize("a.eq(1)")
			Expect(err).ToNot(HaveOccurred())
			Expect(toks[len(toks)-1].Kind).To(Equal(eol))
			Expect(toks[len(toks)-1].Pos.Offset).To(Equal(7))
		})
	})

	Context("Positions", func() {
		It("should track lines and columns", func() {
			toks, err := Tokenize("a.eq(1),\n  b.eq(2)")
			Expect(err).ToNot(HaveOccurred())
			b := toks[7]
			Expect(b.Text).To(Equal("b"))
			Expect(b.Pos).To(Equal(Position{Line: 2, Column: 3, Offset: 11}))
		})

		It("should count columns in runes", func() {
			toks, err := Tokenize("é.eq(1)")
			Expect(err).To(HaveOccurred())
			Expect(toks).To(BeNil())

			toks, err = Tokenize("x.eq(é),y.eq(1)")
			Expect(err).ToNot(HaveOccurred())
			Expect(toks[7].Text).To(Equal("y"))
			Expect(toks[7].Pos.Column).To(Equal(9))
			Expect(toks[7].Pos.Offset).To(Equal(9))
		})
	})

	Context("Errors", func() {
		type testCase struct {
			input  string
			kind   ErrorKind
			offset int
		}

		tests := []testCase{
			{input: "name@", kind: ErrLex, offset: 4},
			{input: "x.eq('abc", kind: ErrLex, offset: 5},
			{input: "name.eq(John", kind: ErrSyntax, offset: 7},
			{input: "x.in[1,2)", kind: ErrSyntax, offset: 8},
			{input: "x.in(a]", kind: ErrSyntax, offset: 6},
			{input: "$.order(a.desc", kind: ErrSyntax, offset: 7},
			{input: "x.eq('a' b)", kind: ErrLex, offset: 9},
		}

		for _, test := range tests {
			test := test
			It("should fail on: "+test.input, func() {
				_, err := Tokenize(test.input)
				Expect(err).To(HaveOccurred())

				var pe ParseError
				Expect(err).To(BeAssignableToTypeOf(pe))
				pe = err.(ParseError)
				Expect(pe.Kind).To(Equal(test.kind))
				Expect(pe.Position.Offset).To(Equal(test.offset))
			})
		}
	})
})
