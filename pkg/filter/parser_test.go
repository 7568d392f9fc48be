package filter

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Parser", func() {
	Context("Valid expressions", func() {
		type testCase struct {
			input  string
			output string
		}

		tests := []testCase{
			// ===== CONDITIONS =====
			{input: "name.eq(John)", output: "name.eq('John')"},
			{input: "age.gt(18)", output: "age.gt(18)"},
			{input: "status.in[a,b,c]", output: "status.in('a','b','c')"},
			{input: "status.in(a,b,c)", output: "status.in('a','b','c')"},
			{input: "a.b.c.eq(x)", output: "a.b.c.eq('x')"},
			{input: "a.in.eq(1)", output: "a.in.eq(1)"},
			{input: `"first name".eq(Ada)`, output: `"first name".eq('Ada')`},
			{input: `a.eq("other")`, output: `a.eq("other")`},
			{input: "name.eq(John Smith)", output: "name.eq('John Smith')"},
			{input: "score.eq(-1.5e3)", output: "score.eq(-1500)"},
			{input: "x.eq(TRUE)", output: "x.eq(true)"},
			{input: "price.between(1,10)", output: "price.between(1,10)"},
			{input: "tags.cs[a,b]", output: "tags.cs('a','b')"},
			{input: "name.eq(any,a,b)", output: "name.eq('any','a','b')"},
			{input: "body.fts(english,cats)", output: "body.fts('english','cats')"},

			// Zero arguments mean null
			{input: "deleted_at.is()", output: "deleted_at.is(null)"},
			{input: "deleted_at.is(null)", output: "deleted_at.is(null)"},
			{input: "deleted_at.is(not_null)", output: "deleted_at.is('not_null')"},

			// ===== JSON PATHS =====
			{input: "meta->role.eq(admin)", output: "meta->role.eq('admin')"},
			{input: "meta->>role.eq(admin)", output: "meta->>role.eq('admin')"},
			{input: "meta->a->>b.eq(1)", output: "meta->a->>b.eq(1)"},
			{input: "meta->0.eq(1)", output: "meta->0.eq(1)"},

			// ===== CASTS =====
			{input: "{price}::numeric.gt(10)", output: "{price}::numeric.gt(10)"},
			{input: "(price)::numeric.gt(10)", output: "{price}::numeric.gt(10)"},
			{input: "{meta->>age}::INT.gte(21)", output: "{meta->>age}::int.gte(21)"},
			{input: "{tags}::text[].cs(a)", output: "{tags}::text[].cs('a')"},

			// ===== AND / OR / NOT =====
			{input: "a.eq(1),b.eq(2)", output: "and(a.eq(1),b.eq(2))"},
			{input: "a.eq(1)|b.eq(2)", output: "or(a.eq(1),b.eq(2))"},
			{input: "a.eq(1)|b.eq(2),c.eq(3)", output: "or(a.eq(1),and(b.eq(2),c.eq(3)))"},
			{input: "(a.eq(1)|b.eq(2)),c.eq(3)", output: "and(or(a.eq(1),b.eq(2)),c.eq(3))"},
			{input: "(a.eq(1))", output: "a.eq(1)"},
			{input: "or(age.gt(18),age.lt(5))", output: "or(age.gt(18),age.lt(5))"},
			{input: "and(a.eq(1),or(b.eq(2),c.eq(3)))", output: "and(a.eq(1),or(b.eq(2),c.eq(3)))"},
			{input: "and(a.eq(1)|b.eq(2),c.eq(3))", output: "and(or(a.eq(1),b.eq(2)),c.eq(3))"},
			{input: "or(a.eq(1))", output: "a.eq(1)"},
			{input: "!status.eq(active)", output: "not(status.eq('active'))"},
			{input: "!!a.eq(1)", output: "not(not(a.eq(1)))"},
			{input: "not(a.eq(1),b.eq(2))", output: "not(and(a.eq(1),b.eq(2)))"},
			{input: "!(a.eq(1)|b.eq(2))", output: "not(or(a.eq(1),b.eq(2)))"},

			// ===== WHITESPACE =====
			{input: " a.eq(1) , b.eq(2) ", output: "and(a.eq(1),b.eq(2))"},
			{input: "a.eq(1)\n|\nb.eq(2)", output: "or(a.eq(1),b.eq(2))"},

			// ===== DIRECTIVES NEXT TO CONDITIONS =====
			{input: "a.eq(1),$.limit(5)", output: "a.eq(1)"},
			{input: "$.limit(5),a.eq(1),b.eq(2)", output: "and(a.eq(1),b.eq(2))"},
		}

		for _, test := range tests {
			test := test
			It("should parse: "+test.input, func() {
				res, err := Parse(test.input)
				Expect(err).ToNot(HaveOccurred())
				Expect(res.Expr).ToNot(BeNil())
				Expect(res.Expr.String()).To(Equal(test.output))
			})
		}
	})

	Context("Literal scenarios", func() {
		It("should parse a simple condition", func() {
			res, err := Parse("name.eq(John)")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Expr).To(Equal(&Condition{
				Field:     Field("name"),
				Operator:  "eq",
				Arguments: []Value{String("John")},
			}))
		})

		It("should parse an or call", func() {
			res, err := Parse("or(age.gt(18),age.lt(5))")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Expr).To(Equal(&OrExpr{Operands: []Expression{
				&Condition{Field: Field("age"), Operator: "gt", Arguments: []Value{Number(18)}},
				&Condition{Field: Field("age"), Operator: "lt", Arguments: []Value{Number(5)}},
			}}))
		})

		It("should parse a negation", func() {
			res, err := Parse("!status.eq(active)")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Expr).To(Equal(&NotExpr{Operand: &Condition{
				Field:     Field("status"),
				Operator:  "eq",
				Arguments: []Value{String("active")},
			}}))
		})

		It("should parse a JSON arrow path", func() {
			res, err := Parse("meta->role.eq(admin)")
			Expect(err).ToNot(HaveOccurred())
			cond := res.Expr.(*Condition)
			Expect(cond.Field.Segments).To(Equal([]Segment{
				{Name: "meta"},
				{Name: "role", Arrow: ArrowJSON},
			}))
		})

		It("should parse directives without a predicate", func() {
			res, err := Parse("$.order(created_at.desc.nullslast),$.limit(10)")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Expr).To(BeNil())
			Expect(res.Directives.Order).To(Equal([]OrderSpec{
				{Path: Field("created_at"), Direction: Desc, Nulls: NullsLast},
			}))
			Expect(res.Directives.Limit).ToNot(BeNil())
			Expect(*res.Directives.Limit).To(Equal(uint64(10)))
			Expect(res.Directives.Offset).To(BeNil())
		})

		It("should parse a bracket list", func() {
			res, err := Parse("status.in[a,b,c]")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Expr).To(Equal(&Condition{
				Field:     Field("status"),
				Operator:  "in",
				Arguments: []Value{String("a"), String("b"), String("c")},
			}))
		})
	})

	Context("Values", func() {
		value := func(input string) Value {
			res, err := Parse(input)
			Expect(err).ToNot(HaveOccurred())
			return res.Expr.(*Condition).Arguments[0]
		}

		It("should classify literals", func() {
			Expect(value("x.eq(1.5)")).To(Equal(Number(1.5)))
			Expect(value("x.eq(false)")).To(Equal(Bool(false)))
			Expect(value("x.eq(null)")).To(Equal(Null()))
			Expect(value("x.eq(undefined)")).To(Equal(Undefined()))
			Expect(value("x.eq('42')")).To(Equal(String("42")))
			Expect(value(`x.eq("y")`)).To(Equal(Column("y")))
		})

		It("should detect ISO-8601 dates", func() {
			Expect(value("created.gt(2024-01-02)").Kind).To(Equal(ValueDate))
			Expect(value("created.gt(2024-01-02T10:00:00Z)").Kind).To(Equal(ValueDate))
			Expect(value("created.gt('2024-01-02 10:00:00')").Kind).To(Equal(ValueDate))
			Expect(value("created.gt(2024-13-45)").Kind).To(Equal(ValueString))
			Expect(value("created.gt(yesterday)").Kind).To(Equal(ValueString))
		})

		It("should bind dates as the text given", func() {
			Expect(value("created.gt(2024-01-02)").Any()).To(Equal("2024-01-02"))
		})

		It("should bind numbers as float64", func() {
			Expect(value("x.eq(18)").Any()).To(Equal(float64(18)))
		})
	})

	Context("Directives", func() {
		It("should parse every directive", func() {
			res, err := Parse("$.limit(10),$.offset(20),$.order(a,b.desc),$.group(a,meta->>b),$.shape(object),$.join(INNER)")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Expr).To(BeNil())

			d := res.Directives
			Expect(*d.Limit).To(Equal(uint64(10)))
			Expect(*d.Offset).To(Equal(uint64(20)))
			Expect(d.Order).To(HaveLen(2))
			Expect(d.Order[1].Direction).To(Equal(Desc))
			Expect(d.Group).To(Equal([]FieldPath{Field("a"), Field("meta").Text("b")}))
			Expect(d.Shape).To(Equal(ShapeObject))
			Expect(d.JoinType).To(Equal(JoinInner))
		})

		It("should report positions inside directive bodies", func() {
			_, err := Parse("a.eq(1),$.order(name.desc.asc)")
			Expect(err).To(HaveOccurred())
			var pe ParseError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.Kind).To(Equal(ErrSyntax))
			Expect(pe.Position.Offset).To(Equal(26))
		})

		It("should treat an empty input as no predicate", func() {
			res, err := Parse("")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Expr).To(BeNil())
			Expect(res.Directives.IsZero()).To(BeTrue())
		})
	})

	Context("Error cases", func() {
		type testCase struct {
			input string
			kind  ErrorKind
		}

		tests := []testCase{
			// Lex
			{input: "a@", kind: ErrLex},
			{input: "a.eq('x", kind: ErrLex},

			// Syntax
			{input: "name", kind: ErrSyntax},
			{input: "name.eq", kind: ErrSyntax},
			{input: "name.eq(John", kind: ErrSyntax},
			{input: "()", kind: ErrSyntax},
			{input: "or()", kind: ErrSyntax},
			{input: "a.eq(1),", kind: ErrSyntax},
			{input: "a.eq(1),,b.eq(2)", kind: ErrSyntax},
			{input: "a.eq(,1)", kind: ErrSyntax},
			{input: "a.eq(1,)", kind: ErrSyntax},
			{input: "a.eq(1)b", kind: ErrSyntax},
			{input: "a.eq(1))", kind: ErrSyntax},
			{input: "(a.eq(1)", kind: ErrSyntax},
			{input: "{a.eq(1)", kind: ErrSyntax},
			{input: "{a}.eq(1)", kind: ErrSyntax},
			{input: "meta->a.b.eq(1)", kind: ErrSyntax},
			{input: "meta->.eq(1)", kind: ErrSyntax},
			{input: "[a.eq(1)", kind: ErrSyntax},

			// Semantic
			{input: "name.foo(1)", kind: ErrSemantic},
			{input: "price.between(1)", kind: ErrSemantic},
			{input: "price.between(1,2,3)", kind: ErrSemantic},
			{input: "a.eq(1,2)", kind: ErrSemantic},
			{input: "a.is(maybe)", kind: ErrSemantic},
			{input: "a.eq(`now()`)", kind: ErrSemantic},
			{input: "{a}::1.eq(1)", kind: ErrSyntax},
			{input: "$.limit(abc)", kind: ErrSemantic},
			{input: "$.limit(-1)", kind: ErrSemantic},
			{input: "$.limit(1.5)", kind: ErrSemantic},
			{input: "$.limit(1,2)", kind: ErrSemantic},
			{input: "$.limit(1),$.limit(2)", kind: ErrSemantic},
			{input: "$.foo(1)", kind: ErrSemantic},
			{input: "$.shape(round)", kind: ErrSemantic},
			{input: "$.join(sideways)", kind: ErrSemantic},
			{input: "$.order()", kind: ErrSemantic},
			{input: "and($.limit(1))", kind: ErrSemantic},
			{input: "!$.limit(1)", kind: ErrSemantic},
			{input: "$.limit(1)|a.eq(1)", kind: ErrSemantic},
			{input: "a.eq(1)|$.limit(1)", kind: ErrSemantic},
		}

		for _, test := range tests {
			test := test
			It("should return ParseError for: "+test.input, func() {
				_, err := Parse(test.input)
				Expect(err).To(HaveOccurred())
				var pe ParseError
				Expect(errors.As(err, &pe)).To(BeTrue())
				Expect(pe.Kind).To(Equal(test.kind), pe.Error())
				Expect(IsParseError(err)).To(BeTrue())
			})
		}

		It("should describe the unknown operator", func() {
			_, err := Parse("name.foo(1)")
			var pe ParseError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.Position).To(Equal(Position{Line: 1, Column: 6, Offset: 5}))
			Expect(pe.Received).To(Equal("foo"))
			Expect(pe.Hint).To(ContainSubstring("eq"))
		})

		It("should describe the unclosed group", func() {
			_, err := Parse("(a.eq(1)|b.eq(2)")
			var pe ParseError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.Kind).To(Equal(ErrSyntax))
			Expect(pe.Position.Offset).To(Equal(0))
			Expect(pe.Expected).To(Equal("')'"))
			Expect(pe.Received).To(Equal("end of input"))
			Expect(pe.Error()).To(Equal(`syntax error at line 1, column 1: unclosed "(" (expected ')', received end of input)`))
		})
	})

	Context("Configuration", func() {
		It("should accept custom delimiters", func() {
			cfg := DefaultConfig()
			cfg.Separator = ';'
			cfg.OrSymbol = '^'
			cfg.NotSymbol = '~'

			p, err := NewParser(cfg)
			Expect(err).ToNot(HaveOccurred())

			res, err := p.Parse("~a.in(1;2)^b.eq(x)")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Expr.String()).To(Equal("or(not(a.in(1,2)),b.eq('x'))"))
		})

		It("should balance arguments on custom group delimiters", func() {
			cfg := DefaultConfig()
			cfg.GroupOpen = '<'
			cfg.GroupClose = '^'

			p, err := NewParser(cfg)
			Expect(err).ToNot(HaveOccurred())

			res, err := p.Parse("a.in<f<1^,x)y^")
			Expect(err).ToNot(HaveOccurred())
			cond := res.Expr.(*Condition)
			Expect(cond.Arguments).To(HaveLen(2))
			Expect(cond.Arguments[0].Text).To(Equal("f<1^"))
			Expect(cond.Arguments[1].Text).To(Equal("x)y"))
		})

		It("should keep apostrophes inside bare words", func() {
			res, err := Parse("name.eq(O'Brien)")
			Expect(err).ToNot(HaveOccurred())
			cond := res.Expr.(*Condition)
			Expect(cond.Arguments[0].Kind).To(Equal(ValueString))
			Expect(cond.Arguments[0].Text).To(Equal("O'Brien"))
		})

		It("should reject invalid delimiters", func() {
			for _, mutate := range []func(*Config){
				func(c *Config) { c.Separator = '|' },
				func(c *Config) { c.GroupOpen = 0 },
				func(c *Config) { c.NotSymbol = '.' },
				func(c *Config) { c.OrSymbol = 'x' },
				func(c *Config) { c.AllowedOperators = nil },
				func(c *Config) { c.AllowedOperators = []string{"eq", "nope"} },
				func(c *Config) { c.MaxDepth = 0 },
			} {
				cfg := DefaultConfig()
				mutate(&cfg)
				_, err := NewParser(cfg)
				Expect(err).To(HaveOccurred())
			}
		})

		It("should restrict operators to the allow-list", func() {
			cfg := DefaultConfig()
			cfg.AllowedOperators = []string{"eq"}
			p, err := NewParser(cfg)
			Expect(err).ToNot(HaveOccurred())

			_, err = p.Parse("a.eq(1)")
			Expect(err).ToNot(HaveOccurred())

			_, err = p.Parse("a.gt(1)")
			Expect(err).To(HaveOccurred())
			Expect(err.(ParseError).Kind).To(Equal(ErrSemantic))
		})

		It("should relax the allow-list with unsafe operators", func() {
			cfg := DefaultConfig()
			cfg.AllowedOperators = []string{"eq"}
			cfg.AllowUnsafeOperators = true
			p, err := NewParser(cfg)
			Expect(err).ToNot(HaveOccurred())

			res, err := p.Parse("a.gt(1)")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Expr.String()).To(Equal("a.gt(1)"))

			_, err = p.Parse("a.nope(1)")
			Expect(err).To(HaveOccurred())
		})

		It("should accept raw values only when allowed", func() {
			cfg := DefaultConfig()
			cfg.AllowRawValues = true
			p, err := NewParser(cfg)
			Expect(err).ToNot(HaveOccurred())

			res, err := p.Parse("created.lt(`now()`)")
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Expr.(*Condition).Arguments[0]).To(Equal(Raw("now()")))

			_, err = p.Parse("meta->>a.eq(`now()`)")
			Expect(err).To(HaveOccurred())
			_, err = p.Parse("{a}::int.eq(`1`)")
			Expect(err).To(HaveOccurred())
		})

		It("should enforce the input length cap", func() {
			cfg := DefaultConfig()
			cfg.MaxInputLength = 16
			p, err := NewParser(cfg)
			Expect(err).ToNot(HaveOccurred())

			_, err = p.Parse("name.eq(a)")
			Expect(err).ToNot(HaveOccurred())

			_, err = p.Parse("name.eq(" + strings.Repeat("a", 16) + ")")
			Expect(IsResourceLimitError(err)).To(BeTrue())
		})
	})

	Context("Depth bound", func() {
		for _, max := range []int{1, 10, 100} {
			max := max

			nested := func(wrapper string, n int) string {
				return strings.Repeat(wrapper+"(", n) + "a.eq(1)" + strings.Repeat(")", n)
			}

			It("should accept nesting up to the limit", func() {
				cfg := DefaultConfig()
				cfg.MaxDepth = max
				p, err := NewParser(cfg)
				Expect(err).ToNot(HaveOccurred())

				_, err = p.Parse(nested("and", max))
				Expect(err).ToNot(HaveOccurred())
			})

			It("should fail past the limit with a resource-limit error", func() {
				cfg := DefaultConfig()
				cfg.MaxDepth = max
				p, err := NewParser(cfg)
				Expect(err).ToNot(HaveOccurred())

				for _, input := range []string{
					nested("and", max+1),
					nested("or", max+1),
					nested("not", max+1),
					nested("", max+1),
					strings.Repeat("!", max+1) + "a.eq(1)",
				} {
					_, err = p.Parse(input)
					Expect(err).To(HaveOccurred(), input)
					Expect(IsResourceLimitError(err)).To(BeTrue(), input)
				}
			})
		}

		It("should not overflow on adversarial nesting", func() {
			cfg := DefaultConfig()
			cfg.MaxInputLength = 1 << 20
			p, err := NewParser(cfg)
			Expect(err).ToNot(HaveOccurred())

			_, err = p.Parse(strings.Repeat("(", 100000) + "a.eq(1)" + strings.Repeat(")", 100000))
			Expect(IsResourceLimitError(err)).To(BeTrue())
		})
	})

	Context("Balanced brackets", func() {
		type testCase struct {
			input  string
			offset int
		}

		tests := []testCase{
			{input: "(a.eq(1)", offset: 0},
			{input: "(a.eq(1)|b.eq(2)", offset: 0},
			{input: "and(a.eq(1)", offset: 3},
			{input: "a.eq(1))", offset: 7},
			{input: "a.eq(1)]", offset: 7},
			{input: "a.eq(1)}", offset: 7},
			{input: "a.eq(1]", offset: 6},
			{input: "a.in[1,2", offset: 4},
			{input: "a.in[1,2)", offset: 8},
			{input: "{a::int.eq(1)", offset: 0},
			{input: "{a}::int.eq(1", offset: 11},
			{input: "a.eq(1),(b.eq(2)", offset: 8},
		}

		for _, test := range tests {
			test := test
			It("should fail with a syntax error for: "+test.input, func() {
				_, err := Parse(test.input)
				Expect(err).To(HaveOccurred())
				var pe ParseError
				Expect(errors.As(err, &pe)).To(BeTrue())
				Expect(pe.Kind).To(Equal(ErrSyntax), pe.Error())
				Expect(pe.Position.Offset).To(Equal(test.offset), pe.Error())
			})
		}
	})

	Context("Determinism", func() {
		It("should produce equal trees for the same input", func() {
			input := "or(a.eq(1),and(b.in[x,y],!c->>d.like(*z*))),{e}::int.between(1,2),$.order(a.desc),$.limit(3)"
			first, err := Parse(input)
			Expect(err).ToNot(HaveOccurred())
			second, err := Parse(input)
			Expect(err).ToNot(HaveOccurred())
			Expect(first).To(Equal(second))
		})
	})
})
