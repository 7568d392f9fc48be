package filter

import "fmt"

// Compiler translates expressions into calls on a QuerySink. The zero value is ready to use.
type Compiler struct {
	// MaxDepth bounds the logical nesting of compiled expressions. Zero means DefaultMaxDepth.
	MaxDepth int
	// Qualifier prefixes every column, typically the base table or its alias.
	Qualifier string
}

func (c Compiler) maxDepth() int {
	if c.MaxDepth > 0 {
		return c.MaxDepth
	}
	return DefaultMaxDepth
}

// Compile emits expr into sink. A nil expression emits nothing. The depth is checked again
// here since expressions are not necessarily built by the parser.
func (c Compiler) Compile(expr Expression, sink QuerySink) error {
	return c.compile(expr, sink, false, 0)
}

// Apply compiles the expression of res and applies its directives to sink.
func (c Compiler) Apply(res *Result, sink QuerySink) error {
	if res == nil {
		return nil
	}
	if err := c.Compile(res.Expr, sink); err != nil {
		return err
	}

	d := res.Directives
	for _, o := range d.Order {
		col, err := o.Path.SQL(c.Qualifier)
		if err != nil {
			return invalidField(o.Path, err)
		}
		sink.OrderBy(col, o.Direction, o.Nulls)
	}
	if len(d.Group) > 0 {
		cols := make([]string, 0, len(d.Group))
		for _, g := range d.Group {
			col, err := g.SQL(c.Qualifier)
			if err != nil {
				return invalidField(g, err)
			}
			cols = append(cols, col)
		}
		sink.GroupBy(cols...)
	}
	if d.Limit != nil {
		sink.Limit(*d.Limit)
	}
	if d.Offset != nil {
		sink.Offset(*d.Offset)
	}
	return nil
}

// compile emits expr into the current scope. inOr is set when that scope is a disjunction,
// in which case a conjunction needs its own group.
func (c Compiler) compile(expr Expression, sink QuerySink, inOr bool, depth int) error {
	switch e := expr.(type) {
	case nil:
		return nil
	case *Condition:
		return c.condition(e, sink)
	}

	depth++
	if depth > c.maxDepth() {
		return depthError(Position{}, c.maxDepth())
	}

	switch e := expr.(type) {
	case *AndExpr:
		if !inOr {
			for _, op := range e.Operands {
				if err := c.compile(op, sink, false, depth); err != nil {
					return err
				}
			}
			return nil
		}
		return sink.WhereGroup(ConjAnd, func(g QuerySink) error {
			for _, op := range e.Operands {
				if err := c.compile(op, g, false, depth); err != nil {
					return err
				}
			}
			return nil
		})
	case *OrExpr:
		return sink.WhereGroup(ConjOr, func(g QuerySink) error {
			for _, op := range e.Operands {
				if err := c.compile(op, g, true, depth); err != nil {
					return err
				}
			}
			return nil
		})
	case *NotExpr:
		return sink.WhereNot(func(g QuerySink) error {
			return c.compile(e.Operand, g, false, depth)
		})
	default:
		return fmt.Errorf("unsupported expression %T", expr)
	}
}

func (c Compiler) condition(cond *Condition, sink QuerySink) error {
	op, col, err := prepareCondition(cond, c.Qualifier)
	if err != nil {
		return err
	}

	if q, ok := op.quantifier(cond.Arguments); ok {
		conj := ConjOr
		if q == "all" {
			conj = ConjAnd
		}
		return sink.WhereGroup(conj, func(g QuerySink) error {
			for _, v := range cond.Arguments[1:] {
				sql, args, err := op.render(op, col, []Value{v})
				if err != nil {
					return err
				}
				g.Where(Predicate{Column: col, Operator: cond.Operator, SQL: sql, Args: args})
			}
			return nil
		})
	}

	sql, args, err := op.render(op, col, cond.Arguments)
	if err != nil {
		return err
	}
	sink.Where(Predicate{Column: col, Operator: cond.Operator, SQL: sql, Args: args})
	return nil
}

// prepareCondition looks up the operator, checks the arguments and renders the column.
func prepareCondition(cond *Condition, qualifier string) (opSpec, string, error) {
	op, ok := operators[cond.Operator]
	if !ok {
		return opSpec{}, "", ParseError{Kind: ErrSemantic, Message: fmt.Sprintf("unknown operator %q", cond.Operator)}
	}
	if err := op.checkArity(cond.Operator, cond.Arguments); err != nil {
		return opSpec{}, "", err
	}
	if cond.Field.Cast != "" || cond.Field.HasArrow() {
		for _, v := range cond.Arguments {
			if v.Kind == ValueRaw {
				return opSpec{}, "", ParseError{Kind: ErrSemantic, Message: fmt.Sprintf("raw values are not allowed on %s", cond.Field)}
			}
		}
	}
	col, err := cond.Field.SQL(qualifier)
	if err != nil {
		return opSpec{}, "", invalidField(cond.Field, err)
	}
	return op, col, nil
}

func invalidField(fp FieldPath, err error) ParseError {
	return ParseError{Kind: ErrSemantic, Message: fmt.Sprintf("invalid field %s: %v", fp, err)}
}
