package filter

import "fmt"

// JoinCompiler renders expressions as a boolean SQL fragment with separate bindings, for
// places the sink does not reach such as the ON clause of a join. Column reference values
// render as identifiers, which is how a condition refers to the other side of the join.
type JoinCompiler struct {
	MaxDepth  int
	Qualifier string
}

// Compile returns the fragment and its bindings. The fragment uses '?' placeholders.
// A nil expression yields an empty fragment.
func (c JoinCompiler) Compile(expr Expression) (string, []any, error) {
	return c.compile(expr, 0)
}

func (c JoinCompiler) maxDepth() int {
	if c.MaxDepth > 0 {
		return c.MaxDepth
	}
	return DefaultMaxDepth
}

func (c JoinCompiler) compile(expr Expression, depth int) (string, []any, error) {
	switch e := expr.(type) {
	case nil:
		return "", nil, nil
	case *Condition:
		return c.condition(e)
	}

	depth++
	if depth > c.maxDepth() {
		return "", nil, depthError(Position{}, c.maxDepth())
	}

	switch e := expr.(type) {
	case *AndExpr:
		return c.group(ConjAnd, e.Operands, depth)
	case *OrExpr:
		return c.group(ConjOr, e.Operands, depth)
	case *NotExpr:
		sql, args, err := c.compile(e.Operand, depth)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", args, nil
	default:
		return "", nil, fmt.Errorf("unsupported expression %T", expr)
	}
}

func (c JoinCompiler) group(conj Conjunction, operands []Expression, depth int) (string, []any, error) {
	parts := make([]string, 0, len(operands))
	var args []any
	for _, op := range operands {
		sql, a, err := c.compile(op, depth)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, a...)
	}
	return conj.join(parts), args, nil
}

func (c JoinCompiler) condition(cond *Condition) (string, []any, error) {
	op, col, err := prepareCondition(cond, c.Qualifier)
	if err != nil {
		return "", nil, err
	}

	if q, ok := op.quantifier(cond.Arguments); ok {
		conj := ConjOr
		if q == "all" {
			conj = ConjAnd
		}
		parts := make([]string, 0, 2)
		var args []any
		for _, v := range cond.Arguments[1:] {
			sql, a, err := op.render(op, col, []Value{v})
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			args = append(args, a...)
		}
		return conj.join(parts), args, nil
	}

	return op.render(op, col, cond.Arguments)
}
