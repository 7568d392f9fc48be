package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

// Expression is the abstract syntax tree of a filter. A nil Expression matches every row.
type Expression interface {
	String() string
	isExpression()
}

// Condition is a single predicate: a field, an operator name and its arguments.
type Condition struct {
	Field     FieldPath
	Operator  string
	Arguments []Value
}

func (c *Condition) String() string {
	args := make([]string, len(c.Arguments))
	for i, a := range c.Arguments {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s.%s(%s)", c.Field, c.Operator, strings.Join(args, ","))
}

// AndExpr is a conjunction of at least two operands.
type AndExpr struct {
	Operands []Expression
}

func (e *AndExpr) String() string {
	return "and(" + joinExpressions(e.Operands) + ")"
}

// OrExpr is a disjunction of at least two operands.
type OrExpr struct {
	Operands []Expression
}

func (e *OrExpr) String() string {
	return "or(" + joinExpressions(e.Operands) + ")"
}

// NotExpr negates its operand.
type NotExpr struct {
	Operand Expression
}

func (e *NotExpr) String() string {
	return "not(" + e.Operand.String() + ")"
}

func (*Condition) isExpression() {}
func (*AndExpr) isExpression()   {}
func (*OrExpr) isExpression()    {}
func (*NotExpr) isExpression()   {}

func joinExpressions(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ",")
}

// NewAnd builds a conjunction. Nil operands are dropped and a single remaining
// operand is returned as is.
func NewAnd(operands ...Expression) Expression {
	ops := compact(operands)
	switch len(ops) {
	case 0:
		return nil
	case 1:
		return ops[0]
	}
	return &AndExpr{Operands: ops}
}

// NewOr builds a disjunction with the same collapsing rules as NewAnd.
func NewOr(operands ...Expression) Expression {
	ops := compact(operands)
	switch len(ops) {
	case 0:
		return nil
	case 1:
		return ops[0]
	}
	return &OrExpr{Operands: ops}
}

// NewNot negates operand. Negating nothing is nothing.
func NewNot(operand Expression) Expression {
	if operand == nil {
		return nil
	}
	return &NotExpr{Operand: operand}
}

func compact(exprs []Expression) []Expression {
	out := make([]Expression, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Walk calls fn for every condition in expr, depth first. It stops at the first error.
func Walk(expr Expression, fn func(*Condition) error) error {
	switch e := expr.(type) {
	case nil:
		return nil
	case *Condition:
		return fn(e)
	case *AndExpr:
		for _, op := range e.Operands {
			if err := Walk(op, fn); err != nil {
				return err
			}
		}
	case *OrExpr:
		for _, op := range e.Operands {
			if err := Walk(op, fn); err != nil {
				return err
			}
		}
	case *NotExpr:
		return Walk(e.Operand, fn)
	}
	return nil
}

type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueBool
	ValueNull
	ValueUndefined
	// ValueDate is an ISO-8601 looking string. It is bound as text, the database interprets it.
	ValueDate
	// ValueColumn is bound as a column identifier instead of a literal.
	ValueColumn
	// ValueRaw is emitted verbatim. Only trusted callers may produce it.
	ValueRaw
)

var valueKindNames = map[ValueKind]string{
	ValueString:    "string",
	ValueNumber:    "number",
	ValueBool:      "boolean",
	ValueNull:      "null",
	ValueUndefined: "undefined",
	ValueDate:      "date",
	ValueColumn:    "column",
	ValueRaw:       "raw",
}

func (k ValueKind) String() string {
	return valueKindNames[k]
}

// Value is an argument of a condition.
type Value struct {
	Kind ValueKind
	Text string
	Num  float64
	Bool bool
}

func String(s string) Value { return Value{Kind: ValueString, Text: s} }

func Number(n float64) Value {
	return Value{Kind: ValueNumber, Num: n, Text: strconv.FormatFloat(n, 'g', -1, 64)}
}

func Bool(b bool) Value     { return Value{Kind: ValueBool, Bool: b, Text: strconv.FormatBool(b)} }
func Null() Value           { return Value{Kind: ValueNull, Text: "null"} }
func Undefined() Value      { return Value{Kind: ValueUndefined, Text: "undefined"} }
func Column(n string) Value { return Value{Kind: ValueColumn, Text: n} }
func Date(s string) Value   { return Value{Kind: ValueDate, Text: s} }

// Raw builds a value emitted without binding. Never build one from request input.
func Raw(sql string) Value { return Value{Kind: ValueRaw, Text: sql} }

// Any returns the Go value bound as a query parameter.
func (v Value) Any() any {
	switch v.Kind {
	case ValueNumber:
		return v.Num
	case ValueBool:
		return v.Bool
	case ValueNull, ValueUndefined:
		return nil
	default:
		return v.Text
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueString, ValueDate:
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v.Text) + "'"
	case ValueColumn:
		return `"` + strings.ReplaceAll(v.Text, `"`, `\"`) + `"`
	case ValueRaw:
		return "`" + v.Text + "`"
	default:
		return v.Text
	}
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}(:?\d{2})?)?)?$`)

// stringValue classifies text coming from a string position, promoting ISO-8601 dates.
func stringValue(text string) Value {
	if isoDate.MatchString(text) {
		if _, err := dateparse.ParseStrict(text); err == nil {
			return Date(text)
		}
	}
	return String(text)
}
