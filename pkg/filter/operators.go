package filter

import (
	"fmt"
	"slices"
	"strings"
)

const unbounded = -1

// opSpec describes how a condition operator compiles. The table below is the only place
// that maps operator names to SQL.
type opSpec struct {
	// sql is the comparison keyword placed between the column and the bound value.
	sql     string
	minArgs int
	maxArgs int
	// quantifiable operators accept the op(any|all,a,b) form.
	quantifiable bool
	// accepts restricts the values of the operator, nil accepts any.
	accepts func(v Value) error
	render  func(op opSpec, column string, args []Value) (string, []any, error)
}

var operators = map[string]opSpec{
	"eq":  {sql: "=", minArgs: 1, maxArgs: 1, quantifiable: true, render: renderBinary},
	"neq": {sql: "<>", minArgs: 1, maxArgs: 1, render: renderBinary},
	"gt":  {sql: ">", minArgs: 1, maxArgs: 1, quantifiable: true, render: renderBinary},
	"gte": {sql: ">=", minArgs: 1, maxArgs: 1, quantifiable: true, render: renderBinary},
	"lt":  {sql: "<", minArgs: 1, maxArgs: 1, quantifiable: true, render: renderBinary},
	"lte": {sql: "<=", minArgs: 1, maxArgs: 1, quantifiable: true, render: renderBinary},

	"like":   {sql: "LIKE", minArgs: 1, maxArgs: 1, quantifiable: true, render: renderPattern},
	"ilike":  {sql: "ILIKE", minArgs: 1, maxArgs: 1, quantifiable: true, render: renderPattern},
	"match":  {sql: "~", minArgs: 1, maxArgs: 1, quantifiable: true, render: renderBinary},
	"imatch": {sql: "~*", minArgs: 1, maxArgs: 1, quantifiable: true, render: renderBinary},

	"in":         {sql: "IN", minArgs: 1, maxArgs: unbounded, render: renderList},
	"is":         {sql: "IS", minArgs: 1, maxArgs: 1, accepts: checkIsValue, render: renderIs},
	"isdistinct": {sql: "IS DISTINCT FROM", minArgs: 1, maxArgs: 1, render: renderBinary},

	"fts":   {sql: "to_tsquery", minArgs: 1, maxArgs: 2, render: renderTextSearch},
	"plfts": {sql: "plainto_tsquery", minArgs: 1, maxArgs: 2, render: renderTextSearch},
	"phfts": {sql: "phraseto_tsquery", minArgs: 1, maxArgs: 2, render: renderTextSearch},
	"wfts":  {sql: "websearch_to_tsquery", minArgs: 1, maxArgs: 2, render: renderTextSearch},

	"cs": {sql: "@>", minArgs: 1, maxArgs: unbounded, render: renderContainment},
	"cd": {sql: "<@", minArgs: 1, maxArgs: unbounded, render: renderContainment},
	"ov": {sql: "&&", minArgs: 1, maxArgs: unbounded, render: renderContainment},

	"sl":  {sql: "<<", minArgs: 1, maxArgs: 1, render: renderBinary},
	"sr":  {sql: ">>", minArgs: 1, maxArgs: 1, render: renderBinary},
	"nxr": {sql: "&<", minArgs: 1, maxArgs: 1, render: renderBinary},
	"nxl": {sql: "&>", minArgs: 1, maxArgs: 1, render: renderBinary},
	"adj": {sql: "-|-", minArgs: 1, maxArgs: 1, render: renderBinary},

	"between": {sql: "BETWEEN", minArgs: 2, maxArgs: 2, render: renderBetween},

	"any": {sql: "ANY", minArgs: 1, maxArgs: unbounded, render: renderQuantified},
	"all": {sql: "ALL", minArgs: 1, maxArgs: unbounded, render: renderQuantified},
}

// OperatorNames returns every operator name known to the compiler, sorted.
func OperatorNames() []string {
	names := make([]string, 0, len(operators))
	for name := range operators {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// quantifier returns "any" or "all" when args is the op(any|all,a,b) form of a quantifiable operator.
func (op opSpec) quantifier(args []Value) (string, bool) {
	if !op.quantifiable || len(args) != 3 {
		return "", false
	}
	if args[0].Kind != ValueString {
		return "", false
	}
	q := strings.ToLower(args[0].Text)
	return q, q == "any" || q == "all"
}

// checkArity validates the argument count, then the values. The quantified form is
// accepted as is.
func (op opSpec) checkArity(name string, args []Value) error {
	if _, ok := op.quantifier(args); ok {
		return nil
	}
	if err := op.checkCount(name, args); err != nil {
		return err
	}
	if op.accepts != nil {
		for _, v := range args {
			if err := op.accepts(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (op opSpec) checkCount(name string, args []Value) error {
	n := len(args)
	if n >= op.minArgs && (op.maxArgs == unbounded || n <= op.maxArgs) {
		return nil
	}
	var want string
	switch {
	case op.minArgs == op.maxArgs:
		want = fmt.Sprintf("exactly %d", op.minArgs)
	case op.maxArgs == unbounded:
		want = fmt.Sprintf("at least %d", op.minArgs)
	default:
		want = fmt.Sprintf("%d to %d", op.minArgs, op.maxArgs)
	}
	return ParseError{
		Kind:     ErrSemantic,
		Message:  fmt.Sprintf("operator %q takes %s argument(s)", name, want),
		Expected: want,
		Received: fmt.Sprintf("%d", n),
	}
}

// placeholder returns the SQL standing for v and the argument it binds, if any.
// Column references are rendered as identifiers and raw values verbatim.
func placeholder(v Value) (string, []any, error) {
	switch v.Kind {
	case ValueColumn:
		col, err := columnValue(v.Text)
		return col, nil, err
	case ValueRaw:
		return v.Text, nil, nil
	default:
		return "?", []any{v.Any()}, nil
	}
}

func columnValue(ref string) (string, error) {
	return Field(strings.Split(ref, ".")...).SQL("")
}

func placeholders(vals []Value) (string, []any, error) {
	parts := make([]string, 0, len(vals))
	var args []any
	for _, v := range vals {
		s, a, err := placeholder(v)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, s)
		args = append(args, a...)
	}
	return strings.Join(parts, ","), args, nil
}

func renderBinary(op opSpec, column string, args []Value) (string, []any, error) {
	ph, bound, err := placeholder(args[0])
	if err != nil {
		return "", nil, err
	}
	return column + " " + op.sql + " " + ph, bound, nil
}

// renderPattern accepts '*' as a wildcard next to the SQL '%'.
func renderPattern(op opSpec, column string, args []Value) (string, []any, error) {
	v := args[0]
	if v.Kind == ValueString {
		v.Text = strings.ReplaceAll(v.Text, "*", "%")
	}
	return renderBinary(op, column, []Value{v})
}

func renderList(op opSpec, column string, args []Value) (string, []any, error) {
	ph, bound, err := placeholders(args)
	if err != nil {
		return "", nil, err
	}
	return column + " " + op.sql + " (" + ph + ")", bound, nil
}

var isKeywords = map[string]string{
	"null":     "NULL",
	"not_null": "NOT NULL",
	"true":     "TRUE",
	"false":    "FALSE",
	"unknown":  "UNKNOWN",
}

func isKeyword(v Value) (string, bool) {
	var key string
	switch v.Kind {
	case ValueNull, ValueUndefined:
		key = "null"
	case ValueBool:
		key = v.Text
	case ValueString:
		key = strings.ToLower(v.Text)
	}
	kw, ok := isKeywords[key]
	return kw, ok
}

func checkIsValue(v Value) error {
	if _, ok := isKeyword(v); ok {
		return nil
	}
	return ParseError{
		Kind:     ErrSemantic,
		Message:  "invalid value for operator \"is\"",
		Expected: "null, not_null, true, false or unknown",
		Received: v.String(),
	}
}

// renderIs only emits fixed keywords, nothing is bound.
func renderIs(op opSpec, column string, args []Value) (string, []any, error) {
	if err := checkIsValue(args[0]); err != nil {
		return "", nil, err
	}
	kw, _ := isKeyword(args[0])
	return column + " " + op.sql + " " + kw, nil, nil
}

// renderTextSearch binds the query, and the text search configuration when given as
// the first of two arguments.
func renderTextSearch(op opSpec, column string, args []Value) (string, []any, error) {
	ph, bound, err := placeholders(args)
	if err != nil {
		return "", nil, err
	}
	if len(args) == 2 {
		lang, lb, err := placeholder(args[0])
		if err != nil {
			return "", nil, err
		}
		query, qb, err := placeholder(args[1])
		if err != nil {
			return "", nil, err
		}
		ph = lang + "::regconfig, " + query
		bound = append(lb, qb...)
	}
	return column + " @@ " + op.sql + "(" + ph + ")", bound, nil
}

func renderContainment(op opSpec, column string, args []Value) (string, []any, error) {
	if len(args) == 1 {
		return renderBinary(op, column, args)
	}
	ph, bound, err := placeholders(args)
	if err != nil {
		return "", nil, err
	}
	return column + " " + op.sql + " ARRAY[" + ph + "]", bound, nil
}

func renderBetween(op opSpec, column string, args []Value) (string, []any, error) {
	lo, lb, err := placeholder(args[0])
	if err != nil {
		return "", nil, err
	}
	hi, hb, err := placeholder(args[1])
	if err != nil {
		return "", nil, err
	}
	return column + " BETWEEN " + lo + " AND " + hi, append(lb, hb...), nil
}

func renderQuantified(op opSpec, column string, args []Value) (string, []any, error) {
	ph, bound, err := placeholders(args)
	if err != nil {
		return "", nil, err
	}
	return column + " = " + op.sql + "(ARRAY[" + ph + "])", bound, nil
}
