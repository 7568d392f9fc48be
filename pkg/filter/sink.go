package filter

import "strings"

// Conjunction joins the predicates of a group.
type Conjunction int

const (
	ConjAnd Conjunction = iota
	ConjOr
)

func (c Conjunction) String() string {
	if c == ConjOr {
		return "OR"
	}
	return "AND"
}

// join combines fragments, each wrapped in parentheses.
func (c Conjunction) join(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	wrapped := make([]string, len(parts))
	for i, p := range parts {
		wrapped[i] = "(" + p + ")"
	}
	return strings.Join(wrapped, " "+c.String()+" ")
}

// Predicate is one compiled condition. SQL uses '?' placeholders, one per element of Args.
// Column and Operator are informative; SQL is authoritative.
type Predicate struct {
	Column   string
	Operator string
	SQL      string
	Args     []any
}

// QuerySink receives the builder calls the compilers emit. Calls on the sink given to a
// group callback land in that group; everything else applies to the whole query.
type QuerySink interface {
	// Where adds a predicate to the current scope. Predicates of a scope are joined by its conjunction.
	Where(p Predicate)
	// WhereGroup opens a nested scope joined by conj.
	WhereGroup(conj Conjunction, build func(QuerySink) error) error
	// WhereNot opens a nested conjunctive scope that is negated as a whole.
	WhereNot(build func(QuerySink) error) error
	OrderBy(column string, dir Direction, nulls Nulls)
	// Select adds a projection. Args bind the placeholders of column.
	Select(column string, args ...any)
	// Join attaches table under alias. On is empty for cross joins.
	Join(jt JoinType, table, alias, on string, args ...any)
	GroupBy(columns ...string)
	Limit(n uint64)
	Offset(n uint64)
}
