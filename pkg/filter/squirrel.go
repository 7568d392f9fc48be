package filter

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// SelectSink implements QuerySink on top of a squirrel SelectBuilder.
type SelectSink struct {
	root    *SelectSink
	builder sq.SelectBuilder
	parts   []fragment
}

type fragment struct {
	sql  string
	args []any
	// compound fragments need parentheses next to other predicates.
	compound bool
}

func NewSelectSink(b sq.SelectBuilder) *SelectSink {
	return &SelectSink{builder: b}
}

func (s *SelectSink) top() *SelectSink {
	if s.root != nil {
		return s.root
	}
	return s
}

func (s *SelectSink) Where(p Predicate) {
	s.parts = append(s.parts, fragment{sql: p.SQL, args: p.Args})
}

func (s *SelectSink) WhereGroup(conj Conjunction, build func(QuerySink) error) error {
	child := &SelectSink{root: s.top()}
	if err := build(child); err != nil {
		return err
	}
	if len(child.parts) == 0 {
		return nil
	}
	sql, args := child.combine(conj)
	s.parts = append(s.parts, fragment{sql: sql, args: args, compound: len(child.parts) > 1})
	return nil
}

func (s *SelectSink) WhereNot(build func(QuerySink) error) error {
	child := &SelectSink{root: s.top()}
	if err := build(child); err != nil {
		return err
	}
	if len(child.parts) == 0 {
		return nil
	}
	sql, args := child.combine(ConjAnd)
	s.parts = append(s.parts, fragment{sql: "NOT (" + sql + ")", args: args})
	return nil
}

func (s *SelectSink) combine(conj Conjunction) (string, []any) {
	if len(s.parts) == 1 {
		return s.parts[0].sql, s.parts[0].args
	}
	sqls := make([]string, len(s.parts))
	var args []any
	for i, p := range s.parts {
		sqls[i] = p.sql
		args = append(args, p.args...)
	}
	return conj.join(sqls), args
}

func (s *SelectSink) OrderBy(column string, dir Direction, nulls Nulls) {
	t := s.top()
	t.builder = t.builder.OrderBy(orderSQL(column, dir, nulls))
}

func (s *SelectSink) Select(column string, args ...any) {
	t := s.top()
	t.builder = t.builder.Column(column, args...)
}

func (s *SelectSink) Join(jt JoinType, table, alias, on string, args ...any) {
	var sb strings.Builder
	sb.WriteString(jt.SQL())
	sb.WriteString(" ")
	sb.WriteString(table)
	if alias != "" && alias != table {
		sb.WriteString(" ")
		sb.WriteString(alias)
	}
	if on != "" && jt != JoinCross {
		sb.WriteString(" ON ")
		sb.WriteString(on)
	}
	t := s.top()
	t.builder = t.builder.JoinClause(sb.String(), args...)
}

func (s *SelectSink) GroupBy(columns ...string) {
	t := s.top()
	t.builder = t.builder.GroupBy(columns...)
}

func (s *SelectSink) Limit(n uint64) {
	t := s.top()
	t.builder = t.builder.Limit(n)
}

func (s *SelectSink) Offset(n uint64) {
	t := s.top()
	t.builder = t.builder.Offset(n)
}

// Builder returns the select builder with every emitted call applied.
func (s *SelectSink) Builder() sq.SelectBuilder {
	t := s.top()
	b := t.builder
	if len(t.parts) == 1 {
		return b.Where(sq.Expr(t.parts[0].sql, t.parts[0].args...))
	}
	for _, p := range t.parts {
		sql := p.sql
		if p.compound {
			sql = "(" + sql + ")"
		}
		b = b.Where(sq.Expr(sql, p.args...))
	}
	return b
}

// WhereSql returns the accumulated predicate alone, without the rest of the query.
func (s *SelectSink) WhereSql() (string, []any) {
	t := s.top()
	if len(t.parts) == 0 {
		return "", nil
	}
	return t.combine(ConjAnd)
}

func (s *SelectSink) ToSql() (string, []any, error) {
	return s.Builder().ToSql()
}
