package filter

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const DefaultObjectFunc = "json_build_object"

// Schema describes the resources an embed can reference.
type Schema interface {
	// Table returns the table backing resource.
	Table(resource string) (string, bool)
	// Relation returns how child attaches to parent when the embed gives no constraint.
	Relation(parent, child string) (Relation, bool)
	// Columns returns the columns '*' expands to. Nil leaves '*' to the database.
	Columns(resource string) []string
}

// Relation pairs a column of an embedded resource with a column of its parent.
type Relation struct {
	Column       string
	ParentColumn string
}

// Resolver turns selection lists into projections and joins.
type Resolver struct {
	// Resource and Table name the base of the query. Table qualifies base columns when set.
	Resource string
	Table    string
	// Schema resolves embed tables and implicit relations. Without it the resource name is
	// used as the table and every embed needs a constraint.
	Schema Schema
	// ObjectFunc builds JSON objects for object-shaped embeds. Defaults to DefaultObjectFunc.
	ObjectFunc string
	// JoinType is used for embeds without a join modifier.
	JoinType JoinType
	MaxDepth int
}

func (r Resolver) maxDepth() int {
	if r.MaxDepth > 0 {
		return r.MaxDepth
	}
	return DefaultMaxDepth
}

// columns returns the columns '*' expands to for resource, nil when unrestricted.
func (r Resolver) columns(resource string) []string {
	if r.Schema == nil {
		return nil
	}
	return r.Schema.Columns(resource)
}

func (r Resolver) objectFunc() string {
	if r.ObjectFunc != "" {
		return r.ObjectFunc
	}
	return DefaultObjectFunc
}

// Resolve emits the projections of nodes into sink. Array embeds become joins whose columns
// are labelled "alias.column"; object embeds become correlated sub-queries returning one
// JSON object.
func (r Resolver) Resolve(nodes []SelectNode, sink QuerySink) error {
	return r.resolve(nodes, sink, r.Resource, r.Table, "", 0)
}

func (r Resolver) resolve(nodes []SelectNode, sink QuerySink, resource, qualifier, prefix string, depth int) error {
	for _, n := range nodes {
		switch node := n.(type) {
		case *SelectColumn:
			if err := r.column(node, sink, resource, qualifier, prefix); err != nil {
				return err
			}
		case *Embed:
			if err := r.embed(node, sink, resource, qualifier, prefix, depth+1); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported select node %T", n)
		}
	}
	return nil
}

func (r Resolver) column(c *SelectColumn, sink QuerySink, resource, qualifier, prefix string) error {
	if c.Star {
		if cols := r.columns(resource); cols != nil {
			for _, name := range cols {
				if err := r.column(&SelectColumn{Path: Field(name)}, sink, resource, qualifier, prefix); err != nil {
					return err
				}
			}
			return nil
		}
		if prefix != "" {
			return ParseError{Kind: ErrSemantic, Message: fmt.Sprintf("'*' cannot be selected from embedded resource %q", strings.TrimSuffix(prefix, "."))}
		}
		if qualifier == "" {
			sink.Select("*")
			return nil
		}
		q, err := quoteIdent(qualifier, false)
		if err != nil {
			return invalidField(c.Path, err)
		}
		sink.Select(q + ".*")
		return nil
	}

	col, err := c.Path.SQL(qualifier)
	if err != nil {
		return invalidField(c.Path, err)
	}

	label := c.Alias
	if label == "" && (prefix != "" || c.Path.Cast != "" || c.Path.HasArrow()) {
		label = c.Path.Segments[len(c.Path.Segments)-1].Name
	}
	if label == "" {
		sink.Select(col)
		return nil
	}
	as, err := quoteIdent(prefix+label, false)
	if err != nil {
		return invalidField(c.Path, err)
	}
	sink.Select(col + " AS " + as)
	return nil
}

// target resolves the table, alias and ON clause of an embed.
func (r Resolver) target(e *Embed, parent, parentQualifier string) (table, alias, on string, args []any, err error) {
	table = e.Resource
	if r.Schema != nil {
		t, ok := r.Schema.Table(e.Resource)
		if !ok {
			return "", "", "", nil, ParseError{Kind: ErrSemantic, Position: e.Pos, Message: fmt.Sprintf("unknown resource %q", e.Resource)}
		}
		table = t
	}

	alias = e.Alias
	if alias == "" {
		alias = e.Resource
	}

	constraint := e.Constraint
	if constraint == nil && r.Schema != nil && e.JoinType != JoinCross {
		if rel, ok := r.Schema.Relation(parent, e.Resource); ok {
			constraint = &Condition{Field: Field(rel.Column), Operator: "eq", Arguments: []Value{Column(rel.ParentColumn)}}
		}
	}
	if constraint == nil {
		if e.JoinType == JoinCross {
			return table, alias, "", nil, nil
		}
		pe := ParseError{Kind: ErrSemantic, Position: e.Pos, Message: fmt.Sprintf("no relationship between %q and %q", parent, e.Resource)}
		return "", "", "", nil, pe.withHint("add a {column=parent_column} constraint to the embed")
	}
	if e.JoinType == JoinCross {
		return "", "", "", nil, ParseError{Kind: ErrSemantic, Position: e.Pos, Message: "a cross join cannot take a constraint"}
	}

	on, args, err = JoinCompiler{Qualifier: alias, MaxDepth: r.maxDepth()}.Compile(qualifyColumns(constraint, parentQualifier))
	return table, alias, on, args, err
}

// qualifyColumns prefixes the unqualified column values of expr with the parent qualifier.
func qualifyColumns(expr Expression, qualifier string) Expression {
	if qualifier == "" {
		return expr
	}
	switch e := expr.(type) {
	case *Condition:
		c := *e
		c.Arguments = make([]Value, len(e.Arguments))
		for i, v := range e.Arguments {
			if v.Kind == ValueColumn && !strings.Contains(v.Text, ".") {
				v = Column(qualifier + "." + v.Text)
			}
			c.Arguments[i] = v
		}
		return &c
	case *AndExpr:
		ops := make([]Expression, len(e.Operands))
		for i, op := range e.Operands {
			ops[i] = qualifyColumns(op, qualifier)
		}
		return &AndExpr{Operands: ops}
	case *OrExpr:
		ops := make([]Expression, len(e.Operands))
		for i, op := range e.Operands {
			ops[i] = qualifyColumns(op, qualifier)
		}
		return &OrExpr{Operands: ops}
	case *NotExpr:
		return &NotExpr{Operand: qualifyColumns(e.Operand, qualifier)}
	}
	return expr
}

func (r Resolver) embed(e *Embed, sink QuerySink, parent, parentQualifier, prefix string, depth int) error {
	if depth > r.maxDepth() {
		return depthError(e.Pos, r.maxDepth())
	}

	table, alias, on, args, err := r.target(e, parent, parentQualifier)
	if err != nil {
		return err
	}
	tableSQL, err := tableName(table)
	if err != nil {
		return err
	}
	aliasSQL, err := quoteIdent(alias, false)
	if err != nil {
		return err
	}

	if e.Shape == ShapeObject {
		sub, subArgs, err := r.object(e, table, alias, on, args, depth)
		if err != nil {
			return err
		}
		as, err := quoteIdent(prefix+alias, false)
		if err != nil {
			return err
		}
		sink.Select(sub+" AS "+as, subArgs...)
		return nil
	}

	jt := e.JoinType
	if jt == "" {
		jt = r.JoinType
	}
	if jt == "" {
		jt = JoinLeft
	}
	sink.Join(jt, tableSQL, aliasSQL, on, args...)
	return r.resolve(e.Select, sink, e.Resource, alias, prefix+alias+".", depth)
}

// object renders a correlated sub-query returning the embed as one JSON object.
func (r Resolver) object(e *Embed, table, alias, on string, onArgs []any, depth int) (string, []any, error) {
	var (
		pairs []string
		args  []any
	)
	for _, n := range e.Select {
		switch node := n.(type) {
		case *SelectColumn:
			columns := []*SelectColumn{node}
			if node.Star {
				cols := r.columns(e.Resource)
				if cols == nil {
					return "", nil, ParseError{Kind: ErrSemantic, Position: e.Pos, Message: fmt.Sprintf("'*' cannot be selected from object embed %q", e.Resource)}
				}
				columns = nil
				for _, name := range cols {
					columns = append(columns, &SelectColumn{Path: Field(name)})
				}
			}
			for _, c := range columns {
				col, err := c.Path.SQL(alias)
				if err != nil {
					return "", nil, invalidField(c.Path, err)
				}
				key := c.Alias
				if key == "" {
					key = c.Path.Segments[len(c.Path.Segments)-1].Name
				}
				lit, err := objectKey(key)
				if err != nil {
					return "", nil, invalidField(c.Path, err)
				}
				pairs = append(pairs, lit+", "+col)
			}
		case *Embed:
			if depth+1 > r.maxDepth() {
				return "", nil, depthError(node.Pos, r.maxDepth())
			}
			if node.Shape != ShapeObject {
				return "", nil, ParseError{
					Kind:     ErrSemantic,
					Position: node.Pos,
					Message:  fmt.Sprintf("embed %q inside object embed %q must use the object shape", node.Resource, e.Resource),
					Hint:     "add !object to the nested embed",
				}
			}
			subTable, subAlias, subOn, subOnArgs, err := r.target(node, e.Resource, alias)
			if err != nil {
				return "", nil, err
			}
			sub, subArgs, err := r.object(node, subTable, subAlias, subOn, subOnArgs, depth+1)
			if err != nil {
				return "", nil, err
			}
			lit, err := objectKey(subAlias)
			if err != nil {
				return "", nil, ParseError{Kind: ErrSemantic, Position: node.Pos, Message: err.Error()}
			}
			pairs = append(pairs, lit+", "+sub)
			args = append(args, subArgs...)
		}
	}

	tableSQL, err := tableName(table)
	if err != nil {
		return "", nil, err
	}
	aliasSQL, err := quoteIdent(alias, false)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "(SELECT %s(%s) FROM %s %s", r.objectFunc(), strings.Join(pairs, ", "), tableSQL, aliasSQL)
	if on != "" {
		sb.WriteString(" WHERE " + on)
	}
	sb.WriteString(" LIMIT 1)")
	return sb.String(), append(args, onArgs...), nil
}

// objectKey quotes a JSON object key. Keys holding '?' are rejected since squirrel would
// rewrite them into placeholders.
func objectKey(key string) (string, error) {
	if strings.ContainsRune(key, '?') {
		return "", fmt.Errorf("object key %q contains a reserved character", key)
	}
	return pq.QuoteLiteral(key), nil
}

func tableName(table string) (string, error) {
	sql, err := Field(strings.Split(table, ".")...).SQL("")
	if err != nil {
		return "", ParseError{Kind: ErrSemantic, Message: fmt.Sprintf("invalid table %q: %v", table, err)}
	}
	return sql, nil
}
