package store

import (
	"context"
	"encoding/json"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// ResourceStore runs the queries compiled for catalog resources.
type ResourceStore struct {
	db          QueryInterceptor
	placeholder sq.PlaceholderFormat
}

func NewResourceStore(db QueryInterceptor, placeholder sq.PlaceholderFormat) *ResourceStore {
	if placeholder == nil {
		placeholder = sq.Question
	}
	return &ResourceStore{db: db, placeholder: placeholder}
}

// Rows is a query result. Every row maps each column label to its value.
type Rows struct {
	Columns []string
	Rows    []map[string]any
}

// List runs builder with opts applied and returns every row.
func (s *ResourceStore) List(ctx context.Context, builder sq.SelectBuilder, opts ...ListOption) (*Rows, error) {
	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.PlaceholderFormat(s.placeholder).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	result := &Rows{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalize(values[i], types[i].DatabaseTypeName())
		}
		result.Rows = append(result.Rows, row)
	}

	return result, rows.Err()
}

// Count returns the number of rows builder produces, ignoring any limit and offset.
func (s *ResourceStore) Count(ctx context.Context, builder sq.SelectBuilder) (int, error) {
	counter := sq.Select("COUNT(*)").
		FromSelect(builder.RemoveLimit().RemoveOffset(), "q").
		PlaceholderFormat(s.placeholder)

	query, args, err := counter.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// normalize turns driver values into values that marshal to readable JSON.
func normalize(v any, dbType string) any {
	var text []byte
	switch t := v.(type) {
	case []byte:
		text = t
	case string:
		text = []byte(t)
	default:
		return v
	}

	switch strings.ToUpper(dbType) {
	case "JSON", "JSONB":
		var decoded any
		if err := json.Unmarshal(text, &decoded); err == nil {
			return decoded
		}
	}
	return string(text)
}

// ListOption modifies a SELECT query for pagination.
type ListOption func(sq.SelectBuilder) sq.SelectBuilder

// WithLimit sets the LIMIT clause.
func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(limit)
	}
}

// WithOffset sets the OFFSET clause.
func WithOffset(offset uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if offset == 0 {
			return b
		}
		return b.Offset(offset)
	}
}

// WithOrderBy appends ORDER BY terms.
func WithOrderBy(terms ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(terms) == 0 {
			return b
		}
		return b.OrderBy(terms...)
	}
}
