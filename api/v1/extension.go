package v1

import (
	"github.com/kubev2v/restquery/internal/models"
	"github.com/kubev2v/restquery/pkg/filter"
)

// QueryParams converts the request parameters to the service model.
func (p ListResourceParams) QueryParams(resource string) models.QueryParams {
	q := models.QueryParams{
		Resource: resource,
		Limit:    p.Limit,
		Offset:   p.Offset,
	}
	if p.Filter != nil {
		q.Filter = *p.Filter
	}
	if p.Select != nil {
		q.Select = *p.Select
	}
	if p.Order != nil {
		q.Order = *p.Order
	}
	return q
}

func NewResourcePage(m models.Page) ResourcePage {
	rows := m.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	return ResourcePage{
		Resource: m.Resource,
		Columns:  m.Columns,
		Rows:     rows,
		Total:    m.Total,
		Limit:    m.Limit,
		Offset:   m.Offset,
	}
}

func NewResourceObject(m models.Page) ResourceObject {
	return ResourceObject{Resource: m.Resource, Object: m.Object}
}

func NewExplainResponse(m models.Explain) ExplainResponse {
	e := ExplainResponse{
		Resource:   m.Resource,
		Sql:        m.SQL,
		Args:       m.Args,
		Directives: m.Directives,
	}
	if m.Expression != "" {
		expr := m.Expression
		e.Expression = &expr
	}
	if len(m.Select) > 0 {
		sel := m.Select
		e.Select = &sel
	}
	return e
}

// NewQueryError converts a parse error, leaving out the position of compile-time errors.
func NewQueryError(pe filter.ParseError) QueryError {
	q := QueryError{
		Kind:    pe.Kind.String(),
		Message: pe.Message,
	}
	if pe.Position.Line > 0 {
		line, col, off := pe.Position.Line, pe.Position.Column, pe.Position.Offset
		q.Line, q.Column, q.Offset = &line, &col, &off
	}
	if pe.Expected != "" {
		q.Expected = &pe.Expected
	}
	if pe.Received != "" {
		q.Received = &pe.Received
	}
	if pe.Hint != "" {
		q.Hint = &pe.Hint
	}
	return q
}
