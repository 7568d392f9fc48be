package models

import "github.com/kubev2v/restquery/pkg/filter"

// QueryParams are the inputs of a query on a catalog resource.
type QueryParams struct {
	Resource string
	Filter   string
	Select   string
	// Order overrides the $.order directive of Filter when set.
	Order string
	// Limit and Offset override the $.limit and $.offset directives of Filter when set.
	Limit  *uint64
	Offset *uint64
}

// Page is one page of query results.
type Page struct {
	Resource string           `json:"resource"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	Total    int              `json:"total"`
	Limit    uint64           `json:"limit"`
	Offset   uint64           `json:"offset"`
	// Object is set instead of Rows when the query asked for $.shape(object).
	Object map[string]any `json:"object,omitempty"`
}

// IsObject reports whether the page holds a single object.
func (p *Page) IsObject() bool {
	return p.Object != nil
}

// Explain describes the SQL a query compiles to, without running it.
type Explain struct {
	Resource   string            `json:"resource"`
	SQL        string            `json:"sql"`
	Args       []any             `json:"args"`
	Expression string            `json:"expression,omitempty"`
	Directives filter.Directives `json:"directives"`
	Select     []string          `json:"select,omitempty"`
}
