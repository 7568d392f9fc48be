// Package v1 holds the wire types of the restquery HTTP API.
package v1

// ListResourceParamsFormat defines model for ListResourceParams.Format.
type ListResourceParamsFormat string

const (
	ListResourceParamsFormatJson ListResourceParamsFormat = "json"
	ListResourceParamsFormatXlsx ListResourceParamsFormat = "xlsx"
)

// ListResourceParams defines parameters for ListResource and ExplainResource.
type ListResourceParams struct {
	// Filter is a filter expression, optionally followed by $. directives.
	Filter *string `form:"filter,omitempty" json:"filter,omitempty"`
	// Select is a selection list with embedded resources.
	Select *string `form:"select,omitempty" json:"select,omitempty"`
	// Order is an ordering list, replacing the $.order directive.
	Order  *string                   `form:"order,omitempty" json:"order,omitempty"`
	Limit  *uint64                   `form:"limit,omitempty" json:"limit,omitempty"`
	Offset *uint64                   `form:"offset,omitempty" json:"offset,omitempty"`
	Format *ListResourceParamsFormat `form:"format,omitempty" json:"format,omitempty"`
}

// ResourcePage defines model for ResourcePage.
type ResourcePage struct {
	Resource string           `json:"resource"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	Total    int              `json:"total"`
	Limit    uint64           `json:"limit"`
	Offset   uint64           `json:"offset"`
}

// ResourceObject defines model for ResourceObject, returned for $.shape(object).
type ResourceObject struct {
	Resource string         `json:"resource"`
	Object   map[string]any `json:"object"`
}

// ExplainResponse defines model for ExplainResponse.
type ExplainResponse struct {
	Resource   string    `json:"resource"`
	Sql        string    `json:"sql"`
	Args       []any     `json:"args"`
	Expression *string   `json:"expression,omitempty"`
	Select     *[]string `json:"select,omitempty"`
	Directives any       `json:"directives"`
}

// ResourceList defines model for ResourceList.
type ResourceList struct {
	Resources []string `json:"resources"`
}

// QueryError defines model for QueryError, the details of an invalid query.
type QueryError struct {
	Kind     string  `json:"kind"`
	Message  string  `json:"message"`
	Line     *int    `json:"line,omitempty"`
	Column   *int    `json:"column,omitempty"`
	Offset   *int    `json:"offset,omitempty"`
	Expected *string `json:"expected,omitempty"`
	Received *string `json:"received,omitempty"`
	Hint     *string `json:"hint,omitempty"`
}

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details *QueryError `json:"details,omitempty"`
}

// Health defines model for Health.
type Health struct {
	Status string `json:"status"`
}
