// Package handlers implements the HTTP API layer of restquery.
//
// Handlers parse request parameters, delegate to the query service and map its
// results and errors to HTTP responses. They never build SQL themselves.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     HTTP Request (Gin)                          │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│             v1.ServerInterfaceWrapper (api/v1)                  │
//	│  - Query parameter binding                                      │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Handler (this package)                     │
//	│  - Output format selection                                      │
//	│  - Error mapping to HTTP status codes                           │
//	│  - Model-to-API conversion                                      │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                 QueryService (services layer)                   │
//	└─────────────────────────────────────────────────────────────────┘
//
// Routes are registered with:
//
//	v1.RegisterHandlers(router, handler)
//
// # API Endpoints
//
//	┌────────┬──────────────────────────────┬────────────────────────────────────┐
//	│ Method │ Endpoint                     │ Description                        │
//	├────────┼──────────────────────────────┼────────────────────────────────────┤
//	│ GET    │ /health                      │ Liveness probe                     │
//	│ GET    │ /resources                   │ Names of the catalog resources     │
//	│ GET    │ /resources/{resource}        │ Run a query, json or xlsx          │
//	│ GET    │ /resources/{resource}/explain│ Show the SQL a query compiles to   │
//	└────────┴──────────────────────────────┴────────────────────────────────────┘
//
// Query Parameters:
//
//	┌──────────┬────────┬─────────────────────────────────────────────────────┐
//	│ Parameter│ Type   │ Description                                         │
//	├──────────┼────────┼─────────────────────────────────────────────────────┤
//	│ filter   │ string │ Filter expression with optional $. directives       │
//	│ select   │ string │ Columns and embedded resources                      │
//	│ order    │ string │ Ordering, replaces the $.order directive            │
//	│ limit    │ uint64 │ Page size, replaces $.limit, capped by the config   │
//	│ offset   │ uint64 │ Rows to skip, replaces $.offset                     │
//	│ format   │ string │ json (default) or xlsx                              │
//	└──────────┴────────┴─────────────────────────────────────────────────────┘
//
// Example: /resources/users?filter=age.gte(18),status.in(active,pending)&select=id,name,companies(name)&order=name.asc
//
// Response:
//
//	{
//	    "resource": "users",
//	    "columns": ["id", "name", "companies.name"],
//	    "rows": [{"id": 1, "name": "Alice", "companies.name": "Acme"}],
//	    "total": 1,
//	    "limit": 100,
//	    "offset": 0
//	}
//
// With $.shape(object) the response is {"resource": "users", "object": {...}} and a
// query matching nothing answers 404.
//
// # Error Handling
//
//	{ "error": "error message", "details": { "kind": "syntax", "line": 1, "column": 9, ... } }
//
// details is only set for query language errors.
//
//	┌─────────────────────────────┬────────┬──────────────────────────────────┐
//	│ Error Type                  │ Status │ When                             │
//	├─────────────────────────────┼────────┼──────────────────────────────────┤
//	│ filter.ParseError           │ 400    │ Invalid filter, select or order  │
//	│ ColumnNotAllowedError       │ 400    │ Column hidden by the catalog     │
//	│ Unsupported format          │ 400    │ format is not json or xlsx       │
//	│ UnauthorizedError           │ 401    │ Missing or invalid bearer token  │
//	│ ResourceNotFoundError       │ 404    │ Unknown resource, empty object   │
//	│ Internal error              │ 500    │ Database failures                │
//	└─────────────────────────────┴────────┴──────────────────────────────────┘
package handlers
