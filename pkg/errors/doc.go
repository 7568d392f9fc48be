// Package errors provides the service error types of restquery.
//
// Each error type includes a constructor, Error() method, and a type-checking
// helper using errors.As for proper error unwrapping. Errors of the query language
// itself are filter.ParseError values and are not repeated here.
//
// # Error Types Overview
//
//	┌──────────────────────────┬────────┬─────────────────────────────────────┐
//	│ Error Type               │ HTTP   │ Description                         │
//	├──────────────────────────┼────────┼─────────────────────────────────────┤
//	│ filter.ParseError        │ 400    │ Invalid filter, select or order     │
//	│ ColumnNotAllowedError    │ 400    │ Column not exposed by the catalog   │
//	│ UnauthorizedError        │ 401    │ Missing or invalid bearer token     │
//	│ ResourceNotFoundError    │ 404    │ Resource not declared in catalog    │
//	└──────────────────────────┴────────┴─────────────────────────────────────┘
//
// # ResourceNotFoundError
//
// Indicates a requested resource is not declared in the catalog.
//
// Constructors:
//   - NewResourceNotFoundError(kind, name string) - Generic not found
//   - NewCatalogResourceNotFoundError(name string) - Catalog resource not found
//
// Usage:
//
//	if errors.IsResourceNotFoundError(err) {
//	    c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
//	}
//
// # ColumnNotAllowedError
//
// Indicates a filter, order, group or select referenced a column that the catalog
// entry of the resource does not list. Resources without a column list accept any column.
//
// Constructor:
//   - NewColumnNotAllowedError(resource, column string)
//
// # UnauthorizedError
//
// Returned by the authentication middleware when the bearer token is missing,
// malformed or fails verification.
//
// Constructor:
//   - NewUnauthorizedError(reason string)
//
// # Type Checking Pattern
//
// All error types provide Is* helper functions that use errors.As
// for proper error chain unwrapping:
//
//	wrapped := fmt.Errorf("listing: %w", errors.NewCatalogResourceNotFoundError("users"))
//	errors.IsResourceNotFoundError(wrapped) // returns true
//
// # Handler Error Mapping
//
//	switch {
//	case filter.IsParseError(err), errors.IsColumnNotAllowedError(err):
//	    c.JSON(http.StatusBadRequest, ...)
//	case errors.IsResourceNotFoundError(err):
//	    c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
//	}
package errors
