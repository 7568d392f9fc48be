package errors

import (
	"errors"
	"fmt"
)

// ResourceNotFoundError indicates a resource was not found.
type ResourceNotFoundError struct {
	Kind string
	Name string
}

func NewResourceNotFoundError(kind, name string) *ResourceNotFoundError {
	return &ResourceNotFoundError{Kind: kind, Name: name}
}

func NewCatalogResourceNotFoundError(name string) *ResourceNotFoundError {
	return NewResourceNotFoundError("resource", name)
}

func (e *ResourceNotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}

// ColumnNotAllowedError indicates a query referenced a column the catalog does not expose.
type ColumnNotAllowedError struct {
	Resource string
	Column   string
}

func NewColumnNotAllowedError(resource, column string) *ColumnNotAllowedError {
	return &ColumnNotAllowedError{Resource: resource, Column: column}
}

func (e *ColumnNotAllowedError) Error() string {
	return fmt.Sprintf("column %q is not exposed by resource %q", e.Column, e.Resource)
}

// IsColumnNotAllowedError checks if the error is a ColumnNotAllowedError.
func IsColumnNotAllowedError(err error) bool {
	var e *ColumnNotAllowedError
	return errors.As(err, &e)
}

// UnauthorizedError indicates the caller presented no valid token.
type UnauthorizedError struct {
	reason string
}

func NewUnauthorizedError(reason string) *UnauthorizedError {
	return &UnauthorizedError{reason: reason}
}

func (e *UnauthorizedError) Error() string {
	if e.reason == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.reason
}

func IsUnauthorizedError(err error) bool {
	var e *UnauthorizedError
	return errors.As(err, &e)
}
