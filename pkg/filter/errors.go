package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind discriminates the failures a query string can produce.
type ErrorKind int

const (
	ErrLex ErrorKind = iota + 1
	ErrSyntax
	ErrSemantic
	ErrResourceLimit
)

func (k ErrorKind) String() string {
	switch k {
	case ErrLex:
		return "lex"
	case ErrSyntax:
		return "syntax"
	case ErrSemantic:
		return "semantic"
	case ErrResourceLimit:
		return "resource_limit"
	default:
		return "unknown"
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseError is the type of error returned by the lexer, the parsers and the compilers.
type ParseError struct {
	Kind ErrorKind `json:"kind"`
	// Error message.
	Message string `json:"message"`
	// Source position where the error occurred. Zero for compile-time errors.
	Position Position `json:"position"`
	Expected string   `json:"expected,omitempty"`
	Received string   `json:"received,omitempty"`
	Hint     string   `json:"hint,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

// Error returns a formatted version of the error, including the position.
func (e ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	sb.WriteString(" error")
	if e.Position.Line > 0 {
		fmt.Fprintf(&sb, " at line %d, column %d", e.Position.Line, e.Position.Column)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Expected != "" {
		fmt.Fprintf(&sb, " (expected %s", e.Expected)
		if e.Received != "" {
			fmt.Fprintf(&sb, ", received %s", e.Received)
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func (e ParseError) withHint(hint string) ParseError {
	e.Hint = hint
	return e
}

// IsParseError checks if the error is a ParseError.
func IsParseError(err error) bool {
	var e ParseError
	return errors.As(err, &e)
}

// IsResourceLimitError checks if the error is a ParseError raised by a depth or size guard.
func IsResourceLimitError(err error) bool {
	var e ParseError
	return errors.As(err, &e) && e.Kind == ErrResourceLimit
}

func lexError(pos Position, format string, args ...any) ParseError {
	return ParseError{Kind: ErrLex, Position: pos, Message: fmt.Sprintf(format, args...)}
}

func syntaxError(pos Position, format string, args ...any) ParseError {
	return ParseError{Kind: ErrSyntax, Position: pos, Message: fmt.Sprintf(format, args...)}
}

func semanticError(pos Position, format string, args ...any) ParseError {
	return ParseError{Kind: ErrSemantic, Position: pos, Message: fmt.Sprintf(format, args...)}
}

func depthError(pos Position, max int) ParseError {
	return ParseError{
		Kind:     ErrResourceLimit,
		Position: pos,
		Message:  fmt.Sprintf("maximum nesting depth of %d exceeded", max),
		Hint:     "flatten nested and()/or()/not() groups",
	}
}
