package filter

import (
	"errors"
	"fmt"
	"slices"
)

const (
	DefaultMaxDepth       = 10
	DefaultMaxInputLength = 4096
)

// Config holds the grammar settings shared by every parse. It is validated once by
// NewParser and never mutated afterwards.
type Config struct {
	GroupOpen  byte
	GroupClose byte
	Separator  byte
	OrSymbol   byte
	NotSymbol  byte
	// AllowedOperators restricts the operators accepted in condition position.
	AllowedOperators []string
	// AllowUnsafeOperators accepts any operator known to the operator table,
	// even when missing from AllowedOperators. Values are still bound.
	AllowUnsafeOperators bool
	// AllowRawValues accepts backtick values. Only for trusted internal callers.
	AllowRawValues bool
	MaxDepth       int
	MaxInputLength int
}

func DefaultConfig() Config {
	return Config{
		GroupOpen:        '(',
		GroupClose:       ')',
		Separator:        ',',
		OrSymbol:         '|',
		NotSymbol:        '!',
		AllowedOperators: OperatorNames(),
		MaxDepth:         DefaultMaxDepth,
		MaxInputLength:   DefaultMaxInputLength,
	}
}

// reserved characters have a fixed meaning in the grammar.
var reserved = []byte{'.', '[', ']', '{', '}', '\'', '"', '`', '$', ':', '-', '>', '*', '=', '\\', ' ', '\t', '\n', '\r'}

// Validate checks the delimiters are set, pairwise distinct and not reserved.
func (c Config) Validate() error {
	delims := []struct {
		name string
		ch   byte
	}{
		{"group-open", c.GroupOpen},
		{"group-close", c.GroupClose},
		{"separator", c.Separator},
		{"or-symbol", c.OrSymbol},
		{"not-symbol", c.NotSymbol},
	}

	seen := make(map[byte]string, len(delims))
	for _, d := range delims {
		if d.ch == 0 {
			return fmt.Errorf("%s cannot be empty", d.name)
		}
		if slices.Contains(reserved, d.ch) || isIdentifierStart(d.ch) || isDigit(d.ch) {
			return fmt.Errorf("%s %q is a reserved character", d.name, d.ch)
		}
		if other, ok := seen[d.ch]; ok {
			return fmt.Errorf("%s and %s must be distinct, both are %q", other, d.name, d.ch)
		}
		seen[d.ch] = d.name
	}

	if len(c.AllowedOperators) == 0 {
		return errors.New("allowed operators cannot be empty")
	}
	for _, name := range c.AllowedOperators {
		if _, ok := operators[name]; !ok {
			return fmt.Errorf("unknown operator %q in allow-list", name)
		}
	}

	if c.MaxDepth < 1 {
		return fmt.Errorf("invalid max depth %d", c.MaxDepth)
	}
	if c.MaxInputLength < 1 {
		return fmt.Errorf("invalid max input length %d", c.MaxInputLength)
	}

	return nil
}

func (c Config) allowed() map[string]struct{} {
	set := make(map[string]struct{}, len(c.AllowedOperators))
	for _, name := range c.AllowedOperators {
		set[name] = struct{}{}
	}
	return set
}

// describe renders a punctuation kind the way it is written with this configuration.
func (c *Config) describe(t Token) string {
	switch t {
	case lparen:
		return quoteChar(c.GroupOpen)
	case rparen:
		return quoteChar(c.GroupClose)
	case comma:
		return quoteChar(c.Separator)
	case pipe:
		return quoteChar(c.OrSymbol)
	case bang:
		return quoteChar(c.NotSymbol)
	case lsquare:
		return "'['"
	case rsquare:
		return "']'"
	case lbrace:
		return "'{'"
	case rbrace:
		return "'}'"
	case eol:
		return "end of input"
	}
	return t.String()
}
