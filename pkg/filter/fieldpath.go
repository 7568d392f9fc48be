package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
)

// Arrow is the JSON traversal operator of a path segment.
type Arrow int

const (
	ArrowNone Arrow = iota
	// ArrowJSON extracts a JSON value (->).
	ArrowJSON
	// ArrowText extracts a text value (->>).
	ArrowText
)

func (a Arrow) String() string {
	switch a {
	case ArrowJSON:
		return "->"
	case ArrowText:
		return "->>"
	default:
		return ""
	}
}

// Segment is one step of a field path.
type Segment struct {
	Name  string
	Arrow Arrow
	// Quoted is set for segments written as "double quoted" column references.
	Quoted bool
}

// FieldPath references a column, optionally traversing nested fields or JSON documents.
// Once an arrow segment appears no dotted segment may follow.
type FieldPath struct {
	Segments []Segment
	// Cast is the SQL type the field is cast to, empty when none.
	Cast string
}

// Field builds a path from dotted names.
func Field(names ...string) FieldPath {
	fp := FieldPath{Segments: make([]Segment, 0, len(names))}
	for _, n := range names {
		fp.Segments = append(fp.Segments, Segment{Name: n})
	}
	return fp
}

// JSON returns a copy of the path extended with a "->" segment.
func (f FieldPath) JSON(key string) FieldPath {
	return f.with(Segment{Name: key, Arrow: ArrowJSON})
}

// Text returns a copy of the path extended with a "->>" segment.
func (f FieldPath) Text(key string) FieldPath {
	return f.with(Segment{Name: key, Arrow: ArrowText})
}

func (f FieldPath) with(s Segment) FieldPath {
	segs := make([]Segment, 0, len(f.Segments)+1)
	segs = append(segs, f.Segments...)
	return FieldPath{Segments: append(segs, s), Cast: f.Cast}
}

// Root returns the column name the path starts from.
func (f FieldPath) Root() string {
	if len(f.Segments) == 0 {
		return ""
	}
	return f.Segments[0].Name
}

// IsBare reports whether the path is a single plain name.
func (f FieldPath) IsBare() bool {
	return len(f.Segments) == 1 && f.Cast == ""
}

// HasArrow reports whether the path traverses a JSON document.
func (f FieldPath) HasArrow() bool {
	for _, s := range f.Segments {
		if s.Arrow != ArrowNone {
			return true
		}
	}
	return false
}

func (f FieldPath) String() string {
	var sb strings.Builder
	for i, s := range f.Segments {
		switch {
		case s.Arrow != ArrowNone:
			sb.WriteString(s.Arrow.String())
		case i > 0:
			sb.WriteByte('.')
		}
		if s.Quoted {
			sb.WriteString(`"` + strings.ReplaceAll(s.Name, `"`, `\"`) + `"`)
		} else {
			sb.WriteString(s.Name)
		}
	}
	if f.Cast != "" {
		return "{" + sb.String() + "}::" + f.Cast
	}
	return sb.String()
}

func (f FieldPath) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

var (
	bareIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	arrayIndex     = regexp.MustCompile(`^[0-9]+$`)
	castType       = regexp.MustCompile(`^[a-z][a-z0-9_ ]*(\[\])?$`)
)

// sqlKeywords must be quoted when used as identifiers.
var sqlKeywords = map[string]struct{}{
	"all": {}, "and": {}, "any": {}, "as": {}, "asc": {}, "between": {}, "case": {}, "check": {},
	"column": {}, "default": {}, "desc": {}, "distinct": {}, "else": {}, "end": {}, "false": {},
	"from": {}, "group": {}, "having": {}, "in": {}, "is": {}, "join": {}, "limit": {}, "not": {},
	"null": {}, "offset": {}, "on": {}, "or": {}, "order": {}, "primary": {}, "references": {},
	"select": {}, "table": {}, "then": {}, "to": {}, "true": {}, "union": {}, "user": {},
	"using": {}, "when": {}, "where": {}, "with": {},
}

// quoteIdent renders a single identifier, quoting it unless it is a plain lowercase name.
func quoteIdent(name string, force bool) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty identifier")
	}
	// squirrel rewrites '?' into placeholders, even inside quoted identifiers
	if strings.ContainsRune(name, '?') {
		return "", fmt.Errorf("identifier %q contains a reserved character", name)
	}
	if !force && bareIdentifier.MatchString(name) {
		if _, kw := sqlKeywords[name]; !kw {
			return name, nil
		}
	}
	return pq.QuoteIdentifier(name), nil
}

// SQL renders the path as an SQL expression. When qualifier is set the root column is
// prefixed with it. Only identifiers and quoted JSON keys are emitted; nothing in the
// output comes from a value position.
func (f FieldPath) SQL(qualifier string) (string, error) {
	if len(f.Segments) == 0 {
		return "", fmt.Errorf("empty field path")
	}

	var sb strings.Builder
	if qualifier != "" {
		q, err := quoteIdent(qualifier, false)
		if err != nil {
			return "", err
		}
		sb.WriteString(q)
		sb.WriteByte('.')
	}

	for i, s := range f.Segments {
		switch {
		case s.Arrow != ArrowNone:
			sb.WriteString(s.Arrow.String())
			if arrayIndex.MatchString(s.Name) {
				sb.WriteString(s.Name)
			} else {
				if strings.ContainsRune(s.Name, '?') {
					return "", fmt.Errorf("json key %q contains a reserved character", s.Name)
				}
				sb.WriteString(pq.QuoteLiteral(s.Name))
			}
			continue
		case i > 0:
			sb.WriteByte('.')
		}
		id, err := quoteIdent(s.Name, s.Quoted)
		if err != nil {
			return "", err
		}
		sb.WriteString(id)
	}

	if f.Cast == "" {
		return sb.String(), nil
	}
	if !castType.MatchString(f.Cast) {
		return "", fmt.Errorf("invalid cast type %q", f.Cast)
	}
	return "CAST(" + sb.String() + " AS " + f.Cast + ")", nil
}
