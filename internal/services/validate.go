package services

import (
	"strings"

	"github.com/kubev2v/restquery/internal/catalog"
	srvErrors "github.com/kubev2v/restquery/pkg/errors"
	"github.com/kubev2v/restquery/pkg/filter"
)

// validate checks every column the query touches is exposed by the catalog.
// Unknown embedded resources are left to the resolver, which reports them with a position.
func (s *QueryService) validate(res *catalog.Resource, result *filter.Result, nodes []filter.SelectNode) error {
	aliases := map[string]*catalog.Resource{res.Name: res}
	for _, n := range nodes {
		if e, ok := n.(*filter.Embed); ok {
			if child, err := s.catalog.Lookup(e.Resource); err == nil {
				aliases[embedAlias(e)] = child
			}
		}
	}

	if err := s.validateSelect(res, nodes); err != nil {
		return err
	}

	if err := filter.Walk(result.Expr, func(c *filter.Condition) error {
		return validateCondition(res, res, aliases, c)
	}); err != nil {
		return err
	}

	for _, o := range result.Directives.Order {
		if err := checkColumn(res, o.Path.Root()); err != nil {
			return err
		}
	}
	for _, g := range result.Directives.Group {
		if err := checkColumn(res, g.Root()); err != nil {
			return err
		}
	}
	return nil
}

func (s *QueryService) validateSelect(res *catalog.Resource, nodes []filter.SelectNode) error {
	for _, n := range nodes {
		switch node := n.(type) {
		case *filter.SelectColumn:
			if node.Star {
				continue
			}
			if err := checkColumn(res, node.Path.Root()); err != nil {
				return err
			}
		case *filter.Embed:
			child, err := s.catalog.Lookup(node.Resource)
			if err != nil {
				continue
			}
			if node.Constraint != nil {
				if err := filter.Walk(node.Constraint, func(c *filter.Condition) error {
					return validateCondition(child, res, nil, c)
				}); err != nil {
					return err
				}
			}
			if err := s.validateSelect(child, node.Select); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateCondition checks the field of c against res and its column values against
// refs. Qualified column values are resolved through aliases.
func validateCondition(res, refs *catalog.Resource, aliases map[string]*catalog.Resource, c *filter.Condition) error {
	if err := checkColumn(res, c.Field.Root()); err != nil {
		return err
	}
	for _, v := range c.Arguments {
		if v.Kind != filter.ValueColumn {
			continue
		}
		qualifier, column, qualified := strings.Cut(v.Text, ".")
		if !qualified {
			if err := checkColumn(refs, v.Text); err != nil {
				return err
			}
			continue
		}
		target, ok := aliases[qualifier]
		if !ok {
			return srvErrors.NewColumnNotAllowedError(refs.Name, v.Text)
		}
		if err := checkColumn(target, column); err != nil {
			return err
		}
	}
	return nil
}

func checkColumn(res *catalog.Resource, column string) error {
	if res.HasColumn(column) {
		return nil
	}
	return srvErrors.NewColumnNotAllowedError(res.Name, column)
}

func embedAlias(e *filter.Embed) string {
	if e.Alias != "" {
		return e.Alias
	}
	return e.Resource
}
