package catalog

import (
	"fmt"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/kubev2v/restquery/pkg/filter"
	srvErrors "github.com/kubev2v/restquery/pkg/errors"
)

var (
	// resource names double as the alias of their table in queries.
	resourceName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	// tableName accepts a plain or schema-qualified table name.
	tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)
)

// Resource is a queryable resource backed by a table.
type Resource struct {
	Name  string `yaml:"name"`
	Table string `yaml:"table"`
	// Columns lists the columns exposed to queries. An empty list exposes every column.
	Columns   []string   `yaml:"columns"`
	Relations []Relation `yaml:"relations"`
}

// Relation attaches another resource to this one: Column of the embedded resource
// matches ParentColumn of this one.
type Relation struct {
	Resource     string `yaml:"resource"`
	Column       string `yaml:"column"`
	ParentColumn string `yaml:"parent_column"`
}

// HasColumn reports whether column may be referenced by a query on r.
func (r *Resource) HasColumn(column string) bool {
	if len(r.Columns) == 0 {
		return true
	}
	return slices.Contains(r.Columns, column)
}

// Catalog is the set of resources served. It implements filter.Schema.
type Catalog struct {
	resources map[string]*Resource
	names     []string
}

type document struct {
	Resources []Resource `yaml:"resources"`
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and checks a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return New(doc.Resources...)
}

func New(resources ...Resource) (*Catalog, error) {
	c := &Catalog{resources: make(map[string]*Resource, len(resources))}
	for i := range resources {
		r := resources[i]
		if r.Name == "" {
			return nil, fmt.Errorf("resource #%d has no name", i+1)
		}
		if !resourceName.MatchString(r.Name) {
			return nil, fmt.Errorf("invalid resource name %q", r.Name)
		}
		if _, ok := c.resources[r.Name]; ok {
			return nil, fmt.Errorf("resource %q declared twice", r.Name)
		}
		if r.Table == "" {
			r.Table = r.Name
		}
		if !tableName.MatchString(r.Table) {
			return nil, fmt.Errorf("resource %q: invalid table name %q", r.Name, r.Table)
		}
		c.resources[r.Name] = &r
		c.names = append(c.names, r.Name)
	}

	for _, r := range c.resources {
		for _, rel := range r.Relations {
			child, ok := c.resources[rel.Resource]
			if !ok {
				return nil, fmt.Errorf("resource %q: relation to unknown resource %q", r.Name, rel.Resource)
			}
			if rel.Column == "" || rel.ParentColumn == "" {
				return nil, fmt.Errorf("resource %q: relation to %q needs column and parent_column", r.Name, rel.Resource)
			}
			if !child.HasColumn(rel.Column) {
				return nil, fmt.Errorf("resource %q: relation column %q is not a column of %q", r.Name, rel.Column, rel.Resource)
			}
			if !r.HasColumn(rel.ParentColumn) {
				return nil, fmt.Errorf("resource %q: relation column %q is not one of its columns", r.Name, rel.ParentColumn)
			}
		}
	}

	slices.Sort(c.names)
	return c, nil
}

// Lookup returns the resource called name.
func (c *Catalog) Lookup(name string) (*Resource, error) {
	r, ok := c.resources[name]
	if !ok {
		return nil, srvErrors.NewCatalogResourceNotFoundError(name)
	}
	return r, nil
}

// Names returns the resource names, sorted.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

func (c *Catalog) Table(resource string) (string, bool) {
	r, ok := c.resources[resource]
	if !ok {
		return "", false
	}
	return r.Table, true
}

func (c *Catalog) Relation(parent, child string) (filter.Relation, bool) {
	p, ok := c.resources[parent]
	if !ok {
		return filter.Relation{}, false
	}
	for _, rel := range p.Relations {
		if rel.Resource == child {
			return filter.Relation{Column: rel.Column, ParentColumn: rel.ParentColumn}, true
		}
	}
	return filter.Relation{}, false
}

// Columns returns the declared columns of resource, nil when it exposes every column.
func (c *Catalog) Columns(resource string) []string {
	r, ok := c.resources[resource]
	if !ok || len(r.Columns) == 0 {
		return nil
	}
	return slices.Clone(r.Columns)
}

var _ filter.Schema = (*Catalog)(nil)
