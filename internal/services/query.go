package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/kubev2v/restquery/internal/catalog"
	"github.com/kubev2v/restquery/internal/config"
	"github.com/kubev2v/restquery/internal/models"
	"github.com/kubev2v/restquery/internal/store"
	srvErrors "github.com/kubev2v/restquery/pkg/errors"
	"github.com/kubev2v/restquery/pkg/filter"
	"github.com/kubev2v/restquery/pkg/scheduler"
)

// unsafeOperators can be slow on large inputs and need AllowUnsafeOperators.
var unsafeOperators = []string{"match", "imatch"}

// QueryService runs filter queries on the resources of a catalog.
type QueryService struct {
	store     *store.Store
	catalog   *catalog.Catalog
	parser    *filter.Parser
	scheduler *scheduler.Scheduler
	cfg       config.Query
	logger    *zap.SugaredLogger
}

func NewQueryService(st *store.Store, cat *catalog.Catalog, cfg config.Query) (*QueryService, error) {
	parser, err := NewParser(cfg)
	if err != nil {
		return nil, err
	}
	return &QueryService{
		store:     st,
		catalog:   cat,
		parser:    parser,
		scheduler: scheduler.NewScheduler(cfg.Workers),
		cfg:       cfg,
		logger:    zap.S().Named("query_service"),
	}, nil
}

// NewParser builds the query language parser for cfg.
func NewParser(cfg config.Query) (*filter.Parser, error) {
	fc := filter.DefaultConfig()
	if cfg.MaxDepth > 0 {
		fc.MaxDepth = cfg.MaxDepth
	}
	if cfg.MaxInputLength > 0 {
		fc.MaxInputLength = cfg.MaxInputLength
	}
	fc.AllowUnsafeOperators = cfg.AllowUnsafeOperators
	fc.AllowedOperators = slices.DeleteFunc(fc.AllowedOperators, func(op string) bool {
		return slices.Contains(unsafeOperators, op)
	})
	return filter.NewParser(fc)
}

// plan is a query ready to run: the builder carries everything but the page bounds.
type plan struct {
	resource *catalog.Resource
	result   *filter.Result
	nodes    []filter.SelectNode
	builder  sq.SelectBuilder
	limit    uint64
	offset   uint64
	object   bool
}

// List runs the query and returns one page of rows. The page and the total count are
// fetched concurrently.
func (s *QueryService) List(ctx context.Context, params models.QueryParams) (*models.Page, error) {
	p, err := s.prepare(params)
	if err != nil {
		return nil, err
	}

	rowsF := s.scheduler.AddWork(ctx, func(ctx context.Context) (any, error) {
		return s.store.Resources().List(ctx, p.builder, store.WithLimit(p.limit), store.WithOffset(p.offset))
	})

	var countF *scheduler.Future[any]
	if !p.object {
		countF = s.scheduler.AddWork(ctx, func(ctx context.Context) (any, error) {
			return s.store.Resources().Count(ctx, p.builder)
		})
		defer countF.Stop()
	}

	v, err := rowsF.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", p.resource.Name, err)
	}
	rows := v.(*store.Rows)

	page := &models.Page{
		Resource: p.resource.Name,
		Columns:  rows.Columns,
		Rows:     rows.Rows,
		Limit:    p.limit,
		Offset:   p.offset,
	}

	if p.object {
		if len(rows.Rows) == 0 {
			return nil, srvErrors.NewResourceNotFoundError(p.resource.Name, "row")
		}
		page.Object = rows.Rows[0]
		page.Rows = nil
		page.Total = 1
		return page, nil
	}

	v, err = countF.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting %s: %w", p.resource.Name, err)
	}
	page.Total = v.(int)

	s.logger.Debugw("query", "resource", p.resource.Name, "rows", len(page.Rows), "total", page.Total)
	return page, nil
}

// Close stops the workers running the queries.
func (s *QueryService) Close() {
	s.scheduler.Close()
}

// Resources returns the names of the queryable resources.
func (s *QueryService) Resources() []string {
	return s.catalog.Names()
}

// Explain returns the SQL the query compiles to, without running it.
func (s *QueryService) Explain(ctx context.Context, params models.QueryParams) (*models.Explain, error) {
	p, err := s.prepare(params)
	if err != nil {
		return nil, err
	}

	b := p.builder.Limit(p.limit)
	if p.offset > 0 {
		b = b.Offset(p.offset)
	}
	query, args, err := b.PlaceholderFormat(store.Placeholder(s.store.Driver())).ToSql()
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", p.resource.Name, err)
	}

	explain := &models.Explain{
		Resource:   p.resource.Name,
		SQL:        query,
		Args:       args,
		Directives: p.result.Directives,
	}
	if explain.Args == nil {
		explain.Args = []any{}
	}
	explain.Directives.Limit = &p.limit
	explain.Directives.Offset = &p.offset
	if p.result.Expr != nil {
		explain.Expression = p.result.Expr.String()
	}
	for _, n := range p.nodes {
		explain.Select = append(explain.Select, n.String())
	}
	return explain, nil
}

func (s *QueryService) prepare(params models.QueryParams) (*plan, error) {
	res, err := s.catalog.Lookup(params.Resource)
	if err != nil {
		return nil, err
	}

	result, err := s.parser.Parse(params.Filter)
	if err != nil {
		return nil, err
	}
	if params.Order != "" {
		order, err := s.parser.ParseOrder(params.Order)
		if err != nil {
			return nil, err
		}
		result.Directives.Order = order
	}

	nodes, err := s.parser.ParseSelect(params.Select)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		nodes = []filter.SelectNode{&filter.SelectColumn{Star: true}}
	}

	if err := s.validate(res, result, nodes); err != nil {
		return nil, err
	}

	p := &plan{
		resource: res,
		result:   result,
		nodes:    nodes,
		limit:    s.limit(result.Directives.Limit, params.Limit),
		object:   result.Directives.Shape == filter.ShapeObject,
	}
	if result.Directives.Offset != nil {
		p.offset = *result.Directives.Offset
	}
	if params.Offset != nil {
		p.offset = *params.Offset
	}
	if p.object {
		p.limit = 1
	}

	from, err := filter.Field(strings.Split(res.Table, ".")...).SQL("")
	if err != nil {
		return nil, err
	}
	alias, err := filter.Field(res.Name).SQL("")
	if err != nil {
		return nil, err
	}
	if from != alias {
		from += " AS " + alias
	}

	sink := filter.NewSelectSink(sq.Select().From(from))
	resolver := filter.Resolver{
		Resource:   res.Name,
		Table:      res.Name,
		Schema:     s.catalog,
		ObjectFunc: store.ObjectFunc(s.store.Driver()),
		JoinType:   result.Directives.JoinType,
		MaxDepth:   s.cfg.MaxDepth,
	}
	if err := resolver.Resolve(nodes, sink); err != nil {
		return nil, err
	}

	compiler := filter.Compiler{MaxDepth: s.cfg.MaxDepth}
	if hasEmbed(nodes) {
		compiler.Qualifier = res.Name
	}
	// page bounds are applied by the store
	applied := *result
	applied.Directives.Limit = nil
	applied.Directives.Offset = nil
	if err := compiler.Apply(&applied, sink); err != nil {
		return nil, err
	}

	p.builder = sink.Builder()
	return p, nil
}

// limit picks the requested limit, falling back to the default and capped by the maximum.
func (s *QueryService) limit(directive, param *uint64) uint64 {
	limit := s.cfg.DefaultLimit
	if directive != nil {
		limit = *directive
	}
	if param != nil {
		limit = *param
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return limit
}

func hasEmbed(nodes []filter.SelectNode) bool {
	for _, n := range nodes {
		if _, ok := n.(*filter.Embed); ok {
			return true
		}
	}
	return false
}
