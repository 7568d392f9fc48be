package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"

	"github.com/kubev2v/restquery/internal/catalog"
	"github.com/kubev2v/restquery/internal/config"
	"github.com/kubev2v/restquery/internal/models"
	"github.com/kubev2v/restquery/internal/services"
	"github.com/kubev2v/restquery/internal/store"
	"github.com/kubev2v/restquery/pkg/filter"
)

var errInvalidQuery = errors.New("invalid query")

func NewExplainCommand(cfg *config.Configuration) *cobra.Command {
	var (
		params        models.QueryParams
		limit, offset uint64
	)

	cmd := &cobra.Command{
		Use:   "explain RESOURCE",
		Short: "Print the SQL a query compiles to, without touching the database",
		Example: `  restquery explain users --filter 'age.gte(18),status.in(active,pending)' --select 'id,name,companies(name)'
  restquery explain users --filter 'or(name.like(A*),email.is(null)),$.order(name.desc),$.limit(10)'`,
		Args:    cobra.ExactArgs(1),
		PreRunE: cobrautil.SyncViperPreRunE(envPrefix),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Resource = args[0]
			if cmd.Flags().Changed("limit") {
				params.Limit = &limit
			}
			if cmd.Flags().Changed("offset") {
				params.Offset = &offset
			}
			if err := validateQuery(cfg.Query); err != nil {
				return err
			}
			return explain(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, params)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&params.Filter, "filter", "", "Filter expression, optionally with $. directives")
	flags.StringVar(&params.Select, "select", "", "Columns and embedded resources to select")
	flags.StringVar(&params.Order, "order", "", "Ordering, replaces the $.order directive")
	flags.Uint64Var(&limit, "limit", 0, "Page size, replaces the $.limit directive")
	flags.Uint64Var(&offset, "offset", 0, "Rows to skip, replaces the $.offset directive")
	registerQueryFlags(flags, cfg)

	return cmd
}

func explain(ctx context.Context, out, errOut io.Writer, cfg *config.Configuration, params models.QueryParams) error {
	if !checkInputs(errOut, cfg.Query, params) {
		return errInvalidQuery
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return err
	}

	// Explain never runs the query, the store only provides the driver's SQL dialect.
	querySrv, err := services.NewQueryService(store.NewStore(nil, cfg.DB.Driver), cat, cfg.Query)
	if err != nil {
		return err
	}
	defer querySrv.Close()

	result, err := querySrv.Explain(ctx, params)
	if err != nil {
		var pe filter.ParseError
		if errors.As(err, &pe) {
			printDiagnostic(errOut, "query", "", pe)
			return errInvalidQuery
		}
		return err
	}

	bold := color.New(color.Bold)
	_, _ = bold.Fprintln(out, "SQL:")
	fmt.Fprintf(out, "  %s\n", result.SQL)
	if len(result.Args) > 0 {
		_, _ = bold.Fprintln(out, "Args:")
		for i, a := range result.Args {
			fmt.Fprintf(out, "  %d: %s\n", i+1, color.CyanString("%#v", a))
		}
	}
	if result.Expression != "" {
		_, _ = bold.Fprintln(out, "Expression:")
		fmt.Fprintf(out, "  %s\n", result.Expression)
	}
	return nil
}

// checkInputs parses each input on its own so that diagnostics point into the right one.
func checkInputs(w io.Writer, cfg config.Query, params models.QueryParams) bool {
	parser, err := services.NewParser(cfg)
	if err != nil {
		printDiagnostic(w, "config", "", filter.ParseError{Kind: filter.ErrSemantic, Message: err.Error()})
		return false
	}

	ok := true
	check := func(name, input string, parse func(string) error) {
		if input == "" {
			return
		}
		var pe filter.ParseError
		if err := parse(input); errors.As(err, &pe) {
			printDiagnostic(w, name, input, pe)
			ok = false
		}
	}

	check("filter", params.Filter, func(s string) error { _, err := parser.Parse(s); return err })
	check("order", params.Order, func(s string) error { _, err := parser.ParseOrder(s); return err })
	check("select", params.Select, func(s string) error { _, err := parser.ParseSelect(s); return err })
	return ok
}

// printDiagnostic writes pe with the offending line of input and a caret under its column.
func printDiagnostic(w io.Writer, name, input string, pe filter.ParseError) {
	red := color.New(color.FgRed, color.Bold)
	_, _ = red.Fprintf(w, "%s error", pe.Kind)
	fmt.Fprintf(w, " in %s: %s\n", name, pe.Message)

	if pe.Position.Line > 0 && input != "" {
		lines := strings.Split(input, "\n")
		if pe.Position.Line <= len(lines) {
			line := lines[pe.Position.Line-1]
			gutter := fmt.Sprintf("%d | ", pe.Position.Line)
			fmt.Fprintf(w, "  %s%s\n", color.HiBlackString(gutter), line)
			pad := strings.Repeat(" ", len(gutter)+max(pe.Position.Column-1, 0))
			fmt.Fprintf(w, "  %s%s\n", pad, red.Sprint("^"))
		}
	}

	if pe.Expected != "" {
		fmt.Fprintf(w, "  expected %s", pe.Expected)
		if pe.Received != "" {
			fmt.Fprintf(w, ", received %s", pe.Received)
		}
		fmt.Fprintln(w)
	}
	if pe.Hint != "" {
		fmt.Fprintf(w, "  %s %s\n", color.YellowString("hint:"), pe.Hint)
	}
}
