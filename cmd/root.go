package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kubev2v/restquery/internal/config"
)

// envPrefix prefixes the environment variables mirroring the flags, e.g. RESTQUERY_DB_DSN.
const envPrefix = "RESTQUERY"

func NewRootCommand() *cobra.Command {
	cfg := config.NewConfigurationWithOptionsAndDefaults()

	root := &cobra.Command{
		Use:           "restquery",
		Short:         "Query catalog resources with a filter language compiled to SQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cobra.OnInitialize(initViper)

	root.AddCommand(NewRunCommand(cfg))
	root.AddCommand(NewExplainCommand(cfg))

	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}

func initViper() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func registerLogFlags(flags *pflag.FlagSet, cfg *config.Configuration) {
	flags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug, info, warn or error")
	flags.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "Log format: console or json")
}

func registerQueryFlags(flags *pflag.FlagSet, cfg *config.Configuration) {
	flags.StringVar(&cfg.CatalogFile, "catalog-file", cfg.CatalogFile, "YAML file describing the queryable resources")
	flags.StringVar(&cfg.DB.Driver, "db-driver", cfg.DB.Driver, "Database driver: duckdb or pgx")
	flags.IntVar(&cfg.Query.MaxDepth, "query-max-depth", cfg.Query.MaxDepth, "Maximum nesting depth of a filter expression")
	flags.IntVar(&cfg.Query.MaxInputLength, "query-max-input-length", cfg.Query.MaxInputLength, "Maximum length in bytes of a filter, select or order parameter")
	flags.BoolVar(&cfg.Query.AllowUnsafeOperators, "query-allow-unsafe-operators", cfg.Query.AllowUnsafeOperators, "Accept regular expression operators (match, imatch)")
	flags.Uint64Var(&cfg.Query.DefaultLimit, "query-default-limit", cfg.Query.DefaultLimit, "Page size when a query sets no limit")
	flags.Uint64Var(&cfg.Query.MaxLimit, "query-max-limit", cfg.Query.MaxLimit, "Largest page size a query may ask for")
	flags.IntVar(&cfg.Query.Workers, "query-workers", cfg.Query.Workers, "Number of database queries run at the same time")
}

// setupLogger replaces the global zap logger according to cfg.
func setupLogger(cfg config.Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log-level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = cfg.Format

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
