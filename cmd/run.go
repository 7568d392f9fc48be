package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/restquery/api/v1"
	"github.com/kubev2v/restquery/internal/catalog"
	"github.com/kubev2v/restquery/internal/config"
	"github.com/kubev2v/restquery/internal/handlers"
	"github.com/kubev2v/restquery/internal/server"
	"github.com/kubev2v/restquery/internal/services"
	"github.com/kubev2v/restquery/internal/store"
	"github.com/kubev2v/restquery/internal/store/migrations"
)

const shutdownTimeout = 10 * time.Second

func NewRunCommand(cfg *config.Configuration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve the query API",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			cobraflags.PresetRequiredFlags(envPrefix, make(map[*pflag.Flag]bool), cmd)
			return validateConfiguration(cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.Server.HTTPPort, "server-http-port", cfg.Server.HTTPPort, "Port the API listens on")
	flags.StringVar(&cfg.Server.ServerMode, "server-mode", cfg.Server.ServerMode, "Server mode: dev (http) or prod (https with a self signed certificate)")
	flags.BoolVar(&cfg.Auth.Enabled, "authentication-enabled", cfg.Auth.Enabled, "Require a signed JWT bearer token on the API")
	flags.StringVar(&cfg.Auth.JWTFilePath, "authentication-jwt-filepath", cfg.Auth.JWTFilePath, "PEM public key verifying the JWT tokens")
	flags.StringVar(&cfg.DB.DSN, "db-dsn", cfg.DB.DSN, "Database connection string")
	flags.StringVar(&cfg.DB.MigrationsFolder, "db-migrations-folder", cfg.DB.MigrationsFolder, "Folder of numbered .sql migrations applied at startup")
	registerQueryFlags(flags, cfg)
	registerLogFlags(flags, cfg)

	return cmd
}

func run(ctx context.Context, cfg *config.Configuration) error {
	logger, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return err
	}

	db, err := store.NewDB(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if cfg.DB.MigrationsFolder != "" {
		if err := migrations.Run(ctx, db, store.Placeholder(cfg.DB.Driver), os.DirFS(cfg.DB.MigrationsFolder)); err != nil {
			_ = db.Close()
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	st := store.NewStore(db, cfg.DB.Driver)
	defer func() {
		if err := st.Close(); err != nil {
			zap.S().Errorw("closing database", "error", err)
		}
	}()

	querySrv, err := services.NewQueryService(st, cat, cfg.Query)
	if err != nil {
		return err
	}
	defer querySrv.Close()
	h := handlers.New(querySrv)

	srv, err := server.NewServer(cfg, func(router *gin.RouterGroup) {
		v1.RegisterHandlers(router, h)
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("starting server", "port", cfg.Server.HTTPPort, "mode", cfg.Server.ServerMode, "resources", cat.Names())
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		zap.S().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Stop(shutdownCtx)
	}

	return nil
}

func validateConfiguration(cfg *config.Configuration) error {
	if cfg.Server.HTTPPort < 1 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http-port %d: must be between 1 and 65535", cfg.Server.HTTPPort)
	}

	if cfg.Server.ServerMode != server.DevServer && cfg.Server.ServerMode != server.ProductionServer {
		return fmt.Errorf("invalid server mode %q: must be 'dev' or 'prod'", cfg.Server.ServerMode)
	}

	if cfg.Auth.Enabled && cfg.Auth.JWTFilePath == "" {
		return errors.New("authentication-jwt-filepath must be set when authentication is enabled")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level %q: must be one of debug, info, warn, error", cfg.Log.Level)
	}

	if cfg.Log.Format != "console" && cfg.Log.Format != "json" {
		return fmt.Errorf("invalid log-format %q: must be 'console' or 'json'", cfg.Log.Format)
	}

	if cfg.DB.Driver != store.DriverDuckDB && cfg.DB.Driver != store.DriverPostgres {
		return fmt.Errorf("invalid db-driver %q: must be 'duckdb' or 'pgx'", cfg.DB.Driver)
	}

	if cfg.DB.DSN == "" {
		return errors.New("db-dsn must be set")
	}

	if cfg.CatalogFile == "" {
		return errors.New("catalog-file must be set")
	}

	if err := validateQuery(cfg.Query); err != nil {
		return err
	}

	return cfg.Validate()
}

func validateQuery(q config.Query) error {
	if q.MaxDepth < 1 {
		return fmt.Errorf("invalid query-max-depth %d: must be at least 1", q.MaxDepth)
	}

	if q.MaxInputLength < 1 {
		return fmt.Errorf("invalid query-max-input-length %d: must be at least 1", q.MaxInputLength)
	}

	if q.Workers < 1 {
		return fmt.Errorf("invalid query-workers %d: must be at least 1", q.Workers)
	}

	if q.MaxLimit == 0 {
		return errors.New("invalid query-max-limit: must be at least 1")
	}

	if q.DefaultLimit > q.MaxLimit {
		return fmt.Errorf("query-default-limit %d cannot be greater than query-max-limit %d", q.DefaultLimit, q.MaxLimit)
	}

	return nil
}
