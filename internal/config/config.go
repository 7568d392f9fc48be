package config

import (
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Configuration is the root configuration of the service. Defaults come from the
// `default` tags, constraints that do not depend on other fields from the `validate` tags.
type Configuration struct {
	Server Server
	Auth   Auth
	Log    Log
	DB     DB
	Query  Query
	// CatalogFile is the YAML file describing the queryable resources.
	CatalogFile string `default:"catalog.yaml"`
}

type Server struct {
	HTTPPort   int    `default:"8000" validate:"min=1,max=65535"`
	ServerMode string `default:"dev" validate:"oneof=dev prod"`
}

type Auth struct {
	Enabled     bool `default:"false"`
	JWTFilePath string
}

type Log struct {
	Level  string `default:"info" validate:"oneof=debug info warn error"`
	Format string `default:"console" validate:"oneof=console json"`
}

type DB struct {
	// Driver is either "duckdb" or "pgx".
	Driver string `default:"duckdb" validate:"oneof=duckdb pgx"`
	DSN    string `default:":memory:"`
	// MigrationsFolder holds numbered *.sql files applied at startup. Empty disables migrations.
	MigrationsFolder string
}

type Query struct {
	MaxDepth             int    `default:"10" validate:"min=1"`
	MaxInputLength       int    `default:"4096" validate:"min=1"`
	AllowUnsafeOperators bool   `default:"false"`
	DefaultLimit         uint64 `default:"100"`
	MaxLimit             uint64 `default:"1000"`
	// Workers bounds the number of database queries run at the same time.
	Workers              int    `default:"4" validate:"min=1"`
}

func NewConfigurationWithOptionsAndDefaults(opts ...func(c *Configuration)) *Configuration {
	c := &Configuration{}
	if err := defaults.Set(c); err != nil {
		panic(err)
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

// Validate checks the tag constraints of c.
func (c *Configuration) Validate() error {
	return validator.New().Struct(c)
}

func WithDB(driver, dsn string) func(c *Configuration) {
	return func(c *Configuration) {
		c.DB.Driver = driver
		c.DB.DSN = dsn
	}
}

func WithCatalogFile(path string) func(c *Configuration) {
	return func(c *Configuration) {
		c.CatalogFile = path
	}
}
