package store

import (
	"database/sql"
	"fmt"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "pgx"
)

// NewDB opens a database with the given driver.
// For DuckDB use ":memory:" for an in-memory database (useful for testing).
func NewDB(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverDuckDB, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverDuckDB {
		// DuckDB is single-writer; a single connection prevents idle pool
		// connections from blocking WAL checkpointing.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	// Keep DuckDB extensions next to the database file, ~/.duckdb may be read-only.
	if driver == DriverDuckDB && dsn != ":memory:" && dsn != "" {
		extDir := filepath.Dir(dsn)
		if _, err := conn.Exec(fmt.Sprintf("SET extension_directory = '%s'", extDir)); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("setting extension directory: %w", err)
		}
	}

	return conn, nil
}

// Placeholder returns the bind parameter format of driver.
func Placeholder(driver string) sq.PlaceholderFormat {
	if driver == DriverPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// ObjectFunc returns the SQL function building a JSON object with driver.
func ObjectFunc(driver string) string {
	if driver == DriverPostgres {
		return "json_build_object"
	}
	return "json_object"
}
