package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"
)

// migrationFile matches "<version>_<name>.sql", e.g. "001_users.sql".
var migrationFile = regexp.MustCompile(`^(\d+)_[\w-]+\.sql$`)

type migration struct {
	version int
	name    string
}

// Run applies the migrations of fsys not yet recorded in schema_migrations, in version order.
// Each migration runs in its own transaction.
func Run(ctx context.Context, db *sql.DB, placeholder sq.PlaceholderFormat, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name VARCHAR NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	pending, err := list(fsys)
	if err != nil {
		return err
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	logger := zap.S().Named("migrations")
	for _, m := range pending {
		if _, ok := applied[m.version]; ok {
			continue
		}

		body, err := fs.ReadFile(fsys, m.name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", m.name, err)
		}

		if err := apply(ctx, db, placeholder, m, string(body)); err != nil {
			return fmt.Errorf("applying migration %s: %w", m.name, err)
		}
		logger.Infow("migration applied", "version", m.version, "name", m.name)
	}

	return nil
}

func list(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	var out []migration
	seen := map[int]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := migrationFile.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", e.Name(), err)
		}
		if other, ok := seen[version]; ok {
			return nil, fmt.Errorf("migrations %s and %s share version %d", other, e.Name(), version)
		}
		seen[version] = e.Name()
		out = append(out, migration{version: version, name: e.Name()})
	}

	slices.SortFunc(out, func(a, b migration) int { return a.version - b.version })
	return out, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]struct{}, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := map[int]struct{}{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = struct{}{}
	}
	return applied, rows.Err()
}

func apply(ctx context.Context, db *sql.DB, placeholder sq.PlaceholderFormat, m migration, body string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}

	query, args, err := sq.Insert("schema_migrations").
		Columns("version", "name").
		Values(m.version, m.name).
		PlaceholderFormat(placeholder).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return tx.Commit()
}
