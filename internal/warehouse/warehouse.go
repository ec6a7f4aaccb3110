// Package warehouse loads extracted metrics into a column store behind a
// narrow Executor seam. Postgres is the production backend, sqlite covers
// local development, and the in-memory executor backs tests and mock runs.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// Executor is the minimal surface the deployer and the analysis agent need
// from a SQL backend. Placeholder returns the dialect's bind marker for the
// 1-based argument position. ListTables and ListColumns feed the analysis
// agent's prompt with what actually exists.
type Executor interface {
	ExecDDL(ctx context.Context, ddl string) error
	Exec(ctx context.Context, stmt string, args ...any) (int64, error)
	Query(ctx context.Context, stmt string, args ...any) ([]map[string]any, error)
	TableExists(ctx context.Context, table string) (bool, error)
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, table string) ([]string, error)
	EnsureNamespace(ctx context.Context, database, schemaName string) error
	Placeholder(i int) string
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend  string // "postgres", "sqlite", or "memory"
	DSN      string // postgres connection string
	Path     string // sqlite database file
	Database string // reported in results; selected by DSN/path
	Schema   string // namespace for postgres, reported elsewhere
}

// Open builds the configured executor.
func Open(cfg Config) (Executor, error) {
	switch cfg.Backend {
	case "postgres":
		return NewPostgres(cfg.DSN, cfg.Schema)
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("warehouse: unknown backend %q", cfg.Backend)
	}
}

// Namespace identifiers reach DDL unparameterized, so they are validated.
var namespaceRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validNamespace(name string) error {
	if !namespaceRe.MatchString(name) {
		return fmt.Errorf("warehouse: invalid namespace %q", name)
	}
	return nil
}

// scanRows flattens a result set into one map per row. []byte values become
// strings so callers can feed rows straight into JSON.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[c] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
