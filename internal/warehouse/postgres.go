package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresExecutor runs against postgres through database/sql with the pgx
// driver. The target database comes from the DSN; schemaName is applied as
// search_path so rendered DDL stays unqualified.
type PostgresExecutor struct {
	db     *sql.DB
	schema string
}

func NewPostgres(dsn, schemaName string) (*PostgresExecutor, error) {
	if dsn == "" {
		return nil, fmt.Errorf("warehouse: empty postgres dsn")
	}
	if schemaName != "" {
		if err := validNamespace(schemaName); err != nil {
			return nil, err
		}
		if !strings.Contains(dsn, "search_path=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "search_path=" + strings.ToLower(schemaName)
		}
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("warehouse: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("warehouse: ping postgres: %w", err)
	}
	return &PostgresExecutor{db: db, schema: strings.ToLower(schemaName)}, nil
}

func (p *PostgresExecutor) ExecDDL(ctx context.Context, ddl string) error {
	_, err := p.db.ExecContext(ctx, ddl)
	return err
}

func (p *PostgresExecutor) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	res, err := p.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *PostgresExecutor) Query(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	rows, err := p.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// TableExists checks the catalog within the active search_path. Unquoted
// identifiers land lowercased in postgres, so the lookup folds case.
func (p *PostgresExecutor) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `SELECT EXISTS (
                SELECT 1 FROM information_schema.tables
                WHERE table_name = lower($1) AND table_schema = current_schema()
        )`
	var exists bool
	if err := p.db.QueryRowContext(ctx, q, table).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (p *PostgresExecutor) ListTables(ctx context.Context) ([]string, error) {
	const q = `SELECT table_name FROM information_schema.tables
                WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
                ORDER BY table_name`
	return p.scanNames(ctx, q)
}

func (p *PostgresExecutor) ListColumns(ctx context.Context, table string) ([]string, error) {
	const q = `SELECT column_name FROM information_schema.columns
                WHERE table_name = lower($1) AND table_schema = current_schema()
                ORDER BY ordinal_position`
	return p.scanNames(ctx, q, table)
}

func (p *PostgresExecutor) scanNames(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// EnsureNamespace creates the schema when one is configured. Database
// creation has no guarded in-session form here; the DSN selects it.
func (p *PostgresExecutor) EnsureNamespace(ctx context.Context, database, schemaName string) error {
	_ = database
	if schemaName == "" {
		return nil
	}
	if err := validNamespace(schemaName); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+strings.ToLower(schemaName))
	return err
}

func (p *PostgresExecutor) Placeholder(i int) string { return fmt.Sprintf("$%d", i) }

func (p *PostgresExecutor) Close() error { return p.db.Close() }
