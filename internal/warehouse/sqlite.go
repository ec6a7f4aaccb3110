package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteExecutor is the local-development backend. One file, no namespaces.
type SQLiteExecutor struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteExecutor, error) {
	if path == "" {
		path = "financeflow.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("warehouse: open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("warehouse: ping sqlite: %w", err)
	}
	return &SQLiteExecutor{db: db}, nil
}

func (s *SQLiteExecutor) ExecDDL(ctx context.Context, ddl string) error {
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *SQLiteExecutor) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteExecutor) Query(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func (s *SQLiteExecutor) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`
	var n int
	if err := s.db.QueryRowContext(ctx, q, table).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteExecutor) ListTables(ctx context.Context) ([]string, error) {
	const q = `SELECT name FROM sqlite_master
                WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
                ORDER BY name`
	return s.scanNames(ctx, q)
}

func (s *SQLiteExecutor) ListColumns(ctx context.Context, table string) ([]string, error) {
	const q = `SELECT name FROM pragma_table_info(?) ORDER BY cid`
	return s.scanNames(ctx, q, table)
}

func (s *SQLiteExecutor) scanNames(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
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

// EnsureNamespace is a no-op: a sqlite file is its own database and has no
// schemas.
func (s *SQLiteExecutor) EnsureNamespace(ctx context.Context, database, schemaName string) error {
	return nil
}

func (s *SQLiteExecutor) Placeholder(i int) string { return "?" }

func (s *SQLiteExecutor) Close() error { return s.db.Close() }
