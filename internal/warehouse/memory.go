package warehouse

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InsertRecord captures one Exec call against the memory backend.
type InsertRecord struct {
	Stmt string
	Args []any
}

// MemoryExecutor records everything it is asked to do. It backs tests and
// the explicit mock warehouse mode; nothing is persisted.
type MemoryExecutor struct {
	mu         sync.Mutex
	tables     map[string][]string // lowercased table name -> column names
	DDLs       []string
	Inserts    []InsertRecord
	Namespaces []string

	// FailExec, when set, is consulted before recording an Exec call.
	FailExec func(stmt string, args []any) error
	// FailDDL, when set, is consulted before recording an ExecDDL call.
	FailDDL func(ddl string) error
	// QueryFn, when set, serves Query calls.
	QueryFn func(stmt string, args []any) ([]map[string]any, error)
}

func NewMemory() *MemoryExecutor {
	return &MemoryExecutor{tables: map[string][]string{}}
}

func (m *MemoryExecutor) ExecDDL(ctx context.Context, ddl string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDDL != nil {
		if err := m.FailDDL(ddl); err != nil {
			return err
		}
	}
	m.DDLs = append(m.DDLs, ddl)
	if name, ok := createdTable(ddl); ok {
		m.tables[strings.ToLower(name)] = tableColumns(ddl)
	}
	return nil
}

// createdTable pulls the table name out of a guarded CREATE TABLE statement.
func createdTable(ddl string) (string, bool) {
	fields := strings.Fields(ddl)
	if len(fields) >= 6 &&
		strings.EqualFold(fields[0], "CREATE") &&
		strings.EqualFold(fields[1], "TABLE") &&
		strings.EqualFold(fields[2], "IF") {
		return strings.TrimSuffix(fields[5], "("), true
	}
	return "", false
}

// tableColumns pulls column names out of a rendered CREATE TABLE body, one
// definition per line, skipping table-level constraint clauses.
func tableColumns(ddl string) []string {
	lines := strings.Split(ddl, "\n")
	if len(lines) < 2 {
		return nil
	}
	var cols []string
	for _, ln := range lines[1:] {
		ln = strings.TrimSuffix(strings.TrimSpace(ln), ",")
		if ln == "" || strings.HasPrefix(ln, ")") {
			continue
		}
		first := strings.Fields(ln)[0]
		switch strings.ToUpper(first) {
		case "FOREIGN", "PRIMARY", "CONSTRAINT", "UNIQUE", "CHECK":
			continue
		}
		cols = append(cols, first)
	}
	return cols
}

func (m *MemoryExecutor) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailExec != nil {
		if err := m.FailExec(stmt, args); err != nil {
			return 0, err
		}
	}
	m.Inserts = append(m.Inserts, InsertRecord{Stmt: stmt, Args: args})
	return 1, nil
}

func (m *MemoryExecutor) Query(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	if m.QueryFn != nil {
		return m.QueryFn(stmt, args)
	}
	return nil, nil
}

func (m *MemoryExecutor) TableExists(ctx context.Context, table string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tables[strings.ToLower(table)]
	return ok, nil
}

func (m *MemoryExecutor) ListTables(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryExecutor) ListColumns(ctx context.Context, table string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cols := m.tables[strings.ToLower(table)]
	return append([]string(nil), cols...), nil
}

func (m *MemoryExecutor) EnsureNamespace(ctx context.Context, database, schemaName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Namespaces = append(m.Namespaces, database+"."+schemaName)
	return nil
}

func (m *MemoryExecutor) Placeholder(i int) string { return "?" }

func (m *MemoryExecutor) Close() error { return nil }
