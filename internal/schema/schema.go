// Package schema models warehouse table designs and renders their DDL.
// Everything here is pure: the same design renders byte-identical SQL, which
// is what makes guarded deployment and schema diffing in logs trustworthy.
package schema

import (
	"fmt"
	"strings"
)

// Column describes one column of a warehouse table. Constraints is the
// rendered tail of the column line ("NOT NULL", "PRIMARY KEY", ...).
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Constraints string `json:"constraints,omitempty"`
}

// Table is an ordered column list under a name.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Relationship declares a foreign key. It renders inside the owning table.
type Relationship struct {
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// Index declares a guarded secondary index.
type Index struct {
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

// Clustering recommends physical co-location keys for a table. Column-store
// engines take it as a clustering hint; here it renders as a composite index.
type Clustering struct {
	Table string   `json:"table"`
	Keys  []string `json:"keys"`
}

// Design is a complete schema: tables in creation order plus relationships
// and physical-layout hints.
type Design struct {
	Tables        []Table        `json:"tables"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Indexes       []Index        `json:"indexes,omitempty"`
	Clustering    []Clustering   `json:"clustering_recommendations,omitempty"`
}

// TableDDL renders one guarded CREATE TABLE statement, foreign keys included.
func (d Design) TableDDL(t Table) string {
	lines := make([]string, 0, len(t.Columns)+2)
	for _, c := range t.Columns {
		line := "  " + c.Name + " " + c.Type
		if c.Constraints != "" {
			line += " " + c.Constraints
		}
		lines = append(lines, line)
	}
	for _, r := range d.Relationships {
		if r.FromTable != t.Name {
			continue
		}
		lines = append(lines, fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s(%s)", r.FromColumn, r.ToTable, r.ToColumn))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n);", t.Name, strings.Join(lines, ",\n"))
}

// IndexDDL renders the guarded secondary-index statements: declared indexes
// first, then one composite index per clustering hint.
func (d Design) IndexDDL() []string {
	var out []string
	for _, ix := range d.Indexes {
		out = append(out, indexStatement(ix.Table, ix.Columns))
	}
	for _, cl := range d.Clustering {
		out = append(out, indexStatement(cl.Table, cl.Keys))
	}
	return out
}

func indexStatement(table string, cols []string) string {
	name := "idx_" + table + "_" + strings.Join(cols, "_")
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);", name, table, strings.Join(cols, ", "))
}

// DDL renders the whole design: table blocks separated by blank lines, then
// the index statements.
func (d Design) DDL() string {
	blocks := make([]string, 0, len(d.Tables)+1)
	for _, t := range d.Tables {
		blocks = append(blocks, d.TableDDL(t))
	}
	if idx := d.IndexDDL(); len(idx) > 0 {
		blocks = append(blocks, strings.Join(idx, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}
