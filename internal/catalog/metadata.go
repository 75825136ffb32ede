// Package catalog holds reflected table structures per schema and the registry of
// synthesized entities built on top of them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tordrt/schemareflect/internal/db"
	"github.com/tordrt/schemareflect/internal/schema"
)

// Reflector is the part of db.Engine that reads the catalog
type Reflector interface {
	TableNames(ctx context.Context, schemaName string) ([]string, error)
	ReflectTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error)
}

var _ Reflector = (db.Engine)(nil)

// SchemaMetadata is the set of reflected tables of one namespace.
// Name is the logical name callers use ("default" for the unscoped namespace);
// DBName is the namespace the database knows. Tables are keyed by DBName.table.
type SchemaMetadata struct {
	Name   string
	DBName string
	tables map[string]*schema.Table
}

// NewSchemaMetadata returns empty metadata for one namespace
func NewSchemaMetadata(name, dbName string) *SchemaMetadata {
	return &SchemaMetadata{
		Name:   name,
		DBName: dbName,
		tables: make(map[string]*schema.Table),
	}
}

// Key returns the qualified key a table is stored under
func (m *SchemaMetadata) Key(tableName string) string {
	return schema.Qualify(m.DBName, tableName)
}

// ReflectTable reads one table and stores it, replacing only that table's snapshot
func (m *SchemaMetadata) ReflectTable(ctx context.Context, r Reflector, tableName string) (*schema.Table, error) {
	table, err := r.ReflectTable(ctx, m.DBName, tableName)
	if err != nil {
		return nil, err
	}
	m.tables[m.Key(tableName)] = table
	return table.Clone(), nil
}

// ReflectAll reads every table of the namespace. Tables that fail are skipped and
// reported together; the ones that succeed are kept.
func (m *SchemaMetadata) ReflectAll(ctx context.Context, r Reflector) ([]string, error) {
	names, err := r.TableNames(ctx, m.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in %s: %w", m.Name, err)
	}

	var reflected []string
	var errs []error
	for _, name := range names {
		if _, err := m.ReflectTable(ctx, r, name); err != nil {
			errs = append(errs, fmt.Errorf("failed to reflect table %s: %w", name, err))
			continue
		}
		reflected = append(reflected, name)
	}
	return reflected, errors.Join(errs...)
}

// Table returns a copy of a reflected table
func (m *SchemaMetadata) Table(tableName string) (*schema.Table, bool) {
	table, ok := m.tables[m.Key(tableName)]
	if !ok {
		return nil, false
	}
	return table.Clone(), true
}

// Tables returns the qualified keys of all reflected tables, sorted
func (m *SchemaMetadata) Tables() []string {
	keys := make([]string, 0, len(m.tables))
	for k := range m.tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Forget drops a table's snapshot
func (m *SchemaMetadata) Forget(tableName string) {
	delete(m.tables, m.Key(tableName))
}

// Len returns the number of reflected tables
func (m *SchemaMetadata) Len() int {
	return len(m.tables)
}
