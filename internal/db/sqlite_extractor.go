package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tordrt/schemareflect/internal/schema"
)

// SQLiteExtractor handles schema extraction from SQLite
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{client: client}
}

func (e *SQLiteExtractor) pragma(ctx context.Context, schemaName, name, arg string) ([]map[string]any, error) {
	d := SQLiteDialect{}
	if schemaName == "" {
		schemaName = d.DefaultSchema()
	}
	query := fmt.Sprintf("PRAGMA %s.%s(%s)", d.QuoteIdent(schemaName), name, d.QuoteIdent(arg))
	return e.client.FetchAll(ctx, query)
}

// TableNames returns the tables of an attached database
func (e *SQLiteExtractor) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	if schemaName == "" {
		schemaName = SQLiteDialect{}.DefaultSchema()
	}

	query := fmt.Sprintf(`
		SELECT name
		FROM %s.sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%%'
		ORDER BY name
	`, SQLiteDialect{}.QuoteIdent(schemaName))

	rows, err := e.client.Conn().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

// ExtractTable extracts all information for a single table
func (e *SQLiteExtractor) ExtractTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error) {
	table := &schema.Table{Schema: schemaName, Name: tableName}

	columns, pk, err := e.extractColumns(ctx, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, schema.Qualify(schemaName, tableName))
	}
	table.Columns = columns
	table.PrimaryKey = pk
	markPrimary(table)

	// INTEGER PRIMARY KEY aliases the rowid
	if len(pk) == 1 {
		for i := range table.Columns {
			if table.Columns[i].Name == pk[0] && strings.EqualFold(table.Columns[i].Type, "INTEGER") {
				table.Columns[i].Autoincrement = true
			}
		}
	}

	indexes, err := e.extractIndexes(ctx, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes
	markUnique(table)

	relations, err := e.extractRelations(ctx, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	table.Relations = relations

	return table, nil
}

// extractColumns reads table_info: cid, name, type, notnull, dflt_value, pk.
// The primary key is returned in key order, which pk encodes as 1..n.
func (e *SQLiteExtractor) extractColumns(ctx context.Context, schemaName, tableName string) ([]schema.Column, []string, error) {
	rows, err := e.pragma(ctx, schemaName, "table_info", tableName)
	if err != nil {
		return nil, nil, err
	}

	type pkCol struct {
		order int
		name  string
	}
	var pkColumns []pkCol

	columns := make([]schema.Column, 0, len(rows))
	for _, row := range rows {
		col := schema.Column{
			Name:     stringValue(row["name"]),
			Type:     stringValue(row["type"]),
			Nullable: intValue(row["notnull"]) == 0,
		}
		if row["dflt_value"] != nil {
			def := stringValue(row["dflt_value"])
			col.DefaultValue = &def
		}
		if order := intValue(row["pk"]); order > 0 {
			pkColumns = append(pkColumns, pkCol{order: order, name: col.Name})
			col.Nullable = false
		}
		columns = append(columns, col)
	}

	sort.Slice(pkColumns, func(i, j int) bool { return pkColumns[i].order < pkColumns[j].order })
	var pk []string
	for _, p := range pkColumns {
		pk = append(pk, p.name)
	}

	return columns, pk, nil
}

// extractRelations reads foreign_key_list
func (e *SQLiteExtractor) extractRelations(ctx context.Context, schemaName, tableName string) ([]schema.Relation, error) {
	rows, err := e.pragma(ctx, schemaName, "foreign_key_list", tableName)
	if err != nil {
		return nil, err
	}

	var relations []schema.Relation
	for _, row := range rows {
		relations = append(relations, schema.Relation{
			SourceColumn: stringValue(row["from"]),
			TargetTable:  stringValue(row["table"]),
			TargetColumn: stringValue(row["to"]),
			Cardinality:  "N:1",
		})
	}

	return relations, nil
}

// extractIndexes reads index_list and index_info, skipping automatic primary key indexes
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, schemaName, tableName string) ([]schema.Index, error) {
	rows, err := e.pragma(ctx, schemaName, "index_list", tableName)
	if err != nil {
		return nil, err
	}

	var indexes []schema.Index
	for _, row := range rows {
		name := stringValue(row["name"])
		if stringValue(row["origin"]) == "pk" {
			continue
		}

		infoRows, err := e.pragma(ctx, schemaName, "index_info", name)
		if err != nil {
			return nil, err
		}

		var columns []string
		for _, info := range infoRows {
			if info["name"] != nil {
				columns = append(columns, stringValue(info["name"]))
			}
		}

		if len(columns) > 0 {
			indexes = append(indexes, schema.Index{
				Name:     name,
				IsUnique: intValue(row["unique"]) == 1,
				Columns:  columns,
			})
		}
	}

	sort.Slice(indexes, func(i, j int) bool { return indexes[i].Name < indexes[j].Name })
	return indexes, nil
}
