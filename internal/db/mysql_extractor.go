package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/tordrt/schemareflect/internal/schema"
)

// mysqlNoSuchTable is ER_NO_SUCH_TABLE
const mysqlNoSuchTable = 1146

// MySQLExtractor handles schema extraction from MySQL.
// Columns and indexes come from SHOW statements because information_schema
// does not list TEMPORARY tables.
type MySQLExtractor struct {
	client *MySQLClient
}

// NewMySQLExtractor creates a new MySQL schema extractor
func NewMySQLExtractor(client *MySQLClient) *MySQLExtractor {
	return &MySQLExtractor{client: client}
}

// TableNames returns the base tables of a database
func (e *MySQLExtractor) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.Conn().QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

// ExtractTable extracts all information for a single table
func (e *MySQLExtractor) ExtractTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error) {
	table := &schema.Table{Schema: schemaName, Name: tableName}
	qualified := QualifiedName(MySQLDialect{}, schemaName, tableName)

	columns, err := e.extractColumns(ctx, qualified)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlNoSuchTable {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, schema.Qualify(schemaName, tableName))
		}
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, schema.Qualify(schemaName, tableName))
	}
	table.Columns = columns

	pk, indexes, err := e.extractIndexes(ctx, qualified)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.PrimaryKey = pk
	table.Indexes = indexes
	markPrimary(table)
	markUnique(table)

	relations, err := e.extractRelations(ctx, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	table.Relations = relations

	return table, nil
}

// extractColumns reads SHOW COLUMNS: Field, Type, Null, Key, Default, Extra
func (e *MySQLExtractor) extractColumns(ctx context.Context, qualified string) ([]schema.Column, error) {
	rows, err := e.client.FetchAll(ctx, "SHOW COLUMNS FROM "+qualified)
	if err != nil {
		return nil, err
	}

	columns := make([]schema.Column, 0, len(rows))
	for _, row := range rows {
		col := schema.Column{
			Name:          stringValue(row["Field"]),
			Type:          stringValue(row["Type"]),
			Nullable:      stringValue(row["Null"]) == "YES",
			Autoincrement: strings.Contains(strings.ToLower(stringValue(row["Extra"])), "auto_increment"),
		}
		if row["Default"] != nil {
			def := stringValue(row["Default"])
			col.DefaultValue = &def
		}
		columns = append(columns, col)
	}

	return columns, nil
}

// extractIndexes reads SHOW INDEX and splits out the primary key
func (e *MySQLExtractor) extractIndexes(ctx context.Context, qualified string) ([]string, []schema.Index, error) {
	rows, err := e.client.FetchAll(ctx, "SHOW INDEX FROM "+qualified)
	if err != nil {
		return nil, nil, err
	}

	var pk []string
	var indexes []schema.Index
	byName := map[string]int{}

	// rows arrive ordered by Key_name then Seq_in_index
	for _, row := range rows {
		name := stringValue(row["Key_name"])
		column := stringValue(row["Column_name"])
		if name == "PRIMARY" {
			pk = append(pk, column)
			continue
		}

		i, ok := byName[name]
		if !ok {
			i = len(indexes)
			byName[name] = i
			indexes = append(indexes, schema.Index{
				Name:     name,
				IsUnique: intValue(row["Non_unique"]) == 0,
			})
		}
		indexes[i].Columns = append(indexes[i].Columns, column)
	}

	return pk, indexes, nil
}

// extractRelations extracts foreign key relationships
func (e *MySQLExtractor) extractRelations(ctx context.Context, schemaName, tableName string) ([]schema.Relation, error) {
	query := `
		SELECT
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.client.Conn().QueryContext(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var rel schema.Relation
		if err := rows.Scan(&rel.SourceColumn, &rel.TargetTable, &rel.TargetColumn); err != nil {
			return nil, err
		}
		rel.Cardinality = "N:1"
		relations = append(relations, rel)
	}

	return relations, rows.Err()
}

// markUnique flags columns covered by a single-column unique index
func markUnique(table *schema.Table) {
	for _, idx := range table.Indexes {
		if !idx.IsUnique || len(idx.Columns) != 1 {
			continue
		}
		for i := range table.Columns {
			if table.Columns[i].Name == idx.Columns[0] {
				table.Columns[i].IsUnique = true
			}
		}
	}
}
