package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/schemareflect/internal/schema"
)

// MSSQLExtractor reads table structure from the SQL Server catalog views
type MSSQLExtractor struct {
	client *MSSQLClient
}

// NewMSSQLExtractor creates a new SQL Server schema extractor
func NewMSSQLExtractor(client *MSSQLClient) *MSSQLExtractor {
	return &MSSQLExtractor{client: client}
}

// objectRef returns the catalog prefix and the OBJECT_ID() argument for a table.
// Temporary tables live in tempdb and are addressed as tempdb..#name.
func objectRef(schemaName, tableName string) (catalog, objectName string) {
	d := MSSQLDialect{}
	if strings.HasPrefix(tableName, "#") {
		return "tempdb.", "tempdb.." + tableName
	}
	if schemaName == "" {
		schemaName = d.DefaultSchema()
	}
	return "", QualifiedName(d, schemaName, tableName)
}

// TableNames returns the user tables of a schema
func (e *MSSQLExtractor) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	if schemaName == "" {
		schemaName = MSSQLDialect{}.DefaultSchema()
	}

	query := `
		SET NOCOUNT ON;
		SELECT t.name
		FROM sys.tables t
		WHERE SCHEMA_NAME(t.schema_id) = @schema AND t.is_ms_shipped = 0
		ORDER BY t.name
	`

	rows, err := e.client.Conn().QueryContext(ctx, query, sql.Named("schema", schemaName))
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

// ExtractTable extracts all information for a single table
func (e *MSSQLExtractor) ExtractTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error) {
	catalog, object := objectRef(schemaName, tableName)
	table := &schema.Table{Schema: schemaName, Name: tableName}

	columns, err := e.extractColumns(ctx, catalog, object)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, schema.Qualify(schemaName, tableName))
	}
	table.Columns = columns

	indexes, pk, err := e.extractIndexes(ctx, catalog, object)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.PrimaryKey = pk
	table.Indexes = indexes
	markPrimary(table)
	markUnique(table)

	if catalog == "" {
		relations, err := e.extractRelations(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("failed to extract relations: %w", err)
		}
		table.Relations = relations
	}

	return table, nil
}

func (e *MSSQLExtractor) extractColumns(ctx context.Context, catalog, object string) ([]schema.Column, error) {
	query := fmt.Sprintf(`
		SET NOCOUNT ON;
		SELECT
			c.name,
			tp.name,
			c.max_length,
			c.precision,
			c.scale,
			c.is_nullable,
			c.is_identity,
			OBJECT_DEFINITION(c.default_object_id)
		FROM %[1]ssys.columns c
		INNER JOIN %[1]ssys.types tp ON c.user_type_id = tp.user_type_id
		WHERE c.object_id = OBJECT_ID(@object)
		ORDER BY c.column_id
	`, catalog)

	rows, err := e.client.Conn().QueryContext(ctx, query, sql.Named("object", object))
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var typeName string
		var maxLength int16
		var precision, scale uint8
		var defaultVal sql.NullString

		if err := rows.Scan(&col.Name, &typeName, &maxLength, &precision, &scale,
			&col.Nullable, &col.Autoincrement, &defaultVal); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}

		col.Type = formatMSSQLType(typeName, maxLength, precision, scale)
		if defaultVal.Valid {
			col.DefaultValue = &defaultVal.String
		}
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// formatMSSQLType renders a sys.types name with its length or precision the way it is written in DDL
func formatMSSQLType(typeName string, maxLength int16, precision, scale uint8) string {
	switch typeName {
	case "varchar", "char", "varbinary", "binary":
		if maxLength == -1 {
			return typeName + "(max)"
		}
		return fmt.Sprintf("%s(%d)", typeName, maxLength)
	case "nvarchar", "nchar":
		if maxLength == -1 {
			return typeName + "(max)"
		}
		return fmt.Sprintf("%s(%d)", typeName, maxLength/2)
	case "decimal", "numeric":
		return fmt.Sprintf("%s(%d,%d)", typeName, precision, scale)
	default:
		return typeName
	}
}

func (e *MSSQLExtractor) extractIndexes(ctx context.Context, catalog, object string) ([]schema.Index, []string, error) {
	query := fmt.Sprintf(`
		SET NOCOUNT ON;
		SELECT
			i.name,
			i.is_unique,
			i.is_primary_key,
			c.name
		FROM %[1]ssys.indexes i
		INNER JOIN %[1]ssys.index_columns ic ON i.object_id = ic.object_id AND i.index_id = ic.index_id
		INNER JOIN %[1]ssys.columns c ON ic.object_id = c.object_id AND ic.column_id = c.column_id
		WHERE i.object_id = OBJECT_ID(@object) AND ic.is_included_column = 0
		ORDER BY i.name, ic.key_ordinal
	`, catalog)

	rows, err := e.client.Conn().QueryContext(ctx, query, sql.Named("object", object))
	if err != nil {
		return nil, nil, fmt.Errorf("query indexes: %w", err)
	}
	defer rows.Close()

	var pk []string
	var indexes []schema.Index
	byName := map[string]int{}

	for rows.Next() {
		var name, column string
		var isUnique, isPrimary bool
		if err := rows.Scan(&name, &isUnique, &isPrimary, &column); err != nil {
			return nil, nil, fmt.Errorf("scan index row: %w", err)
		}
		if isPrimary {
			pk = append(pk, column)
			continue
		}

		i, ok := byName[name]
		if !ok {
			i = len(indexes)
			byName[name] = i
			indexes = append(indexes, schema.Index{Name: name, IsUnique: isUnique})
		}
		indexes[i].Columns = append(indexes[i].Columns, column)
	}

	return indexes, pk, rows.Err()
}

func (e *MSSQLExtractor) extractRelations(ctx context.Context, object string) ([]schema.Relation, error) {
	query := `
		SET NOCOUNT ON;
		SELECT
			COL_NAME(fkc.parent_object_id, fkc.parent_column_id) AS source_column,
			OBJECT_NAME(fk.referenced_object_id) AS target_table,
			COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id) AS target_column
		FROM sys.foreign_keys fk
		INNER JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
		WHERE fk.parent_object_id = OBJECT_ID(@object)
		ORDER BY fk.name, fkc.constraint_column_id
	`

	rows, err := e.client.Conn().QueryContext(ctx, query, sql.Named("object", object))
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var relations []schema.Relation
	for rows.Next() {
		var rel schema.Relation
		if err := rows.Scan(&rel.SourceColumn, &rel.TargetTable, &rel.TargetColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key row: %w", err)
		}
		rel.Cardinality = "N:1"
		relations = append(relations, rel)
	}

	return relations, rows.Err()
}
