package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/schemareflect/internal/schema"
)

const varcharType = "varchar"

// Extractor reads table structure from the PostgreSQL catalog
type Extractor struct {
	client *PostgresClient
}

// NewExtractor creates a new schema extractor
func NewExtractor(client *PostgresClient) *Extractor {
	return &Extractor{client: client}
}

// resolveSchema maps the pg_temp alias to this session's real temp namespace,
// since information_schema reports temp tables under pg_temp_N.
func (e *Extractor) resolveSchema(ctx context.Context, schemaName string) (string, error) {
	if schemaName != "pg_temp" {
		return schemaName, nil
	}

	var nspname string
	err := e.client.GetConnection().QueryRow(ctx,
		`SELECT nspname FROM pg_namespace WHERE oid = pg_my_temp_schema()`).Scan(&nspname)
	if errors.Is(err, pgx.ErrNoRows) {
		return schemaName, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve temp schema: %w", err)
	}
	return nspname, nil
}

// TableNames returns the base tables of a schema
func (e *Extractor) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	nsp, err := e.resolveSchema(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type IN ('BASE TABLE', 'LOCAL TEMPORARY')
		ORDER BY table_name
	`

	rows, err := e.client.GetConnection().Query(ctx, query, nsp)
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
func (e *Extractor) ExtractTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error) {
	nsp, err := e.resolveSchema(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	table := &schema.Table{Schema: schemaName, Name: tableName}

	columns, err := e.extractColumns(ctx, nsp, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, schema.Qualify(schemaName, tableName))
	}
	table.Columns = columns

	pk, err := e.extractPrimaryKey(ctx, nsp, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	table.PrimaryKey = pk
	markPrimary(table)

	relations, err := e.extractRelations(ctx, nsp, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	table.Relations = relations

	indexes, err := e.extractIndexes(ctx, nsp, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	return table, nil
}

// normalizePostgresType maps verbose SQL type names to commonly-used PostgreSQL equivalents
func normalizePostgresType(dataType, udtName string, charMaxLength *int) string {
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "time with time zone":
		return "timetz"
	case "time without time zone":
		return "time"
	case "character varying":
		if charMaxLength != nil {
			return fmt.Sprintf("varchar(%d)", *charMaxLength)
		}
		return varcharType
	case "character":
		if charMaxLength != nil {
			return fmt.Sprintf("char(%d)", *charMaxLength)
		}
		return "char"
	case "ARRAY":
		// udt_name has underscore prefix for arrays (e.g., "_text" for text[], "_int4" for integer[])
		if len(udtName) > 0 && udtName[0] == '_' {
			return normalizeUdtName(udtName[1:]) + "[]"
		}
		return "array"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}

// normalizeUdtName converts PostgreSQL internal type names to more readable forms
func normalizeUdtName(udtName string) string {
	switch udtName {
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "int2":
		return "smallint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	default:
		return udtName
	}
}

func (e *Extractor) extractColumns(ctx context.Context, nsp, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.column_default,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.constraint_column_usage ccu
					ON tc.constraint_name = ccu.constraint_name
					AND tc.table_schema = ccu.table_schema
				WHERE tc.table_schema = $1
					AND tc.table_name = $2
					AND tc.constraint_type = 'UNIQUE'
					AND ccu.column_name = c.column_name
			) THEN true ELSE false END as is_unique,
			c.udt_name,
			c.character_maximum_length,
			c.is_identity = 'YES' as is_identity
		FROM information_schema.columns c
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, nsp, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable string
		var defaultVal *string
		var dataType string
		var udtName string
		var charMaxLength *int
		var isIdentity bool

		if err := rows.Scan(&col.Name, &dataType, &nullable, &defaultVal, &col.IsUnique, &udtName, &charMaxLength, &isIdentity); err != nil {
			return nil, err
		}

		col.Nullable = (nullable == "YES")
		col.DefaultValue = defaultVal
		col.Type = normalizePostgresType(dataType, udtName, charMaxLength)
		col.Autoincrement = isIdentity || (defaultVal != nil && strings.HasPrefix(*defaultVal, "nextval("))

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

func (e *Extractor) extractPrimaryKey(ctx context.Context, nsp, tableName string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = $1
			AND table_name = $2
			AND constraint_name IN (
				SELECT constraint_name
				FROM information_schema.table_constraints
				WHERE table_schema = $1
					AND table_name = $2
					AND constraint_type = 'PRIMARY KEY'
			)
		ORDER BY ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, nsp, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return nil, err
		}
		pk = append(pk, colName)
	}

	return pk, rows.Err()
}

func (e *Extractor) extractRelations(ctx context.Context, nsp, tableName string) ([]schema.Relation, error) {
	query := `
		SELECT
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, nsp, tableName)
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

func (e *Extractor) extractIndexes(ctx context.Context, nsp, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			array_agg(a.attname::text ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, nsp, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		if err := rows.Scan(&idx.Name, &idx.IsUnique, &idx.Columns); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

// markPrimary flags the columns that belong to the table's primary key
func markPrimary(table *schema.Table) {
	for _, pk := range table.PrimaryKey {
		for i := range table.Columns {
			if table.Columns[i].Name == pk {
				table.Columns[i].IsPrimary = true
			}
		}
	}
}
