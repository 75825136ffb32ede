package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/schemareflect/internal/schema"
)

// PostgresClient manages the single connection to PostgreSQL
type PostgresClient struct {
	conn      *pgx.Conn
	extractor *Extractor
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c := &PostgresClient{conn: conn}
	c.extractor = NewExtractor(c)
	return c, nil
}

// Dialect returns PostgreSQL conventions
func (c *PostgresClient) Dialect() Dialect {
	return PostgresDialect{}
}

// Ping checks the connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Exec runs one statement. Statements without arguments go over the simple protocol.
func (c *PostgresClient) Exec(ctx context.Context, stmt string) error {
	_, err := c.conn.Exec(ctx, stmt)
	return err
}

// FetchAll runs a query and collects rows as column-name maps
func (c *PostgresClient) FetchAll(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// TableNames lists base tables in a schema
func (c *PostgresClient) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.extractor.TableNames(ctx, schemaName)
}

// ReflectTable reads one table from the catalog
func (c *PostgresClient) ReflectTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error) {
	return c.extractor.ExtractTable(ctx, schemaName, tableName)
}

// Close closes the database connection
func (c *PostgresClient) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// GetConnection returns the underlying connection
func (c *PostgresClient) GetConnection() *pgx.Conn {
	return c.conn
}

var _ Engine = (*PostgresClient)(nil)
