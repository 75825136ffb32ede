package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/tordrt/schemareflect/internal/schema"
)

// MySQLClient manages the connection to MySQL
type MySQLClient struct {
	sqlClient
	database  string
	extractor *MySQLExtractor
}

// NewMySQLClient creates a new MySQL client.
// ANSI_QUOTES is appended to the session sql_mode so generated DDL can double-quote identifiers.
func NewMySQLClient(ctx context.Context, dsn string) (*MySQLClient, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["sql_mode"] = "CONCAT(@@sql_mode, ',ANSI_QUOTES')"

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	base, err := newSQLClient(ctx, sql.OpenDB(connector))
	if err != nil {
		return nil, err
	}

	c := &MySQLClient{sqlClient: base, database: cfg.DBName}
	c.extractor = NewMySQLExtractor(c)
	return c, nil
}

// Dialect returns MySQL conventions bound to the connected database
func (c *MySQLClient) Dialect() Dialect {
	return MySQLDialect{Database: c.database}
}

// TableNames lists base tables in a database
func (c *MySQLClient) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.extractor.TableNames(ctx, c.schemaOrDefault(schemaName))
}

// ReflectTable reads one table, temporary tables included
func (c *MySQLClient) ReflectTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error) {
	table, err := c.extractor.ExtractTable(ctx, c.schemaOrDefault(schemaName), tableName)
	if err != nil {
		return nil, err
	}
	table.Schema = schemaName
	return table, nil
}

func (c *MySQLClient) schemaOrDefault(schemaName string) string {
	if schemaName == "" {
		return c.database
	}
	return schemaName
}

var _ Engine = (*MySQLClient)(nil)
