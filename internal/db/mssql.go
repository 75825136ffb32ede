package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver

	"github.com/tordrt/schemareflect/internal/schema"
)

// MSSQLClient manages the connection to SQL Server
type MSSQLClient struct {
	sqlClient
	extractor *MSSQLExtractor
}

// NewMSSQLClient creates a new SQL Server client from a sqlserver:// URL
func NewMSSQLClient(ctx context.Context, connString string) (*MSSQLClient, error) {
	db, err := sql.Open("sqlserver", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	base, err := newSQLClient(ctx, db)
	if err != nil {
		return nil, err
	}

	c := &MSSQLClient{sqlClient: base}
	c.extractor = NewMSSQLExtractor(c)
	return c, nil
}

// Dialect returns SQL Server conventions
func (c *MSSQLClient) Dialect() Dialect {
	return MSSQLDialect{}
}

// TableNames lists user tables in a schema
func (c *MSSQLClient) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.extractor.TableNames(ctx, schemaName)
}

// ReflectTable reads one table; #-prefixed names are looked up in tempdb
func (c *MSSQLClient) ReflectTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error) {
	return c.extractor.ExtractTable(ctx, schemaName, tableName)
}

var _ Engine = (*MSSQLClient)(nil)
