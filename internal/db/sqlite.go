package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tordrt/schemareflect/internal/schema"
)

// SQLiteClient manages the connection to SQLite.
// The driver is chosen at build time: modernc.org/sqlite by default, mattn/go-sqlite3 with -tags cgo_sqlite.
type SQLiteClient struct {
	sqlClient
	extractor *SQLiteExtractor
}

// NewSQLiteClient creates a new SQLite client. ":memory:" databases live as long as the client.
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	base, err := newSQLClient(ctx, db)
	if err != nil {
		return nil, err
	}

	c := &SQLiteClient{sqlClient: base}
	c.extractor = NewSQLiteExtractor(c)
	return c, nil
}

// Dialect returns SQLite conventions
func (c *SQLiteClient) Dialect() Dialect {
	return SQLiteDialect{}
}

// TableNames lists tables of an attached database (main, temp, ...)
func (c *SQLiteClient) TableNames(ctx context.Context, schemaName string) ([]string, error) {
	return c.extractor.TableNames(ctx, schemaName)
}

// ReflectTable reads one table from an attached database
func (c *SQLiteClient) ReflectTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error) {
	return c.extractor.ExtractTable(ctx, schemaName, tableName)
}

// DriverName reports which SQLite driver this binary was built with
func DriverName() string {
	return sqliteDriverName
}

var _ Engine = (*SQLiteClient)(nil)
