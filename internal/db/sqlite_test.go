package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sqliteFixture = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT,
	status TEXT DEFAULT 'active'
);
CREATE TABLE products (
	sku TEXT NOT NULL,
	region TEXT NOT NULL,
	category TEXT,
	PRIMARY KEY (region, sku)
);
CREATE INDEX idx_category ON products (category);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	user_id INTEGER REFERENCES users (id)
);
`

func newTestSQLite(t *testing.T) *SQLiteClient {
	t.Helper()
	ctx := context.Background()

	client, err := NewSQLiteClient(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(ctx) })

	require.NoError(t, client.Exec(ctx, sqliteFixture))
	return client
}

func TestSQLiteTableNames(t *testing.T) {
	client := newTestSQLite(t)

	names, err := client.TableNames(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "products", "users"}, names)
}

func TestSQLiteReflectTable(t *testing.T) {
	client := newTestSQLite(t)
	ctx := context.Background()

	users, err := client.ReflectTable(ctx, "main", "users")
	require.NoError(t, err)
	assert.Equal(t, "main.users", users.QualifiedName())
	assert.Equal(t, []string{"id", "username", "email", "status"}, users.ColumnNames())
	assert.Equal(t, []string{"id"}, users.PrimaryKey)

	id, ok := users.Column("id")
	require.True(t, ok)
	assert.True(t, id.IsPrimary)
	assert.True(t, id.Autoincrement)
	assert.False(t, id.Nullable)

	username, _ := users.Column("username")
	assert.True(t, username.IsUnique)
	assert.False(t, username.Nullable)

	status, _ := users.Column("status")
	require.NotNil(t, status.DefaultValue)
	assert.Equal(t, "'active'", *status.DefaultValue)

	products, err := client.ReflectTable(ctx, "main", "products")
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "sku"}, products.PrimaryKey)
	require.Len(t, products.Indexes, 1)
	assert.Equal(t, "idx_category", products.Indexes[0].Name)
	assert.Equal(t, []string{"category"}, products.Indexes[0].Columns)

	orders, err := client.ReflectTable(ctx, "main", "orders")
	require.NoError(t, err)
	require.Len(t, orders.Relations, 1)
	assert.Equal(t, "user_id", orders.Relations[0].SourceColumn)
	assert.Equal(t, "users", orders.Relations[0].TargetTable)
}

func TestSQLiteReflectMissingTable(t *testing.T) {
	client := newTestSQLite(t)

	_, err := client.ReflectTable(context.Background(), "main", "nope")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestSQLiteTempTablesShareSession(t *testing.T) {
	client := newTestSQLite(t)
	ctx := context.Background()

	stmt := CreateTableSQL(client.Dialect(), "temp", "scratch", []string{"TEMPORARY"}, nil,
		ColumnDef{Name: "id", Type: "INTEGER"})
	require.NoError(t, client.Exec(ctx, stmt))
	require.NoError(t, client.Exec(ctx, AddColumnSQL(client.Dialect(), "temp", "scratch", ColumnDef{Name: "note", Type: "TEXT"})))

	names, err := client.TableNames(ctx, "temp")
	require.NoError(t, err)
	assert.Equal(t, []string{"scratch"}, names)

	table, err := client.ReflectTable(ctx, "temp", "scratch")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "note"}, table.ColumnNames())
	assert.Empty(t, table.PrimaryKey)

	require.NoError(t, client.Exec(ctx, DropTableSQL(client.Dialect(), "temp", "scratch")))
	_, err = client.ReflectTable(ctx, "temp", "scratch")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestSQLiteFetchAll(t *testing.T) {
	client := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, client.Exec(ctx, `INSERT INTO users (id, username) VALUES (1, 'ada'), (2, 'grace')`))

	rows, err := client.FetchAll(ctx, `SELECT id, username FROM users WHERE id > ? ORDER BY id`, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, intValue(rows[0]["id"]))
	assert.Equal(t, "grace", stringValue(rows[1]["username"]))
}
