//go:build integration

package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemareflect/internal/testhelpers"
)

const postgresFixture = `
DROP TABLE IF EXISTS public.orders;
DROP TABLE IF EXISTS public.users;
CREATE TABLE public.users (
	id SERIAL PRIMARY KEY,
	username VARCHAR(50) NOT NULL UNIQUE,
	email TEXT,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
);
CREATE TABLE public.orders (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	user_id INTEGER REFERENCES public.users (id),
	tags TEXT[]
);
CREATE INDEX idx_orders_user ON public.orders (user_id);
`

func TestPostgresExtraction(t *testing.T) {
	testDB := testhelpers.GetPostgres(t)
	ctx := context.Background()

	engine, err := Open(ctx, testDB.URL)
	require.NoError(t, err)
	defer engine.Close(ctx)

	require.NoError(t, engine.Exec(ctx, postgresFixture))

	names, err := engine.TableNames(ctx, "public")
	require.NoError(t, err)
	assert.Subset(t, names, []string{"orders", "users"})

	users, err := engine.ReflectTable(ctx, "public", "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "username", "email", "created_at"}, users.ColumnNames())
	assert.Equal(t, []string{"id"}, users.PrimaryKey)

	id, _ := users.Column("id")
	assert.True(t, id.IsPrimary)
	assert.True(t, id.Autoincrement)

	username, _ := users.Column("username")
	assert.Equal(t, "varchar(50)", username.Type)
	assert.True(t, username.IsUnique)

	createdAt, _ := users.Column("created_at")
	assert.Equal(t, "timestamptz", createdAt.Type)

	orders, err := engine.ReflectTable(ctx, "public", "orders")
	require.NoError(t, err)
	tags, _ := orders.Column("tags")
	assert.Equal(t, "text[]", tags.Type)
	require.Len(t, orders.Relations, 1)
	assert.Equal(t, "users", orders.Relations[0].TargetTable)
	require.Len(t, orders.Indexes, 1)
	assert.Equal(t, "idx_orders_user", orders.Indexes[0].Name)
}

func TestPostgresTempTable(t *testing.T) {
	testDB := testhelpers.GetPostgres(t)
	ctx := context.Background()

	engine, err := Open(ctx, testDB.URL)
	require.NoError(t, err)
	defer engine.Close(ctx)

	d := engine.Dialect()
	schemaName, tableName, prefixes := d.TempTable("scratch")
	require.NoError(t, engine.Exec(ctx, CreateTableSQL(d, schemaName, tableName, prefixes, nil)))
	require.NoError(t, engine.Exec(ctx, AddColumnSQL(d, schemaName, tableName, ColumnDef{Name: "id", Type: "INTEGER"})))

	table, err := engine.ReflectTable(ctx, schemaName, tableName)
	require.NoError(t, err)
	assert.Equal(t, "pg_temp", table.Schema)
	assert.Equal(t, []string{"id"}, table.ColumnNames())

	_, err = engine.ReflectTable(ctx, "public", "does_not_exist")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestMySQLExtraction(t *testing.T) {
	testDB := testhelpers.GetMySQL(t)
	ctx := context.Background()

	engine, err := Open(ctx, testDB.URL)
	require.NoError(t, err)
	defer engine.Close(ctx)

	d := engine.Dialect()
	assert.Equal(t, "reflect_test", d.DefaultSchema())

	require.NoError(t, engine.Exec(ctx, `DROP TABLE IF EXISTS "users"`))
	require.NoError(t, engine.Exec(ctx, `CREATE TABLE "users" (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE
	)`))

	users, err := engine.ReflectTable(ctx, d.DefaultSchema(), "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "username"}, users.ColumnNames())
	assert.Equal(t, []string{"id"}, users.PrimaryKey)

	id, _ := users.Column("id")
	assert.True(t, id.Autoincrement)
	username, _ := users.Column("username")
	assert.True(t, username.IsUnique)

	schemaName, tableName, prefixes := d.TempTable("users_temp")
	require.NoError(t, engine.Exec(ctx, CreateTableSQL(d, schemaName, tableName, prefixes, nil,
		ColumnDef{Name: "id", Type: "INT"})))

	temp, err := engine.ReflectTable(ctx, schemaName, tableName)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, temp.ColumnNames())

	_, err = engine.ReflectTable(ctx, d.DefaultSchema(), "does_not_exist")
	assert.ErrorIs(t, err, ErrTableNotFound)
}
