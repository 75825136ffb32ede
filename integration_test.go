//go:build integration

package schemareflect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemareflect/internal/db"
	"github.com/tordrt/schemareflect/internal/schema"
	"github.com/tordrt/schemareflect/internal/testhelpers"
)

const postgresShopFixture = `
DROP TABLE IF EXISTS public.order_items;
DROP TABLE IF EXISTS public.orders;
DROP TABLE IF EXISTS public.products;
DROP TABLE IF EXISTS public.users;
CREATE TABLE public.users (
	id SERIAL PRIMARY KEY,
	username VARCHAR(50) NOT NULL UNIQUE,
	email TEXT NOT NULL,
	status TEXT DEFAULT 'active',
	created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
);
CREATE TABLE public.products (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	price NUMERIC(10, 2)
);
CREATE TABLE public.orders (
	id SERIAL PRIMARY KEY,
	user_id INTEGER REFERENCES public.users (id)
);
CREATE TABLE public.order_items (
	order_id INTEGER REFERENCES public.orders (id),
	product_id INTEGER REFERENCES public.products (id),
	quantity INTEGER
);
CREATE INDEX idx_orders_user ON public.orders (user_id);
`

func openIntegrationInstance(t *testing.T, url string, tables map[string]SchemaSpec, fixture ...string) *Instance {
	t.Helper()
	ctx := context.Background()

	engine, err := db.Open(ctx, url)
	require.NoError(t, err)
	for _, stmt := range fixture {
		require.NoError(t, engine.Exec(ctx, stmt))
	}

	inst, err := New(&Config{ConnString: url, Tables: tables},
		WithName("it"), WithEngine(engine), WithMetrics(testMetrics(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close(ctx) })

	require.NoError(t, inst.Bootstrap(ctx))
	return inst
}

func requireEntity(t *testing.T, inst *Instance, schemaName, table string) *Entity {
	t.Helper()
	e, ok := inst.EntityIn(schemaName, table)
	require.True(t, ok, "entity %s.%s not registered", schemaName, table)
	return e
}

func entityColumn(e *Entity, name string) (schema.Column, bool) {
	for _, c := range e.Columns() {
		if c.Name == name {
			return c, true
		}
	}
	return schema.Column{}, false
}

// hasRelation reflects the table again since entities keep columns only
func hasRelation(t *testing.T, inst *Instance, e *Entity, source, target string) bool {
	t.Helper()
	table, err := inst.engine.ReflectTable(context.Background(), e.Schema().Metadata.DBName, e.Name())
	require.NoError(t, err)
	for _, rel := range table.Relations {
		if rel.SourceColumn == source && rel.TargetTable == target {
			return true
		}
	}
	return false
}

func TestPostgresInstance(t *testing.T) {
	testDB := testhelpers.GetPostgres(t)
	ctx := context.Background()

	inst := openIntegrationInstance(t, testDB.URL, map[string]SchemaSpec{
		"public": WholeSchema(),
	}, postgresShopFixture)
	assert.Empty(t, inst.Status())

	var names []string
	for _, e := range inst.Entities("public") {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"order_items", "orders", "products", "users"}, names)

	users := requireEntity(t, inst, "public", "users")
	assert.Equal(t, []string{"id"}, users.KeyColumns())
	assert.Equal(t, []string{"id", "username", "email", "status", "created_at"}, users.ColumnNames())
	username, ok := entityColumn(users, "username")
	require.True(t, ok)
	assert.True(t, username.IsUnique)

	orders := requireEntity(t, inst, "public", "orders")
	assert.True(t, hasRelation(t, inst, orders, "user_id", "users"))

	items := requireEntity(t, inst, "public", "order_items")
	assert.True(t, items.Keyless())
	assert.Equal(t, []string{"order_id", "product_id", "quantity"}, items.KeyColumns())

	require.NoError(t, inst.AddColumn(ctx, Column("age", "int"), "users", "public"))
	assert.Contains(t, requireEntity(t, inst, "public", "users").ColumnNames(), "age")

	audit, err := inst.AddTable(ctx, "audit", []ColumnDescriptor{
		{ColName: "id", ColType: Column("id", "bigint").ColType, IsPrimary: true},
		Column("at", "timestamp"),
	}, AddTableOptions{Schema: "public", Recreate: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, audit.KeyColumns())

	temp, err := inst.MimicTable(ctx, "users", MimicOptions{SourceSchema: "public"})
	require.NoError(t, err)
	assert.Equal(t, "users_temp", temp.Name())
	assert.Equal(t, users.ColumnNames()[:5], temp.ColumnNames()[:5])

	rows, err := inst.Fetch(ctx, "SELECT count(*) AS n FROM pg_temp.users_temp")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, inst.DropTable(ctx, "audit", "public"))
	_, ok = inst.EntityIn("public", "audit")
	assert.False(t, ok)
}

func TestMySQLInstance(t *testing.T) {
	testDB := testhelpers.GetMySQL(t)
	ctx := context.Background()

	inst := openIntegrationInstance(t, testDB.URL, map[string]SchemaSpec{
		DefaultSchemaName: TablesOf("accounts", "logins"),
	},
		`DROP TABLE IF EXISTS "logins"`,
		`DROP TABLE IF EXISTS "accounts"`,
		`CREATE TABLE "accounts" (
			id INT AUTO_INCREMENT PRIMARY KEY,
			handle VARCHAR(50) NOT NULL UNIQUE,
			kind ENUM('admin', 'member') NOT NULL
		)`,
		`CREATE TABLE "logins" (
			account_id INT,
			at DATETIME,
			FOREIGN KEY (account_id) REFERENCES "accounts" (id)
		)`,
	)
	assert.Empty(t, inst.Status())
	assert.Equal(t, DefaultSchemaName, inst.CurrentSchema())

	accounts := requireEntity(t, inst, DefaultSchemaName, "accounts")
	assert.Equal(t, []string{"id"}, accounts.KeyColumns())
	id, ok := entityColumn(accounts, "id")
	require.True(t, ok)
	assert.True(t, id.Autoincrement)

	logins := requireEntity(t, inst, DefaultSchemaName, "logins")
	assert.True(t, logins.Keyless())
	assert.True(t, hasRelation(t, inst, logins, "account_id", "accounts"))

	require.NoError(t, inst.AddColumn(ctx, ColumnDescriptor{
		ColName:  "score",
		ColType:  Column("score", "int").ColType,
		Nullable: boolPtr(false),
	}, "accounts", ""))
	assert.Contains(t, requireEntity(t, inst, DefaultSchemaName, "accounts").ColumnNames(), "score")

	copyOf, err := inst.MimicTable(ctx, "accounts", MimicOptions{Target: "accounts_copy", Schema: DefaultSchemaName, Recreate: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, copyOf.KeyColumns())
	require.NoError(t, inst.DropTable(ctx, "accounts_copy", ""))
}
