package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemareflect/internal/db"
	"github.com/tordrt/schemareflect/internal/schema"
)

// stubReflector serves tables from memory
type stubReflector struct {
	tables map[string][]string // "schema.table" -> column names
	calls  int
}

func (s *stubReflector) TableNames(_ context.Context, schemaName string) ([]string, error) {
	var names []string
	for key := range s.tables {
		if t, ok := strings.CutPrefix(key, schemaName+"."); ok {
			names = append(names, t)
		}
	}
	return names, nil
}

func (s *stubReflector) ReflectTable(_ context.Context, schemaName, tableName string) (*schema.Table, error) {
	s.calls++
	cols, ok := s.tables[schema.Qualify(schemaName, tableName)]
	if !ok {
		return nil, db.ErrTableNotFound
	}
	table := &schema.Table{Schema: schemaName, Name: tableName}
	for _, c := range cols {
		table.Columns = append(table.Columns, schema.Column{Name: c, Type: "TEXT", Nullable: true})
	}
	return table, nil
}

func TestReflectTableExtends(t *testing.T) {
	r := &stubReflector{tables: map[string][]string{
		"public.users":  {"id", "name"},
		"public.orders": {"id"},
	}}
	meta := NewSchemaMetadata("public", "public")
	ctx := context.Background()

	_, err := meta.ReflectTable(ctx, r, "users")
	require.NoError(t, err)
	_, err = meta.ReflectTable(ctx, r, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"public.orders", "public.users"}, meta.Tables())

	r.tables["public.users"] = []string{"id", "name", "age"}
	_, err = meta.ReflectTable(ctx, r, "users")
	require.NoError(t, err)

	users, ok := meta.Table("users")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name", "age"}, users.ColumnNames())
	assert.Equal(t, 2, meta.Len())
}

func TestReflectTableFailureKeepsSnapshot(t *testing.T) {
	r := &stubReflector{tables: map[string][]string{"public.users": {"id"}}}
	meta := NewSchemaMetadata("public", "public")
	ctx := context.Background()

	_, err := meta.ReflectTable(ctx, r, "users")
	require.NoError(t, err)

	delete(r.tables, "public.users")
	_, err = meta.ReflectTable(ctx, r, "users")
	assert.True(t, errors.Is(err, db.ErrTableNotFound))

	_, ok := meta.Table("users")
	assert.True(t, ok)
}

func TestReflectAllAndForget(t *testing.T) {
	r := &stubReflector{tables: map[string][]string{
		"main.a":  {"x"},
		"main.b":  {"y"},
		"other.c": {"z"},
	}}
	meta := NewSchemaMetadata("default", "main")

	names, err := meta.ReflectAll(context.Background(), r)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
	assert.Equal(t, []string{"main.a", "main.b"}, meta.Tables())

	meta.Forget("a")
	_, ok := meta.Table("a")
	assert.False(t, ok)
	assert.Equal(t, 1, meta.Len())
}

func TestTableSnapshotsAreCopies(t *testing.T) {
	r := &stubReflector{tables: map[string][]string{"public.users": {"id"}}}
	meta := NewSchemaMetadata("public", "public")

	got, err := meta.ReflectTable(context.Background(), r, "users")
	require.NoError(t, err)
	got.Columns[0].Name = "mutated"

	stored, _ := meta.Table("users")
	assert.Equal(t, "id", stored.Columns[0].Name)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry[string]()
	reg.AddSchema(NewSchemaMetadata("public", "public"))
	reg.AddSchema(NewSchemaMetadata("archive", "archive"))

	assert.Equal(t, []string{"archive", "public"}, reg.Schemas())

	_, ok := reg.Current()
	assert.False(t, ok)
	assert.False(t, reg.SetCurrent("missing"))
	require.True(t, reg.SetCurrent("public"))
	current, ok := reg.Current()
	require.True(t, ok)
	assert.Equal(t, "public", current.Name)

	assert.False(t, reg.Put("missing", "users", "x"))
	require.True(t, reg.Put("public", "users", "public-users"))
	require.True(t, reg.Put("archive", "users", "archive-users"))

	got, ok := reg.Get("users")
	require.True(t, ok)
	assert.Equal(t, "archive-users", got, "last stored wins the name index")

	got, ok = reg.GetIn("public", "users")
	require.True(t, ok)
	assert.Equal(t, "public-users", got)

	reg.Remove("archive", "users")
	got, ok = reg.Get("users")
	require.True(t, ok)
	assert.Equal(t, "public-users", got)

	reg.RemoveSchema("public")
	_, ok = reg.Get("users")
	assert.False(t, ok)
	_, ok = reg.Current()
	assert.False(t, ok)
	assert.Empty(t, reg.Tables("public"))
}

func TestRemoveSchemaFallsBackToOtherSchema(t *testing.T) {
	reg := NewRegistry[string]()
	reg.AddSchema(NewSchemaMetadata("main", "main"))
	reg.AddSchema(NewSchemaMetadata("session", "temp"))
	require.True(t, reg.Put("main", "users", "main-users"))
	require.True(t, reg.Put("session", "users", "session-users"))

	got, _ := reg.Get("users")
	require.Equal(t, "session-users", got)

	reg.RemoveSchema("session")
	got, ok := reg.Get("users")
	require.True(t, ok)
	assert.Equal(t, "main-users", got)
}
