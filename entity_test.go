package schemareflect

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemareflect/internal/schema"
	"github.com/tordrt/schemareflect/internal/types"
)

func TestNewEntityKeys(t *testing.T) {
	meta := testSchema()
	table := usersTable("public")

	e, err := newEntity(meta, table, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, e.KeyColumns())

	e, err = newEntity(meta, table, []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, e.KeyColumns())

	_, err = newEntity(meta, table, []string{"missing"})
	assert.ErrorIs(t, err, ErrInvalidKey)

	table.PrimaryKey = nil
	_, err = newEntity(meta, table, nil)
	assert.ErrorIs(t, err, ErrNoPrimaryKey)
}

func TestDescribeModes(t *testing.T) {
	e, err := newEntity(testSchema(), usersTable("public"), nil)
	require.NoError(t, err)

	general, err := e.Describe(ModeGeneral)
	require.NoError(t, err)
	assert.Equal(t, []GeneralColumn{
		{Name: "id", Type: "integer", Nullable: false},
		{Name: "name", Type: "text", Nullable: true},
	}, general)

	full, err := e.Describe(ModeFull)
	require.NoError(t, err)
	assert.Equal(t, []ColumnDescriptor{
		{ColName: "id", ColType: types.Native("integer"), Nullable: boolPtr(false), IsPrimary: true},
		{ColName: "name", ColType: types.Native("text"), Nullable: boolPtr(true), IsPrimary: false},
	}, full)

	names, err := e.Describe(ModeNamesOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, names)

	cols, err := e.Describe(ModeColumns)
	require.NoError(t, err)
	assert.Len(t, cols, 2)

	_, err = e.Describe("yaml")
	assert.ErrorIs(t, err, ErrInvalidColumnMode)

	mode, err := ParseColumnMode("names-only")
	require.NoError(t, err)
	assert.Equal(t, ModeNamesOnly, mode)
	_, err = ParseColumnMode("everything")
	assert.ErrorIs(t, err, ErrInvalidColumnMode)
}

func TestFingerprint(t *testing.T) {
	meta := testSchema()
	a, err := newEntity(meta, usersTable("public"), nil)
	require.NoError(t, err)
	b, err := newEntity(meta, usersTable("public"), nil)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)

	rekeyed, err := newEntity(meta, usersTable("public"), []string{"id", "name"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), rekeyed.Fingerprint())

	widened := usersTable("public")
	widened.Columns = append(widened.Columns, schema.Column{Name: "age", Type: "integer", Nullable: true})
	c, err := newEntity(meta, widened, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	c.refresh(usersTable("public"))
	assert.Equal(t, a.Fingerprint(), c.Fingerprint())
}

func TestEntityWithoutOwner(t *testing.T) {
	e, err := newEntity(testSchema(), usersTable("public"), nil)
	require.NoError(t, err)

	err = e.AddColumn(context.Background(), Column("age", "int"))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestColumnDescriptorJSON(t *testing.T) {
	full, err := newEntity(testSchema(), usersTable("public"), nil)
	require.NoError(t, err)

	data, err := json.Marshal(full.FullColumns())
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"col_name": "id", "col_type": {"native": "integer"}, "nullable": false, "is_primary": true},
		{"col_name": "name", "col_type": {"native": "text"}, "nullable": true, "is_primary": false}
	]`, string(data))

	var cols []ColumnDescriptor
	require.NoError(t, json.Unmarshal(data, &cols))
	assert.Equal(t, full.FullColumns(), cols)

	require.NoError(t, json.Unmarshal([]byte(`[{"col_name": "age", "col_type": "int4", "is_primary": false}]`), &cols))
	require.Len(t, cols, 1)
	assert.Equal(t, Column("age", "int4"), cols[0])
	assert.False(t, cols[0].NotNull())
}

func TestOpError(t *testing.T) {
	cause := errors.New("relation does not exist")
	err := opError("add_column", "public", "users", ErrDDLExecution, cause)

	assert.Equal(t, "add_column public.users: DDL execution failure: relation does not exist", err.Error())
	assert.ErrorIs(t, err, ErrDDLExecution)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "ddl", kindLabel(err))

	bare := opError("schema", "audit", "", ErrSchemaNotFound, nil)
	assert.Equal(t, "schema audit: schema not found", bare.Error())
	assert.Equal(t, "schema_not_found", kindLabel(bare))
	assert.Equal(t, "other", kindLabel(cause))
}
