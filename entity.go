package schemareflect

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/tordrt/schemareflect/internal/schema"
)

// columnAdder is the owner an entity forwards AddColumn to
type columnAdder interface {
	AddColumn(ctx context.Context, col ColumnDescriptor, table, schemaName string) error
}

// Entity is the in-memory representation of one reflected table.
// Its key columns always exist in its column set. DDL goes through the owning Instance.
type Entity struct {
	table   string
	meta    *SchemaMetadata
	columns []schema.Column
	keys    []string
	keyless bool
	owner   columnAdder
}

// newEntity binds a reflected table. Without explicit keys the discovered primary key
// is used; with neither, construction fails with ErrNoPrimaryKey.
func newEntity(meta *SchemaMetadata, t *schema.Table, keys []string) (*Entity, error) {
	if len(keys) == 0 {
		keys = t.PrimaryKey
	}
	if len(keys) == 0 {
		return nil, ErrNoPrimaryKey
	}
	for _, k := range keys {
		if _, ok := t.Column(k); !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidKey, k)
		}
	}

	return &Entity{
		table:   t.Name,
		meta:    meta,
		columns: append([]schema.Column(nil), t.Columns...),
		keys:    append([]string(nil), keys...),
	}, nil
}

// refresh replaces the column snapshot. Explicit keys are kept; a keyless entity
// takes the new column set as its key.
func (e *Entity) refresh(t *schema.Table) {
	e.columns = append([]schema.Column(nil), t.Columns...)
	if e.keyless {
		e.keys = t.ColumnNames()
	}
}

// Name returns the table name
func (e *Entity) Name() string { return e.table }

// Keyless reports whether the key is the synthetic all-columns key
func (e *Entity) Keyless() bool { return e.keyless }

// Columns returns the reflected columns
func (e *Entity) Columns() []schema.Column {
	return append([]schema.Column(nil), e.columns...)
}

// GeneralColumns lists name, type and nullability per column
func (e *Entity) GeneralColumns() []GeneralColumn {
	return generalColumns(e.columns)
}

// FullColumns lists columns in the form AddTable accepts
// A keyless entity flags no column, so a copy of it is keyless too.
func (e *Entity) FullColumns() []ColumnDescriptor {
	if e.keyless {
		return fullColumns(e.GeneralColumns(), nil)
	}
	return fullColumns(e.GeneralColumns(), e.keys)
}

// ColumnNames lists column names in ordinal order
func (e *Entity) ColumnNames() []string {
	return namesOnly(e.GeneralColumns())
}

// KeyColumns returns the key column list
func (e *Entity) KeyColumns() []string {
	return append([]string(nil), e.keys...)
}

// Schema returns the owning schema
func (e *Entity) Schema() SchemaRef {
	return SchemaRef{Name: e.meta.Name, Metadata: e.meta}
}

// Describe returns the columns in the requested shape
func (e *Entity) Describe(mode ColumnMode) (any, error) {
	return describe(e, mode)
}

// AddColumn adds a column to this entity's table, exactly like Instance.AddColumn
func (e *Entity) AddColumn(ctx context.Context, col ColumnDescriptor) error {
	if e.owner == nil {
		return opError("add_column", e.meta.Name, e.table, ErrNotConnected, nil)
	}
	return e.owner.AddColumn(ctx, col, e.table, e.meta.Name)
}

// Fingerprint is a digest of the column structure and key list.
// Two entities share a fingerprint exactly when their structure is identical.
func (e *Entity) Fingerprint() string {
	var b strings.Builder
	for _, c := range e.columns {
		b.WriteString(c.Name)
		b.WriteByte(0)
		b.WriteString(c.Type)
		b.WriteByte(0)
		b.WriteString(strconv.FormatBool(c.Nullable))
		b.WriteByte('\n')
	}
	b.WriteByte(1)
	for _, k := range e.keys {
		b.WriteString(k)
		b.WriteByte(0)
	}
	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

var (
	_ ColumnIntrospectable = (*Entity)(nil)
	_ ColumnMutable        = (*Entity)(nil)
)
