package schemareflect

import (
	"context"

	"github.com/tordrt/schemareflect/internal/schema"
)

// BoundTable addresses a table through its Instance and resolves the entity on every
// call, so it keeps working across AddTable, DropTable and re-reflection.
// Introspection on a table without an entity returns empty results.
type BoundTable struct {
	inst   *Instance
	table  string
	schema string
}

func (b *BoundTable) entity() (*Entity, bool) {
	if b.schema != "" {
		return b.inst.EntityIn(b.schema, b.table)
	}
	return b.inst.Entity(b.table)
}

// Name returns the table name
func (b *BoundTable) Name() string { return b.table }

// Entity returns the entity currently bound to the table
func (b *BoundTable) Entity() (*Entity, bool) { return b.entity() }

func (b *BoundTable) Columns() []schema.Column {
	if e, ok := b.entity(); ok {
		return e.Columns()
	}
	return nil
}

func (b *BoundTable) GeneralColumns() []GeneralColumn {
	if e, ok := b.entity(); ok {
		return e.GeneralColumns()
	}
	return nil
}

func (b *BoundTable) FullColumns() []ColumnDescriptor {
	if e, ok := b.entity(); ok {
		return e.FullColumns()
	}
	return nil
}

func (b *BoundTable) ColumnNames() []string {
	if e, ok := b.entity(); ok {
		return e.ColumnNames()
	}
	return nil
}

func (b *BoundTable) KeyColumns() []string {
	if e, ok := b.entity(); ok {
		return e.KeyColumns()
	}
	return nil
}

// Schema returns the owning schema of the entity, or just the configured name without one
func (b *BoundTable) Schema() SchemaRef {
	if e, ok := b.entity(); ok {
		return e.Schema()
	}
	meta, _ := b.inst.registry.Schema(b.schema)
	return SchemaRef{Name: b.schema, Metadata: meta}
}

// Describe returns the columns in the requested shape, or ErrEntityNotFound
func (b *BoundTable) Describe(mode ColumnMode) (any, error) {
	e, ok := b.entity()
	if !ok {
		return nil, opError("describe", b.schema, b.table, ErrEntityNotFound, nil)
	}
	return e.Describe(mode)
}

// AddColumn is Instance.AddColumn for this table
func (b *BoundTable) AddColumn(ctx context.Context, col ColumnDescriptor) error {
	return b.inst.AddColumn(ctx, col, b.table, b.schema)
}

var (
	_ ColumnIntrospectable = (*BoundTable)(nil)
	_ ColumnMutable        = (*BoundTable)(nil)
)
