package schemareflect

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tordrt/schemareflect/internal/catalog"
	"github.com/tordrt/schemareflect/internal/db"
	"github.com/tordrt/schemareflect/internal/types"
)

// AddTableOptions configures AddTable
type AddTableOptions struct {
	// Prefixes are emitted between CREATE and TABLE verbatim, e.g. "TEMPORARY"
	Prefixes []string
	// Postfixes are emitted after the column list verbatim
	Postfixes []string
	// Schema is the logical target schema; empty means the current schema
	Schema string
	// Recreate drops an existing table of the same name first
	Recreate bool
}

// MimicOptions configures MimicTable
type MimicOptions struct {
	// Target is the new table name; defaults to "<source>_temp"
	Target string
	// Schema is the logical target schema; empty creates a session-scoped temporary table
	Schema string
	// SourceSchema pins the source entity's schema; empty looks the source up by name
	SourceSchema string
	// Recreate drops an existing target table first
	Recreate bool
}

// AddColumn adds one column to a table and re-reflects it.
//
// schemaName becomes the current schema; empty uses the current one. An unknown
// abstract type fails with ErrTypeNotFound before any DDL. A failed statement fails
// with ErrDDLExecution and the table is not re-reflected. A failed re-reflection
// fails with ErrReflectionDesync. The entity of the table, if any, gets the new column
// set and keeps its keys; a keyless entity's key grows with the columns.
func (i *Instance) AddColumn(ctx context.Context, col ColumnDescriptor, table, schemaName string) error {
	if err := i.connected("add_column", schemaName, table); err != nil {
		return err
	}
	meta := i.schemaFor(schemaName)
	i.registry.SetCurrent(meta.Name)
	return i.fail(ctx, i.addColumn(ctx, meta, table, col, false))
}

// addColumn is the shared column path of AddColumn and AddTable.
// AddTable skips the per-column re-reflection and reflects once when all columns exist.
func (i *Instance) addColumn(ctx context.Context, meta *SchemaMetadata, table string, col ColumnDescriptor, skipReflect bool) error {
	const op = "add_column"
	d := i.engine.Dialect()

	native, ok := types.Resolve(d.Kind(), col.ColType)
	if !ok {
		return opError(op, meta.Name, table, ErrTypeNotFound, typeNotFound(col.ColType))
	}

	stmt := db.AddColumnSQL(d, meta.DBName, table, db.ColumnDef{
		Name:    col.ColName,
		Type:    string(native),
		NotNull: col.NotNull() && d.NotNullOnAdd(),
	})
	if err := i.exec(ctx, stmt); err != nil {
		return opError(op, meta.Name, table, ErrDDLExecution, err)
	}
	if skipReflect {
		return nil
	}

	t, err := meta.ReflectTable(ctx, i.engine, table)
	if err != nil {
		return opError(op, meta.Name, table, ErrReflectionDesync, err)
	}
	i.metrics.Reflection(ctx, meta.Name)

	if entity, ok := i.registry.GetIn(meta.Name, table); ok {
		entity.refresh(t)
	}
	return nil
}

// AddTable creates a table from column descriptors and synthesizes its entity.
//
// Columns are added one statement at a time; a failure part way leaves the partial
// table in place. Key columns are the descriptors flagged IsPrimary; without any, the
// entity uses all columns as its key. Every type is resolved before the first
// statement, so ErrTypeNotFound never leaves DDL behind. A table that was created but
// cannot be reflected fails with ErrReflectionDesync.
func (i *Instance) AddTable(ctx context.Context, table string, cols []ColumnDescriptor, opts AddTableOptions) (*Entity, error) {
	if err := i.connected("add_table", opts.Schema, table); err != nil {
		return nil, err
	}
	meta := i.schemaFor(opts.Schema)
	if opts.Schema != "" {
		i.registry.SetCurrent(meta.Name)
	}

	entity, err := i.addTable(ctx, meta, table, cols, opts.Prefixes, opts.Postfixes, opts.Recreate)
	if err != nil {
		return nil, i.fail(ctx, err)
	}
	return entity, nil
}

func (i *Instance) addTable(ctx context.Context, meta *SchemaMetadata, table string, cols []ColumnDescriptor, prefixes, postfixes []string, recreate bool) (*Entity, error) {
	const op = "add_table"
	d := i.engine.Dialect()

	if len(cols) == 0 {
		return nil, opError(op, meta.Name, table, ErrDDLExecution, errors.New("table needs at least one column"))
	}

	var keys []string
	for _, col := range cols {
		if _, ok := types.Resolve(d.Kind(), col.ColType); !ok {
			return nil, opError(op, meta.Name, table, ErrTypeNotFound, typeNotFound(col.ColType))
		}
		if col.IsPrimary {
			keys = append(keys, col.ColName)
		}
	}

	if recreate {
		if err := i.dropTable(ctx, meta, table, op); err != nil {
			return nil, err
		}
	}

	inline := inlineColumns(d, cols)
	defs := make([]db.ColumnDef, inline)
	for n, col := range cols[:inline] {
		native, _ := types.Resolve(d.Kind(), col.ColType)
		defs[n] = db.ColumnDef{Name: col.ColName, Type: string(native), NotNull: col.NotNull()}
	}
	rest := cols[inline:]

	stmt := db.CreateTableSQL(d, meta.DBName, table, prefixes, postfixes, defs...)
	if err := i.exec(ctx, stmt); err != nil {
		return nil, opError(op, meta.Name, table, ErrDDLExecution, err)
	}

	for _, col := range rest {
		if err := i.addColumn(ctx, meta, table, col, true); err != nil {
			return nil, err
		}
	}

	entity, err := i.synth.Synthesize(ctx, meta, table, keys)
	if err != nil {
		return nil, synthesisError(op, meta.Name, table, err, ErrReflectionDesync)
	}
	i.registry.Put(meta.Name, table, entity)

	i.logger.Info("Table created",
		zap.String("schema", meta.Name),
		zap.String("table", table),
		zap.Int("columns", len(cols)),
		zap.Strings("keys", entity.KeyColumns()))
	return entity, nil
}

// inlineColumns counts the leading columns that go into CREATE TABLE. Dialects without
// empty tables need at least one; dialects that cannot add NOT NULL columns take every
// column up to the last NOT NULL one.
func inlineColumns(d db.Dialect, cols []ColumnDescriptor) int {
	if d.SupportsEmptyTables() {
		return 0
	}
	n := 1
	if !d.NotNullOnAdd() {
		for idx, col := range cols {
			if col.NotNull() {
				n = max(n, idx+1)
			}
		}
	}
	return n
}

// MimicTable copies the column structure of an existing entity into a new table.
//
// Without a target schema the copy is a temporary table of the current session,
// registered under the "session" schema and discarded by Close. With a schema it is
// a regular table created through AddTable. Autoincrement, defaults and constraints
// other than NOT NULL are not carried over.
func (i *Instance) MimicTable(ctx context.Context, source string, opts MimicOptions) (*Entity, error) {
	const op = "mimic_table"
	if err := i.connected(op, opts.Schema, source); err != nil {
		return nil, err
	}

	var src *Entity
	var ok bool
	if opts.SourceSchema != "" {
		src, ok = i.registry.GetIn(opts.SourceSchema, source)
	} else {
		src, ok = i.registry.Get(source)
	}
	if !ok {
		return nil, i.fail(ctx, opError(op, opts.SourceSchema, source, ErrEntityNotFound, nil))
	}

	target := opts.Target
	if target == "" {
		target = source + "_temp"
	}
	cols := src.FullColumns()

	if opts.Schema != "" {
		return i.AddTable(ctx, target, cols, AddTableOptions{Schema: opts.Schema, Recreate: opts.Recreate})
	}

	namespace, tempName, prefixes := i.engine.Dialect().TempTable(target)
	meta, ok := i.registry.Schema(SessionSchemaName)
	if !ok {
		meta = catalog.NewSchemaMetadata(SessionSchemaName, namespace)
		i.registry.AddSchema(meta)
	}

	entity, err := i.addTable(ctx, meta, tempName, cols, prefixes, nil, opts.Recreate)
	if err != nil {
		return nil, i.fail(ctx, err)
	}
	return entity, nil
}

// ReflectTable re-reads one table and replaces its entity without issuing DDL.
// keys override the discovered primary key. Calling it repeatedly is safe.
func (i *Instance) ReflectTable(ctx context.Context, table, schemaName string, keys []string) (*Entity, error) {
	const op = "reflect_table"
	if err := i.connected(op, schemaName, table); err != nil {
		return nil, err
	}
	meta := i.schemaFor(schemaName)
	i.registry.SetCurrent(meta.Name)

	entity, err := i.synth.Synthesize(ctx, meta, table, keys)
	if err != nil {
		return nil, i.fail(ctx, synthesisError(op, meta.Name, table, err, ErrReflection))
	}
	i.registry.Put(meta.Name, table, entity)
	return entity, nil
}

// DropTable discards the table's entity and snapshot, then drops it if it exists
func (i *Instance) DropTable(ctx context.Context, table, schemaName string) error {
	const op = "drop_table"
	if err := i.connected(op, schemaName, table); err != nil {
		return err
	}
	return i.fail(ctx, i.dropTable(ctx, i.schemaFor(schemaName), table, op))
}

// dropTable removes the entity before the DROP so no entity outlives its table
func (i *Instance) dropTable(ctx context.Context, meta *SchemaMetadata, table, op string) error {
	i.registry.Remove(meta.Name, table)
	meta.Forget(table)

	stmt := db.DropTableSQL(i.engine.Dialect(), meta.DBName, table)
	if err := i.exec(ctx, stmt); err != nil {
		return opError(op, meta.Name, table, ErrDDLExecution, err)
	}
	return nil
}
