package schemareflect

import (
	"context"
	"fmt"

	"github.com/tordrt/schemareflect/internal/schema"
	"github.com/tordrt/schemareflect/internal/types"
)

// GeneralColumn is the general listing of one column
type GeneralColumn struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// ColumnDescriptor is the full listing of one column and the input of AddColumn and AddTable.
// ColType holds an abstract type name ("int4") or a native spelling ({"native": "INTEGER"}).
// A nil Nullable leaves nullability to the database default.
type ColumnDescriptor struct {
	ColName   string           `json:"col_name" yaml:"col_name"`
	ColType   types.ColumnType `json:"col_type" yaml:"col_type"`
	Nullable  *bool            `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	IsPrimary bool             `json:"is_primary" yaml:"is_primary"`
}

// Column builds a descriptor for an abstract type name
func Column(name, typeName string) ColumnDescriptor {
	return ColumnDescriptor{ColName: name, ColType: types.Abstract(typeName)}
}

// NotNull reports whether the descriptor asks for a NOT NULL column
func (c ColumnDescriptor) NotNull() bool {
	return c.Nullable != nil && !*c.Nullable
}

// ColumnMode selects the shape returned by Describe
type ColumnMode string

const (
	ModeGeneral   ColumnMode = "general"
	ModeFull      ColumnMode = "full"
	ModeNamesOnly ColumnMode = "names-only"
	ModeColumns   ColumnMode = "columns"
)

// ParseColumnMode validates a mode name
func ParseColumnMode(s string) (ColumnMode, error) {
	switch m := ColumnMode(s); m {
	case ModeGeneral, ModeFull, ModeNamesOnly, ModeColumns:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidColumnMode, s)
	}
}

// SchemaRef names the schema that owns an entity
type SchemaRef struct {
	Name     string
	Metadata *SchemaMetadata
}

// ColumnIntrospectable is implemented by *Entity and *BoundTable
type ColumnIntrospectable interface {
	Columns() []schema.Column
	GeneralColumns() []GeneralColumn
	FullColumns() []ColumnDescriptor
	ColumnNames() []string
	KeyColumns() []string
	Schema() SchemaRef
	Describe(mode ColumnMode) (any, error)
}

// ColumnMutable is implemented by *Entity and *BoundTable
type ColumnMutable interface {
	AddColumn(ctx context.Context, col ColumnDescriptor) error
}

func generalColumns(cols []schema.Column) []GeneralColumn {
	out := make([]GeneralColumn, len(cols))
	for i, c := range cols {
		out[i] = GeneralColumn{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
	}
	return out
}

// fullColumns derives the full listing from the general one. Reflected types are
// already engine spellings, so they are carried as native types.
func fullColumns(general []GeneralColumn, keys []string) []ColumnDescriptor {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	out := make([]ColumnDescriptor, len(general))
	for i, g := range general {
		nullable := g.Nullable
		out[i] = ColumnDescriptor{
			ColName:   g.Name,
			ColType:   types.Native(g.Type),
			Nullable:  &nullable,
			IsPrimary: isKey[g.Name],
		}
	}
	return out
}

func namesOnly(general []GeneralColumn) []string {
	out := make([]string, len(general))
	for i, g := range general {
		out[i] = g.Name
	}
	return out
}

func describe(c ColumnIntrospectable, mode ColumnMode) (any, error) {
	switch mode {
	case ModeGeneral:
		return c.GeneralColumns(), nil
	case ModeFull:
		return c.FullColumns(), nil
	case ModeNamesOnly:
		return c.ColumnNames(), nil
	case ModeColumns:
		return c.Columns(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidColumnMode, string(mode))
	}
}
