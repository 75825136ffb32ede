package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemareflect/internal/schema"
)

// TextFormatter formats entities as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the entities in compact text format
func (f *TextFormatter) Format(entities []Entity) error {
	for i, e := range entities {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between entities
		}
		f.formatEntity(e)
	}
	return nil
}

// FormatStatus writes one "key: message" line per recorded failure
func (f *TextFormatter) FormatStatus(status map[string]string) error {
	if len(status) == 0 {
		_, _ = fmt.Fprintln(f.writer, "OK")
		return nil
	}
	for _, k := range sortedKeys(status) {
		_, _ = fmt.Fprintf(f.writer, "%s: %s\n", k, status[k])
	}
	return nil
}

func (f *TextFormatter) formatEntity(e Entity) {
	keyStr := fmt.Sprintf(" (KEY: %s)", strings.Join(e.Keys, ", "))
	if e.Keyless {
		keyStr = " (KEY: all columns)"
	}
	_, _ = fmt.Fprintf(f.writer, "ENTITY %s%s\n", e.Table.QualifiedName(), keyStr)

	for _, col := range e.Table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatColumn(col))
	}

	if len(e.Table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range e.Table.Relations {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s (%s)\n", rel.SourceColumn, rel.TargetTable, rel.TargetColumn, rel.Cardinality)
		}
	}

	if len(e.Table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range e.Table.Indexes {
			unique := ""
			if idx.IsUnique {
				unique = " UNIQUE"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
		}
	}
}

func (f *TextFormatter) formatColumn(col schema.Column) string {
	parts := []string{col.Name + ":", col.Type}

	if col.Autoincrement {
		parts = append(parts, "AUTOINCREMENT")
	}

	if col.IsUnique {
		parts = append(parts, "UNIQUE")
	}

	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}

	if col.DefaultValue != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", *col.DefaultValue))
	}

	return strings.Join(parts, " ")
}
