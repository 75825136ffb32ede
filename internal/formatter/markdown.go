package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemareflect/internal/schema"
)

// MarkdownFormatter formats entities as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the entities in markdown format
func (f *MarkdownFormatter) Format(entities []Entity) error {
	_, _ = fmt.Fprintln(f.writer, "# Entities")
	_, _ = fmt.Fprintln(f.writer)

	for _, e := range entities {
		f.FormatEntity(e)
	}
	return nil
}

// FormatStatus writes the recorded failures as a list
func (f *MarkdownFormatter) FormatStatus(status map[string]string) error {
	_, _ = fmt.Fprintln(f.writer, "# Status")
	_, _ = fmt.Fprintln(f.writer)

	if len(status) == 0 {
		_, _ = fmt.Fprintln(f.writer, "No failures recorded.")
		return nil
	}
	for _, k := range sortedKeys(status) {
		_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", k, status[k])
	}
	return nil
}

// FormatEntity formats a single entity (exported for use by the directory formatter)
func (f *MarkdownFormatter) FormatEntity(e Entity) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", e.Table.QualifiedName())

	if e.Keyless {
		_, _ = fmt.Fprintln(f.writer, "Key: all columns (no primary key)")
	} else {
		_, _ = fmt.Fprintf(f.writer, "Key: %s\n", strings.Join(e.Keys, ", "))
	}
	_, _ = fmt.Fprintln(f.writer)

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)

	for _, col := range e.Table.Columns {
		constraintStr := f.formatConstraints(col, e)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.Name, col.Type, constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, col.Type)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(e.Table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range e.Table.Relations {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s (%s)\n",
				rel.SourceColumn,
				rel.TargetTable,
				rel.TargetColumn,
				rel.Cardinality)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(e.Table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Indexes")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range e.Table.Indexes {
			if idx.IsUnique {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique\n", idx.Name, strings.Join(idx.Columns, ", "))
			} else {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s)\n", idx.Name, strings.Join(idx.Columns, ", "))
			}
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func (f *MarkdownFormatter) formatConstraints(col schema.Column, e Entity) string {
	var constraints []string

	if col.IsPrimary {
		constraints = append(constraints, "PK")
	} else if e.IsKey(col.Name) && !e.Keyless {
		constraints = append(constraints, "KEY")
	}

	if col.Autoincrement {
		constraints = append(constraints, "AUTOINCREMENT")
	}

	if col.IsUnique {
		constraints = append(constraints, "UNIQUE")
	}

	if !col.Nullable {
		constraints = append(constraints, "NOT NULL")
	}

	if col.DefaultValue != nil {
		constraints = append(constraints, fmt.Sprintf("DEFAULT %s", *col.DefaultValue))
	}

	return strings.Join(constraints, ", ")
}
