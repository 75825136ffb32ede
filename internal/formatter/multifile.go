package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MultiFileFormatter writes an overview plus one file per entity into a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes the entities to multiple files
func (f *MultiFileFormatter) Format(entities []Entity) error {
	if err := os.MkdirAll(f.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	sorted := make([]Entity, len(entities))
	copy(sorted, entities)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Table.QualifiedName() < sorted[j].Table.QualifiedName()
	})

	if err := f.writeOverview(sorted); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, e := range sorted {
		if err := f.writeEntityFile(e); err != nil {
			return fmt.Errorf("failed to write entity file for %s: %w", e.Table.QualifiedName(), err)
		}
	}
	return nil
}

// FormatStatus writes _status with the recorded failures
func (f *MultiFileFormatter) FormatStatus(status map[string]string) error {
	if err := os.MkdirAll(f.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(filepath.Join(f.OutputDir, "_status"+f.fileExtension()))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if f.OutputFormat == FormatMarkdown {
		return NewMarkdownFormatter(file).FormatStatus(status)
	}
	return NewTextFormatter(file).FormatStatus(status)
}

func (f *MultiFileFormatter) writeOverview(entities []Entity) error {
	file, err := os.Create(filepath.Join(f.OutputDir, "_overview"+f.fileExtension()))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if f.OutputFormat == FormatMarkdown {
		_, _ = fmt.Fprintf(file, "# Entity Overview\n\n")
		_, _ = fmt.Fprintf(file, "Each entity has a corresponding file: `<schema>.<table>%s`\n\n", f.fileExtension())
		_, _ = fmt.Fprintf(file, "## Entities\n\n")
	} else {
		_, _ = fmt.Fprintf(file, "ENTITY OVERVIEW\n")
		_, _ = fmt.Fprintf(file, "Each entity has a file: <schema>.<table>%s\n\n", f.fileExtension())
	}

	for _, e := range entities {
		name := e.Table.QualifiedName()
		if f.OutputFormat == FormatMarkdown {
			name = "**" + name + "**"
			_, _ = fmt.Fprint(file, "- ")
		}
		_, _ = fmt.Fprint(file, name)

		if len(e.Table.Relations) > 0 {
			targets := make([]string, 0, len(e.Table.Relations))
			for _, rel := range e.Table.Relations {
				targets = append(targets, rel.TargetTable)
			}
			_, _ = fmt.Fprintf(file, " (references: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintln(file)
	}
	return nil
}

// writeEntityFile writes a single entity to its own file
func (f *MultiFileFormatter) writeEntityFile(e Entity) error {
	file, err := os.Create(filepath.Join(f.OutputDir, e.Table.QualifiedName()+f.fileExtension()))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if f.OutputFormat == FormatMarkdown {
		NewMarkdownFormatter(file).FormatEntity(e)
		return nil
	}
	NewTextFormatter(file).formatEntity(e)
	return nil
}

func (f *MultiFileFormatter) fileExtension() string {
	if f.OutputFormat == FormatMarkdown {
		return ".md"
	}
	return ".txt"
}
