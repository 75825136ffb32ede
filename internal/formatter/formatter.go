// Package formatter renders synthesized entities and instance status for the CLI.
package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/tordrt/schemareflect/internal/schema"
)

// Output formats
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Entity is the rendered view of one synthesized entity: its reflected table,
// including indexes and relations, plus the key the entity was bound with.
type Entity struct {
	Schema      string
	Table       *schema.Table
	Keys        []string
	Keyless     bool
	Fingerprint string
}

// IsKey reports whether a column belongs to the entity key
func (e Entity) IsKey(column string) bool {
	return slices.Contains(e.Keys, column)
}

// Formatter writes entities and status to one output
type Formatter interface {
	Format(entities []Entity) error
	FormatStatus(status map[string]string) error
}

// New returns the formatter for a format name
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (must be text, markdown or json)", format)
	}
}

// JSONFormatter writes one indented JSON document per call
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

type jsonColumn struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
	Key      bool    `json:"key"`
}

type jsonEntity struct {
	Schema      string       `json:"schema"`
	Table       string       `json:"table"`
	Keys        []string     `json:"keys"`
	Keyless     bool         `json:"keyless"`
	Fingerprint string       `json:"fingerprint,omitempty"`
	Columns     []jsonColumn `json:"columns"`
}

func (f *JSONFormatter) Format(entities []Entity) error {
	out := make([]jsonEntity, 0, len(entities))
	for _, e := range entities {
		je := jsonEntity{
			Schema:      e.Schema,
			Table:       e.Table.Name,
			Keys:        e.Keys,
			Keyless:     e.Keyless,
			Fingerprint: e.Fingerprint,
			Columns:     make([]jsonColumn, 0, len(e.Table.Columns)),
		}
		for _, col := range e.Table.Columns {
			je.Columns = append(je.Columns, jsonColumn{
				Name:     col.Name,
				Type:     col.Type,
				Nullable: col.Nullable,
				Default:  col.DefaultValue,
				Key:      e.IsKey(col.Name),
			})
		}
		out = append(out, je)
	}
	return f.encode(out)
}

func (f *JSONFormatter) FormatStatus(status map[string]string) error {
	if status == nil {
		status = map[string]string{}
	}
	return f.encode(status)
}

func (f *JSONFormatter) encode(v any) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// sortedKeys returns status keys in a stable order
func sortedKeys(status map[string]string) []string {
	keys := make([]string, 0, len(status))
	for k := range status {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
