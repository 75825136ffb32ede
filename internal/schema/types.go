package schema

// Table represents one reflected database table
type Table struct {
	Schema     string
	Name       string
	Columns    []Column
	Relations  []Relation
	Indexes    []Index
	PrimaryKey []string
}

// QualifiedName returns schema.table, or the bare name for unscoped tables
func (t *Table) QualifiedName() string {
	return Qualify(t.Schema, t.Name)
}

// ColumnNames returns the column names in ordinal order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Column looks up a column by name
func (t *Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Clone returns a deep copy so snapshots handed out cannot alias catalog state
func (t *Table) Clone() *Table {
	c := *t
	c.Columns = append([]Column(nil), t.Columns...)
	c.Relations = append([]Relation(nil), t.Relations...)
	c.PrimaryKey = append([]string(nil), t.PrimaryKey...)
	c.Indexes = make([]Index, len(t.Indexes))
	for i, idx := range t.Indexes {
		idx.Columns = append([]string(nil), idx.Columns...)
		c.Indexes[i] = idx
	}
	return &c
}

// Column represents a table column
type Column struct {
	Name          string
	Type          string
	Nullable      bool
	DefaultValue  *string
	IsUnique      bool
	IsPrimary     bool
	Autoincrement bool
}

// Relation represents a foreign key relationship
type Relation struct {
	TargetTable  string
	TargetColumn string
	SourceColumn string
	Cardinality  string // 1:1, 1:N, N:1
}

// Index represents a database index
type Index struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// Qualify joins a schema and table name the way catalog keys are formed
func Qualify(schemaName, tableName string) string {
	if schemaName == "" {
		return tableName
	}
	return schemaName + "." + tableName
}
