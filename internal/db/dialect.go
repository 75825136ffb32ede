package db

import (
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Dialect captures the naming and DDL conventions of one engine kind
type Dialect interface {
	// Kind is the engine kind used for type resolution (postgres, mysql, sqlite, mssql)
	Kind() string

	// DefaultSchema is the namespace used for the unscoped "default" schema
	DefaultSchema() string

	// SessionSchema is where session-scoped temporary tables live
	SessionSchema() string

	// QuoteIdent quotes one identifier
	QuoteIdent(name string) string

	// SupportsEmptyTables reports whether CREATE TABLE accepts an empty column list
	SupportsEmptyTables() bool

	// AddColumnClause is the ALTER TABLE action keyword for new columns
	AddColumnClause() string

	// NotNullOnAdd reports whether ALTER TABLE can add a NOT NULL column without a default
	NotNullOnAdd() bool

	// TempTable returns the schema, table name and CREATE prefixes for a session-scoped copy
	TempTable(name string) (schemaName, tableName string, prefixes []string)
}

// ColumnDef is one column as it appears in generated DDL
type ColumnDef struct {
	Name    string
	Type    string
	NotNull bool
}

// QualifiedName returns "schema"."table", or just "table" when schemaName is empty
func QualifiedName(d Dialect, schemaName, tableName string) string {
	if schemaName == "" {
		return d.QuoteIdent(tableName)
	}
	return d.QuoteIdent(schemaName) + "." + d.QuoteIdent(tableName)
}

var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// reservedWords must always be quoted when used as column names
var reservedWords = map[string]bool{
	"all": true, "alter": true, "and": true, "as": true, "asc": true, "between": true,
	"by": true, "case": true, "check": true, "column": true, "constraint": true,
	"create": true, "cross": true, "default": true, "delete": true, "desc": true,
	"distinct": true, "drop": true, "else": true, "end": true, "exists": true,
	"foreign": true, "from": true, "full": true, "grant": true, "group": true,
	"having": true, "in": true, "index": true, "inner": true, "insert": true,
	"into": true, "is": true, "join": true, "key": true, "left": true, "like": true,
	"limit": true, "not": true, "null": true, "offset": true, "on": true, "or": true,
	"order": true, "outer": true, "primary": true, "references": true, "right": true,
	"select": true, "set": true, "table": true, "then": true, "to": true,
	"union": true, "unique": true, "update": true, "user": true, "using": true,
	"values": true, "when": true, "where": true, "with": true,
}

// ColumnName compiles a column name: bare when it is a plain lower-case identifier, quoted otherwise
func ColumnName(d Dialect, name string) string {
	if plainIdent.MatchString(name) && !reservedWords[name] {
		return name
	}
	return d.QuoteIdent(name)
}

func columnSQL(d Dialect, col ColumnDef) string {
	s := ColumnName(d, col.Name) + " " + col.Type
	if col.NotNull {
		s += " NOT NULL"
	}
	return s
}

// AddColumnSQL builds ALTER TABLE "schema"."table" ADD COLUMN <name> <type>;
func AddColumnSQL(d Dialect, schemaName, tableName string, col ColumnDef) string {
	return "ALTER TABLE " + QualifiedName(d, schemaName, tableName) + " " + d.AddColumnClause() + " " + columnSQL(d, col) + ";"
}

// CreateTableSQL builds CREATE <prefixes> TABLE "schema"."table" () <postfixes>;
// Inline columns fill the column list, for dialects that reject empty tables or
// cannot add NOT NULL columns later.
func CreateTableSQL(d Dialect, schemaName, tableName string, prefixes, postfixes []string, inline ...ColumnDef) string {
	parts := []string{"CREATE"}
	parts = append(parts, nonEmpty(prefixes)...)
	parts = append(parts, "TABLE", QualifiedName(d, schemaName, tableName))
	defs := make([]string, len(inline))
	for i, col := range inline {
		defs[i] = columnSQL(d, col)
	}
	parts = append(parts, "("+strings.Join(defs, ", ")+")")
	parts = append(parts, nonEmpty(postfixes)...)
	return strings.Join(parts, " ") + ";"
}

// DropTableSQL builds DROP TABLE IF EXISTS "schema"."table";
func DropTableSQL(d Dialect, schemaName, tableName string) string {
	return "DROP TABLE IF EXISTS " + QualifiedName(d, schemaName, tableName) + ";"
}

func nonEmpty(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// PostgresDialect follows PostgreSQL conventions
type PostgresDialect struct{}

func (PostgresDialect) Kind() string          { return "postgres" }
func (PostgresDialect) DefaultSchema() string { return "public" }
func (PostgresDialect) SessionSchema() string { return "pg_temp" }

// QuoteIdent uses pgx's sanitizer, which doubles embedded quotes and strips NUL bytes
func (PostgresDialect) QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (PostgresDialect) SupportsEmptyTables() bool { return true }
func (PostgresDialect) AddColumnClause() string   { return "ADD COLUMN" }
func (PostgresDialect) NotNullOnAdd() bool        { return true }

func (d PostgresDialect) TempTable(name string) (string, string, []string) {
	return d.SessionSchema(), name, []string{"TEMPORARY"}
}

// SQLiteDialect addresses attached databases (main, temp) as schemas
type SQLiteDialect struct{}

func (SQLiteDialect) Kind() string                  { return "sqlite" }
func (SQLiteDialect) DefaultSchema() string         { return "main" }
func (SQLiteDialect) SessionSchema() string         { return "temp" }
func (SQLiteDialect) QuoteIdent(name string) string { return doubleQuote(name) }
func (SQLiteDialect) SupportsEmptyTables() bool     { return false }
func (SQLiteDialect) AddColumnClause() string       { return "ADD COLUMN" }
func (SQLiteDialect) NotNullOnAdd() bool            { return false }

func (d SQLiteDialect) TempTable(name string) (string, string, []string) {
	return d.SessionSchema(), name, []string{"TEMPORARY"}
}

// MySQLDialect treats the connected database as the only schema.
// The client enables ANSI_QUOTES so double-quoted identifiers work.
type MySQLDialect struct {
	Database string
}

func (MySQLDialect) Kind() string                  { return "mysql" }
func (d MySQLDialect) DefaultSchema() string       { return d.Database }
func (d MySQLDialect) SessionSchema() string       { return d.Database }
func (MySQLDialect) QuoteIdent(name string) string { return doubleQuote(name) }
func (MySQLDialect) SupportsEmptyTables() bool     { return false }
func (MySQLDialect) AddColumnClause() string       { return "ADD COLUMN" }
func (MySQLDialect) NotNullOnAdd() bool            { return true }

func (d MySQLDialect) TempTable(name string) (string, string, []string) {
	return d.Database, name, []string{"TEMPORARY"}
}

// MSSQLDialect uses bracket quoting; temporary tables are #-prefixed and unqualified
type MSSQLDialect struct{}

func (MSSQLDialect) Kind() string          { return "mssql" }
func (MSSQLDialect) DefaultSchema() string { return "dbo" }
func (MSSQLDialect) SessionSchema() string { return "" }

// QuoteIdent matches QUOTENAME(): brackets with ] doubled
func (MSSQLDialect) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (MSSQLDialect) SupportsEmptyTables() bool { return false }
func (MSSQLDialect) AddColumnClause() string   { return "ADD" }
func (MSSQLDialect) NotNullOnAdd() bool        { return false }

func (MSSQLDialect) TempTable(name string) (string, string, []string) {
	return "", "#" + strings.TrimPrefix(name, "#"), nil
}

func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
