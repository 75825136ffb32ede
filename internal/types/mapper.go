// Package types resolves abstract column type names to engine-native column types.
//
// The lookup table is static. Every abstract name maps either directly to one native
// type, or to a per-engine override map that always carries a "default" entry used
// when the current engine kind has no specific spelling.
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Engine kinds with dedicated overrides in the table.
const (
	KindPostgres = "postgres"
	KindMySQL    = "mysql"
	KindSQLite   = "sqlite"
	KindMSSQL    = "mssql"
)

const defaultKind = "default"

// NativeType is a column type spelled the way a specific engine expects it in DDL.
type NativeType string

// ColumnType is either an abstract type name or an already-native type.
type ColumnType struct {
	Name   string
	Native NativeType
}

// Abstract returns a ColumnType resolved through the lookup table.
func Abstract(name string) ColumnType {
	return ColumnType{Name: name}
}

// Native returns a ColumnType used verbatim in DDL.
func Native(t string) ColumnType {
	return ColumnType{Native: NativeType(t)}
}

// IsNative reports whether the type bypasses the lookup table.
func (c ColumnType) IsNative() bool {
	return c.Native != ""
}

// IsZero reports whether no type was given at all.
func (c ColumnType) IsZero() bool {
	return c.Name == "" && c.Native == ""
}

func (c ColumnType) String() string {
	if c.IsNative() {
		return string(c.Native)
	}
	return c.Name
}

type nativeJSON struct {
	Native string `json:"native"`
}

// MarshalJSON writes abstract types as plain strings and native types as {"native": "..."}.
func (c ColumnType) MarshalJSON() ([]byte, error) {
	if c.IsNative() {
		return json.Marshal(nativeJSON{Native: string(c.Native)})
	}
	return json.Marshal(c.Name)
}

// UnmarshalJSON accepts either form written by MarshalJSON.
func (c *ColumnType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*c = Abstract(name)
		return nil
	}
	var n nativeJSON
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("col_type must be a type name or {\"native\": ...}: %w", err)
	}
	if n.Native == "" {
		return fmt.Errorf("col_type native spelling is empty")
	}
	*c = Native(n.Native)
	return nil
}

// entry is one row of the lookup table. Exactly one of direct or perEngine is set.
type entry struct {
	direct    NativeType
	perEngine map[string]NativeType
}

func direct(t NativeType) entry { return entry{direct: t} }

func perEngine(m map[string]NativeType) entry {
	if _, ok := m[defaultKind]; !ok {
		panic("types: per-engine entry without default")
	}
	return entry{perEngine: m}
}

var (
	boolType = perEngine(map[string]NativeType{
		defaultKind: "BOOLEAN",
		KindMySQL:   "TINYINT(1)",
		KindMSSQL:   "BIT",
	})
	smallintType = direct("SMALLINT")
	intType      = perEngine(map[string]NativeType{
		defaultKind: "INTEGER",
		KindMSSQL:   "INT",
	})
	bigintType = direct("BIGINT")
	realType   = direct("REAL")
	doubleType = perEngine(map[string]NativeType{
		defaultKind: "DOUBLE PRECISION",
		KindMySQL:   "DOUBLE",
		KindSQLite:  "REAL",
		KindMSSQL:   "FLOAT",
	})
	numericType = direct("NUMERIC")
	textType    = perEngine(map[string]NativeType{
		defaultKind: "TEXT",
		KindMSSQL:   "NVARCHAR(MAX)",
	})
	varcharType = perEngine(map[string]NativeType{
		defaultKind: "VARCHAR(255)",
		KindMSSQL:   "NVARCHAR(255)",
	})
	charType      = direct("CHAR(1)")
	dateType      = direct("DATE")
	timeType      = direct("TIME")
	timestampType = perEngine(map[string]NativeType{
		defaultKind: "TIMESTAMP",
		KindMySQL:   "DATETIME",
		KindMSSQL:   "DATETIME2",
	})
	timestamptzType = perEngine(map[string]NativeType{
		defaultKind:  "TIMESTAMP",
		KindPostgres: "TIMESTAMP WITH TIME ZONE",
		KindMSSQL:    "DATETIMEOFFSET",
	})
	intervalType = perEngine(map[string]NativeType{
		defaultKind:  "VARCHAR(64)",
		KindPostgres: "INTERVAL",
	})
	uuidType = perEngine(map[string]NativeType{
		defaultKind:  "CHAR(36)",
		KindPostgres: "UUID",
		KindMSSQL:    "UNIQUEIDENTIFIER",
	})
	jsonType = perEngine(map[string]NativeType{
		defaultKind:  "TEXT",
		KindPostgres: "JSON",
		KindMySQL:    "JSON",
		KindMSSQL:    "NVARCHAR(MAX)",
	})
	jsonbType = perEngine(map[string]NativeType{
		defaultKind:  "TEXT",
		KindPostgres: "JSONB",
		KindMySQL:    "JSON",
		KindMSSQL:    "NVARCHAR(MAX)",
	})
	binaryType = perEngine(map[string]NativeType{
		defaultKind:  "BLOB",
		KindPostgres: "BYTEA",
		KindMSSQL:    "VARBINARY(MAX)",
	})
)

var table = map[string]entry{
	"bool":        boolType,
	"boolean":     boolType,
	"smallint":    smallintType,
	"int2":        smallintType,
	"int":         intType,
	"integer":     intType,
	"int4":        intType,
	"bigint":      bigintType,
	"int8":        bigintType,
	"real":        realType,
	"float4":      realType,
	"float":       doubleType,
	"float8":      doubleType,
	"double":      doubleType,
	"numeric":     numericType,
	"decimal":     numericType,
	"text":        textType,
	"string":      varcharType,
	"varchar":     varcharType,
	"char":        charType,
	"date":        dateType,
	"time":        timeType,
	"timestamp":   timestampType,
	"datetime":    timestampType,
	"timestamptz": timestamptzType,
	"interval":    intervalType,
	"uuid":        uuidType,
	"json":        jsonType,
	"jsonb":       jsonbType,
	"bytea":       binaryType,
	"blob":        binaryType,
	"binary":      binaryType,
}

// Resolve returns the native spelling of t for the given engine kind.
// Native types are returned unchanged. The boolean is false only for
// abstract names missing from the table.
func Resolve(kind string, t ColumnType) (NativeType, bool) {
	if t.IsNative() {
		return t.Native, true
	}
	e, ok := table[strings.ToLower(strings.TrimSpace(t.Name))]
	if !ok {
		return "", false
	}
	if e.perEngine == nil {
		return e.direct, true
	}
	if native, ok := e.perEngine[kind]; ok {
		return native, true
	}
	return e.perEngine[defaultKind], true
}

// Names lists every abstract type name in the table, sorted.
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
