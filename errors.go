package schemareflect

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by an Instance operation matches one of these with errors.Is.
var (
	ErrConnection        = errors.New("connection failure")
	ErrReflection        = errors.New("reflection failure")
	ErrTypeNotFound      = errors.New("type not found")
	ErrNoPrimaryKey      = errors.New("no primary key")
	ErrInvalidKey        = errors.New("key column not in table")
	ErrDDLExecution      = errors.New("DDL execution failure")
	ErrReflectionDesync  = errors.New("reflection failed after DDL")
	ErrQuery             = errors.New("query failure")
	ErrNotConnected      = errors.New("instance not connected")
	ErrSchemaNotFound    = errors.New("schema not found")
	ErrEntityNotFound    = errors.New("entity not found")
	ErrInvalidColumnMode = errors.New("invalid column mode")
)

// OpError describes a failed Instance operation.
// It matches both its Kind and the underlying cause with errors.Is and errors.As.
type OpError struct {
	Op     string
	Schema string
	Table  string
	Kind   error
	Err    error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	target := e.Table
	if e.Schema != "" && e.Table != "" {
		target = e.Schema + "." + e.Table
	} else if e.Schema != "" {
		target = e.Schema
	}

	msg := e.Op
	if target != "" {
		msg += " " + target
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opError(op, schemaName, table string, kind, err error) *OpError {
	return &OpError{Op: op, Schema: schemaName, Table: table, Kind: kind, Err: err}
}

// kindLabel is the metric/log label for an error kind
func kindLabel(err error) string {
	for _, k := range []struct {
		kind  error
		label string
	}{
		{ErrConnection, "connection"},
		{ErrTypeNotFound, "type_not_found"},
		{ErrDDLExecution, "ddl"},
		{ErrReflectionDesync, "desync"},
		{ErrReflection, "reflection"},
		{ErrInvalidKey, "invalid_key"},
		{ErrQuery, "query"},
		{ErrNotConnected, "not_connected"},
		{ErrSchemaNotFound, "schema_not_found"},
		{ErrEntityNotFound, "entity_not_found"},
		{ErrInvalidColumnMode, "invalid_mode"},
	} {
		if errors.Is(err, k.kind) {
			return k.label
		}
	}
	return "other"
}

func typeNotFound(t fmt.Stringer) error {
	return fmt.Errorf("%q", t.String())
}
