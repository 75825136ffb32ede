package schemareflect

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/tordrt/schemareflect/internal/catalog"
	"github.com/tordrt/schemareflect/internal/db"
	"github.com/tordrt/schemareflect/internal/schema"
	"github.com/tordrt/schemareflect/internal/telemetry"
)

const sqliteFixture = `
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE events (kind TEXT, payload TEXT);
CREATE TABLE tags (label TEXT NOT NULL);
INSERT INTO users (id, name) VALUES (1, 'ada');
`

func testMetrics(t *testing.T) *telemetry.Metrics {
	t.Helper()
	m, err := telemetry.NewWithMeter(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return m
}

// newSQLiteInstance bootstraps an instance over a fresh in-memory database
func newSQLiteInstance(t *testing.T, cfg *Config) *Instance {
	t.Helper()
	ctx := context.Background()

	engine, err := db.Open(ctx, "sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, engine.Exec(ctx, sqliteFixture))

	if cfg == nil {
		cfg = &Config{
			ConnString: "sqlite://:memory:",
			Tables:     map[string]SchemaSpec{"main": TablesOf("users", "events")},
		}
	}

	inst, err := New(cfg, WithName("test"), WithEngine(engine), WithMetrics(testMetrics(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close(ctx) })

	require.NoError(t, inst.Bootstrap(ctx))
	return inst
}

// recordingEngine is an in-memory engine that records every statement.
// Tables change only through onExec, so tests decide what a statement does.
type recordingEngine struct {
	dialect    db.Dialect
	tables     map[string]*schema.Table
	stmts      []string
	rows       []map[string]any
	execErr    error
	reflectErr error
	reflects   int
	onExec     func(stmt string)
}

func newRecordingEngine(tables ...*schema.Table) *recordingEngine {
	e := &recordingEngine{
		dialect: db.PostgresDialect{},
		tables:  make(map[string]*schema.Table),
	}
	for _, t := range tables {
		e.tables[t.QualifiedName()] = t
	}
	return e
}

func (e *recordingEngine) Dialect() db.Dialect { return e.dialect }

func (e *recordingEngine) Ping(context.Context) error { return nil }

func (e *recordingEngine) Exec(_ context.Context, stmt string) error {
	e.stmts = append(e.stmts, stmt)
	if e.execErr != nil {
		return e.execErr
	}
	if e.onExec != nil {
		e.onExec(stmt)
	}
	return nil
}

func (e *recordingEngine) FetchAll(context.Context, string, ...any) ([]map[string]any, error) {
	return e.rows, nil
}

func (e *recordingEngine) TableNames(_ context.Context, schemaName string) ([]string, error) {
	var names []string
	for key, t := range e.tables {
		if strings.HasPrefix(key, schemaName+".") {
			names = append(names, t.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (e *recordingEngine) ReflectTable(_ context.Context, schemaName, tableName string) (*schema.Table, error) {
	e.reflects++
	if e.reflectErr != nil {
		return nil, e.reflectErr
	}
	t, ok := e.tables[schema.Qualify(schemaName, tableName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrTableNotFound, schema.Qualify(schemaName, tableName))
	}
	return t.Clone(), nil
}

func (e *recordingEngine) Close(context.Context) error { return nil }

var _ db.Engine = (*recordingEngine)(nil)

func testSchema() *SchemaMetadata {
	return catalog.NewSchemaMetadata("public", "public")
}

func usersTable(schemaName string) *schema.Table {
	return &schema.Table{
		Schema: schemaName,
		Name:   "users",
		Columns: []schema.Column{
			{Name: "id", Type: "integer", IsPrimary: true},
			{Name: "name", Type: "text", Nullable: true},
		},
		PrimaryKey: []string{"id"},
	}
}

// newPostgresInstance bootstraps an instance over a recording engine with public.users
func newPostgresInstance(t *testing.T, tables ...*schema.Table) (*Instance, *recordingEngine) {
	t.Helper()

	eng := newRecordingEngine(append([]*schema.Table{usersTable("public")}, tables...)...)
	cfg := &Config{
		ConnString: "postgres://localhost/test",
		Tables:     map[string]SchemaSpec{"public": TablesOf("users")},
	}

	inst, err := New(cfg, WithName("pg"), WithEngine(eng), WithMetrics(testMetrics(t)))
	require.NoError(t, err)
	require.NoError(t, inst.Bootstrap(context.Background()))
	return inst, eng
}
