package schemareflect

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tordrt/schemareflect/internal/catalog"
	"github.com/tordrt/schemareflect/internal/db"
	"github.com/tordrt/schemareflect/internal/logging"
	"github.com/tordrt/schemareflect/internal/telemetry"
)

// Instance owns one database connection, the schemas reflected through it and the
// entities synthesized from them.
//
// The zero value is not usable; create instances with New. An Instance is not safe
// for concurrent use: operations switch the current schema and mutate the registry
// without locking.
type Instance struct {
	name     string
	cfg      *Config
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	engine   db.Engine
	registry *catalog.Registry[*Entity]
	status   map[string]string
	synth    *synthesizer
	offline  bool
}

// Option configures an Instance
type Option func(*Instance)

// WithName sets the instance name used in status keys. Defaults to a short random id.
func WithName(name string) Option {
	return func(i *Instance) { i.name = name }
}

// WithLogger sets the logger. Defaults to a no-op logger, or a development logger when
// the config enables debug.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Instance) { i.logger = logger }
}

// WithMetrics sets the metric counters. Defaults to counters on the global meter provider.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(i *Instance) { i.metrics = m }
}

// WithEngine uses an already open engine instead of dialing the config's connection string
func WithEngine(engine db.Engine) Option {
	return func(i *Instance) { i.engine = engine }
}

// New creates an unconnected Instance. Call Bootstrap to connect and reflect.
func New(cfg *Config, opts ...Option) (*Instance, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	i := &Instance{
		cfg:      cfg,
		registry: catalog.NewRegistry[*Entity](),
		status:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(i)
	}

	if i.name == "" {
		i.name = uuid.NewString()[:8]
	}
	if i.logger == nil {
		if cfg.Debug {
			logger, err := logging.New(true)
			if err != nil {
				return nil, fmt.Errorf("failed to create logger: %w", err)
			}
			i.logger = logger
		} else {
			i.logger = zap.NewNop()
		}
	}
	if i.metrics == nil {
		m, err := telemetry.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
		i.metrics = m
	}
	i.logger = i.logger.With(zap.String("instance", i.name))
	if i.engine != nil {
		i.bind(i.engine)
	}

	return i, nil
}

// bind attaches an engine and the synthesizer that reflects through it
func (i *Instance) bind(engine db.Engine) {
	i.engine = engine
	i.synth = &synthesizer{
		engine:  engine,
		owner:   i,
		logger:  i.logger,
		metrics: i.metrics,
	}
}

// Name returns the instance name
func (i *Instance) Name() string { return i.name }

// Bootstrap connects and reflects every configured schema.
//
// Connection failures, and reflection or synthesis failures of individual schemas and
// tables, are recorded in Status and do not stop the bootstrap. Without a connection the
// configured schemas are registered empty and later operations fail with ErrNotConnected.
func (i *Instance) Bootstrap(ctx context.Context) error {
	if i.engine == nil {
		engine, err := db.Open(ctx, i.cfg.ConnString)
		if err != nil {
			i.bootstrapOffline(ctx, err)
			return nil
		}
		i.bind(engine)
	}
	if i.offline {
		i.registry = catalog.NewRegistry[*Entity]()
		i.offline = false
	}

	if err := i.engine.Ping(ctx); err != nil {
		msg := logging.SanitizeError(err)
		i.recordStatus(i.engineStatusKey(), "No connection: "+msg)
		i.logger.Warn("Connection check failed", zap.String("error", msg))
		i.metrics.Failure(ctx, "bootstrap", kindLabel(ErrConnection))
	}

	if i.cfg.DefaultSchema {
		i.schemaFor(DefaultSchemaName)
	}

	for _, name := range i.cfg.SchemaNames() {
		meta := i.schemaFor(name)
		i.bootstrapSchema(ctx, meta, i.cfg.Tables[name])
		if !i.cfg.DefaultSchema {
			i.registry.SetCurrent(name)
		}
	}

	if i.cfg.DefaultSchema {
		i.registry.SetCurrent(DefaultSchemaName)
	}

	i.logger.Info("Bootstrap complete",
		zap.String("dialect", i.engine.Dialect().Kind()),
		zap.Strings("schemas", i.registry.Schemas()),
		zap.Int("failures", len(i.status)))
	return nil
}

// bootstrapOffline records an unreachable database. The configured schemas are
// registered without a namespace and each gets a status entry.
func (i *Instance) bootstrapOffline(ctx context.Context, err error) {
	msg := logging.SanitizeError(err)
	i.recordStatus(i.engineStatusKey(), "No connection: "+msg)
	i.logger.Error("Failed to connect",
		zap.String("conn_string", logging.SanitizeConnectionString(i.cfg.ConnString)),
		zap.String("error", msg))
	i.metrics.Failure(ctx, "bootstrap", kindLabel(ErrConnection))

	names := i.cfg.SchemaNames()
	if i.cfg.DefaultSchema {
		names = append([]string{DefaultSchemaName}, names...)
	}
	for _, name := range names {
		if _, ok := i.registry.Schema(name); ok {
			continue
		}
		i.registry.AddSchema(catalog.NewSchemaMetadata(name, ""))
		i.recordStatus(name, "not reflected: no connection")
	}
	i.offline = true
}

func (i *Instance) bootstrapSchema(ctx context.Context, meta *SchemaMetadata, spec SchemaSpec) {
	if spec.All {
		reflected, err := meta.ReflectAll(ctx, i.engine)
		for range reflected {
			i.metrics.Reflection(ctx, meta.Name)
		}
		if err != nil {
			i.schemaFailure(ctx, meta.Name, "", opError("reflect_schema", meta.Name, "", ErrReflection, err))
		}
		return
	}

	for _, table := range spec.TableNames() {
		entity, err := i.synth.Synthesize(ctx, meta, table, spec.KeyOverride(table))
		if err != nil {
			i.schemaFailure(ctx, meta.Name, table, synthesisError("reflect_table", meta.Name, table, err, ErrReflection))
			continue
		}
		i.registry.Put(meta.Name, table, entity)
	}
}

func (i *Instance) schemaFailure(ctx context.Context, schemaName, table string, err *OpError) {
	msg := logging.SanitizeError(err)
	if table != "" {
		msg = table + ": " + msg
	}
	i.recordStatus(schemaName, msg)
	_ = i.fail(ctx, err)
}

// synthesisError wraps a synthesizer failure. Reflection failures take reflectKind;
// key failures keep their own kind.
func synthesisError(op, schemaName, table string, err error, reflectKind error) *OpError {
	var re errReflect
	if errors.As(err, &re) {
		return opError(op, schemaName, table, reflectKind, re.err)
	}
	if errors.Is(err, ErrInvalidKey) {
		return opError(op, schemaName, table, ErrInvalidKey, err)
	}
	return opError(op, schemaName, table, reflectKind, err)
}

// schemaFor returns the metadata for a logical schema name, registering it on first use.
// An empty name resolves to the current schema, then to "default".
func (i *Instance) schemaFor(name string) *SchemaMetadata {
	if name == "" {
		if cur, ok := i.registry.Current(); ok {
			return cur
		}
		name = DefaultSchemaName
	}
	if meta, ok := i.registry.Schema(name); ok {
		return meta
	}

	meta := catalog.NewSchemaMetadata(name, i.namespace(name))
	i.registry.AddSchema(meta)
	return meta
}

// namespace maps a logical schema name to the database namespace
func (i *Instance) namespace(name string) string {
	d := i.engine.Dialect()
	switch name {
	case DefaultSchemaName:
		return d.DefaultSchema()
	case SessionSchemaName:
		return d.SessionSchema()
	default:
		return name
	}
}

// connected guards operations that need an engine
func (i *Instance) connected(op, schemaName, table string) error {
	if i.engine == nil || i.synth == nil {
		return opError(op, schemaName, table, ErrNotConnected, nil)
	}
	return nil
}

// fail logs and counts an operation failure and returns it unchanged
func (i *Instance) fail(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	op := "unknown"
	fields := []zap.Field{zap.String("error", logging.SanitizeError(err))}
	var opErr *OpError
	if errors.As(err, &opErr) {
		op = opErr.Op
		fields = append(fields,
			zap.String("op", opErr.Op),
			zap.String("schema", opErr.Schema),
			zap.String("table", opErr.Table))
	}
	kind := kindLabel(err)
	fields = append(fields, zap.String("kind", kind))

	i.logger.Error("Operation failed", fields...)
	i.metrics.Failure(ctx, op, kind)
	return err
}

// exec runs one statement through the engine
func (i *Instance) exec(ctx context.Context, stmt string) error {
	d := i.engine.Dialect()
	i.logger.Debug("Executing statement",
		zap.String("dialect", d.Kind()),
		zap.String("sql", logging.TruncateStatement(stmt)))
	i.metrics.Statement(ctx, d.Kind())
	return i.engine.Exec(ctx, stmt)
}

// UseSchema makes a schema current, registering it if needed
func (i *Instance) UseSchema(name string) error {
	if err := i.connected("use_schema", name, ""); err != nil {
		return err
	}
	meta := i.schemaFor(name)
	i.registry.SetCurrent(meta.Name)
	return nil
}

// CurrentSchema returns the logical name of the current schema, or "" before bootstrap
func (i *Instance) CurrentSchema() string {
	if cur, ok := i.registry.Current(); ok {
		return cur.Name
	}
	return ""
}

// Schema returns the metadata of a registered schema
func (i *Instance) Schema(name string) (*SchemaMetadata, error) {
	meta, ok := i.registry.Schema(name)
	if !ok {
		return nil, opError("schema", name, "", ErrSchemaNotFound, nil)
	}
	return meta, nil
}

// Schemas returns the registered logical schema names, sorted
func (i *Instance) Schemas() []string {
	return i.registry.Schemas()
}

// Entity looks up an entity by table name. When several schemas hold the same
// table name, the most recently synthesized one is returned.
func (i *Instance) Entity(table string) (*Entity, bool) {
	return i.registry.Get(table)
}

// EntityIn looks up an entity within one schema
func (i *Instance) EntityIn(schemaName, table string) (*Entity, bool) {
	return i.registry.GetIn(schemaName, table)
}

// Entities returns the entities of one schema ordered by table name
func (i *Instance) Entities(schemaName string) []*Entity {
	names := i.registry.Tables(schemaName)
	out := make([]*Entity, 0, len(names))
	for _, name := range names {
		if e, ok := i.registry.GetIn(schemaName, name); ok {
			out = append(out, e)
		}
	}
	return out
}

// Dialect returns the engine dialect, or nil before bootstrap
func (i *Instance) Dialect() db.Dialect {
	if i.engine == nil {
		return nil
	}
	return i.engine.Dialect()
}

// Fetch runs a query and returns every row as a column-name keyed map
func (i *Instance) Fetch(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	if err := i.connected("fetch", "", ""); err != nil {
		return nil, err
	}
	i.logger.Debug("Fetching", zap.String("sql", logging.TruncateStatement(query)))
	rows, err := i.engine.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, i.fail(ctx, opError("fetch", "", "", ErrQuery, err))
	}
	return rows, nil
}

// Close discards the session schema and its temporary entities, then closes the connection.
// Closing an unconnected instance is a no-op.
func (i *Instance) Close(ctx context.Context) error {
	i.registry.RemoveSchema(SessionSchemaName)
	if i.engine == nil {
		return nil
	}

	err := i.engine.Close(ctx)
	i.engine = nil
	i.synth = nil
	if err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// Dispose is an alias for Close
func (i *Instance) Dispose(ctx context.Context) error {
	return i.Close(ctx)
}

// Table returns an adapter that resolves the named table at call time
func (i *Instance) Table(table, schemaName string) *BoundTable {
	return &BoundTable{inst: i, table: table, schema: schemaName}
}
