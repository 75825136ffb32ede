package schemareflect

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tordrt/schemareflect/internal/db"
	"github.com/tordrt/schemareflect/internal/telemetry"
)

// synthesizer turns reflected tables into entities
type synthesizer struct {
	engine  db.Engine
	owner   columnAdder
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// errReflect marks a failure of the reflection round trip, as opposed to entity construction
type errReflect struct{ err error }

func (e errReflect) Error() string { return e.err.Error() }
func (e errReflect) Unwrap() error { return e.err }

// Synthesize reflects one table into meta and binds an entity to it.
// keyOverride wins over the discovered primary key. A table with neither is retried
// exactly once with every column as the key.
func (s *synthesizer) Synthesize(ctx context.Context, meta *SchemaMetadata, table string, keyOverride []string) (*Entity, error) {
	t, err := meta.ReflectTable(ctx, s.engine, table)
	if err != nil {
		return nil, errReflect{err: err}
	}
	s.metrics.Reflection(ctx, meta.Name)

	entity, err := newEntity(meta, t, keyOverride)
	if errors.Is(err, ErrNoPrimaryKey) {
		keys := t.ColumnNames()
		s.logger.Debug("No primary key, using all columns as key",
			zap.String("schema", meta.Name),
			zap.String("table", table),
			zap.Strings("keys", keys))
		s.metrics.KeyRetry(ctx, table)

		entity, err = newEntity(meta, t, keys)
		if err == nil {
			entity.keyless = true
		}
	}
	if err != nil {
		return nil, err
	}

	entity.owner = s.owner
	return entity, nil
}
