// Package telemetry records OpenTelemetry counters for reflection and DDL activity.
// Instruments come from the global meter provider, so they are no-ops until the host installs one.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/tordrt/schemareflect"

// Metrics groups the counters an Instance updates
type Metrics struct {
	statements  metric.Int64Counter
	reflections metric.Int64Counter
	keyRetries  metric.Int64Counter
	failures    metric.Int64Counter
}

// New creates the counters on the global meter provider
func New() (*Metrics, error) {
	return NewWithMeter(otel.Meter(meterName))
}

// NewWithMeter creates the counters on the given meter
func NewWithMeter(meter metric.Meter) (*Metrics, error) {
	statements, err := meter.Int64Counter(
		"schemareflect.statements.total",
		metric.WithDescription("DDL/DML statements executed by dialect"),
	)
	if err != nil {
		return nil, err
	}

	reflections, err := meter.Int64Counter(
		"schemareflect.reflections.total",
		metric.WithDescription("Tables reflected from the catalog by schema"),
	)
	if err != nil {
		return nil, err
	}

	keyRetries, err := meter.Int64Counter(
		"schemareflect.synthesis.key_retries",
		metric.WithDescription("Entities synthesized with all columns as key"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"schemareflect.failures.total",
		metric.WithDescription("Failed operations by error kind"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		statements:  statements,
		reflections: reflections,
		keyRetries:  keyRetries,
		failures:    failures,
	}, nil
}

// Statement counts one executed statement
func (m *Metrics) Statement(ctx context.Context, dialect string) {
	if m == nil {
		return
	}
	m.statements.Add(ctx, 1, metric.WithAttributes(attribute.String("dialect", dialect)))
}

// Reflection counts one reflected table
func (m *Metrics) Reflection(ctx context.Context, schemaName string) {
	if m == nil {
		return
	}
	m.reflections.Add(ctx, 1, metric.WithAttributes(attribute.String("schema", schemaName)))
}

// KeyRetry counts one keyless synthesis
func (m *Metrics) KeyRetry(ctx context.Context, table string) {
	if m == nil {
		return
	}
	m.keyRetries.Add(ctx, 1, metric.WithAttributes(attribute.String("table", table)))
}

// Failure counts one failed operation
func (m *Metrics) Failure(ctx context.Context, op, kind string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("kind", kind),
	))
}
