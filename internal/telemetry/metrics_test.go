package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestMetricsRecord(t *testing.T) {
	m, err := NewWithMeter(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.Statement(ctx, "postgres")
		m.Reflection(ctx, "public")
		m.KeyRetry(ctx, "log")
		m.Failure(ctx, "add_column", "type_not_found")
	})
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.Statement(ctx, "sqlite")
		m.Reflection(ctx, "main")
		m.KeyRetry(ctx, "log")
		m.Failure(ctx, "bootstrap", "connection")
	})
}

func TestNewUsesGlobalProvider(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	assert.NotNil(t, m)
}
