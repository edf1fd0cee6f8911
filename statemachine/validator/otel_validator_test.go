package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

//nolint:paralleltest // Test modifies global OTEL tracer provider
func TestValidateContext(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))

	oldProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(oldProvider)
	})

	def := parse(t, validDoor+`
  attic:
    transitions:
      down: closed
      stay: attic
`)

	result := ValidateContext(t.Context(), def)
	assert.False(t, result.Valid)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "statemachine.validate", span.Name)
	assert.Equal(t, codes.Error, span.Status.Code)

	var events []string
	for _, ev := range span.Events {
		events = append(events, ev.Name)
	}

	assert.Equal(t, []string{"validation.error", "validation.warning"}, events)

	attrs := make(map[string]string)
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}

	assert.Equal(t, "door", attrs["machine"])
	assert.Equal(t, "false", attrs["valid"])
	assert.Equal(t, "1", attrs["errors"])
	assert.Equal(t, "1", attrs["warnings"])
}
