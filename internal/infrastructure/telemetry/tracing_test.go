package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dronestore/storefront/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs a recording tracer provider for the duration of the test.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(kvs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "cart", "add_item",
		telemetry.SpanAttrProductID, "lipo-4s",
		telemetry.SpanAttrQuantity, 2,
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "cart.add_item", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Equal(t, telemetry.TracerName, spans[0].InstrumentationScope().Name)

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "lipo-4s", attrs[telemetry.SpanAttrProductID])
	assert.Equal(t, int64(2), attrs[telemetry.SpanAttrQuantity])
}

func TestNestedSpans(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "cart", "add_item")
	_, child := telemetry.StartServiceSpan(ctx, "product", "get")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "cart", "update")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUserID, "42",
		telemetry.SpanAttrQuantity, 3,
		7, "non-string key is skipped",
		"dangling",
	)
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, "42", attrs[telemetry.SpanAttrUserID])
	assert.Equal(t, int64(3), attrs[telemetry.SpanAttrQuantity])
	assert.NotContains(t, attrs, "dangling")
	assert.Len(t, attrs, 2)
}

func TestAttributeTypes(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"string", "dx-500", "dx-500"},
		{"int", 3, int64(3)},
		{"int64", int64(4), int64(4)},
		{"uint64 version", uint64(7), int64(7)},
		{"float", 1.5, 1.5},
		{"bool", true, true},
		{"strings", []string{"a", "b"}, []string{"a", "b"}},
		{"stringer", stringer("id-9"), "id-9"},
		{"other", struct{ N int }{N: 1}, "{1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := setupTestTracer(t)
			_, span := telemetry.StartServiceSpan(context.Background(), "types", "check", "v", tt.value)
			span.End()
			assert.Equal(t, tt.want, attrMap(sr.Ended()[0].Attributes())["v"])
		})
	}
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestRecordError(t *testing.T) {
	t.Run("marks span failed", func(t *testing.T) {
		sr := setupTestTracer(t)

		_, span := telemetry.StartServiceSpan(context.Background(), "cart", "add_item")
		telemetry.RecordError(span, errors.New("insufficient stock"))
		span.End()

		s := sr.Ended()[0]
		assert.Equal(t, codes.Error, s.Status().Code)
		assert.Equal(t, "insufficient stock", s.Status().Description)
		require.Len(t, s.Events(), 1)
		assert.Equal(t, "exception", s.Events()[0].Name)
	})

	t.Run("nil error leaves status unset", func(t *testing.T) {
		sr := setupTestTracer(t)

		_, span := telemetry.StartServiceSpan(context.Background(), "cart", "add_item")
		telemetry.RecordError(span, nil)
		span.End()

		assert.Equal(t, codes.Unset, sr.Ended()[0].Status().Code)
	})
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "cart", "add_item")
	telemetry.AddEvent(span, "stock_rejected",
		telemetry.SpanAttrProductID, "p-1",
		telemetry.SpanAttrQuantity, 5,
	)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "stock_rejected", events[0].Name)
	attrs := attrMap(events[0].Attributes)
	assert.Equal(t, "p-1", attrs[telemetry.SpanAttrProductID])
	assert.Equal(t, int64(5), attrs[telemetry.SpanAttrQuantity])
}

func TestNilSpanHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("boom"))
		telemetry.AddEvent(nil, "e")
	})
}
