package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/dronestore/storefront/internal/infrastructure/config"
	"github.com/dronestore/storefront/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

func TestSetup_Disabled(t *testing.T) {
	logger := zaptest.NewLogger(t)

	p, err := telemetry.Setup(context.Background(), config.TelemetryConfig{
		Enabled:     false,
		ServiceName: "storefront-test",
	}, logger)
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Tracer("test"))
	assert.NotNil(t, p.Meter("test"))
	assert.Same(t, logger, p.BridgeLogger(logger))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, p.Shutdown(cancelled))
}

func TestSetup_RequiresEndpoint(t *testing.T) {
	_, err := telemetry.Setup(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		ServiceName: "storefront-test",
	}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collector endpoint")
}

func TestSetup_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping exporter setup in short mode")
	}

	originalTP := otel.GetTracerProvider()
	originalMP := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(originalTP)
		otel.SetMeterProvider(originalMP)
	})

	logger := zaptest.NewLogger(t)
	p, err := telemetry.Setup(context.Background(), config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "127.0.0.1:14317",
		SamplingRatio:     1,
		ServiceName:       "storefront-test",
		Insecure:          true,
		MetricsInterval:   time.Hour,
	}, logger)
	require.NoError(t, err)

	assert.True(t, p.Enabled())
	assert.NotSame(t, logger, p.BridgeLogger(logger))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	// the collector is absent so the final export may fail; only shutdown completion matters
	_ = p.Shutdown(ctx)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  string
	}{
		{"always", 1, "ParentBased{root:AlwaysOnSampler"},
		{"above one", 2, "ParentBased{root:AlwaysOnSampler"},
		{"never", 0, "ParentBased{root:AlwaysOffSampler"},
		{"negative", -1, "ParentBased{root:AlwaysOffSampler"},
		{"ratio", 0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s sdktrace.Sampler = telemetry.Sampler(tt.ratio)
			assert.Contains(t, s.Description(), tt.want)
		})
	}
}
