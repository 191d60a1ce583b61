package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/dronestore/storefront/internal/infrastructure/telemetry"
)

func TestHTTPMetrics_NilMeter(t *testing.T) {
	mw, err := HTTPMetrics(nil)
	require.NoError(t, err)

	w := serve(newEngine(mw), httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPMetrics_RecordsByRoute(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	mw, err := HTTPMetrics(mp.Meter("storefront/http"))
	require.NoError(t, err)

	r := gin.New()
	r.Use(mw)
	r.GET("/products/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, httptest.NewRequest(http.MethodGet, "/products/dx-500", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/products/lipo-4s", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byName := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			byName[m.Name] = m.Data
		}
	}

	sum, ok := byName["http.server.requests"].(metricdata.Sum[int64])
	require.True(t, ok)
	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		route, _ := dp.Attributes.Value(telemetry.AttrHTTPRoute)
		status, _ := dp.Attributes.Value(telemetry.AttrHTTPStatus)
		counts[route.AsString()+" "+status.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{
		"/products/:id 200": 2,
		"unmatched 404":     1,
	}, counts)

	hist, ok := byName["http.server.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var samples uint64
	for _, dp := range hist.DataPoints {
		samples += dp.Count
	}
	assert.Equal(t, uint64(3), samples)

	active, ok := byName["http.server.active_requests"].(metricdata.Sum[int64])
	require.True(t, ok)
	for _, dp := range active.DataPoints {
		assert.Zero(t, dp.Value)
	}
}
