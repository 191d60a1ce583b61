package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dronestore/storefront/internal/infrastructure/telemetry"
)

// unmatchedRoute labels requests no route matched, keeping cardinality bounded
const unmatchedRoute = "unmatched"

type httpMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	active   metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requests, err := telemetry.Instrument{
		Name:        "http.server.requests",
		Description: "Total number of HTTP requests",
		Unit:        "{request}",
	}.Counter(meter)
	if err != nil {
		return nil, err
	}

	duration, err := telemetry.Instrument{
		Name:        "http.server.duration",
		Description: "HTTP request latency in seconds",
		Unit:        "s",
		Buckets:     telemetry.HTTPDurationBuckets,
	}.Histogram(meter)
	if err != nil {
		return nil, err
	}

	active, err := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{requests: requests, duration: duration, active: active}, nil
}

// HTTPMetrics records request count, latency and in-flight requests labelled
// by method, route pattern and status. A nil meter disables it.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		method := telemetry.AttrHTTPMethod.String(c.Request.Method)
		m.active.Add(ctx, 1, metric.WithAttributes(method))
		defer m.active.Add(ctx, -1, metric.WithAttributes(method))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		attrs := []attribute.KeyValue{
			method,
			telemetry.AttrHTTPRoute.String(route),
			telemetry.AttrHTTPStatus.String(strconv.Itoa(c.Writer.Status())),
		}
		m.requests.Inc(ctx, attrs...)
		m.duration.Observe(ctx, time.Since(start), attrs[:2]...)
	}, nil
}
