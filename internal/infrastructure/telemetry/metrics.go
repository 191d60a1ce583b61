package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrOperation  = attribute.Key("cart.operation")
	AttrHTTPMethod = attribute.Key("http.method")
	AttrHTTPStatus = attribute.Key("http.status_code")
	AttrHTTPRoute  = attribute.Key("http.route")
)

// Latency bucket boundaries in seconds
var (
	GatewayDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	HTTPDurationBuckets    = []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
)

// Instrument names a metric and how it is reported. Buckets only apply to
// histograms.
type Instrument struct {
	Name        string
	Description string
	Unit        string
	Buckets     []float64
}

// Counter is a monotonic int64 count
type Counter struct {
	c metric.Int64Counter
}

// Counter registers i on meter as a counter
func (i Instrument) Counter(meter metric.Meter) (*Counter, error) {
	c, err := meter.Int64Counter(i.Name, metric.WithDescription(i.Description), metric.WithUnit(i.Unit))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", i.Name, err)
	}
	return &Counter{c: c}, nil
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram is a distribution of durations in seconds
type Histogram struct {
	h metric.Float64Histogram
}

// Histogram registers i on meter as a float64 histogram
func (i Instrument) Histogram(meter metric.Meter) (*Histogram, error) {
	opts := []metric.Float64HistogramOption{metric.WithDescription(i.Description), metric.WithUnit(i.Unit)}
	if len(i.Buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(i.Buckets...))
	}
	h, err := meter.Float64Histogram(i.Name, opts...)
	if err != nil {
		return nil, fmt.Errorf("histogram %s: %w", i.Name, err)
	}
	return &Histogram{h: h}, nil
}

// Observe records d in seconds
func (h *Histogram) Observe(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.h.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}
