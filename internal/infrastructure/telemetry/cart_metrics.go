package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dronestore/storefront/internal/application/cartsync"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for cart metrics
const MeterName = "storefront/cart"

// CartMetrics counts cart engine events.
type CartMetrics struct {
	mutations      *Counter
	stockConflicts *Counter
	remoteFailures *Counter
	fallbacks      *Counter
	staleDiscards  *Counter
	gatewayLatency *Histogram
}

var _ cartsync.Recorder = (*CartMetrics)(nil)

// NewCartMetrics registers the cart instruments on meter.
func NewCartMetrics(meter metric.Meter) (*CartMetrics, error) {
	m := &CartMetrics{}
	var err error

	counters := []struct {
		dst **Counter
		Instrument
	}{
		{&m.mutations, Instrument{Name: "cart.mutations", Description: "Cart mutations applied locally"}},
		{&m.stockConflicts, Instrument{Name: "cart.stock_conflicts", Description: "Remote stock conflicts observed"}},
		{&m.remoteFailures, Instrument{Name: "cart.remote_failures", Description: "Remote cart calls that failed"}},
		{&m.fallbacks, Instrument{Name: "cart.fallbacks", Description: "Loads served from local storage"}},
		{&m.staleDiscards, Instrument{Name: "cart.stale_discards", Description: "Remote results discarded as superseded"}},
	}
	for _, c := range counters {
		c.Unit = "{event}"
		if *c.dst, err = c.Counter(meter); err != nil {
			return nil, err
		}
	}

	m.gatewayLatency, err = Instrument{
		Name:        "cart.gateway.duration",
		Description: "Storefront gateway request duration",
		Unit:        "s",
		Buckets:     GatewayDurationBuckets,
	}.Histogram(meter)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CartMetrics) RecordMutation(ctx context.Context, op cartsync.Operation) {
	m.mutations.Inc(ctx, AttrOperation.String(string(op)))
}

func (m *CartMetrics) RecordStockConflict(ctx context.Context, op cartsync.Operation) {
	m.stockConflicts.Inc(ctx, AttrOperation.String(string(op)))
}

func (m *CartMetrics) RecordRemoteFailure(ctx context.Context, op cartsync.Operation) {
	m.remoteFailures.Inc(ctx, AttrOperation.String(string(op)))
}

func (m *CartMetrics) RecordFallback(ctx context.Context) {
	m.fallbacks.Inc(ctx)
}

func (m *CartMetrics) RecordStaleDiscard(ctx context.Context, op cartsync.Operation) {
	m.staleDiscards.Inc(ctx, AttrOperation.String(string(op)))
}

// Transport wraps next so every gateway round trip lands in the latency histogram.
func (m *CartMetrics) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &timedTransport{next: next, latency: m.gatewayLatency}
}

type timedTransport struct {
	next    http.RoundTripper
	latency *Histogram
}

func (t *timedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	t.latency.Observe(req.Context(), time.Since(start),
		AttrHTTPMethod.String(req.Method),
		AttrHTTPStatus.String(status),
	)
	return resp, err
}
