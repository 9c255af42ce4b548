package metrics

import (
	"context"

	"github.com/Combine-Capital/cqlog/pkg/correlation"
)

// Bind sources reported by ObserveBind.
const (
	SourceHeader    = "header"
	SourceGenerated = "generated"
)

// unmatchedRoute labels requests no route matched, keeping label cardinality
// bounded.
const unmatchedRoute = "unmatched"

// Collectors holds the correlation and request metrics. It implements
// binder.Observer.
type Collectors struct {
	store *correlation.Store

	binds        *Counter
	httpDuration *Histogram
	httpCount    *Counter
	grpcDuration *Histogram
	grpcCount    *Counter
}

// NewCollectors registers the metrics with r. The scopes gauge reports the
// active scopes of store; nil means correlation.Default().
func NewCollectors(r *Registry, store *correlation.Store) (*Collectors, error) {
	if store == nil {
		store = correlation.Default()
	}
	ns := r.Namespace()
	c := &Collectors{store: store}

	err := r.NewGaugeFunc(GaugeFuncOpts{
		Namespace: ns,
		Subsystem: "correlation",
		Name:      "scopes_active",
		Help:      "Number of correlation scopes currently registered",
	}, func() float64 { return float64(store.Active()) })
	if err != nil {
		return nil, err
	}

	if c.binds, err = r.NewCounter(CounterOpts{
		Namespace: ns,
		Subsystem: "correlation",
		Name:      "binds_total",
		Help:      "Requests bound to a correlation scope, by request id source",
		Labels:    []string{"source"},
	}); err != nil {
		return nil, err
	}

	if c.httpDuration, err = r.NewHistogram(HistogramOpts{
		Namespace: ns,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Labels:    []string{"method", "route", "status_code"},
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}); err != nil {
		return nil, err
	}

	if c.httpCount, err = r.NewCounter(CounterOpts{
		Namespace: ns,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests",
		Labels:    []string{"method", "route", "status_code"},
	}); err != nil {
		return nil, err
	}

	if c.grpcDuration, err = r.NewHistogram(HistogramOpts{
		Namespace: ns,
		Subsystem: "grpc",
		Name:      "call_duration_seconds",
		Help:      "gRPC call duration in seconds",
		Labels:    []string{"method", "status_code"},
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}); err != nil {
		return nil, err
	}

	if c.grpcCount, err = r.NewCounter(CounterOpts{
		Namespace: ns,
		Subsystem: "grpc",
		Name:      "calls_total",
		Help:      "Total number of gRPC calls",
		Labels:    []string{"method", "status_code"},
	}); err != nil {
		return nil, err
	}

	return c, nil
}

// ObserveBind counts a bound request by where its request id came from.
func (c *Collectors) ObserveBind(_ context.Context, generated bool) {
	source := SourceHeader
	if generated {
		source = SourceGenerated
	}
	c.binds.Inc(source)
}

// route returns the normalized URL of the scope in ctx.
func (c *Collectors) route(ctx context.Context) string {
	if r := c.store.Get(ctx, correlation.NormalizedURL); r != "" {
		return r
	}
	return unmatchedRoute
}
