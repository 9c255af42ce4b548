// Package metrics provides Prometheus metrics for correlated request handling.
// Request metrics are labelled by the normalized URL of the correlation scope,
// so /api/v2/User/1 and /api/v2/User/2 share one series.
//
// Example usage:
//
//	reg := metrics.New(cfg.Metrics)
//	collectors, err := metrics.NewCollectors(reg, correlation.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	b := binder.New(binder.Options{Observer: collectors})
//	handler := b.HTTPMiddleware()(collectors.HTTPMiddleware()(router))
//	mux.Handle(cfg.Metrics.Path, reg.Handler())
package metrics

import (
	"net/http"

	"github.com/Combine-Capital/cqlog/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is a Prometheus registry with the configured namespace.
type Registry struct {
	reg *prometheus.Registry
	cfg config.MetricsConfig
}

// New creates a registry. With metrics enabled it also carries the Go runtime
// and process collectors.
func New(cfg config.MetricsConfig) *Registry {
	reg := prometheus.NewRegistry()

	if cfg.Enabled {
		// goroutines, memory, GC
		reg.MustRegister(collectors.NewGoCollector())
		// CPU, memory, file descriptors
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	return &Registry{reg: reg, cfg: cfg}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Prometheus returns the underlying registry for custom collectors or testing.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}

// Namespace returns the configured metric prefix.
func (r *Registry) Namespace() string {
	return r.cfg.Namespace
}

// Enabled reports whether metrics are exposed.
func (r *Registry) Enabled() bool {
	return r.cfg.Enabled
}
