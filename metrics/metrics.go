// Package metrics exposes Prometheus instrumentation on a dedicated listener,
// kept off the public API port.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the /metrics endpoint and owns the application
// instruments. A server constructed with an empty listen address registers
// instruments but never listens; ListenAndServe and Shutdown are no-ops.
type MetricsServer struct {
	srv      *http.Server
	registry *prometheus.Registry

	// PurchasesTotal counts purchase attempts by operation
	// (mint_identity_and_name, mint_name, renewal), payment method and
	// result (ok, error).
	PurchasesTotal *prometheus.CounterVec

	// PurchaseDuration observes end-to-end purchase handling time.
	PurchaseDuration *prometheus.HistogramVec

	// LookupsTotal counts name lookups by result.
	LookupsTotal *prometheus.CounterVec
}

// New creates a metrics server with process, Go runtime and application
// collectors registered under the given namespace.
func New(namespace, listenAddr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())

	m := &MetricsServer{
		registry: registry,
		PurchasesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Purchase attempts by operation, payment method and result.",
		}, []string{"operation", "payment_method", "result"}),
		PurchaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "purchase_duration_seconds",
			Help:      "End-to-end purchase handling time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		LookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "name_lookups_total",
			Help:      "Name lookups by result.",
		}, []string{"result"}),
	}
	registry.MustRegister(m.PurchasesTotal, m.PurchaseDuration, m.LookupsTotal)

	if listenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		m.srv = &http.Server{
			Addr:         listenAddr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
	}

	return m, nil
}

// RegisterActiveLeases exports the current active-lease count through the
// given callback.
func (m *MetricsServer) RegisterActiveLeases(namespace string, f func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_leases",
		Help:      "Currently active name leases.",
	}, f))
}

// ListenAndServe blocks serving /metrics until Shutdown.
func (m *MetricsServer) ListenAndServe() error {
	if m.srv == nil {
		return nil
	}
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
