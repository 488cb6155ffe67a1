// Package metrics exposes Prometheus instrumentation for configuration
// loading and lookups.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugenenazirov/confstore/internal/store"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	filesTotal   *prometheus.CounterVec
	lookupsTotal *prometheus.CounterVec
	entries      prometheus.Gauge
}

// New registers the confstore collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		filesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "confstore_files_total",
			Help: "Configuration directory entries considered during load by extension and outcome",
		}, []string{"extension", "outcome"}), // outcome=loaded|filtered|ignored|unsupported
		lookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "confstore_lookups_total",
			Help: "Configuration lookups served by result",
		}, []string{"result"}), // result=hit|miss
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "confstore_entries",
			Help: "Number of logical names held by the store",
		}),
	}
}

// ObserveFile implements store.Observer.
func (m *Metrics) ObserveFile(desc store.Descriptor, outcome store.Outcome) {
	m.filesTotal.WithLabelValues(desc.Extension, string(outcome)).Inc()
}

// ObserveLookup counts a lookup as a hit or a miss.
func (m *Metrics) ObserveLookup(found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	m.lookupsTotal.WithLabelValues(result).Inc()
}

// SetEntries records the size of the loaded table.
func (m *Metrics) SetEntries(n int) {
	m.entries.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
