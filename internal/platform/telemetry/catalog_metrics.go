package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics are the Prometheus counters exposed at /-/metrics for the
// catalogue endpoints. A nil *CatalogMetrics records nothing.
type CatalogMetrics struct {
	countQueries *prometheus.CounterVec
	imports      *prometheus.CounterVec
}

// NewCatalogMetrics registers the catalogue counters with reg.
func NewCatalogMetrics(reg prometheus.Registerer) (*CatalogMetrics, error) {
	m := &CatalogMetrics{
		countQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "library_catalog",
			Name:      "count_queries_total",
			Help:      "Count queries answered, by query kind and scope.",
		}, []string{"kind", "scope"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "library_catalog",
			Name:      "imports_total",
			Help:      "ISBN imports, by outcome.",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.countQueries, m.imports} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// CountQuery records a count query. scope is "library" or "aggregate".
func (m *CatalogMetrics) CountQuery(kind, scope string) {
	if m == nil {
		return
	}

	m.countQueries.WithLabelValues(kind, scope).Inc()
}

// Import records the outcome of an import ("created", "not_found", ...).
func (m *CatalogMetrics) Import(outcome string) {
	if m == nil {
		return
	}

	m.imports.WithLabelValues(outcome).Inc()
}

// CountQueries exposes the count query counter vector.
func (m *CatalogMetrics) CountQueries() *prometheus.CounterVec {
	return m.countQueries
}

// Imports exposes the import counter vector.
func (m *CatalogMetrics) Imports() *prometheus.CounterVec {
	return m.imports
}
