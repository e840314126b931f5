package session

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics counts loads and queries of one or more sessions on a private
// prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	loads   *prometheus.CounterVec
	queries *prometheus.CounterVec
	latency *prometheus.SummaryVec
}

// NewMetrics returns metrics registered on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axiom_loads_total",
				Help: "number of declaration loads by outcome",
			},
			[]string{"status"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axiom_queries_total",
				Help: "number of queries by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		latency: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "axiom_query_latency_seconds",
				Help:       "latency of queries by kind",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"kind"},
		),
	}
	m.registry = prometheus.NewPedanticRegistry()
	m.registry.MustRegister(m.loads)
	m.registry.MustRegister(m.queries)
	m.registry.MustRegister(m.latency)
	return m
}

// Registry exposes the underlying registry, e.g. for promhttp
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) load(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.loads.WithLabelValues(status).Inc()
}

func (m *Metrics) query(kind Kind, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(kind.String(), status).Inc()
	m.latency.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

// WriteText writes every metric in the prometheus text format
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
