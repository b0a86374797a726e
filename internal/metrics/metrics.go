package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ragquery"

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the run's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	EmbeddingRequestsTotal   *prometheus.CounterVec
	EmbeddingRequestDuration *prometheus.HistogramVec
	SearchRequestsTotal      *prometheus.CounterVec
	SearchRequestDuration    *prometheus.HistogramVec
	SearchHits               *prometheus.GaugeVec
	HealthChecksTotal        *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		EmbeddingRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_requests_total",
				Help:      "Total number of embedding requests",
			},
			[]string{"provider", "status"},
		),
		EmbeddingRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "embedding_duration_seconds",
				Help:      "Embedding request duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),
		SearchRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Total number of collection searches",
			},
			[]string{"collection", "status"},
		),
		SearchRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Collection search duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"collection"},
		),
		SearchHits: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "search_hits",
				Help:      "Hits returned by the last search per collection",
			},
			[]string{"collection"},
		),
		HealthChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "health_checks_total",
				Help:      "Health probes by service and result",
			},
			[]string{"service", "result"},
		),
	}

	m.Registry.MustRegister(
		m.EmbeddingRequestsTotal,
		m.EmbeddingRequestDuration,
		m.SearchRequestsTotal,
		m.SearchRequestDuration,
		m.SearchHits,
		m.HealthChecksTotal,
	)
	return m
}

// ObserveEmbedding records one embedding call.
func (m *Metrics) ObserveEmbedding(provider string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.EmbeddingRequestsTotal.WithLabelValues(provider, status(err)).Inc()
	if err == nil {
		m.EmbeddingRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
	}
}

// ObserveSearch records one collection search.
func (m *Metrics) ObserveSearch(collection string, hits int, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(collection, status(err)).Inc()
	m.SearchRequestDuration.WithLabelValues(collection).Observe(d.Seconds())
	if err == nil {
		m.SearchHits.WithLabelValues(collection).Set(float64(hits))
	}
}

// ObserveHealth records one health probe; result is "reachable" or "unreachable".
func (m *Metrics) ObserveHealth(service, result string) {
	if m == nil {
		return
	}
	m.HealthChecksTotal.WithLabelValues(service, result).Inc()
}

// WriteTextfile writes the registry in the node_exporter textfile collector format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
