package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the ingestion pipeline.
type Metrics struct {
	PostsIngested       *prometheus.CounterVec // labels: platform
	SourceErrors        *prometheus.CounterVec // labels: source
	EmptySources        *prometheus.CounterVec // labels: source
	EnrichmentFallbacks *prometheus.CounterVec // labels: field={hazard,location}
	DigestsGenerated    prometheus.Counter
	DigestErrors        prometheus.Counter
	CyclesTotal         *prometheus.CounterVec // labels: outcome={success,error}
	CycleDuration       prometheus.Histogram
	NotifyErrors        *prometheus.CounterVec // labels: channel
}

func newMetrics() *Metrics {
	return &Metrics{
		PostsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazardradar",
			Name:      "posts_ingested_total",
			Help:      "Posts persisted, by platform.",
		}, []string{"platform"}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazardradar",
			Name:      "source_errors_total",
			Help:      "Source fetch failures that were skipped.",
		}, []string{"source"}),
		EmptySources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazardradar",
			Name:      "empty_sources_total",
			Help:      "Source fetches that returned no posts.",
		}, []string{"source"}),
		EnrichmentFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazardradar",
			Name:      "enrichment_fallbacks_total",
			Help:      "Tags assigned by random fallback instead of a vocabulary match.",
		}, []string{"field"}),
		DigestsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazardradar",
			Name:      "digests_generated_total",
			Help:      "Summary digests persisted.",
		}),
		DigestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazardradar",
			Name:      "digest_errors_total",
			Help:      "Digest generation failures.",
		}),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazardradar",
			Name:      "cycles_total",
			Help:      "Ingestion cycles by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazardradar",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete ingestion cycle.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		NotifyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazardradar",
			Name:      "notify_errors_total",
			Help:      "Digest notification failures by channel.",
		}, []string{"channel"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PostsIngested,
		m.SourceErrors,
		m.EmptySources,
		m.EnrichmentFallbacks,
		m.DigestsGenerated,
		m.DigestErrors,
		m.CyclesTotal,
		m.CycleDuration,
		m.NotifyErrors,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsWithRegistry registers the metrics with reg instead.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
