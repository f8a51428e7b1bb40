// Package prometheus defines the instrument set for the case-tracking
// pipeline and registers it against a caller-supplied registry.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arconte"

// Metrics groups every instrument the pipeline emits.  All components take a
// *Metrics and tolerate nil, so tests can pass nothing.
type Metrics struct {
	// Ingest client
	IngestRequestsTotal *prometheus.CounterVec // outcome: ok|fatal|exhausted
	IngestRetriesTotal  prometheus.Counter

	// Sync pipeline
	SyncTotal        *prometheus.CounterVec // outcome: ok|error
	SyncDuration     prometheus.Histogram
	NewActsDetected  prometheus.Counter
	ChangesDetected  *prometheus.CounterVec // type: new_act|status_change|party_change

	// Classification
	ClassificationTotal *prometheus.CounterVec // source: heuristic|ai, type: peremptory|routine
	AIFallbackTotal     *prometheus.CounterVec // outcome: ok|degraded

	// Notifications
	NotificationsCreated prometheus.Counter
	NotificationsPurged  prometheus.Counter

	// Cache
	CacheHitsTotal   *prometheus.CounterVec // cache: case_detail|user_cases|counts
	CacheMissesTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics builds and registers the instrument set on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := NewMetricsWith(reg)
	m.registry = reg
	return m
}

// NewMetricsWith registers the instrument set on the given registerer.
// Used directly in tests where the default collectors would collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := func(name, help string, labels ...string) *prometheus.CounterVec {
		v := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
		reg.MustRegister(v)
		return v
	}
	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
		reg.MustRegister(c)
		return c
	}

	m := &Metrics{
		IngestRequestsTotal: factory("ingest_requests_total", "Ingest fetches by outcome", "outcome"),
		IngestRetriesTotal:  counter("ingest_retries_total", "Ingest fetch retries"),

		SyncTotal:       factory("sync_total", "Case synchronizations by outcome", "outcome"),
		NewActsDetected: counter("new_acts_detected_total", "Procedural acts detected as new"),
		ChangesDetected: factory("changes_detected_total", "Change events by type", "type"),

		ClassificationTotal: factory("classification_total", "Act classifications by source and type", "source", "type"),
		AIFallbackTotal:     factory("ai_fallback_total", "AI classification fallbacks by outcome", "outcome"),

		NotificationsCreated: counter("notifications_created_total", "Notifications created"),
		NotificationsPurged:  counter("notifications_purged_total", "Read notifications removed by retention"),

		CacheHitsTotal:   factory("cache_hits_total", "Cache hits by cache name", "cache"),
		CacheMissesTotal: factory("cache_misses_total", "Cache misses by cache name", "cache"),
	}

	m.SyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_duration_seconds",
		Help:      "End-to-end case synchronization duration",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	})
	reg.MustRegister(m.SyncDuration)

	return m
}

// Handler exposes the registry for scraping.  Nil when the Metrics was built
// with NewMetricsWith.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
