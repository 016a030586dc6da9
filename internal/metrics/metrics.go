// Package metrics tracks pipeline counters for the monitoring endpoints.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	RunsTotal          *prometheus.CounterVec
	ArticlesFetched    prometheus.Counter
	DuplicatesFiltered prometheus.Counter
	EnrichmentFailures prometheus.Counter
	ArticlesUploaded   prometheus.Counter
	NotificationsSent  prometheus.Counter
	RunDuration        prometheus.Histogram

	mu            sync.RWMutex
	lastRunTime   time.Time
	lastError     string
	lastErrorTime time.Time
	healthy       bool
}

// Global is the process-wide instance used by the pipeline and the
// monitoring server.
var Global = New()

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		healthy:  true,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "brief_pipeline_runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"status"}),
		ArticlesFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "brief_articles_fetched_total",
			Help: "Raw articles collected from all sources.",
		}),
		DuplicatesFiltered: factory.NewCounter(prometheus.CounterOpts{
			Name: "brief_duplicates_filtered_total",
			Help: "Articles dropped because their link was already stored.",
		}),
		EnrichmentFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "brief_enrichment_failures_total",
			Help: "Articles that degraded to the heuristic classifier.",
		}),
		ArticlesUploaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "brief_articles_uploaded_total",
			Help: "Articles upserted into storage.",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "brief_notifications_sent_total",
			Help: "Push notifications dispatched (broadcast and targeted).",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "brief_run_duration_seconds",
			Help:    "Wall-clock duration of one pipeline run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// Handler serves the Prometheus exposition endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunTime = time.Now()
	m.healthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = err
	m.lastErrorTime = time.Now()
	m.healthy = false
}

// Snapshot returns the health state served by /health.
func (m *Metrics) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]any{
		"is_healthy":      m.healthy,
		"last_run_time":   m.lastRunTime.Format(time.RFC3339),
		"last_error":      m.lastError,
		"last_error_time": m.lastErrorTime.Format(time.RFC3339),
	}
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}
