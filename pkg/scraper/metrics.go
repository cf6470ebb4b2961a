package scraper

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a scrape run. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry      *prometheus.Registry
	PagesFetched  prometheus.Counter
	ReviewsTotal  prometheus.Counter
	FetchErrors   *prometheus.CounterVec
	Pauses        prometheus.Counter
	AppsCompleted prometheus.Counter
	GiveUps       prometheus.Counter
	FetchDuration prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storereviews_pages_fetched_total",
		Help: "Review pages fetched without error.",
	})
	reviews := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storereviews_reviews_total",
		Help: "Reviews collected across all apps.",
	})
	fetchErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storereviews_fetch_errors_total",
		Help: "Failed provider calls by error type.",
	}, []string{"error_type"})
	pauses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storereviews_pauses_total",
		Help: "Pauses taken after a failed page fetch.",
	})
	apps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storereviews_apps_completed_total",
		Help: "Apps whose reviews were fully collected.",
	})
	giveUps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storereviews_retry_giveups_total",
		Help: "Apps finished early because a page exceeded the retry limit.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storereviews_fetch_duration_seconds",
		Help:    "Latency of provider calls.",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(pages, reviews, fetchErrors, pauses, apps, giveUps, duration)

	return &Metrics{
		Registry:      registry,
		PagesFetched:  pages,
		ReviewsTotal:  reviews,
		FetchErrors:   fetchErrors,
		Pauses:        pauses,
		AppsCompleted: apps,
		GiveUps:       giveUps,
		FetchDuration: duration,
	}
}

// ObservePage records a successful page and its review count.
func (m *Metrics) ObservePage(reviews int) {
	if m == nil {
		return
	}
	m.PagesFetched.Inc()
	m.ReviewsTotal.Add(float64(reviews))
}

// ObserveFetch records the latency of one provider call.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncFetchError increments the error counter for a type.
func (m *Metrics) IncFetchError(errorType string) {
	if m == nil {
		return
	}
	m.FetchErrors.WithLabelValues(errorType).Inc()
}

// IncPause increments the pause counter.
func (m *Metrics) IncPause() {
	if m == nil {
		return
	}
	m.Pauses.Inc()
}

// IncAppCompleted increments the completed apps counter.
func (m *Metrics) IncAppCompleted() {
	if m == nil {
		return
	}
	m.AppsCompleted.Inc()
}

// IncGiveUp increments the retry limit counter.
func (m *Metrics) IncGiveUp() {
	if m == nil {
		return
	}
	m.GiveUps.Inc()
}

// WriteTextfile writes all metrics in the Prometheus text format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
