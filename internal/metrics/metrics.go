// Package metrics holds the Prometheus collectors for scrape runs. Every
// method is safe to call on a nil *Metrics so callers never need to check.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Page outcomes used as the "outcome" label of listing_scraper_pages_total.
const (
	OutcomeScraped = "scraped"
	OutcomeEmpty   = "empty"
	OutcomeFailed  = "failed"
)

type Metrics struct {
	Registry     *prometheus.Registry
	RunsTotal    *prometheus.CounterVec
	PagesTotal   *prometheus.CounterVec
	RecordsTotal prometheus.Counter
	SkippedTotal *prometheus.CounterVec
	ErrorsTotal  *prometheus.CounterVec
	RunDuration  prometheus.Histogram
}

// New constructs and registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_scraper_runs_total",
			Help: "Scrape runs by final status.",
		},
		[]string{"status"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_scraper_pages_total",
			Help: "Pages visited by outcome.",
		},
		[]string{"outcome"},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "listing_scraper_records_total",
			Help: "Listings extracted and handed to the sink.",
		},
	)
	skipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_scraper_skipped_records_total",
			Help: "Containers skipped because a field was missing.",
		},
		[]string{"field"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_scraper_errors_total",
			Help: "Errors by type.",
		},
		[]string{"error_type"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listing_scraper_run_duration_seconds",
			Help:    "Wall time of complete runs.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)

	registry.MustRegister(runs, pages, records, skipped, errorsTotal, duration)

	return &Metrics{
		Registry:     registry,
		RunsTotal:    runs,
		PagesTotal:   pages,
		RecordsTotal: records,
		SkippedTotal: skipped,
		ErrorsTotal:  errorsTotal,
		RunDuration:  duration,
	}
}

func (m *Metrics) IncRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddRecords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsTotal.Add(float64(n))
}

func (m *Metrics) IncSkipped(field string) {
	if m == nil {
		return
	}
	m.SkippedTotal.WithLabelValues(field).Inc()
}

func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
}
