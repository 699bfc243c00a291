package paginate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for pagination runs.
type Metrics struct {
	Registry      *prometheus.Registry
	PagesTotal    *prometheus.CounterVec
	PageDuration  prometheus.Histogram
	RecordsTotal  prometheus.Counter
	RetriesTotal  prometheus.Counter
	RunsTotal     *prometheus.CounterVec
	DuplicatesTot prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catfetch_pages_total",
			Help: "Total page fetches by probe classification.",
		},
		[]string{"classification"},
	)
	pageDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catfetch_page_duration_seconds",
			Help:    "Page fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catfetch_records_total",
			Help: "Total deduplicated product records accumulated.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catfetch_retries_total",
			Help: "Total page retry attempts.",
		},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catfetch_runs_total",
			Help: "Total pagination runs by terminal status.",
		},
		[]string{"status"},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catfetch_duplicate_records_total",
			Help: "Records dropped by cross-page deduplication.",
		},
	)

	registry.MustRegister(pages, pageDuration, records, retries, runs, duplicates)

	return &Metrics{
		Registry:      registry,
		PagesTotal:    pages,
		PageDuration:  pageDuration,
		RecordsTotal:  records,
		RetriesTotal:  retries,
		RunsTotal:     runs,
		DuplicatesTot: duplicates,
	}
}

// IncPage increments the page counter for a classification label.
func (m *Metrics) IncPage(classification string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(classification).Inc()
}

// ObservePage records a page fetch duration.
func (m *Metrics) ObservePage(d time.Duration) {
	if m == nil {
		return
	}
	m.PageDuration.Observe(d.Seconds())
}

// AddRecords adds to the accumulated record counter.
func (m *Metrics) AddRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsTotal.Add(float64(n))
}

// IncRetry increments the retry counter.
func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncRun increments the run counter for a terminal status.
func (m *Metrics) IncRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// AddDuplicates adds to the dropped-duplicate counter.
func (m *Metrics) AddDuplicates(n int) {
	if m == nil {
		return
	}
	m.DuplicatesTot.Add(float64(n))
}
