package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// collection pipeline.
type Metrics struct {
	FeedsFetched    prometheus.Counter
	FetchErrors     *prometheus.CounterVec // label: source
	EntriesArchived prometheus.Counter

	// Day build metrics.
	EntriesParsed   prometheus.Counter
	CandidatesBuilt prometheus.Counter

	// Batch cycle metrics.
	BatchesRun    prometheus.Counter
	BatchDuration prometheus.Histogram
	LastBatch     prometheus.Gauge

	RowsBuilt        prometheus.Counter
	RowsDeduplicated prometheus.Counter

	// Ledger metrics.
	IncidentsRegistered prometheus.Counter
	DuplicatesSkipped   prometheus.Counter
	IncidentsResolved   prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FeedsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opsintel",
			Name:      "feeds_fetched_total",
			Help:      "Total raw feed blocks fetched from all sources.",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opsintel",
			Name:      "fetch_errors_total",
			Help:      "Fetch failures by source name.",
		}, []string{"source"}),
		EntriesArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opsintel",
			Name:      "entries_archived_total",
			Help:      "Total feed entries appended to the day archive.",
		}),
		EntriesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opsintel",
			Name:      "entries_parsed_total",
			Help:      "Total feed entries parsed out of archived day files.",
		}),
		CandidatesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opsintel",
			Name:      "candidates_built_total",
			Help:      "Total incident candidates parsed from categorized reports.",
		}),
		BatchesRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opsintel",
			Name:      "batches_total",
			Help:      "Total collection batches completed.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "opsintel",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete collect-register-export cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		LastBatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "opsintel",
			Name:      "last_batch_timestamp_seconds",
			Help:      "Unix time of the last completed batch.",
		}),
		RowsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opsintel",
			Name:      "sicu_rows_built_total",
			Help:      "Total SICU rows built from archived day files.",
		}),
		RowsDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opsintel",
			Name:      "sicu_rows_deduplicated_total",
			Help:      "Total SICU rows dropped as near duplicates.",
		}),
		IncidentsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opsintel",
			Name:      "incidents_registered_total",
			Help:      "Total new incidents inserted into the ledger.",
		}),
		DuplicatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opsintel",
			Name:      "incidents_duplicate_total",
			Help:      "Total candidates skipped because the tuple already existed.",
		}),
		IncidentsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opsintel",
			Name:      "incidents_resolved_total",
			Help:      "Total pending incidents that received coordinates.",
		}),
	}

	prometheus.MustRegister(
		m.FeedsFetched,
		m.FetchErrors,
		m.EntriesArchived,
		m.EntriesParsed,
		m.CandidatesBuilt,
		m.BatchesRun,
		m.BatchDuration,
		m.LastBatch,
		m.RowsBuilt,
		m.RowsDeduplicated,
		m.IncidentsRegistered,
		m.DuplicatesSkipped,
		m.IncidentsResolved,
	)

	return m
}

// NewMetricsForTesting creates Metrics without touching the default
// registry, avoiding "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FeedsFetched:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "opsintel", Name: "feeds_fetched_total"}),
		FetchErrors:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "opsintel", Name: "fetch_errors_total"}, []string{"source"}),
		EntriesArchived:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "opsintel", Name: "entries_archived_total"}),
		EntriesParsed:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "opsintel", Name: "entries_parsed_total"}),
		CandidatesBuilt:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "opsintel", Name: "candidates_built_total"}),
		BatchesRun:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "opsintel", Name: "batches_total"}),
		BatchDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "opsintel", Name: "batch_duration_seconds"}),
		LastBatch:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "opsintel", Name: "last_batch_timestamp_seconds"}),
		RowsBuilt:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "opsintel", Name: "sicu_rows_built_total"}),
		RowsDeduplicated:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "opsintel", Name: "sicu_rows_deduplicated_total"}),
		IncidentsRegistered: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "opsintel", Name: "incidents_registered_total"}),
		DuplicatesSkipped:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "opsintel", Name: "incidents_duplicate_total"}),
		IncidentsResolved:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "opsintel", Name: "incidents_resolved_total"}),
	}
}
