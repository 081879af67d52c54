// Package metrics exposes Prometheus counters for imports, fetches and the
// import inbox. Labels are kept to small fixed sets.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeBusy     = "busy"
)

var (
	importsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talkshelf_imports_total",
		Help: "Import attempts by source and outcome",
	}, []string{"source", "outcome"}) // outcome=success|rejected|error|busy

	importedTalksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talkshelf_imported_talks_total",
		Help: "Talks processed by imports, by source and result",
	}, []string{"source", "result"}) // result=added|skipped|rejected

	importDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "talkshelf_import_duration_seconds",
		Help:    "Duration of import operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talkshelf_sessionize_fetches_total",
		Help: "Sessionize fetch attempts by outcome",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "talkshelf_sessionize_fetch_duration_seconds",
		Help:    "Duration of Sessionize HTTP fetches including retries",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	inboxFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talkshelf_inbox_files_total",
		Help: "Files picked up from the import inbox by outcome",
	}, []string{"outcome"})

	storedTalks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "talkshelf_stored_talks",
		Help: "Number of talks in the local bucket after the last write",
	})
)

// RecordImport records one finished import attempt.
func RecordImport(source, outcome string, added, skipped, rejected int, d time.Duration) {
	importsTotal.WithLabelValues(source, outcome).Inc()
	importDuration.WithLabelValues(source).Observe(d.Seconds())
	if added > 0 {
		importedTalksTotal.WithLabelValues(source, "added").Add(float64(added))
	}
	if skipped > 0 {
		importedTalksTotal.WithLabelValues(source, "skipped").Add(float64(skipped))
	}
	if rejected > 0 {
		importedTalksTotal.WithLabelValues(source, "rejected").Add(float64(rejected))
	}
}

// RecordFetch records one Sessionize fetch.
func RecordFetch(outcome string, d time.Duration) {
	fetchesTotal.WithLabelValues(outcome).Inc()
	fetchDuration.Observe(d.Seconds())
}

// RecordInboxFile records the outcome of processing one inbox file.
func RecordInboxFile(outcome string) {
	inboxFilesTotal.WithLabelValues(outcome).Inc()
}

// SetStoredTalks sets the current talk count.
func SetStoredTalks(n int) {
	storedTalks.Set(float64(n))
}
