// Package metrics holds the Prometheus instruments of the ingestion
// pipeline. Instruments register with the default registry on first use.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type ingestionMetrics struct {
	once sync.Once

	importsStarted   prometheus.Counter
	importsCompleted prometheus.Counter
	importsFailed    prometheus.Counter
	importsSkipped   *prometheus.CounterVec

	filesIncluded prometheus.Counter
	filesSkipped  *prometheus.CounterVec

	batchesSent   *prometheus.CounterVec
	batchesFailed *prometheus.CounterVec
	vectorsSent   *prometheus.CounterVec

	persistRetries prometheus.Counter

	importDuration prometheus.Histogram
	batchDuration  prometheus.Histogram
}

var m ingestionMetrics

func (m *ingestionMetrics) init() {
	m.once.Do(func() {
		m.importsStarted = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_imports_started_total", Help: "Import runs started"})
		m.importsCompleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_imports_completed_total", Help: "Import runs that reached ready"})
		m.importsFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_imports_failed_total", Help: "Import runs that ended in error"})
		m.importsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ingest_imports_skipped_total", Help: "Import requests answered without processing"}, []string{"reason"})

		m.filesIncluded = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_files_included_total", Help: "Files selected for indexing"})
		m.filesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ingest_files_skipped_total", Help: "Files left out of indexing"}, []string{"reason"})

		m.batchesSent = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ingest_batches_sent_total", Help: "Upsert batches sent to the vector database"}, []string{"kind"})
		m.batchesFailed = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ingest_batches_failed_total", Help: "Upsert batches that failed or timed out"}, []string{"kind"})
		m.vectorsSent = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ingest_vectors_sent_total", Help: "Vector records submitted"}, []string{"kind"})

		m.persistRetries = prometheus.NewCounter(prometheus.CounterOpts{Name: "ingest_persist_retries_total", Help: "Metadata store writes retried"})

		m.importDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingest_import_seconds",
			Help:    "Duration of a full import run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		})
		m.batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingest_batch_seconds",
			Help:    "Duration of one upsert batch",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		})

		prometheus.MustRegister(
			m.importsStarted, m.importsCompleted, m.importsFailed, m.importsSkipped,
			m.filesIncluded, m.filesSkipped,
			m.batchesSent, m.batchesFailed, m.vectorsSent,
			m.persistRetries,
			m.importDuration, m.batchDuration,
		)
	})
}

func ImportStarted() { m.init(); m.importsStarted.Inc() }

// ImportFinished records the outcome and duration of an import run.
func ImportFinished(start time.Time, err error) {
	m.init()
	m.importDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.importsFailed.Inc()
		return
	}
	m.importsCompleted.Inc()
}

func ImportSkipped(reason string) { m.init(); m.importsSkipped.WithLabelValues(reason).Inc() }

func FilesIncluded(n int) { m.init(); m.filesIncluded.Add(float64(n)) }

func FilesSkipped(reason string, n int) {
	m.init()
	m.filesSkipped.WithLabelValues(reason).Add(float64(n))
}

// BatchDone records one upsert batch of the given content kind.
func BatchDone(kind string, vectors int, took time.Duration, err error) {
	m.init()
	m.batchesSent.WithLabelValues(kind).Inc()
	m.vectorsSent.WithLabelValues(kind).Add(float64(vectors))
	m.batchDuration.Observe(took.Seconds())
	if err != nil {
		m.batchesFailed.WithLabelValues(kind).Inc()
	}
}

func PersistRetry() { m.init(); m.persistRetries.Inc() }
