package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grid_etl"

// Metrics holds the Prometheus collectors for one ingestion process.
type Metrics struct {
	Runs             *prometheus.CounterVec   // labels: source={outage,generation}, outcome={success,error}
	StageDuration    *prometheus.HistogramVec // labels: source, stage
	FetchDuration    *prometheus.HistogramVec // labels: host
	RowsInserted     *prometheus.CounterVec   // labels: table
	RowsSkipped      *prometheus.CounterVec   // labels: table
	PublishErrors    *prometheus.CounterVec   // labels: source
	LastSuccessEpoch *prometheus.GaugeVec     // labels: source
}

// NewMetrics creates and registers all collectors with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Runs,
		m.StageDuration,
		m.FetchDuration,
		m.RowsInserted,
		m.RowsSkipped,
		m.PublishErrors,
		m.LastSuccessEpoch,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Ingestion attempts by upstream source and outcome.",
		}, []string{"source", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source", "stage"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Upstream HTTP request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"host"}),
		RowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_inserted_total",
			Help:      "Rows inserted by table.",
		}, []string{"table"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Rows whose insert failed and were skipped under the skip policy.",
		}, []string{"table"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Snapshot notifications that could not be published.",
		}, []string{"source"}),
		LastSuccessEpoch: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_snapshot_epoch_seconds",
			Help:      "Epoch key of the last snapshot persisted per source.",
		}, []string{"source"}),
	}
}
