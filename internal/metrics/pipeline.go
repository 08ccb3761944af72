package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion run metrics.
var (
	IngestionPagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ingestion_pages_total",
			Help:      "Pages processed by ingestion runs",
		},
	)

	IngestionChunkFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ingestion_chunk_failures_total",
			Help:      "Chunks that failed to embed or index",
		},
	)

	IngestionRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "ingestion_run_duration_seconds",
			Help:      "Ingestion run duration in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"status"},
	)

	// IngestionRunning is 1 while a run is in progress.
	IngestionRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "ingestion_running",
			Help:      "Whether an ingestion run is in progress",
		},
	)
)

func pipelineCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		IngestionPagesTotal,
		IngestionChunkFailuresTotal,
		IngestionRunDuration,
		IngestionRunning,
	}
}
