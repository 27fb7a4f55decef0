package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mu_index_files_total",
			Help: "Message files handled by the indexer, by status.",
		},
		[]string{"status"},
	)
	metricRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mu_index_run_seconds",
			Help:    "Duration of indexing runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		},
	)
)
