package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mu_query_queries_total",
			Help: "Number of queries run, by outcome.",
		},
		[]string{"result"}, // ok, compile_error, store_error
	)
	metricBatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mu_query_batches_fetched_total",
			Help: "Number of result batches fetched from the index.",
		},
	)
	metricBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mu_query_batch_fetch_seconds",
			Help:    "Time to fetch one result batch.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)
