package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batching metrics
	BatchesFormed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchengine_batches_formed_total",
		Help: "Total number of batches closed by the partitioner",
	})

	BatchesSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchengine_batches_settled_total",
		Help: "Total number of batches settled successfully",
	})

	BatchesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchengine_batches_failed_total",
		Help: "Total number of batches whose settlement failed",
	})

	OrdersSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchengine_orders_skipped_total",
		Help: "Total number of orders excluded by the admissibility gate",
	})

	RewardsCapped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchengine_rewards_capped_total",
		Help: "Total number of beacon rewards clamped by the drift bound",
	})

	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "batchengine_execution_duration_seconds",
		Help:    "Full batching pass duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// Order book metrics
	OpenOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "batchengine_open_orders",
		Help: "Current number of open orders in the book",
	})

	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchengine_orders_placed_total",
		Help: "Total number of orders accepted into the book",
	})

	OrdersExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchengine_orders_executed_total",
		Help: "Total number of orders marked executed",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batchengine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batchengine_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
