package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order creations",
	}, []string{"reason"})

	OrdersPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_paid_total",
		Help: "Total number of orders marked paid",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	EventsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_events_published_total",
		Help: "Total number of OrderCreated events published",
	})

	EventsConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_events_consumed_total",
		Help: "Total number of OrderCreated events consumed",
	})

	DuplicateLinesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_lines_duplicate_skipped_total",
		Help: "Event lines skipped because the ledger already recorded them",
	})

	StockDecrementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_decrements_total",
		Help: "Total number of committed stock decrements",
	})

	ConcurrencyConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_concurrency_conflicts_total",
		Help: "Version-check conflicts observed on stock writes",
	})

	InsufficientStockTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_insufficient_total",
		Help: "Event lines rejected for insufficient stock",
	})

	VariantNotFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_variant_not_found_total",
		Help: "Event lines referencing unknown variants",
	})

	RetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_retry_exhausted_total",
		Help: "Event lines that ran out of conflict-retry attempts",
	})

	DeadLettersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_dead_letters_total",
		Help: "Dead-lettered event lines",
	}, []string{"reason"})

	DecrementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_decrement_latency_seconds",
		Help:    "Latency of a single line decrement, retries included",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
