// Package metrics exposes prometheus collectors for the billing engine.
// Collectors are usable before registration; main registers them once.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "facture"

var (
	// DocumentsCreated counts created documents by kind and origin (direct, conversion).
	DocumentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_created_total",
			Help:      "Total number of documents created",
		},
		[]string{"kind", "origin"},
	)

	NumbersAllocated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "numbers_allocated_total",
			Help:      "Total number of document numbers allocated",
		},
		[]string{"kind"},
	)

	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Total number of document status transitions",
		},
		[]string{"kind", "from", "to"},
	)

	StockMovements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movements_total",
			Help:      "Total number of stock movements recorded",
		},
		[]string{"kind"},
	)

	StockReversals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_reversals_total",
			Help:      "Total number of stock movements reversed on document edit",
		},
	)

	ConcurrencyConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_conflicts_total",
			Help:      "Storage conflicts surfaced as retryable errors",
		},
		[]string{"op"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		DocumentsCreated,
		NumbersAllocated,
		StatusTransitions,
		StockMovements,
		StockReversals,
		ConcurrencyConflicts,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
