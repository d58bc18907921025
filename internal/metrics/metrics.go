// Package metrics exposes Prometheus instrumentation for the aggregation
// cycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors registered for the worker.
type Metrics struct {
	MessagesCollected  *prometheus.CounterVec
	ItemsStored        prometheus.Counter
	ItemsSkipped       prometheus.Counter
	ExtractionFailures prometheus.Counter
	StoreFailures      prometheus.Counter
	AdapterFailures    *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
}

// New registers the worker's collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		MessagesCollected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregator_messages_collected_total",
			Help: "Raw messages collected, by source platform.",
		}, []string{"source"}),
		ItemsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_items_stored_total",
			Help: "News items persisted.",
		}),
		ItemsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_items_skipped_total",
			Help: "Messages discarded as non-news or filtered before extraction.",
		}),
		ExtractionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_extraction_failures_total",
			Help: "Messages dropped because extraction failed.",
		}),
		StoreFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_store_failures_total",
			Help: "Items that failed to persist.",
		}),
		AdapterFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregator_adapter_failures_total",
			Help: "Collection cycles in which an adapter returned an error.",
		}, []string{"source"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "aggregator_cycle_duration_seconds",
			Help:    "Wall time of a full collect-process-store cycle.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}
