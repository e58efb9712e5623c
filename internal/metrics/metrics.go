// Package metrics holds the prometheus instrumentation for the message
// listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics.
type Metrics struct {
	MessagesReceived prometheus.Counter
	MessagesApplied  *prometheus.CounterVec
	MessagesRejected *prometheus.CounterVec
	ParseErrors      prometheus.Counter
	ProcessingTime   prometheus.Histogram
}

// New registers and returns the listener metrics.
func New(namespace string) *Metrics {
	return &Metrics{
		MessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "The total number of inbound messages received",
		}),
		MessagesApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_applied_total",
			Help:      "The total number of messages applied to the schedule",
		}, []string{"action_code"}),
		MessagesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rejected_total",
			Help:      "The total number of messages rejected",
		}, []string{"action_code"}),
		ParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "The total number of message parse errors",
		}),
		ProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_processing_time_seconds",
			Help:      "Time taken to process one inbound message",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
