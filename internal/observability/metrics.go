// Package observability holds the Prometheus collectors and OpenTelemetry
// tracer shared by the service and realtime layers.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for RelationshipOps.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeError   = "error"
)

var (
	// RelationshipOps counts relationship engine operations by outcome.
	RelationshipOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_relationship_operations_total",
		Help: "Relationship operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// RelationshipRetries counts optimistic-lock retries per operation.
	RelationshipRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_relationship_retries_total",
		Help: "Relationship writes retried after a version conflict",
	}, []string{"operation"})

	// FeedComposeLatency records how long feed composition takes.
	FeedComposeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orbit_feed_compose_seconds",
		Help:    "Feed composition latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"filtered"})

	// FeedExclusions records the size of the exclusion sets applied to a feed.
	FeedExclusions = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orbit_feed_exclusions",
		Help:    "Number of posts or authors excluded from a feed request",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
	}, []string{"kind"})

	// EventsPublished counts social events by sink and result.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_events_published_total",
		Help: "Social events handed to a sink",
	}, []string{"sink", "result"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// ObserveFeed returns a function that records feed latency when called (e.g. defer).
func ObserveFeed(filtered bool) func() {
	start := time.Now()
	label := "false"
	if filtered {
		label = "true"
	}
	return func() {
		FeedComposeLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}
}
