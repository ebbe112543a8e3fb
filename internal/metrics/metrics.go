// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

// Package metrics defines the Prometheus instrumentation for the feed engine,
// the event store, and the HTTP API. All collectors are registered on the
// default registry via promauto and exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed engine metrics
	FeedEventsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_events_broadcast_total",
			Help: "Total number of events broadcast to map clients per feed",
		},
		[]string{"feed"},
	)

	FeedDedupCacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_dedup_cache_entries",
			Help: "Current number of event IDs held in the dedup cache per feed",
		},
		[]string{"feed"},
	)

	FeedClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_clients",
			Help: "Current number of connected map clients per feed",
		},
		[]string{"feed"},
	)

	FeedClientsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_clients_dropped_total",
			Help: "Total number of map clients disconnected for slow reads",
		},
		[]string{"feed"},
	)

	FeedReplayEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_replay_events_total",
			Help: "Total number of backlog events replayed to connecting clients",
		},
		[]string{"feed"},
	)

	// Event store metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventstore_query_duration_seconds",
			Help:    "Duration of event store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstore_query_errors_total",
			Help: "Total number of event store query errors",
		},
		[]string{"operation"},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordStoreQuery records one event store query with its outcome.
func RecordStoreQuery(operation string, duration time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}
