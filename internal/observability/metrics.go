package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// state transitions of fullscreen sessions
	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adunits_session_transitions_total",
			Help: "Total loading state transitions",
		},
		[]string{"format", "from", "to"},
	)

	// load requests issued on ad handles
	LoadRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adunits_load_requests_total",
			Help: "Total ad load requests issued",
		},
		[]string{"format"},
	)

	// terminal load outcomes (loaded, failed)
	LoadResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adunits_load_results_total",
			Help: "Total ad load completions by outcome",
		},
		[]string{"format", "outcome"},
	)

	// callbacks dropped because their handle was superseded
	StaleCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adunits_stale_callbacks_total",
			Help: "Total callbacks ignored for stale handles",
		},
		[]string{"format", "event"},
	)

	// observability-only ad events: click, impression, reward_granted, ...
	AdEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adunits_ad_events_total",
			Help: "Total ad lifecycle events",
		},
		[]string{"format", "type"},
	)

	// ad network HTTP calls made by the SDK
	NetworkRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adunits_network_requests_total",
			Help: "Total ad network requests",
		},
		[]string{"endpoint", "status"},
	)

	NetworkLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adunits_network_request_duration_seconds",
			Help:    "Histogram of ad network request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// requests answered by the local ad network
	ServedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fakenet_requests_total",
			Help: "Total requests served by the local ad network",
		},
		[]string{"endpoint", "status"},
	)

	// fill decisions of the local ad network
	Fills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fakenet_fill_total",
			Help: "Total ad requests by fill outcome",
		},
		[]string{"format", "outcome"},
	)

	// requests refused by the local ad network's rate limiter
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fakenet_rate_limited_total",
			Help: "Total requests rejected by rate limiting",
		},
		[]string{"scope"},
	)

	// events dropped by the async sink because its queue was full
	SinkDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adunits_sink_dropped_events_total",
			Help: "Total analytics events dropped by a full queue",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SessionTransitions,
		LoadRequests,
		LoadResults,
		StaleCallbacks,
		AdEvents,
		NetworkRequests,
		NetworkLatency,
		ServedRequests,
		Fills,
		RateLimited,
		SinkDrops,
	)
}
