package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Components receive it by injection instead of touching the global vecs.
type MetricsRegistry interface {
	// Session metrics
	IncrementTransition(format, from, to string)
	IncrementLoadRequests(format string)
	IncrementLoadResult(format, outcome string)
	IncrementStaleCallback(format, event string)
	IncrementAdEvent(format, eventType string)

	// Ad network metrics
	IncrementNetworkRequests(endpoint, status string)
	RecordNetworkLatency(endpoint string, duration time.Duration)

	// Local ad network metrics
	IncrementServedRequests(endpoint, status string)
	IncrementFill(format, outcome string)
	IncrementRateLimited(scope string)

	// Analytics metrics
	IncrementSinkDrops()
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementTransition(format, from, to string) {
	SessionTransitions.WithLabelValues(format, from, to).Inc()
}

func (r *PrometheusRegistry) IncrementLoadRequests(format string) {
	LoadRequests.WithLabelValues(format).Inc()
}

func (r *PrometheusRegistry) IncrementLoadResult(format, outcome string) {
	LoadResults.WithLabelValues(format, outcome).Inc()
}

func (r *PrometheusRegistry) IncrementStaleCallback(format, event string) {
	StaleCallbacks.WithLabelValues(format, event).Inc()
}

func (r *PrometheusRegistry) IncrementAdEvent(format, eventType string) {
	AdEvents.WithLabelValues(format, eventType).Inc()
}

func (r *PrometheusRegistry) IncrementNetworkRequests(endpoint, status string) {
	NetworkRequests.WithLabelValues(endpoint, status).Inc()
}

func (r *PrometheusRegistry) RecordNetworkLatency(endpoint string, duration time.Duration) {
	NetworkLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementServedRequests(endpoint, status string) {
	ServedRequests.WithLabelValues(endpoint, status).Inc()
}

func (r *PrometheusRegistry) IncrementFill(format, outcome string) {
	Fills.WithLabelValues(format, outcome).Inc()
}

func (r *PrometheusRegistry) IncrementRateLimited(scope string) {
	RateLimited.WithLabelValues(scope).Inc()
}

func (r *PrometheusRegistry) IncrementSinkDrops() {
	SinkDrops.Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementTransition(format, from, to string)                  {}
func (r *NoOpRegistry) IncrementLoadRequests(format string)                          {}
func (r *NoOpRegistry) IncrementLoadResult(format, outcome string)                   {}
func (r *NoOpRegistry) IncrementStaleCallback(format, event string)                  {}
func (r *NoOpRegistry) IncrementAdEvent(format, eventType string)                    {}
func (r *NoOpRegistry) IncrementNetworkRequests(endpoint, status string)             {}
func (r *NoOpRegistry) RecordNetworkLatency(endpoint string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementServedRequests(endpoint, status string)              {}
func (r *NoOpRegistry) IncrementFill(format, outcome string)                         {}
func (r *NoOpRegistry) IncrementRateLimited(scope string)                            {}
func (r *NoOpRegistry) IncrementSinkDrops()                                          {}
