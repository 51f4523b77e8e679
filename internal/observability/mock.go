package observability

import (
	"strings"
	"sync"
	"time"
)

var _ MetricsRegistry = (*MockMetricsRegistry)(nil)

// MockMetricsRegistry counts calls so tests can assert on recorded metrics.
// Keys are the method name followed by its labels, joined with "|", e.g.
// "load_result|interstitial|failed".
type MockMetricsRegistry struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMockMetricsRegistry creates an empty MockMetricsRegistry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{counts: make(map[string]int)}
}

func (m *MockMetricsRegistry) inc(parts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[strings.Join(parts, "|")]++
}

// Count returns how many times the metric identified by parts was recorded.
func (m *MockMetricsRegistry) Count(parts ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[strings.Join(parts, "|")]
}

func (m *MockMetricsRegistry) IncrementTransition(format, from, to string) {
	m.inc("transition", format, from, to)
}

func (m *MockMetricsRegistry) IncrementLoadRequests(format string) {
	m.inc("load_request", format)
}

func (m *MockMetricsRegistry) IncrementLoadResult(format, outcome string) {
	m.inc("load_result", format, outcome)
}

func (m *MockMetricsRegistry) IncrementStaleCallback(format, event string) {
	m.inc("stale", format, event)
}

func (m *MockMetricsRegistry) IncrementAdEvent(format, eventType string) {
	m.inc("ad_event", format, eventType)
}

func (m *MockMetricsRegistry) IncrementNetworkRequests(endpoint, status string) {
	m.inc("network", endpoint, status)
}

func (m *MockMetricsRegistry) RecordNetworkLatency(endpoint string, duration time.Duration) {
	m.inc("latency", endpoint)
}

func (m *MockMetricsRegistry) IncrementServedRequests(endpoint, status string) {
	m.inc("served", endpoint, status)
}

func (m *MockMetricsRegistry) IncrementFill(format, outcome string) {
	m.inc("fill", format, outcome)
}

func (m *MockMetricsRegistry) IncrementRateLimited(scope string) {
	m.inc("rate_limited", scope)
}

func (m *MockMetricsRegistry) IncrementSinkDrops() {
	m.inc("sink_drop")
}
