// Package fakenet implements a small OpenRTB ad network the samples can run
// against without a real demand partner. It serves one creative per format,
// signs tracking URLs and records the pixels it receives.
package fakenet

import (
	"context"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/geoip"
	"github.com/patrickwarner/adunits/internal/middleware"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/ratelimit"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var tracer = observability.Tracer("adunits/fakenet")

// TestPlacementPrefixes always fill, like the demo placements of the real
// network.
var TestPlacementPrefixes = []string{"IMG_16_9_", "VID_HD_"}

// Config holds the behaviour of the network.
type Config struct {
	// APIKey is required in the X-API-Key header when set.
	APIKey      string
	PublisherID int
	// FillRate is the probability that a non-test request fills.
	FillRate    float64
	TokenSecret []byte
	TokenTTL    time.Duration
	// LandingURL is where clicks are redirected.
	LandingURL string
	// RateLimit throttles ad requests per user.
	RateLimit ratelimit.Config
}

// Server groups the dependencies of the HTTP handlers.
type Server struct {
	cfg     Config
	logger  *zap.Logger
	metrics observability.MetricsRegistry
	sink    analytics.EventSink
	geo     *geoip.GeoIP
	limiter *ratelimit.Limiter
	// rand returns a value in [0, 1) for the fill decision.
	rand func() float64

	mu     sync.Mutex
	counts map[string]int
}

// NewServer creates a Server. geo and sink may be nil.
func NewServer(cfg Config, logger *zap.Logger, metrics observability.MetricsRegistry, sink analytics.EventSink, geo *geoip.GeoIP) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if sink == nil {
		sink = analytics.NoOp{}
	}
	if cfg.LandingURL == "" {
		cfg.LandingURL = "https://example.com/landing"
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		sink:    sink,
		geo:     geo,
		limiter: ratelimit.New(cfg.RateLimit, "ad", metrics),
		rand:    rand.Float64,
		counts:  make(map[string]int),
	}
}

// Router returns the traced HTTP handler serving every route.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ad", s.AdHandler).Methods(http.MethodPost)
	r.HandleFunc("/impression", s.ImpressionHandler).Methods(http.MethodGet)
	r.HandleFunc("/click", s.ClickHandler).Methods(http.MethodGet)
	r.HandleFunc("/event", s.EventHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.StatsHandler).Methods(http.MethodGet)
	r.Use(middleware.WithTraceLogger(s.logger), middleware.WithAccessLog(s.logger))
	return otelhttp.NewHandler(r, "fakenet")
}

// Count returns how many times name (fill, no_fill, rate_limited,
// impression, click, reward, video_complete) was served.
func (s *Server) Count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[name]
}

// Counts returns a copy of all counters.
func (s *Server) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// RateLimitStats returns the per-user rate limiting counters.
func (s *Server) RateLimitStats() map[string]ratelimit.Stats {
	return s.limiter.Stats()
}

func (s *Server) count(name string) {
	s.mu.Lock()
	s.counts[name]++
	s.mu.Unlock()
}

func (s *Server) shouldFill(placementID string, test bool) bool {
	if test {
		return true
	}
	for _, p := range TestPlacementPrefixes {
		if strings.HasPrefix(placementID, p) {
			return true
		}
	}
	return s.rand() < s.cfg.FillRate
}

func (s *Server) record(ctx context.Context, ev analytics.Event) {
	ev.Timestamp = time.Now()
	if err := s.sink.Record(ctx, ev); err != nil {
		s.logger.Warn("failed to record network event", zap.String("event_type", string(ev.Type)), zap.Error(err))
	}
}
