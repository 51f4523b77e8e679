package fakenet

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/middleware"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/ratelimit"
	"github.com/patrickwarner/adunits/internal/token"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Event types accepted by /event.
const (
	EventReward        = "reward"
	EventVideoComplete = "video_complete"
)

// verify checks the token of a pixel request. It writes the error response
// and returns false when the token is missing or invalid.
func (s *Server) verify(ctx context.Context, w http.ResponseWriter, r *http.Request, endpoint string) (token.Claims, bool) {
	logger := middleware.LoggerFromRequest(r, s.logger)
	span := trace.SpanFromContext(ctx)

	tok := r.URL.Query().Get("t")
	if tok == "" {
		logger.Warn("missing token")
		s.metrics.IncrementServedRequests(endpoint, "401")
		http.Error(w, "token required", http.StatusUnauthorized)
		return token.Claims{}, false
	}
	claims, err := token.Verify(tok, s.cfg.TokenSecret, s.cfg.TokenTTL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid token")
		logger.Warn("token verify", zap.Error(err))
		s.metrics.IncrementServedRequests(endpoint, "401")
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return token.Claims{}, false
	}
	span.SetAttributes(
		attribute.String("request_id", claims.RequestID),
		attribute.String("creative_id", claims.CrID),
		attribute.String("placement_id", claims.PlacementID),
	)
	return claims, true
}

func (s *Server) recordPixel(ctx context.Context, claims token.Claims, typ analytics.EventType, detail string) {
	s.record(ctx, analytics.Event{
		SessionID:   claims.UserID,
		Format:      claims.Format,
		PlacementID: claims.PlacementID,
		Type:        typ,
		HandleID:    claims.RequestID,
		Detail:      detail,
	})
}

func writePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pixelGIF)
}

// ImpressionHandler handles GET /impression pixel requests.
func (s *Server) ImpressionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "ImpressionHandler",
		trace.WithAttributes(attribute.String("http.route", "/impression")))
	defer span.End()
	const endpoint = "impression"

	claims, ok := s.verify(ctx, w, r, endpoint)
	if !ok {
		return
	}
	s.count("impression")
	s.recordPixel(ctx, claims, analytics.EventImpression, "")
	if observability.ShouldSample(observability.GetSamplingRate()) {
		middleware.LoggerFromRequest(r, s.logger).Info("impression",
			zap.String("request_id", claims.RequestID),
			zap.String("user_id", claims.UserID),
			zap.String("event_type", "impression"))
	}
	s.metrics.IncrementServedRequests(endpoint, "200")
	writePixel(w)
}

// ClickHandler handles GET /click and redirects to the landing page.
func (s *Server) ClickHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "ClickHandler",
		trace.WithAttributes(attribute.String("http.route", "/click")))
	defer span.End()
	const endpoint = "click"

	claims, ok := s.verify(ctx, w, r, endpoint)
	if !ok {
		return
	}
	s.count("click")
	s.recordPixel(ctx, claims, analytics.EventClicked, "")
	middleware.LoggerFromRequest(r, s.logger).Debug("redirecting click",
		zap.String("request_id", claims.RequestID),
		zap.String("url", s.cfg.LandingURL))
	s.metrics.IncrementServedRequests(endpoint, "302")
	http.Redirect(w, r, s.cfg.LandingURL, http.StatusFound)
}

// EventHandler handles GET /event?type=reward|video_complete. Rewards are
// only granted for tokens issued to rewarded impressions.
func (s *Server) EventHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "EventHandler",
		trace.WithAttributes(attribute.String("http.route", "/event")))
	defer span.End()
	const endpoint = "event"
	logger := middleware.LoggerFromRequest(r, s.logger)

	claims, ok := s.verify(ctx, w, r, endpoint)
	if !ok {
		return
	}

	evType := r.URL.Query().Get("type")
	span.SetAttributes(attribute.String("event.type", evType))
	switch evType {
	case EventReward:
		if !claims.Rewarded {
			logger.Warn("reward claimed for non rewarded ad", zap.String("request_id", claims.RequestID))
			s.recordPixel(ctx, claims, analytics.EventRewardFailed, "not rewarded")
			s.metrics.IncrementServedRequests(endpoint, "403")
			http.Error(w, "not a rewarded ad", http.StatusForbidden)
			return
		}
		s.count(EventReward)
		s.recordPixel(ctx, claims, analytics.EventRewardGranted, "")
	case EventVideoComplete:
		s.count(EventVideoComplete)
		logger.Debug("video complete", zap.String("request_id", claims.RequestID))
	default:
		logger.Warn("unknown event type", zap.String("type", evType))
		s.metrics.IncrementServedRequests(endpoint, "400")
		http.Error(w, "unknown event type", http.StatusBadRequest)
		return
	}
	s.metrics.IncrementServedRequests(endpoint, "200")
	writePixel(w)
}

// HealthHandler responds with a simple status check.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
	s.metrics.IncrementServedRequests("health", "200")
}

// StatsSnapshot is the body of GET /stats.
type StatsSnapshot struct {
	Counts    map[string]int             `json:"counts"`
	RateLimit map[string]ratelimit.Stats `json:"rate_limit,omitempty"`
}

// StatsHandler reports what the network has served so far.
func (s *Server) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(StatsSnapshot{Counts: s.Counts(), RateLimit: s.RateLimitStats()}); err != nil {
		s.logger.Warn("encode stats", zap.Error(err))
		return
	}
	s.metrics.IncrementServedRequests("stats", "200")
}
