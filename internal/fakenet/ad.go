package fakenet

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/middleware"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/token"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// nativeAdm is the asset document returned for native formats.
type nativeAdm struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	CTA        string `json:"cta"`
	Advertiser string `json:"advertiser"`
	Social     string `json:"social_context,omitempty"`
	Sponsored  string `json:"sponsored"`
	Icon       string `json:"icon"`
	Image      string `json:"image,omitempty"`
}

type creative struct {
	id    string
	price float64
	adm   func() (string, error)
}

func markup(html string) func() (string, error) {
	return func() (string, error) { return html, nil }
}

func native(a nativeAdm) func() (string, error) {
	return func() (string, error) {
		b, err := json.Marshal(a)
		return string(b), err
	}
}

var creatives = map[models.AdFormat]creative{
	models.FormatInterstitial: {
		id: "cr-interstitial", price: 4.2,
		adm: image(imageCreative{
			Image: "https://example.com/i/1080x1920.jpg",
			Alt:   "Gopher Tools",
			Variants: []imageSize{
				{URL: "https://example.com/i/720x1280.jpg", Width: 720, Height: 1280},
				{URL: "https://example.com/i/1080x1920.jpg", Width: 1080, Height: 1920},
			},
		}),
	},
	models.FormatRewardedVideo: {
		id: "cr-rewarded-video", price: 9.5,
		adm: markup(`<video src="https://example.com/v/30s.mp4" autoplay></video>`),
	},
	models.FormatRewardedInterstitial: {
		id: "cr-rewarded-interstitial", price: 7.1,
		adm: markup(`<video src="https://example.com/v/15s.mp4" autoplay></video>`),
	},
	models.FormatBanner: {
		id: "cr-banner", price: 0.6,
		adm: image(imageCreative{
			Image: "https://example.com/b/320x50.png",
			Variants: []imageSize{
				{URL: "https://example.com/b/320x50.png", Width: 320, Height: 50},
				{URL: "https://example.com/b/640x100.png", Width: 640, Height: 100},
			},
		}),
	},
	models.FormatRectangle: {
		id: "cr-rectangle", price: 1.1,
		adm: image(imageCreative{
			Variants: []imageSize{
				{URL: "https://example.com/b/300x250.png", Width: 300, Height: 250},
				{URL: "https://example.com/b/600x500.png", Width: 600, Height: 500},
			},
		}),
	},
	models.FormatNative: {
		id: "cr-native", price: 2.3,
		adm: native(nativeAdm{
			Title:      "Build faster with Go",
			Body:       "Ship services your team can read.",
			CTA:        "Install Now",
			Advertiser: "Gopher Tools",
			Social:     "12k people use this",
			Sponsored:  "Sponsored",
			Icon:       "https://example.com/n/icon.png",
			Image:      "https://example.com/n/1200x628.jpg",
		}),
	},
	models.FormatNativeBanner: {
		id: "cr-native-banner", price: 1.4,
		adm: native(nativeAdm{
			Title:      "Gopher Tools",
			Body:       "Lightweight tooling for Go teams.",
			CTA:        "Learn More",
			Advertiser: "Gopher Tools",
			Sponsored:  "Sponsored",
			Icon:       "https://example.com/n/icon.png",
		}),
	},
}

// formatOf infers the ad format from the request when ext.format is absent.
func formatOf(req *models.OpenRTBRequest) models.AdFormat {
	if f, err := models.ParseAdFormat(req.Ext.Format); err == nil {
		return f
	}
	imp := req.Imp[0]
	switch {
	case imp.Instl == 1 && imp.Rwdd == 1:
		return models.FormatRewardedVideo
	case imp.Instl == 1:
		return models.FormatInterstitial
	case imp.W == 300 && imp.H == 250:
		return models.FormatRectangle
	case imp.W > 0:
		return models.FormatBanner
	default:
		return models.FormatNative
	}
}

// AdHandler handles POST /ad OpenRTB requests.
func (s *Server) AdHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "AdHandler",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/ad"),
		))
	defer span.End()
	logger := middleware.LoggerFromRequest(r, s.logger)
	const endpoint = "ad"

	if s.cfg.APIKey != "" && r.Header.Get("X-API-Key") != s.cfg.APIKey {
		logger.Warn("invalid api key")
		s.metrics.IncrementServedRequests(endpoint, "401")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.OpenRTBRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("decode request", zap.Error(err))
		s.metrics.IncrementServedRequests(endpoint, "400")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if len(req.Imp) == 0 || req.User.ID == "" {
		s.metrics.IncrementServedRequests(endpoint, "400")
		http.Error(w, "imp[] and user.id required", http.StatusBadRequest)
		return
	}
	if s.cfg.PublisherID != 0 && req.Ext.PublisherID != s.cfg.PublisherID {
		logger.Warn("unknown publisher", zap.Int("publisher_id", req.Ext.PublisherID))
		s.metrics.IncrementServedRequests(endpoint, "400")
		http.Error(w, "unknown publisher", http.StatusBadRequest)
		return
	}

	if !s.limiter.Allow(req.User.ID) {
		logger.Info("rate limited", zap.String("user_id", req.User.ID))
		s.count("rate_limited")
		s.metrics.IncrementServedRequests(endpoint, "429")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	imp := req.Imp[0]
	format := formatOf(&req)
	dev := s.resolveDevice(r, req.Device)
	span.SetAttributes(
		attribute.String("request_id", req.ID),
		attribute.String("placement_id", imp.TagID),
		attribute.String("ad.format", format.String()),
		attribute.String("device.type", dev.Type),
		attribute.String("device.country", dev.Country),
	)

	resp := models.OpenRTBResponse{ID: req.ID}
	if dev.Bot || !s.shouldFill(imp.TagID, req.Test == 1) {
		resp.Nbr = 1
		s.count("no_fill")
		s.metrics.IncrementFill(format.String(), "no_fill")
	} else {
		bid, err := s.buildBid(&req, format)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "build bid")
			logger.Error("build bid", zap.Error(err))
			s.metrics.IncrementServedRequests(endpoint, "500")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		resp.SeatBid = []models.SeatBid{{Bid: []models.Bid{bid}}}
		s.count("fill")
		s.metrics.IncrementFill(format.String(), "fill")
	}

	if observability.ShouldSample(observability.GetSamplingRate()) {
		logger.Info("ad request",
			zap.String("request_id", req.ID),
			zap.String("placement_id", imp.TagID),
			zap.String("format", format.String()),
			zap.String("device_type", dev.Type),
			zap.String("country", dev.Country),
			zap.Bool("filled", resp.Nbr == 0))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("encode response", zap.Error(err))
		return
	}
	s.metrics.IncrementServedRequests(endpoint, "200")
	s.record(ctx, analytics.Event{
		SessionID:   req.User.ID,
		Format:      format.String(),
		PlacementID: imp.TagID,
		Type:        analytics.EventLoadRequested,
		HandleID:    req.ID,
		Detail:      fmt.Sprintf("nbr=%d", resp.Nbr),
	})
}

func (s *Server) buildBid(req *models.OpenRTBRequest, format models.AdFormat) (models.Bid, error) {
	cr, ok := creatives[format]
	if !ok {
		return models.Bid{}, fmt.Errorf("no creative for format %s", format)
	}
	adm, err := cr.adm()
	if err != nil {
		return models.Bid{}, fmt.Errorf("render creative: %w", err)
	}

	imp := req.Imp[0]
	tok, err := token.Generate(token.Claims{
		RequestID:   req.ID,
		ImpID:       imp.ID,
		CrID:        cr.id,
		CID:         "fakenet",
		UserID:      req.User.ID,
		PlacementID: imp.TagID,
		Format:      format.String(),
		Rewarded:    imp.Rwdd == 1 || format.IsRewarded(),
	}, s.cfg.TokenSecret)
	if err != nil {
		return models.Bid{}, fmt.Errorf("sign token: %w", err)
	}
	q := "?t=" + url.QueryEscape(tok)

	return models.Bid{
		ID:       uuid.NewString(),
		ImpID:    imp.ID,
		CrID:     cr.id,
		CID:      "fakenet",
		Adm:      adm,
		Price:    cr.price,
		ImpURL:   "/impression" + q,
		ClickURL: "/click" + q,
		EventURL: "/event" + q,
	}, nil
}
