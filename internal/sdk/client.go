package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = observability.Tracer("adunits/sdk")

// ClientConfig describes how to reach the ad network.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	PublisherID int
	UserID      string
	UserAgent   string
	// Timeout bounds a single ad request including the response body.
	Timeout time.Duration
}

// Client talks to an OpenRTB ad network on behalf of ad objects.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	// trackClient does not follow redirects so click pixels are not resolved
	// to the landing page.
	trackClient *http.Client
	logger      *zap.Logger
	metrics     observability.MetricsRegistry
}

// NewClient creates a Client. A zero Timeout defaults to five seconds.
func NewClient(cfg ClientConfig, logger *zap.Logger, metrics observability.MetricsRegistry) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.UserID == "" {
		cfg.UserID = uuid.NewString()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	instrumented := otelhttp.NewTransport(transport)

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: instrumented,
		},
		trackClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: instrumented,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  logger,
		metrics: metrics,
	}
}

// UserID returns the user identifier sent with every request.
func (c *Client) UserID() string {
	return c.cfg.UserID
}

// RequestAd asks the network for one ad for placementID. A no-fill is
// reported as ErrNoFill; every failure is an *AdError.
func (c *Client) RequestAd(ctx context.Context, placementID string, format models.AdFormat) (*models.Bid, error) {
	ctx, span := tracer.Start(ctx, "RequestAd",
		trace.WithAttributes(
			attribute.String("placement_id", placementID),
			attribute.String("ad.format", format.String()),
		))
	defer span.End()

	const endpoint = "ad"
	start := time.Now()
	status := "error"
	defer func() {
		c.metrics.IncrementNetworkRequests(endpoint, status)
		c.metrics.RecordNetworkLatency(endpoint, time.Since(start))
	}()

	req := c.buildRequest(placementID, format)
	span.SetAttributes(attribute.String("request_id", req.ID))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, newAdError(CodeInternalError, "marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/ad", bytes.NewReader(body))
	if err != nil {
		return nil, newAdError(CodeInternalError, "create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "network error")
		return nil, newAdError(CodeNetworkError, "Network Error: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode == http.StatusTooManyRequests {
		span.SetStatus(codes.Error, "rate limited")
		return nil, newAdError(CodeLoadTooFrequently, "Ad was re-loaded too frequently")
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		span.SetStatus(codes.Error, "server error")
		return nil, newAdError(CodeServerError, "Server Error: http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var ortb models.OpenRTBResponse
	if err := json.NewDecoder(resp.Body).Decode(&ortb); err != nil {
		span.SetStatus(codes.Error, "decode error")
		return nil, newAdError(CodeServerError, "Server Error: decode response: %v", err)
	}

	bid := ortb.FirstBid()
	if bid == nil {
		span.SetAttributes(attribute.String("ad.result", "no_fill"), attribute.Int("nbr", ortb.Nbr))
		return nil, ErrNoFill
	}
	span.SetAttributes(
		attribute.String("ad.result", "fill"),
		attribute.String("ad.creative_id", bid.CrID),
		attribute.Float64("ad.price", bid.Price),
	)
	return bid, nil
}

func (c *Client) buildRequest(placementID string, format models.AdFormat) models.OpenRTBRequest {
	imp := models.Impression{ID: "1", TagID: placementID}
	switch format {
	case models.FormatBanner:
		imp.W, imp.H = 320, 50
	case models.FormatRectangle:
		imp.W, imp.H = 300, 250
	}
	if format.IsFullscreen() {
		imp.Instl = 1
	}
	if format.IsRewarded() {
		imp.Rwdd = 1
	}

	req := models.OpenRTBRequest{
		ID:     "req_" + uuid.NewString(),
		Imp:    []models.Impression{imp},
		User:   models.User{ID: c.cfg.UserID},
		Device: models.Device{UA: c.cfg.UserAgent},
		Ext: models.RequestExt{
			PublisherID: c.cfg.PublisherID,
			Format:      format.String(),
			SDKVersion:  Version,
		},
	}
	if isTestRequest() {
		req.Test = 1
	}
	return req
}

// Track fires a tracking pixel. Relative URLs are resolved against the
// network base URL. Any 2xx or 3xx response counts as success.
func (c *Client) Track(ctx context.Context, endpoint, rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%s: no tracking url", endpoint)
	}
	start := time.Now()
	status := "error"
	defer func() {
		c.metrics.IncrementNetworkRequests(endpoint, status)
		c.metrics.RecordNetworkLatency(endpoint, time.Since(start))
	}()

	target := rawURL
	if strings.HasPrefix(rawURL, "/") {
		target = c.cfg.BaseURL + rawURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.trackClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: http %d", endpoint, resp.StatusCode)
	}
	return nil
}

// trackAsync fires a pixel without blocking the caller; failures are logged.
func (c *Client) trackAsync(endpoint, rawURL string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
		defer cancel()
		if err := c.Track(ctx, endpoint, rawURL); err != nil {
			c.logger.Warn("tracking pixel failed", zap.String("endpoint", endpoint), zap.Error(err))
		}
	}()
}
