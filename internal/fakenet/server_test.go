package fakenet

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/ratelimit"
	"github.com/patrickwarner/adunits/internal/sdk"
	"github.com/patrickwarner/adunits/internal/session"
	"github.com/patrickwarner/adunits/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const phoneUA = "Mozilla/5.0 (Linux; Android 12; Pixel 6 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.5735.196 Mobile Safari/537.36"

var secret = []byte("test-secret")

func newTestServer(t *testing.T, fillRate float64) (*Server, *httptest.Server, *observability.MockMetricsRegistry, *analytics.Mock) {
	t.Helper()
	metrics := observability.NewMockMetricsRegistry()
	sink := analytics.NewMock()
	s := NewServer(Config{
		APIKey:      "demo",
		PublisherID: 1,
		FillRate:    fillRate,
		TokenSecret: secret,
		TokenTTL:    time.Minute,
	}, zap.NewNop(), metrics, sink, nil)
	// deterministic fill decision: fills only when FillRate is 1
	s.rand = func() float64 { return 0.999 }
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, srv, metrics, sink
}

func adRequest(placement string, format models.AdFormat) models.OpenRTBRequest {
	imp := models.Impression{ID: "1", TagID: placement}
	if format.IsFullscreen() {
		imp.Instl = 1
	}
	if format.IsRewarded() {
		imp.Rwdd = 1
	}
	return models.OpenRTBRequest{
		ID:     "req-1",
		Imp:    []models.Impression{imp},
		User:   models.User{ID: "user-1"},
		Device: models.Device{UA: phoneUA, IP: "10.0.0.1"},
		Ext:    models.RequestExt{PublisherID: 1, Format: format.String()},
	}
}

func postAd(t *testing.T, srv *httptest.Server, apiKey string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/ad", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) models.OpenRTBResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out models.OpenRTBResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAdHandlerRejectsBadRequests(t *testing.T) {
	_, srv, metrics, _ := newTestServer(t, 1)

	resp := postAd(t, srv, "wrong", adRequest("p", models.FormatBanner))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postAd(t, srv, "demo", "not an object")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	noUser := adRequest("p", models.FormatBanner)
	noUser.User.ID = ""
	resp = postAd(t, srv, "demo", noUser)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	otherPub := adRequest("p", models.FormatBanner)
	otherPub.Ext.PublisherID = 7
	resp = postAd(t, srv, "demo", otherPub)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, 1, metrics.Count("served", "ad", "401"))
	assert.Equal(t, 3, metrics.Count("served", "ad", "400"))
}

func TestAdHandlerFillDecision(t *testing.T) {
	tests := []struct {
		name      string
		placement string
		test      bool
		fillRate  float64
		wantFill  bool
	}{
		{"test image placement", "IMG_16_9_APP_INSTALL#1_2", false, 0, true},
		{"test video placement", "VID_HD_9_16_39S_LINK#1_2", false, 0, true},
		{"test request", "YOUR_PLACEMENT_ID", true, 0, true},
		{"fill rate one", "YOUR_PLACEMENT_ID", false, 1, true},
		{"unlucky", "YOUR_PLACEMENT_ID", false, 0.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, srv, metrics, _ := newTestServer(t, tt.fillRate)
			req := adRequest(tt.placement, models.FormatInterstitial)
			if tt.test {
				req.Test = 1
			}
			out := decodeResponse(t, postAd(t, srv, "demo", req))
			if tt.wantFill {
				require.NotNil(t, out.FirstBid())
				assert.Equal(t, 1, s.Count("fill"))
				assert.Equal(t, 1, metrics.Count("fill", "interstitial", "fill"))
			} else {
				assert.Nil(t, out.FirstBid())
				assert.Equal(t, 1, out.Nbr)
				assert.Equal(t, 1, s.Count("no_fill"))
			}
		})
	}
}

func TestAdHandlerCreatives(t *testing.T) {
	_, srv, _, sink := newTestServer(t, 1)

	out := decodeResponse(t, postAd(t, srv, "demo", adRequest("p", models.FormatNative)))
	bid := out.FirstBid()
	require.NotNil(t, bid)
	assert.Equal(t, "cr-native", bid.CrID)
	var assets map[string]string
	require.NoError(t, json.Unmarshal([]byte(bid.Adm), &assets))
	assert.Equal(t, "Install Now", assets["cta"])
	assert.Equal(t, "Sponsored", assets["sponsored"])

	for _, u := range []string{bid.ImpURL, bid.ClickURL, bid.EventURL} {
		parsed, err := url.Parse(u)
		require.NoError(t, err)
		claims, err := token.Verify(parsed.Query().Get("t"), secret, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "req-1", claims.RequestID)
		assert.Equal(t, "native", claims.Format)
		assert.False(t, claims.Rewarded)
	}

	// format inferred from the impression when ext.format is missing
	req := adRequest("p", models.FormatRectangle)
	req.Ext.Format = ""
	req.Imp[0].W, req.Imp[0].H = 300, 250
	out = decodeResponse(t, postAd(t, srv, "demo", req))
	require.NotNil(t, out.FirstBid())
	assert.Equal(t, "cr-rectangle", out.FirstBid().CrID)

	assert.Equal(t, []analytics.EventType{analytics.EventLoadRequested, analytics.EventLoadRequested}, sink.Types())
}

func TestPixelHandlers(t *testing.T) {
	s, srv, _, sink := newTestServer(t, 1)
	out := decodeResponse(t, postAd(t, srv, "demo", adRequest("p", models.FormatBanner)))
	bid := out.FirstBid()
	require.NotNil(t, bid)

	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	get := func(path string) *http.Response {
		t.Helper()
		resp, err := noRedirect.Get(srv.URL + path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := get(bid.ImpURL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/gif", resp.Header.Get("Content-Type"))

	resp = get(bid.ClickURL)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.com/landing", resp.Header.Get("Location"))

	assert.Equal(t, http.StatusForbidden, get(bid.EventURL+"&type=reward").StatusCode)
	assert.Equal(t, http.StatusOK, get(bid.EventURL+"&type=video_complete").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(bid.EventURL+"&type=like").StatusCode)

	assert.Equal(t, http.StatusUnauthorized, get("/impression").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get("/click?t=forged.token").StatusCode)

	resp = get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats StatsSnapshot
	require.NoError(t, json.NewDecoder(get("/stats").Body).Decode(&stats))
	assert.Equal(t, 1, stats.Counts["fill"])

	assert.Equal(t, 1, s.Count("impression"))
	assert.Equal(t, 1, s.Count("click"))
	assert.Equal(t, 1, s.Count(EventVideoComplete))
	assert.Zero(t, s.Count(EventReward))
	assert.Equal(t, []analytics.EventType{
		analytics.EventLoadRequested,
		analytics.EventImpression,
		analytics.EventClicked,
		analytics.EventRewardFailed,
	}, sink.Types())
}

func TestAdHandlerRateLimitsPerUser(t *testing.T) {
	metrics := observability.NewMockMetricsRegistry()
	s := NewServer(Config{
		FillRate:    1,
		TokenSecret: secret,
		TokenTTL:    time.Minute,
		RateLimit:   ratelimit.Config{Capacity: 2, RefillRate: 0},
	}, zap.NewNop(), metrics, nil, nil)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	req := adRequest("p", models.FormatBanner)
	for i := 0; i < 2; i++ {
		decodeResponse(t, postAd(t, srv, "", req))
	}
	assert.Equal(t, http.StatusTooManyRequests, postAd(t, srv, "", req).StatusCode)

	other := adRequest("p", models.FormatBanner)
	other.User.ID = "user-2"
	decodeResponse(t, postAd(t, srv, "", other))

	assert.Equal(t, 1, s.Count("rate_limited"))
	assert.Equal(t, 1, metrics.Count("rate_limited", "ad"))
	assert.Equal(t, int64(1), s.RateLimitStats()["user-1"].Limited)
}

func TestBotsNeverFill(t *testing.T) {
	_, srv, _, _ := newTestServer(t, 1)
	req := adRequest("IMG_16_9_APP_INSTALL#1_2", models.FormatBanner)
	req.Device.UA = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	out := decodeResponse(t, postAd(t, srv, "demo", req))
	assert.Nil(t, out.FirstBid())
}

// TestRewardedSessionAgainstNetwork runs a rewarded video session end to end
// through the SDK.
func TestRewardedSessionAgainstNetwork(t *testing.T) {
	s, srv, _, _ := newTestServer(t, 1)
	sdk.Initialize(sdk.Settings{})
	client := sdk.NewClient(sdk.ClientConfig{
		BaseURL:     srv.URL,
		APIKey:      "demo",
		PublisherID: 1,
		UserAgent:   phoneUA,
		Timeout:     2 * time.Second,
	}, zap.NewNop(), nil)

	surface := sdk.SurfaceFunc(func(p *sdk.Presentation) {
		go func() {
			p.CompleteVideo()
			p.Dismiss()
		}()
	})
	sink := analytics.NewMock()
	sess := session.New(models.FormatRewardedVideo, session.Options{
		Factory: session.SDKFactory(client, "VID_HD_9_16_39S_APP_INSTALL#1_2", zap.NewNop()),
		Surface: surface,
		Sink:    sink,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = sess.Run(ctx) }()
	defer func() {
		cancel()
		<-sess.Done()
	}()

	waitFor := func(want session.LoadingState) {
		t.Helper()
		require.Eventually(t, func() bool {
			st, err := sess.State(context.Background())
			return err == nil && st == want
		}, 3*time.Second, 5*time.Millisecond)
	}

	sess.Tap()
	waitFor(session.Loaded())
	sess.Tap()
	waitFor(session.Initial())

	assert.Contains(t, sink.Types(), analytics.EventRewardGranted)
	assert.Equal(t, 1, s.Count(EventReward))
	require.Eventually(t, func() bool { return s.Count("impression") == 1 }, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.Counts()["fill"])
}
