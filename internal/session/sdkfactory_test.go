package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// adServer fills every request unless fill is false.
func adServer(t *testing.T, fill bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ad", func(w http.ResponseWriter, r *http.Request) {
		var req models.OpenRTBRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := models.OpenRTBResponse{ID: req.ID}
		if fill {
			resp.SeatBid = []models.SeatBid{{Bid: []models.Bid{{
				ID: "b", ImpID: "1", CrID: "cr", Adm: "<div/>",
				ImpURL: "/impression", ClickURL: "/click", EventURL: "/event?t=1",
			}}}}
		} else {
			resp.Nbr = 1
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newSDKSession(t *testing.T, srv *httptest.Server, format models.AdFormat, surface sdk.Surface, sink analytics.EventSink) *Session {
	t.Helper()
	sdk.Initialize(sdk.Settings{TestMode: true})
	client := sdk.NewClient(sdk.ClientConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, zap.NewNop(), nil)
	s := New(format, Options{
		Factory: SDKFactory(client, "IMG_16_9_APP_INSTALL#test", zap.NewNop()),
		Surface: surface,
		Sink:    sink,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return s
}

func waitState(t *testing.T, s *Session, want LoadingState) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := s.State(context.Background())
		return err == nil && st == want
	}, 3*time.Second, 5*time.Millisecond, "waiting for %s", want)
}

func TestSDKFactoryRewardedVideoCycle(t *testing.T) {
	srv := adServer(t, true)
	sink := analytics.NewMock()
	surface := sdk.SurfaceFunc(func(p *sdk.Presentation) {
		go func() {
			p.Click()
			p.CompleteVideo()
			p.Dismiss()
		}()
	})
	s := newSDKSession(t, srv, models.FormatRewardedVideo, surface, sink)

	first, err := s.HandleID(context.Background())
	require.NoError(t, err)

	s.Tap()
	waitState(t, s, Loaded())
	s.Tap()
	waitState(t, s, Initial())

	id, err := s.HandleID(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, id)

	require.Eventually(t, func() bool {
		types := sink.Types()
		return assert.ObjectsAreEqual([]analytics.EventType{
			analytics.EventLoadRequested,
			analytics.EventLoadSucceeded,
			analytics.EventShown,
			analytics.EventImpression,
			analytics.EventClicked,
			analytics.EventRewardGranted,
			analytics.EventClosed,
		}, types)
	}, 3*time.Second, 5*time.Millisecond, "events: %v", sink.Types())
}

func TestSDKFactoryRewardedInterstitialFailurePrefix(t *testing.T) {
	srv := adServer(t, false)
	s := newSDKSession(t, srv, models.FormatRewardedInterstitial, nil, nil)

	s.Tap()
	waitState(t, s, Failed(RewardedInterstitialFailurePrefix+"No fill"))
}

func TestSDKFactoryInterstitialNoFill(t *testing.T) {
	srv := adServer(t, false)
	s := newSDKSession(t, srv, models.FormatInterstitial, nil, nil)

	s.Tap()
	waitState(t, s, Failed("No fill"))
}

func TestSDKFactoryRejectsInlineFormats(t *testing.T) {
	factory := SDKFactory(nil, "p", nil)
	assert.Nil(t, factory(models.FormatBanner, nil))
	assert.Nil(t, factory(models.FormatNative, nil))
}
