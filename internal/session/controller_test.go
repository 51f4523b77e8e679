package session

import (
	"errors"
	"testing"

	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, format models.AdFormat, policy TapPolicy) (*Controller, *fakeFactory, *recordingView) {
	t.Helper()
	f := &fakeFactory{}
	v := &recordingView{}
	c := NewController(format, Options{
		Factory:         f.New,
		View:            v,
		TapWhileLoading: policy,
	})
	return c, f, v
}

func TestNewControllerStartsInitialWithoutLoading(t *testing.T) {
	c, f, v := newTestController(t, models.FormatInterstitial, TapRetries)

	assert.Equal(t, Initial(), c.State())
	require.Equal(t, 1, f.count())
	loads, _, _ := f.handle(0).counts()
	assert.Zero(t, loads)
	assert.Equal(t, Button{Title: "Load Ad", Enabled: true}, v.last())
	assert.Equal(t, models.FormatInterstitial, c.Format())
}

func TestRepeatedTapsStayLoading(t *testing.T) {
	c, f, _ := newTestController(t, models.FormatInterstitial, TapRetries)

	c.Tap()
	assert.Equal(t, Loading(), c.State())
	for i := 0; i < 4; i++ {
		c.Tap()
		assert.Equal(t, Loading(), c.State())
	}

	require.Equal(t, 5, f.count())
	for i := 0; i < 4; i++ {
		loads, _, releases := f.handle(i).counts()
		assert.Equal(t, 1, loads, "handle %d", i)
		assert.Equal(t, 1, releases, "handle %d released before drop", i)
	}
	assert.Same(t, f.handle(4), c.Handle())
}

func TestTapIgnoredWhileLoading(t *testing.T) {
	c, f, _ := newTestController(t, models.FormatInterstitial, TapIgnored)

	c.Tap()
	c.Tap()
	c.Tap()
	assert.Equal(t, Loading(), c.State())
	assert.Equal(t, 1, f.count())
	loads, _, _ := f.handle(0).counts()
	assert.Equal(t, 1, loads)

	c.OnLoadSucceeded(f.handle(0))
	assert.Equal(t, Loaded(), c.State())
}

func TestLoadSucceededRequiresCurrentHandle(t *testing.T) {
	metrics := observability.NewMockMetricsRegistry()
	sink := analytics.NewMock()
	f := &fakeFactory{}
	c := NewController(models.FormatRewardedVideo, Options{Factory: f.New, Metrics: metrics, Sink: sink})

	c.Tap()
	c.Tap()
	h1, h2 := f.handle(0), f.handle(1)

	c.OnLoadSucceeded(h1)
	assert.Equal(t, Loading(), c.State())
	c.OnLoadFailed(h1, "late")
	assert.Equal(t, Loading(), c.State())
	assert.Equal(t, 1, metrics.Count("stale", "rewarded_video", "load_succeeded"))
	assert.Equal(t, 1, metrics.Count("stale", "rewarded_video", "load_failed"))

	c.OnLoadSucceeded(h2)
	assert.Equal(t, Loaded(), c.State())
	assert.Contains(t, sink.Types(), analytics.EventStaleCallback)
}

func TestTapWhenLoadedShowsOnce(t *testing.T) {
	c, f, v := newTestController(t, models.FormatInterstitial, TapRetries)

	c.Tap()
	c.OnLoadSucceeded(c.Handle())
	assert.Equal(t, Button{Title: "Show Ad", Enabled: true}, v.last())

	c.Tap()
	_, shows, _ := f.handle(0).counts()
	assert.Equal(t, 1, shows)
	assert.Equal(t, Loaded(), c.State())
	assert.Equal(t, 1, f.count())
}

func TestShowErrorKeepsState(t *testing.T) {
	c, f, _ := newTestController(t, models.FormatInterstitial, TapRetries)

	c.Tap()
	c.OnLoadSucceeded(c.Handle())
	f.handle(0).showErr = errors.New("already shown")
	c.Tap()
	assert.Equal(t, Loaded(), c.State())
}

func TestShowRecordsEventsForShownHandle(t *testing.T) {
	sink := analytics.NewMock()
	f := &fakeFactory{}
	c := NewController(models.FormatInterstitial, Options{Factory: f.New, Sink: sink})

	c.Tap()
	h1 := f.handle(0)
	c.OnLoadSucceeded(h1)
	h1.onShow = func(h *fakeHandle) { h.cb.OnClosed(h) }
	c.Tap()

	assert.Equal(t, Initial(), c.State())
	var got []string
	for _, ev := range sink.Events() {
		got = append(got, string(ev.Type)+" "+ev.HandleID)
	}
	assert.Equal(t, []string{
		"load_requested H1",
		"load_succeeded H1",
		"shown H1",
		"closed H1",
	}, got)
}

func TestShowErrorRecordsNoShownEvent(t *testing.T) {
	sink := analytics.NewMock()
	f := &fakeFactory{}
	c := NewController(models.FormatInterstitial, Options{Factory: f.New, Sink: sink})

	c.Tap()
	c.OnLoadSucceeded(c.Handle())
	f.handle(0).showErr = errors.New("already shown")
	c.Tap()
	assert.NotContains(t, sink.Types(), analytics.EventShown)
}

func TestOnClosedAlwaysResets(t *testing.T) {
	states := map[string]func(c *Controller, f *fakeFactory){
		"initial": func(c *Controller, f *fakeFactory) {},
		"loading": func(c *Controller, f *fakeFactory) { c.Tap() },
		"loaded": func(c *Controller, f *fakeFactory) {
			c.Tap()
			c.OnLoadSucceeded(c.Handle())
		},
		"error": func(c *Controller, f *fakeFactory) {
			c.Tap()
			c.OnLoadFailed(c.Handle(), "No fill")
		},
		"superseded": func(c *Controller, f *fakeFactory) {
			c.Tap()
			c.Tap()
		},
	}
	for name, setup := range states {
		t.Run(name, func(t *testing.T) {
			c, f, v := newTestController(t, models.FormatRewardedInterstitial, TapRetries)
			setup(c, f)
			before := c.Handle()

			c.OnClosed(f.handle(0))

			assert.Equal(t, Initial(), c.State())
			assert.NotSame(t, before, c.Handle())
			_, _, releases := before.(*fakeHandle).counts()
			assert.Equal(t, 1, releases)
			assert.Equal(t, Button{Title: "Load Ad", Enabled: true}, v.last())
		})
	}
}

func TestRoundTripReturnsToInitialWithNewHandle(t *testing.T) {
	c, _, _ := newTestController(t, models.FormatInterstitial, TapRetries)
	first := c.Handle()

	c.Tap()
	c.OnLoadSucceeded(first)
	c.Tap()
	c.OnClosed(first)

	assert.Equal(t, Initial(), c.State())
	assert.NotEqual(t, first.ID(), c.Handle().ID())
}

func TestRewardedVideoRetryScenario(t *testing.T) {
	metrics := observability.NewMockMetricsRegistry()
	sink := analytics.NewMock()
	f := &fakeFactory{}
	v := &recordingView{}
	c := NewController(models.FormatRewardedVideo, Options{
		Factory:     f.New,
		View:        v,
		Metrics:     metrics,
		Sink:        sink,
		SessionID:   "s1",
		PlacementID: "VID_HD_1",
	})

	c.Tap()
	h1 := f.handle(0)
	assert.Equal(t, Loading(), c.State())
	loads, _, _ := h1.counts()
	assert.Equal(t, 1, loads)

	c.OnLoadFailed(h1, "No fill")
	assert.Equal(t, Failed("No fill"), c.State())
	assert.Equal(t, []string{"No fill"}, v.errors)
	assert.Equal(t, Button{Title: "Retry", Enabled: true}, v.last())

	c.Tap()
	h2 := f.handle(1)
	_, _, released := h1.counts()
	assert.Equal(t, 1, released)
	loads, _, _ = h2.counts()
	assert.Equal(t, 1, loads)
	assert.Equal(t, Loading(), c.State())
	assert.Equal(t, Button{Title: "Loading", Enabled: false}, v.last())

	c.OnLoadSucceeded(h2)
	assert.Equal(t, Loaded(), c.State())

	c.Tap()
	_, shows, _ := h2.counts()
	assert.Equal(t, 1, shows)

	c.OnImpressionLogged(h2)
	c.OnRewardGranted(h2)
	c.OnClosed(h2)
	assert.Equal(t, Initial(), c.State())
	assert.Equal(t, "H3", c.Handle().ID())

	assert.Equal(t, []analytics.EventType{
		analytics.EventLoadRequested,
		analytics.EventLoadFailed,
		analytics.EventLoadRequested,
		analytics.EventLoadSucceeded,
		analytics.EventShown,
		analytics.EventImpression,
		analytics.EventRewardGranted,
		analytics.EventClosed,
	}, sink.Types())
	failed := sink.Events()[1]
	assert.Equal(t, "No fill", failed.Detail)
	assert.Equal(t, "H1", failed.HandleID)
	assert.Equal(t, "VID_HD_1", failed.PlacementID)
	assert.Equal(t, "s1", failed.SessionID)

	assert.Equal(t, 2, metrics.Count("load_request", "rewarded_video"))
	assert.Equal(t, 1, metrics.Count("load_result", "rewarded_video", "failed"))
	assert.Equal(t, 1, metrics.Count("load_result", "rewarded_video", "success"))
	assert.Equal(t, 1, metrics.Count("transition", "rewarded_video", "error", "loading"))
	assert.Equal(t, 1, metrics.Count("ad_event", "rewarded_video", "reward_granted"))
}

func TestStaleSuccessAfterRetryKeepsLoading(t *testing.T) {
	c, f, _ := newTestController(t, models.FormatInterstitial, TapRetries)

	c.Tap()
	c.Tap()
	h1, h2 := f.handle(0), f.handle(1)
	assert.Same(t, h2, c.Handle())

	c.OnLoadSucceeded(h1)
	assert.Equal(t, Loading(), c.State())
	assert.Same(t, h2, c.Handle())
}

func TestObservabilityEventsDoNotTransition(t *testing.T) {
	c, _, _ := newTestController(t, models.FormatRewardedVideo, TapRetries)
	c.Tap()
	h := c.Handle()

	c.OnClicked(h)
	c.OnImpressionLogged(h)
	c.OnRewardGranted(h)
	c.OnRewardFailed(h)
	assert.Equal(t, Loading(), c.State())
	assert.Same(t, h, c.Handle())
}

func TestCloseReleasesHandleAndIgnoresLaterEvents(t *testing.T) {
	c, f, _ := newTestController(t, models.FormatInterstitial, TapRetries)
	c.Tap()
	h := c.Handle()

	c.Close()
	c.Close()
	_, _, releases := f.handle(0).counts()
	assert.Equal(t, 1, releases)

	c.OnLoadSucceeded(h)
	c.OnClosed(h)
	c.Tap()
	assert.Equal(t, Loading(), c.State())
	assert.Equal(t, 1, f.count())
}

func TestButtonFor(t *testing.T) {
	tests := []struct {
		state LoadingState
		want  Button
	}{
		{Initial(), Button{"Load Ad", true}},
		{Loading(), Button{"Loading", false}},
		{Loaded(), Button{"Show Ad", true}},
		{Failed("x"), Button{"Retry", true}},
	}
	for _, tt := range tests {
		if got := ButtonFor(tt.state); got != tt.want {
			t.Errorf("ButtonFor(%s) = %+v, want %+v", tt.state, got, tt.want)
		}
	}
}

func TestParseTapPolicy(t *testing.T) {
	p, ok := ParseTapPolicy("ignore")
	assert.True(t, ok)
	assert.Equal(t, TapIgnored, p)

	p, ok = ParseTapPolicy("")
	assert.True(t, ok)
	assert.Equal(t, TapRetries, p)

	_, ok = ParseTapPolicy("sometimes")
	assert.False(t, ok)
}

func TestNewControllerPanicsWithoutFactory(t *testing.T) {
	assert.Panics(t, func() { NewController(models.FormatInterstitial, Options{}) })
}
