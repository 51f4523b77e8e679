package sdk

import (
	"testing"
	"time"

	"github.com/patrickwarner/adunits/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inlineRecorder struct{ ev *events }

func (r *inlineRecorder) OnError(Ad, *AdError)        { r.ev.add("error") }
func (r *inlineRecorder) OnAdLoaded(Ad)               { r.ev.add("loaded") }
func (r *inlineRecorder) OnAdClicked(Ad)              { r.ev.add("clicked") }
func (r *inlineRecorder) OnLoggingImpression(Ad)      { r.ev.add("impression") }
func (r *inlineRecorder) OnMediaDownloaded(*NativeAd) { r.ev.add("media") }

func TestAdViewLogsImpressionOnLoad(t *testing.T) {
	reset()
	t.Cleanup(reset)
	Initialize(Settings{})

	net := newFakeNetwork(t)
	rec := &inlineRecorder{ev: newEvents()}
	view := NewAdView(net.client(nil), "IMG_16_9_x", RectangleHeight, rec)
	assert.Equal(t, models.FormatRectangle, view.Format())

	assert.ErrorIs(t, view.PerformClick(), ErrNotLoaded)

	view.Load()
	rec.ev.wait(t, "loaded")
	rec.ev.wait(t, "impression")

	creative, err := view.Creative()
	require.NoError(t, err)
	assert.Equal(t, "<div>ad</div>", creative.Markup)

	require.NoError(t, view.PerformClick())
	rec.ev.wait(t, "clicked")

	req := net.lastRequest()
	assert.Equal(t, 300, req.Imp[0].W)
	assert.Equal(t, 250, req.Imp[0].H)

	view.Destroy()
	assert.ErrorIs(t, view.PerformClick(), ErrDestroyed)
}

func TestAdViewNoFill(t *testing.T) {
	reset()
	t.Cleanup(reset)
	Initialize(Settings{})

	net := newFakeNetwork(t)
	net.set(func(f *fakeNetwork) { f.fill = false })
	rec := &inlineRecorder{ev: newEvents()}
	view := NewAdView(net.client(nil), "p", BannerHeight50, rec)
	view.Load()
	rec.ev.wait(t, "error")
}

func TestNativeAdAssetsAndInteraction(t *testing.T) {
	reset()
	t.Cleanup(reset)
	Initialize(Settings{})

	net := newFakeNetwork(t)
	rec := &inlineRecorder{ev: newEvents()}
	ad := NewNativeAd(net.client(nil), "p", rec)
	ad.Load()
	rec.ev.wait(t, "media")
	rec.ev.wait(t, "loaded")

	assets, err := ad.Assets()
	require.NoError(t, err)
	assert.Equal(t, "Hello", assets.Headline)
	assert.Equal(t, "World", assets.Body)
	assert.Equal(t, "Install", assets.CallToAction)
	assert.Equal(t, "Sponsored", assets.Sponsored)

	assert.ErrorIs(t, ad.PerformClick(), ErrNotRegistered)

	require.NoError(t, ad.RegisterViewForInteraction())
	rec.ev.wait(t, "impression")
	require.NoError(t, ad.RegisterViewForInteraction())
	rec.ev.none(t, 50*time.Millisecond)

	require.NoError(t, ad.PerformClick())
	rec.ev.wait(t, "clicked")

	ad.UnregisterView()
	assert.ErrorIs(t, ad.PerformClick(), ErrNotRegistered)
}

func TestParseNativeAssetsFallsBackToBody(t *testing.T) {
	a := parseNativeAssets("plain text")
	assert.Equal(t, "plain text", a.Body)
	assert.Equal(t, "Learn More", a.CallToAction)
}
