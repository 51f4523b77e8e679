package screens

import (
	"context"
	"sync"
	"time"

	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/sdk"
	"go.uber.org/zap"
)

// NativeLayout selects how native assets are arranged.
type NativeLayout string

const (
	LayoutNative       NativeLayout = "native"
	LayoutNativeBanner NativeLayout = "native_banner"
	LayoutHScroll      NativeLayout = "hscroll"
	LayoutTemplate     NativeLayout = "template"
)

func layoutFor(sample models.SampleType) NativeLayout {
	switch sample {
	case models.SampleNativeBanner:
		return LayoutNativeBanner
	case models.SampleHScroll:
		return LayoutHScroll
	case models.SampleTemplate:
		return LayoutTemplate
	default:
		return LayoutNative
	}
}

// NativeScreen requests a new native ad on every tap and renders the most
// recent one once it loads. Loads of superseded ads are ignored.
type NativeScreen struct {
	title       string
	sample      models.SampleType
	placementID string
	layout      NativeLayout
	deps        Deps
	runner      loopRunner

	mu     sync.Mutex
	closed bool

	// owned by the loop
	current    *sdk.NativeAd
	displayed  *sdk.NativeAd
	superseded []*sdk.NativeAd
}

func newNativeScreen(sample models.SampleType, placementID string, deps Deps) *NativeScreen {
	return &NativeScreen{
		title:       sample.Name(),
		sample:      sample,
		placementID: placementID,
		layout:      layoutFor(sample),
		deps:        deps,
		runner:      newLoopRunner(),
	}
}

func (s *NativeScreen) Title() string { return s.title }

func (s *NativeScreen) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.runner.cancel != nil {
		return
	}
	s.deps.View.SetButton("Load Native Ad", true)
	s.deps.View.SetStatus("")
	s.runner.start(ctx)
}

// Tap requests a new native ad.
func (s *NativeScreen) Tap() { s.runner.loop.Post(s.load) }

// Click clicks the displayed ad.
func (s *NativeScreen) Click() {
	s.runner.loop.Post(func() {
		if s.displayed == nil {
			return
		}
		if err := s.displayed.PerformClick(); err != nil {
			s.deps.Logger.Debug("native click ignored", zap.Error(err))
		}
	})
}

func (s *NativeScreen) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.runner.stop(func() {
		for _, ad := range s.superseded {
			ad.Destroy()
		}
		s.superseded = nil
		if s.current != nil {
			s.current.Destroy()
		}
		if s.displayed != nil && s.displayed != s.current {
			s.displayed.Destroy()
		}
		s.current, s.displayed = nil, nil
	})
}

func (s *NativeScreen) load() {
	s.deps.View.SetStatus("Loading...")
	if s.current != nil && s.current != s.displayed {
		s.superseded = append(s.superseded, s.current)
	}
	listener := nativeListener{s}
	if s.sample.Format() == models.FormatNativeBanner {
		s.current = sdk.NewNativeBannerAd(s.deps.Client, s.placementID, listener)
	} else {
		s.current = sdk.NewNativeAd(s.deps.Client, s.placementID, listener)
	}
	s.record(analytics.EventLoadRequested, s.current, "")
	s.current.Load()
}

func (s *NativeScreen) isCurrent(ad sdk.Ad) bool {
	return s.current != nil && ad.ID() == s.current.ID()
}

// render displays the current ad, replacing whatever was shown before.
func (s *NativeScreen) render() {
	assets, err := s.current.Assets()
	if err != nil {
		s.deps.Logger.Warn("native assets unavailable", zap.Error(err))
		return
	}
	if s.displayed != nil && s.displayed != s.current {
		s.displayed.UnregisterView()
		s.displayed.Destroy()
	}
	for _, ad := range s.superseded {
		ad.Destroy()
	}
	s.superseded = nil

	s.displayed = s.current
	s.deps.View.SetStatus("")
	s.deps.View.ShowNative(s.layout, assets)
	if err := s.displayed.RegisterViewForInteraction(); err != nil {
		s.deps.Logger.Warn("register native view", zap.Error(err))
	}
}

func (s *NativeScreen) record(typ analytics.EventType, ad sdk.Ad, detail string) {
	s.deps.Metrics.IncrementAdEvent(ad.Format().String(), string(typ))
	err := s.deps.Sink.Record(context.Background(), analytics.Event{
		Timestamp:   time.Now(),
		SessionID:   s.deps.SessionID,
		Format:      ad.Format().String(),
		PlacementID: s.placementID,
		Type:        typ,
		HandleID:    ad.ID(),
		Detail:      detail,
	})
	if err != nil {
		s.deps.Logger.Warn("failed to record native event", zap.Error(err))
	}
}

type nativeListener struct{ s *NativeScreen }

func (l nativeListener) OnAdLoaded(ad sdk.Ad) {
	l.s.runner.loop.Post(func() {
		if !l.s.isCurrent(ad) {
			// load was called again before this ad was displayed
			l.s.record(analytics.EventStaleCallback, ad, string(analytics.EventLoadSucceeded))
			return
		}
		l.s.record(analytics.EventLoadSucceeded, ad, "")
		l.s.render()
	})
}

func (l nativeListener) OnError(ad sdk.Ad, err *sdk.AdError) {
	l.s.runner.loop.Post(func() {
		if !l.s.isCurrent(ad) {
			return
		}
		l.s.record(analytics.EventLoadFailed, ad, err.Message)
		l.s.deps.View.SetStatus("Ad failed to load: " + err.Message)
	})
}

func (l nativeListener) OnAdClicked(ad sdk.Ad) {
	l.s.runner.loop.Post(func() {
		l.s.record(analytics.EventClicked, ad, "")
		l.s.deps.View.Toast("Ad Clicked")
	})
}

func (l nativeListener) OnLoggingImpression(ad sdk.Ad) {
	l.s.runner.loop.Post(func() {
		l.s.deps.Logger.Debug("onLoggingImpression", zap.String("ad_id", ad.ID()))
		l.s.record(analytics.EventImpression, ad, "")
	})
}

func (l nativeListener) OnMediaDownloaded(ad *sdk.NativeAd) {
	l.s.runner.loop.Post(func() {
		if l.s.isCurrent(ad) {
			l.s.deps.Logger.Debug("onMediaDownloaded", zap.String("ad_id", ad.ID()))
		}
	})
}
