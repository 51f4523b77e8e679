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

// BannerScreen shows an inline AdView. Every refresh destroys the current
// view and loads a new one.
type BannerScreen struct {
	title       string
	placementID string
	size        sdk.AdSize
	deps        Deps
	runner      loopRunner

	mu     sync.Mutex
	closed bool

	// owned by the loop
	current *sdk.AdView
}

func newBannerScreen(sample models.SampleType, placementID string, size sdk.AdSize, deps Deps) *BannerScreen {
	return &BannerScreen{
		title:       sample.Name(),
		placementID: placementID,
		size:        size,
		deps:        deps,
		runner:      newLoopRunner(),
	}
}

func (s *BannerScreen) Title() string { return s.title }

// Start loads the first banner.
func (s *BannerScreen) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.runner.cancel != nil {
		return
	}
	s.deps.View.SetButton("Refresh Banner", true)
	s.runner.start(ctx)
	s.runner.loop.Post(s.load)
}

// Tap refreshes the banner.
func (s *BannerScreen) Tap() { s.runner.loop.Post(s.load) }

// Click clicks the displayed banner.
func (s *BannerScreen) Click() {
	s.runner.loop.Post(func() {
		if s.current == nil {
			return
		}
		if err := s.current.PerformClick(); err != nil {
			s.deps.Logger.Debug("banner click ignored", zap.Error(err))
		}
	})
}

func (s *BannerScreen) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.runner.stop(func() {
		if s.current != nil {
			s.current.Destroy()
			s.current = nil
		}
	})
}

func (s *BannerScreen) load() {
	if s.current != nil {
		s.current.Destroy()
		s.current = nil
	}
	s.deps.View.SetStatus("Loading " + s.placementID)
	s.current = sdk.NewAdView(s.deps.Client, s.placementID, s.size, bannerListener{s})
	s.record(analytics.EventLoadRequested, s.current, "")
	s.current.Load()
}

func (s *BannerScreen) isCurrent(ad sdk.Ad) bool {
	return s.current != nil && ad.ID() == s.current.ID()
}

func (s *BannerScreen) record(typ analytics.EventType, ad sdk.Ad, detail string) {
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
		s.deps.Logger.Warn("failed to record banner event", zap.Error(err))
	}
}

// bannerListener moves SDK callbacks onto the screen loop.
type bannerListener struct{ s *BannerScreen }

func (l bannerListener) OnError(ad sdk.Ad, err *sdk.AdError) {
	l.s.runner.loop.Post(func() {
		if l.s.isCurrent(ad) {
			l.s.deps.Logger.Error("Banner failed to load", zap.String("error", err.Message))
			l.s.record(analytics.EventLoadFailed, ad, err.Message)
		}
		l.s.deps.View.Toast("Banner failed to load: " + err.Message)
	})
}

func (l bannerListener) OnAdLoaded(ad sdk.Ad) {
	l.s.runner.loop.Post(func() {
		if !l.s.isCurrent(ad) {
			return
		}
		l.s.record(analytics.EventLoadSucceeded, ad, "")
		l.s.deps.View.SetStatus("")
		if c, err := l.s.current.Creative(); err == nil {
			l.s.deps.View.ShowCreative(c)
		}
	})
}

func (l bannerListener) OnAdClicked(ad sdk.Ad) {
	l.s.runner.loop.Post(func() {
		l.s.record(analytics.EventClicked, ad, "")
		l.s.deps.View.Toast("Ad clicked!")
	})
}

func (l bannerListener) OnLoggingImpression(ad sdk.Ad) {
	l.s.runner.loop.Post(func() {
		l.s.deps.Logger.Debug("onLoggingImpression", zap.String("ad_id", ad.ID()))
		l.s.record(analytics.EventImpression, ad, "")
	})
}
