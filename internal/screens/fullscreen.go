package screens

import (
	"context"
	"sync"

	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/session"
)

// FullscreenScreen hosts a session for an interstitial or rewarded format.
type FullscreenScreen struct {
	title string
	sess  *session.Session

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newFullscreenScreen(format models.AdFormat, placementID string, deps Deps) *FullscreenScreen {
	sess := session.New(format, session.Options{
		Factory:         session.SDKFactory(deps.Client, placementID, deps.Logger),
		Surface:         deps.Surface,
		View:            deps.View,
		TapWhileLoading: deps.TapWhileLoading,
		Logger:          deps.Logger,
		Metrics:         deps.Metrics,
		Sink:            deps.Sink,
		SessionID:       deps.SessionID,
		PlacementID:     placementID,
	})
	return &FullscreenScreen{title: format.Title() + " Ad", sess: sess}
}

func (s *FullscreenScreen) Title() string { return s.title }

func (s *FullscreenScreen) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	go func() { _ = s.sess.Run(ctx) }()
}

func (s *FullscreenScreen) Tap() { s.sess.Tap() }

// State returns the session state.
func (s *FullscreenScreen) State(ctx context.Context) (session.LoadingState, error) {
	return s.sess.State(ctx)
}

// Close stops the session and releases its ad.
func (s *FullscreenScreen) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-s.sess.Done()
}
