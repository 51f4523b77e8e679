// Package screens implements the sample screens a host application shows
// for each entry of the sample catalog.
package screens

import (
	"context"
	"errors"
	"fmt"

	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/config"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/sdk"
	"github.com/patrickwarner/adunits/internal/session"
	"go.uber.org/zap"
)

// Screen is one running sample.
type Screen interface {
	Title() string
	// Start begins serving the screen until ctx is cancelled or Close is
	// called.
	Start(ctx context.Context)
	// Tap presses the screen's single button.
	Tap()
	Close()
}

// Clicker is implemented by screens that render inline ad content the user
// can click.
type Clicker interface {
	Click()
}

// View renders a screen.
type View interface {
	session.View
	SetStatus(text string)
	Toast(text string)
	ShowCreative(c sdk.Creative)
	ShowNative(layout NativeLayout, assets sdk.NativeAssets)
}

// Deps are the collaborators shared by all screens.
type Deps struct {
	Client     *sdk.Client
	Placements config.Placements
	// Surface presents fullscreen ads.
	Surface         sdk.Surface
	View            View
	TapWhileLoading session.TapPolicy
	Logger          *zap.Logger
	Metrics         observability.MetricsRegistry
	Sink            analytics.EventSink
	SessionID       string
}

// ErrNoClient is returned by New when Deps.Client is nil.
var ErrNoClient = errors.New("screens: sdk client is required")

// New creates the screen for sample.
func New(sample models.SampleType, deps Deps) (Screen, error) {
	if deps.Client == nil {
		return nil, ErrNoClient
	}
	if deps.View == nil {
		deps.View = NopView{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewNoOpRegistry()
	}
	if deps.Sink == nil {
		deps.Sink = analytics.NoOp{}
	}
	deps.Logger = deps.Logger.With(zap.String("sample", sample.Name()))

	placementID := deps.Placements.For(sample)
	format := sample.Format()
	switch {
	case format.IsFullscreen():
		return newFullscreenScreen(format, placementID, deps), nil
	case format == models.FormatBanner:
		return newBannerScreen(sample, placementID, sdk.BannerHeight50, deps), nil
	case format == models.FormatRectangle:
		return newBannerScreen(sample, placementID, sdk.RectangleHeight, deps), nil
	case format == models.FormatNative || format == models.FormatNativeBanner:
		return newNativeScreen(sample, placementID, deps), nil
	default:
		return nil, fmt.Errorf("screens: no screen for sample %q", sample.Name())
	}
}

// NopView discards all output.
type NopView struct{}

func (NopView) SetButton(string, bool)                    {}
func (NopView) ShowError(string)                          {}
func (NopView) SetStatus(string)                          {}
func (NopView) Toast(string)                              {}
func (NopView) ShowCreative(sdk.Creative)                 {}
func (NopView) ShowNative(NativeLayout, sdk.NativeAssets) {}

// loopRunner runs a session.Loop for the lifetime of a screen.
type loopRunner struct {
	loop   *session.Loop
	cancel context.CancelFunc
}

func newLoopRunner() loopRunner {
	return loopRunner{loop: session.NewLoop()}
}

func (r *loopRunner) start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	go func() { _ = r.loop.Run(ctx) }()
}

// stop cancels the loop and waits for it to exit, then runs cleanup on the
// caller's goroutine.
func (r *loopRunner) stop(cleanup func()) {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.loop.Done()
	r.cancel = nil
	cleanup()
}
