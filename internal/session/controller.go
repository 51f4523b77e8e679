package session

import (
	"context"
	"time"

	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/sdk"
	"go.uber.org/zap"
)

var _ Callbacks = (*Controller)(nil)

// Options configures a Controller. Factory is required.
type Options struct {
	Factory HandleFactory
	// Surface is passed to AdHandle.Show when a loaded ad is shown.
	Surface sdk.Surface
	View    View
	// TapWhileLoading selects what a tap does during Loading.
	TapWhileLoading TapPolicy
	// Dispatch runs callbacks on the controller's execution context. When
	// nil, callbacks are applied on the calling goroutine and the caller
	// must serialize them itself.
	Dispatch func(func())

	Logger      *zap.Logger
	Metrics     observability.MetricsRegistry
	Sink        analytics.EventSink
	SessionID   string
	PlacementID string
}

// Controller drives one fullscreen ad format through load, show and close.
// It is not safe for concurrent use; Session serializes access to it.
type Controller struct {
	format    models.AdFormat
	factory   HandleFactory
	surface   sdk.Surface
	view      View
	policy    TapPolicy
	callbacks Callbacks

	logger      *zap.Logger
	metrics     observability.MetricsRegistry
	sink        analytics.EventSink
	sessionID   string
	placementID string

	state  LoadingState
	handle AdHandle
	closed bool
	// presenting is the handle inside Show whose shown event is not yet recorded.
	presenting AdHandle
}

// NewController creates a controller for format in the Initial state and
// allocates its first handle. No network activity happens until Tap.
func NewController(format models.AdFormat, opts Options) *Controller {
	if opts.Factory == nil {
		panic("session: nil HandleFactory")
	}
	c := &Controller{
		format:      format,
		factory:     opts.Factory,
		surface:     opts.Surface,
		view:        opts.View,
		policy:      opts.TapWhileLoading,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		sink:        opts.Sink,
		sessionID:   opts.SessionID,
		placementID: opts.PlacementID,
		state:       Initial(),
	}
	if c.view == nil {
		c.view = nopView{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.metrics == nil {
		c.metrics = observability.NewNoOpRegistry()
	}
	if c.sink == nil {
		c.sink = analytics.NoOp{}
	}
	c.logger = c.logger.With(zap.String("format", format.String()), zap.String("session_id", c.sessionID))

	c.callbacks = c
	if opts.Dispatch != nil {
		c.callbacks = dispatchedCallbacks{target: c, dispatch: opts.Dispatch}
	}
	c.handle = c.newHandle()

	b := ButtonFor(c.state)
	c.view.SetButton(b.Title, b.Enabled)
	return c
}

// Format returns the ad format the controller was created for.
func (c *Controller) Format() models.AdFormat { return c.format }

// State returns the current state.
func (c *Controller) State() LoadingState { return c.state }

// Handle returns the currently owned handle.
func (c *Controller) Handle() AdHandle { return c.handle }

// Tap is the single entry point of the trigger button.
func (c *Controller) Tap() {
	if c.closed {
		return
	}
	switch c.state.Kind {
	case KindInitial:
		c.setState(Loading())
		c.requestLoad()
	case KindLoading:
		if c.policy == TapIgnored {
			c.logger.Debug("tap ignored while loading", zap.String("handle_id", c.handle.ID()))
			return
		}
		c.retry()
	case KindError:
		c.retry()
	case KindLoaded:
		c.show()
	}
}

func (c *Controller) retry() {
	c.replaceHandle()
	c.setState(Loading())
	c.requestLoad()
}

func (c *Controller) requestLoad() {
	c.metrics.IncrementLoadRequests(c.format.String())
	c.emit(analytics.EventLoadRequested, c.handle, "")
	c.logger.Debug("requesting ad load", zap.String("handle_id", c.handle.ID()))
	c.handle.Load()
}

func (c *Controller) show() {
	h := c.handle
	c.presenting = h
	err := h.Show(c.surface)
	pending := c.presenting != nil
	c.presenting = nil
	if err != nil {
		c.logger.Warn("show failed", zap.String("handle_id", h.ID()), zap.Error(err))
		return
	}
	if pending {
		c.recordShown(h)
	}
}

func (c *Controller) recordShown(h AdHandle) {
	c.metrics.IncrementAdEvent(c.format.String(), string(analytics.EventShown))
	c.emit(analytics.EventShown, h, "")
}

// OnLoadSucceeded moves to Loaded when h is the current handle.
func (c *Controller) OnLoadSucceeded(h AdHandle) {
	if c.stale(h, analytics.EventLoadSucceeded) {
		return
	}
	c.metrics.IncrementLoadResult(c.format.String(), "success")
	c.emit(analytics.EventLoadSucceeded, h, "")
	c.setState(Loaded())
}

// OnLoadFailed moves to Error(reason) when h is the current handle.
func (c *Controller) OnLoadFailed(h AdHandle, reason string) {
	if c.stale(h, analytics.EventLoadFailed) {
		return
	}
	c.metrics.IncrementLoadResult(c.format.String(), "failed")
	c.emit(analytics.EventLoadFailed, h, reason)
	c.logger.Info("ad failed to load", zap.String("handle_id", h.ID()), zap.String("reason", reason))
	c.setState(Failed(reason))
}

// OnClosed resets to Initial with a fresh handle, whichever handle closed.
func (c *Controller) OnClosed(h AdHandle) {
	if c.closed {
		return
	}
	// a surface may dismiss before Show returns
	if c.presenting != nil && c.presenting == h {
		c.presenting = nil
		c.recordShown(h)
	}
	c.metrics.IncrementAdEvent(c.format.String(), string(analytics.EventClosed))
	c.emit(analytics.EventClosed, h, "")
	c.replaceHandle()
	c.setState(Initial())
}

func (c *Controller) OnClicked(h AdHandle) {
	c.observe(analytics.EventClicked, h)
}

func (c *Controller) OnImpressionLogged(h AdHandle) {
	c.observe(analytics.EventImpression, h)
}

func (c *Controller) OnRewardGranted(h AdHandle) {
	c.observe(analytics.EventRewardGranted, h)
}

func (c *Controller) OnRewardFailed(h AdHandle) {
	c.observe(analytics.EventRewardFailed, h)
}

// Close releases the current handle. Later taps and callbacks are ignored.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.handle != nil {
		c.handle.Release()
	}
}

func (c *Controller) observe(typ analytics.EventType, h AdHandle) {
	if c.closed {
		return
	}
	c.metrics.IncrementAdEvent(c.format.String(), string(typ))
	c.emit(typ, h, "")
}

// stale reports whether a load result for h must be ignored.
func (c *Controller) stale(h AdHandle, typ analytics.EventType) bool {
	if c.closed {
		return true
	}
	if h == c.handle {
		return false
	}
	c.metrics.IncrementStaleCallback(c.format.String(), string(typ))
	c.emit(analytics.EventStaleCallback, h, string(typ))
	c.logger.Debug("ignoring callback for superseded handle",
		zap.String("event", string(typ)),
		zap.String("handle_id", h.ID()),
		zap.String("current_handle_id", c.handle.ID()))
	return true
}

func (c *Controller) newHandle() AdHandle {
	h := c.factory(c.format, c.callbacks)
	if h == nil {
		panic("session: HandleFactory returned nil for " + c.format.String())
	}
	return h
}

// replaceHandle releases the current handle before dropping it.
func (c *Controller) replaceHandle() {
	old := c.handle
	old.Release()
	c.handle = c.newHandle()
	c.logger.Debug("replaced ad handle",
		zap.String("old_handle_id", old.ID()),
		zap.String("handle_id", c.handle.ID()))
}

func (c *Controller) setState(s LoadingState) {
	prev := c.state
	c.state = s
	c.metrics.IncrementTransition(c.format.String(), prev.Kind.String(), s.Kind.String())

	b := ButtonFor(s)
	c.view.SetButton(b.Title, b.Enabled)
	if s.Kind == KindError {
		c.view.ShowError(s.Message)
	}
}

func (c *Controller) emit(typ analytics.EventType, h AdHandle, detail string) {
	ev := analytics.Event{
		Timestamp:   time.Now(),
		SessionID:   c.sessionID,
		Format:      c.format.String(),
		PlacementID: c.placementID,
		Type:        typ,
		Detail:      detail,
	}
	if h != nil {
		ev.HandleID = h.ID()
	}
	if err := c.sink.Record(context.Background(), ev); err != nil {
		c.logger.Warn("failed to record session event", zap.String("event_type", string(typ)), zap.Error(err))
	}
}
