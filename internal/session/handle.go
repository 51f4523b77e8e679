package session

import (
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/sdk"
)

// AdHandle is one exclusively owned ad network ad instance.
type AdHandle interface {
	ID() string
	Format() models.AdFormat
	// Load starts an asynchronous load. The outcome arrives through
	// Callbacks, never as a return value.
	Load()
	// Show hands the loaded ad to surface.
	Show(surface sdk.Surface) error
	// Release frees the ad. No callback is delivered for it afterwards.
	Release()
}

// Callbacks is the normalized event interface every ad format is adapted to.
// The handle argument identifies which ad instance the event belongs to.
type Callbacks interface {
	OnLoadSucceeded(h AdHandle)
	OnLoadFailed(h AdHandle, reason string)
	OnClosed(h AdHandle)
	OnClicked(h AdHandle)
	OnImpressionLogged(h AdHandle)
	OnRewardGranted(h AdHandle)
	OnRewardFailed(h AdHandle)
}

// HandleFactory allocates a new handle for format that reports to cb.
type HandleFactory func(format models.AdFormat, cb Callbacks) AdHandle

// View is the presentation layer bound to a controller.
type View interface {
	SetButton(title string, enabled bool)
	// ShowError presents the modal failure notification.
	ShowError(message string)
}

type nopView struct{}

func (nopView) SetButton(string, bool) {}
func (nopView) ShowError(string)       {}

// dispatchedCallbacks marshals every callback through dispatch before it
// reaches the target.
type dispatchedCallbacks struct {
	target   Callbacks
	dispatch func(func())
}

func (d dispatchedCallbacks) OnLoadSucceeded(h AdHandle) {
	d.dispatch(func() { d.target.OnLoadSucceeded(h) })
}

func (d dispatchedCallbacks) OnLoadFailed(h AdHandle, reason string) {
	d.dispatch(func() { d.target.OnLoadFailed(h, reason) })
}

func (d dispatchedCallbacks) OnClosed(h AdHandle) {
	d.dispatch(func() { d.target.OnClosed(h) })
}

func (d dispatchedCallbacks) OnClicked(h AdHandle) {
	d.dispatch(func() { d.target.OnClicked(h) })
}

func (d dispatchedCallbacks) OnImpressionLogged(h AdHandle) {
	d.dispatch(func() { d.target.OnImpressionLogged(h) })
}

func (d dispatchedCallbacks) OnRewardGranted(h AdHandle) {
	d.dispatch(func() { d.target.OnRewardGranted(h) })
}

func (d dispatchedCallbacks) OnRewardFailed(h AdHandle) {
	d.dispatch(func() { d.target.OnRewardFailed(h) })
}
