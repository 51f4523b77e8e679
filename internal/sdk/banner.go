package sdk

import (
	"fmt"

	"github.com/patrickwarner/adunits/internal/models"
)

// AdSize is the size of an inline AdView.
type AdSize struct {
	Width  int
	Height int
}

// Standard inline sizes.
var (
	BannerHeight50  = AdSize{Width: 320, Height: 50}
	RectangleHeight = AdSize{Width: 300, Height: 250}
)

// AdListener receives the events of inline ads. It is shared by AdView and
// NativeAd.
type AdListener interface {
	OnError(ad Ad, err *AdError)
	OnAdLoaded(ad Ad)
	OnAdClicked(ad Ad)
	OnLoggingImpression(ad Ad)
}

// Ad is implemented by every inline ad so AdListener methods can identify
// their source.
type Ad interface {
	ID() string
	PlacementID() string
	Format() models.AdFormat
}

// AdView is an inline banner or rectangle. An AdView logs its impression as
// soon as it loads since it is already on screen.
type AdView struct {
	baseAd
	size     AdSize
	listener AdListener
}

// NewAdView creates an inline ad of the given size.
func NewAdView(client *Client, placementID string, size AdSize, listener AdListener) *AdView {
	format := models.FormatBanner
	if size == RectangleHeight {
		format = models.FormatRectangle
	}
	return &AdView{
		baseAd:   newBaseAd(client, placementID, format),
		size:     size,
		listener: listener,
	}
}

// Size returns the view size.
func (v *AdView) Size() AdSize { return v.size }

// Load requests an ad. A successful load also logs the impression.
func (v *AdView) Load() {
	v.load(
		func() {
			v.listener.OnAdLoaded(v)
			bid := v.loadedBid()
			if bid == nil {
				return
			}
			v.listener.OnLoggingImpression(v)
			v.client.trackAsync("impression", bid.ImpURL)
		},
		func(err *AdError) { v.listener.OnError(v, err) },
	)
}

// Creative returns the loaded creative.
func (v *AdView) Creative() (Creative, error) {
	bid := v.loadedBid()
	if bid == nil {
		return Creative{}, ErrNotLoaded
	}
	return creativeFromBid(bid), nil
}

// PerformClick records a user click on the view.
func (v *AdView) PerformClick() error {
	bid := v.loadedBid()
	if bid == nil {
		if v.destroyed() {
			return ErrDestroyed
		}
		return ErrNotLoaded
	}
	v.client.trackAsync("click", bid.ClickURL)
	v.listener.OnAdClicked(v)
	return nil
}

// Destroy releases the view. A load result not yet delivered is dropped; a
// listener call already under way may still finish.
func (v *AdView) Destroy() { v.destroy() }

func (v *AdView) String() string {
	return fmt.Sprintf("AdView(%s %dx%d)", v.placementID, v.size.Width, v.size.Height)
}
