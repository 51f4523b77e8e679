package sdk

import (
	"encoding/json"
	"sync"

	"github.com/patrickwarner/adunits/internal/models"
)

// NativeAdListener adds media events to AdListener.
type NativeAdListener interface {
	AdListener
	OnMediaDownloaded(ad *NativeAd)
}

// NativeAssets are the components a host lays out itself.
type NativeAssets struct {
	Advertiser    string `json:"advertiser"`
	Headline      string `json:"title"`
	Body          string `json:"body"`
	CallToAction  string `json:"cta"`
	SocialContext string `json:"social_context"`
	Sponsored     string `json:"sponsored"`
	IconURL       string `json:"icon"`
	ImageURL      string `json:"image"`
}

// NativeAd is an ad rendered by the host from its assets.
type NativeAd struct {
	baseAd
	listener NativeAdListener

	viewMu     sync.Mutex
	registered bool
}

// NewNativeAd creates a native ad for placementID.
func NewNativeAd(client *Client, placementID string, listener NativeAdListener) *NativeAd {
	return &NativeAd{
		baseAd:   newBaseAd(client, placementID, models.FormatNative),
		listener: listener,
	}
}

// NewNativeBannerAd creates a native banner ad, a compact native layout
// without a media view.
func NewNativeBannerAd(client *Client, placementID string, listener NativeAdListener) *NativeAd {
	return &NativeAd{
		baseAd:   newBaseAd(client, placementID, models.FormatNativeBanner),
		listener: listener,
	}
}

// Load requests an ad. Media download is reported before the load completes.
func (n *NativeAd) Load() {
	n.load(
		func() {
			n.listener.OnMediaDownloaded(n)
			n.listener.OnAdLoaded(n)
		},
		func(err *AdError) { n.listener.OnError(n, err) },
	)
}

// Assets returns the assets of the loaded ad. Markup that is not a JSON asset
// object is used as the body text.
func (n *NativeAd) Assets() (NativeAssets, error) {
	bid := n.loadedBid()
	if bid == nil {
		return NativeAssets{}, ErrNotLoaded
	}
	return parseNativeAssets(bid.Adm), nil
}

func parseNativeAssets(adm string) NativeAssets {
	var a NativeAssets
	if err := json.Unmarshal([]byte(adm), &a); err != nil {
		a = NativeAssets{Body: adm}
	}
	if a.Sponsored == "" {
		a.Sponsored = "Sponsored"
	}
	if a.CallToAction == "" {
		a.CallToAction = "Learn More"
	}
	return a
}

// RegisterViewForInteraction marks the ad as displayed and logs the
// impression. Repeated registrations are ignored.
func (n *NativeAd) RegisterViewForInteraction() error {
	bid := n.loadedBid()
	if bid == nil {
		if n.destroyed() {
			return ErrDestroyed
		}
		return ErrNotLoaded
	}
	n.viewMu.Lock()
	if n.registered {
		n.viewMu.Unlock()
		return nil
	}
	n.registered = true
	n.viewMu.Unlock()

	n.client.trackAsync("impression", bid.ImpURL)
	n.listener.OnLoggingImpression(n)
	return nil
}

// UnregisterView detaches the ad from the host view.
func (n *NativeAd) UnregisterView() {
	n.viewMu.Lock()
	n.registered = false
	n.viewMu.Unlock()
}

// PerformClick records a click on the registered view.
func (n *NativeAd) PerformClick() error {
	bid := n.loadedBid()
	if bid == nil {
		return ErrNotLoaded
	}
	n.viewMu.Lock()
	registered := n.registered
	n.viewMu.Unlock()
	if !registered {
		return ErrNotRegistered
	}
	n.client.trackAsync("click", bid.ClickURL)
	n.listener.OnAdClicked(n)
	return nil
}

// Destroy releases the ad. A load result not yet delivered is dropped; a
// listener call already under way may still finish.
func (n *NativeAd) Destroy() {
	n.UnregisterView()
	n.destroy()
}
