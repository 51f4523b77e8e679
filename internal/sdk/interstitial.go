package sdk

import "github.com/patrickwarner/adunits/internal/models"

// InterstitialAdListener receives the lifecycle events of an InterstitialAd.
// Methods are called from SDK goroutines.
type InterstitialAdListener interface {
	InterstitialAdDidLoad(ad *InterstitialAd)
	InterstitialAdDidFail(ad *InterstitialAd, err *AdError)
	InterstitialAdWillLogImpression(ad *InterstitialAd)
	InterstitialAdDidClick(ad *InterstitialAd)
	InterstitialAdWillClose(ad *InterstitialAd)
	InterstitialAdDidClose(ad *InterstitialAd)
}

// InterstitialAd is a fullscreen ad without a reward.
type InterstitialAd struct {
	baseAd
	listener InterstitialAdListener
}

// NewInterstitialAd creates an interstitial for placementID.
func NewInterstitialAd(client *Client, placementID string, listener InterstitialAdListener) *InterstitialAd {
	return &InterstitialAd{
		baseAd:   newBaseAd(client, placementID, models.FormatInterstitial),
		listener: listener,
	}
}

// Load requests an ad. The result arrives through the listener.
func (a *InterstitialAd) Load() {
	a.load(
		func() { a.listener.InterstitialAdDidLoad(a) },
		func(err *AdError) { a.listener.InterstitialAdDidFail(a, err) },
	)
}

// Show presents the loaded ad on surface.
func (a *InterstitialAd) Show(surface Surface) error {
	bid, err := a.markShown()
	if err != nil {
		return err
	}
	l := a.listener
	newPresentation(&a.baseAd, bid, presentationHooks{
		impression: func() { l.InterstitialAdWillLogImpression(a) },
		click:      func() { l.InterstitialAdDidClick(a) },
		willClose:  func() { l.InterstitialAdWillClose(a) },
		didClose:   func() { l.InterstitialAdDidClose(a) },
	}).start(surface)
	return nil
}

// Destroy releases the ad. A load result not yet delivered is dropped; a
// listener call already under way may still finish.
func (a *InterstitialAd) Destroy() { a.destroy() }
