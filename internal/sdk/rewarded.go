package sdk

import "github.com/patrickwarner/adunits/internal/models"

// RewardedVideoAdListener receives the lifecycle events of a RewardedVideoAd.
type RewardedVideoAdListener interface {
	RewardedVideoAdDidLoad(ad *RewardedVideoAd)
	RewardedVideoAdDidFail(ad *RewardedVideoAd, err *AdError)
	RewardedVideoAdWillLogImpression(ad *RewardedVideoAd)
	RewardedVideoAdDidClick(ad *RewardedVideoAd)
	RewardedVideoAdVideoComplete(ad *RewardedVideoAd)
	RewardedVideoAdServerRewardDidSucceed(ad *RewardedVideoAd)
	RewardedVideoAdServerRewardDidFail(ad *RewardedVideoAd)
	RewardedVideoAdWillClose(ad *RewardedVideoAd)
	RewardedVideoAdDidClose(ad *RewardedVideoAd)
}

// RewardedVideoAd is a fullscreen video that grants a reward when watched to
// the end.
type RewardedVideoAd struct {
	baseAd
	listener RewardedVideoAdListener
}

// NewRewardedVideoAd creates a rewarded video for placementID.
func NewRewardedVideoAd(client *Client, placementID string, listener RewardedVideoAdListener) *RewardedVideoAd {
	return &RewardedVideoAd{
		baseAd:   newBaseAd(client, placementID, models.FormatRewardedVideo),
		listener: listener,
	}
}

// Load requests an ad. The result arrives through the listener.
func (a *RewardedVideoAd) Load() {
	a.load(
		func() { a.listener.RewardedVideoAdDidLoad(a) },
		func(err *AdError) { a.listener.RewardedVideoAdDidFail(a, err) },
	)
}

// Show presents the loaded ad on surface.
func (a *RewardedVideoAd) Show(surface Surface) error {
	bid, err := a.markShown()
	if err != nil {
		return err
	}
	l := a.listener
	newPresentation(&a.baseAd, bid, presentationHooks{
		impression:    func() { l.RewardedVideoAdWillLogImpression(a) },
		click:         func() { l.RewardedVideoAdDidClick(a) },
		videoComplete: func() { l.RewardedVideoAdVideoComplete(a) },
		rewardGranted: func() { l.RewardedVideoAdServerRewardDidSucceed(a) },
		rewardFailed:  func() { l.RewardedVideoAdServerRewardDidFail(a) },
		willClose:     func() { l.RewardedVideoAdWillClose(a) },
		didClose:      func() { l.RewardedVideoAdDidClose(a) },
	}).start(surface)
	return nil
}

// Destroy releases the ad. A load result not yet delivered is dropped; a
// listener call already under way may still finish.
func (a *RewardedVideoAd) Destroy() { a.destroy() }

// RewardedInterstitialAdListener receives the lifecycle events of a
// RewardedInterstitialAd.
type RewardedInterstitialAdListener interface {
	RewardedInterstitialAdDidLoad(ad *RewardedInterstitialAd)
	RewardedInterstitialAdDidFail(ad *RewardedInterstitialAd, err *AdError)
	RewardedInterstitialAdWillLogImpression(ad *RewardedInterstitialAd)
	RewardedInterstitialAdDidClick(ad *RewardedInterstitialAd)
	RewardedInterstitialAdVideoComplete(ad *RewardedInterstitialAd)
	RewardedInterstitialAdServerRewardDidSucceed(ad *RewardedInterstitialAd)
	RewardedInterstitialAdServerRewardDidFail(ad *RewardedInterstitialAd)
	RewardedInterstitialAdWillClose(ad *RewardedInterstitialAd)
	RewardedInterstitialAdDidClose(ad *RewardedInterstitialAd)
}

// RewardedInterstitialAd is an interstitial that grants a reward on completion.
type RewardedInterstitialAd struct {
	baseAd
	listener RewardedInterstitialAdListener
}

// NewRewardedInterstitialAd creates a rewarded interstitial for placementID.
func NewRewardedInterstitialAd(client *Client, placementID string, listener RewardedInterstitialAdListener) *RewardedInterstitialAd {
	return &RewardedInterstitialAd{
		baseAd:   newBaseAd(client, placementID, models.FormatRewardedInterstitial),
		listener: listener,
	}
}

// Load requests an ad. The result arrives through the listener.
func (a *RewardedInterstitialAd) Load() {
	a.load(
		func() { a.listener.RewardedInterstitialAdDidLoad(a) },
		func(err *AdError) { a.listener.RewardedInterstitialAdDidFail(a, err) },
	)
}

// Show presents the loaded ad on surface.
func (a *RewardedInterstitialAd) Show(surface Surface) error {
	bid, err := a.markShown()
	if err != nil {
		return err
	}
	l := a.listener
	newPresentation(&a.baseAd, bid, presentationHooks{
		impression:    func() { l.RewardedInterstitialAdWillLogImpression(a) },
		click:         func() { l.RewardedInterstitialAdDidClick(a) },
		videoComplete: func() { l.RewardedInterstitialAdVideoComplete(a) },
		rewardGranted: func() { l.RewardedInterstitialAdServerRewardDidSucceed(a) },
		rewardFailed:  func() { l.RewardedInterstitialAdServerRewardDidFail(a) },
		willClose:     func() { l.RewardedInterstitialAdWillClose(a) },
		didClose:      func() { l.RewardedInterstitialAdDidClose(a) },
	}).start(surface)
	return nil
}

// Destroy releases the ad. A load result not yet delivered is dropped; a
// listener call already under way may still finish.
func (a *RewardedInterstitialAd) Destroy() { a.destroy() }
