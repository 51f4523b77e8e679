package session

import (
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/sdk"
	"go.uber.org/zap"
)

// RewardedInterstitialFailurePrefix is prepended to rewarded interstitial
// load failure reasons.
const RewardedInterstitialFailurePrefix = "Rewarded interstitial ad failed to load. "

// SDKFactory returns a HandleFactory backed by client. Each handle owns one
// SDK ad object for placementID and translates its listener into Callbacks.
// It returns nil for formats that are not fullscreen.
func SDKFactory(client *sdk.Client, placementID string, logger *zap.Logger) HandleFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(format models.AdFormat, cb Callbacks) AdHandle {
		switch format {
		case models.FormatInterstitial:
			h := &interstitialHandle{cb: cb, logger: logger}
			h.ad = sdk.NewInterstitialAd(client, placementID, h)
			return h
		case models.FormatRewardedVideo:
			h := &rewardedVideoHandle{cb: cb, logger: logger}
			h.ad = sdk.NewRewardedVideoAd(client, placementID, h)
			return h
		case models.FormatRewardedInterstitial:
			h := &rewardedInterstitialHandle{cb: cb, logger: logger}
			h.ad = sdk.NewRewardedInterstitialAd(client, placementID, h)
			return h
		default:
			return nil
		}
	}
}

type interstitialHandle struct {
	ad     *sdk.InterstitialAd
	cb     Callbacks
	logger *zap.Logger
}

func (h *interstitialHandle) ID() string               { return h.ad.ID() }
func (h *interstitialHandle) Format() models.AdFormat  { return h.ad.Format() }
func (h *interstitialHandle) Load()                    { h.ad.Load() }
func (h *interstitialHandle) Show(s sdk.Surface) error { return h.ad.Show(s) }
func (h *interstitialHandle) Release()                 { h.ad.Destroy() }

func (h *interstitialHandle) InterstitialAdDidLoad(*sdk.InterstitialAd) { h.cb.OnLoadSucceeded(h) }

func (h *interstitialHandle) InterstitialAdDidFail(_ *sdk.InterstitialAd, err *sdk.AdError) {
	h.cb.OnLoadFailed(h, err.Message)
}

func (h *interstitialHandle) InterstitialAdWillLogImpression(*sdk.InterstitialAd) {
	h.cb.OnImpressionLogged(h)
}

func (h *interstitialHandle) InterstitialAdDidClick(*sdk.InterstitialAd) { h.cb.OnClicked(h) }

func (h *interstitialHandle) InterstitialAdWillClose(ad *sdk.InterstitialAd) {
	h.logger.Debug("interstitial will close", zap.String("ad_id", ad.ID()))
}

func (h *interstitialHandle) InterstitialAdDidClose(*sdk.InterstitialAd) { h.cb.OnClosed(h) }

type rewardedVideoHandle struct {
	ad     *sdk.RewardedVideoAd
	cb     Callbacks
	logger *zap.Logger
}

func (h *rewardedVideoHandle) ID() string               { return h.ad.ID() }
func (h *rewardedVideoHandle) Format() models.AdFormat  { return h.ad.Format() }
func (h *rewardedVideoHandle) Load()                    { h.ad.Load() }
func (h *rewardedVideoHandle) Show(s sdk.Surface) error { return h.ad.Show(s) }
func (h *rewardedVideoHandle) Release()                 { h.ad.Destroy() }

func (h *rewardedVideoHandle) RewardedVideoAdDidLoad(*sdk.RewardedVideoAd) { h.cb.OnLoadSucceeded(h) }

func (h *rewardedVideoHandle) RewardedVideoAdDidFail(_ *sdk.RewardedVideoAd, err *sdk.AdError) {
	h.cb.OnLoadFailed(h, err.Message)
}

func (h *rewardedVideoHandle) RewardedVideoAdWillLogImpression(*sdk.RewardedVideoAd) {
	h.cb.OnImpressionLogged(h)
}

func (h *rewardedVideoHandle) RewardedVideoAdDidClick(*sdk.RewardedVideoAd) { h.cb.OnClicked(h) }

func (h *rewardedVideoHandle) RewardedVideoAdVideoComplete(ad *sdk.RewardedVideoAd) {
	h.logger.Debug("rewarded video complete", zap.String("ad_id", ad.ID()))
}

func (h *rewardedVideoHandle) RewardedVideoAdServerRewardDidSucceed(*sdk.RewardedVideoAd) {
	h.cb.OnRewardGranted(h)
}

func (h *rewardedVideoHandle) RewardedVideoAdServerRewardDidFail(*sdk.RewardedVideoAd) {
	h.cb.OnRewardFailed(h)
}

func (h *rewardedVideoHandle) RewardedVideoAdWillClose(ad *sdk.RewardedVideoAd) {
	h.logger.Debug("rewarded video will close", zap.String("ad_id", ad.ID()))
}

func (h *rewardedVideoHandle) RewardedVideoAdDidClose(*sdk.RewardedVideoAd) { h.cb.OnClosed(h) }

type rewardedInterstitialHandle struct {
	ad     *sdk.RewardedInterstitialAd
	cb     Callbacks
	logger *zap.Logger
}

func (h *rewardedInterstitialHandle) ID() string               { return h.ad.ID() }
func (h *rewardedInterstitialHandle) Format() models.AdFormat  { return h.ad.Format() }
func (h *rewardedInterstitialHandle) Load()                    { h.ad.Load() }
func (h *rewardedInterstitialHandle) Show(s sdk.Surface) error { return h.ad.Show(s) }
func (h *rewardedInterstitialHandle) Release()                 { h.ad.Destroy() }

func (h *rewardedInterstitialHandle) RewardedInterstitialAdDidLoad(ad *sdk.RewardedInterstitialAd) {
	h.logger.Debug("rewarded interstitial loaded", zap.String("ad_id", ad.ID()))
	h.cb.OnLoadSucceeded(h)
}

func (h *rewardedInterstitialHandle) RewardedInterstitialAdDidFail(_ *sdk.RewardedInterstitialAd, err *sdk.AdError) {
	h.logger.Debug("rewarded interstitial failed to load", zap.Error(err))
	h.cb.OnLoadFailed(h, RewardedInterstitialFailurePrefix+err.Message)
}

func (h *rewardedInterstitialHandle) RewardedInterstitialAdWillLogImpression(*sdk.RewardedInterstitialAd) {
	h.cb.OnImpressionLogged(h)
}

func (h *rewardedInterstitialHandle) RewardedInterstitialAdDidClick(*sdk.RewardedInterstitialAd) {
	h.cb.OnClicked(h)
}

func (h *rewardedInterstitialHandle) RewardedInterstitialAdVideoComplete(ad *sdk.RewardedInterstitialAd) {
	h.logger.Debug("rewarded interstitial video complete", zap.String("ad_id", ad.ID()))
}

func (h *rewardedInterstitialHandle) RewardedInterstitialAdServerRewardDidSucceed(*sdk.RewardedInterstitialAd) {
	h.cb.OnRewardGranted(h)
}

func (h *rewardedInterstitialHandle) RewardedInterstitialAdServerRewardDidFail(*sdk.RewardedInterstitialAd) {
	h.cb.OnRewardFailed(h)
}

func (h *rewardedInterstitialHandle) RewardedInterstitialAdWillClose(ad *sdk.RewardedInterstitialAd) {
	h.logger.Debug("rewarded interstitial will close", zap.String("ad_id", ad.ID()))
}

func (h *rewardedInterstitialHandle) RewardedInterstitialAdDidClose(*sdk.RewardedInterstitialAd) {
	h.cb.OnClosed(h)
}
