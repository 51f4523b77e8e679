package models

// SampleType is one entry of the sample picker. Each sample demonstrates a
// single ad format integration.
type SampleType int

const (
	SampleBanner SampleType = iota
	SampleRectangle
	SampleInterstitial
	SampleRewardedVideo
	SampleRewardedInterstitial
	SampleNative
	SampleNativeBanner
	SampleHScroll
	SampleTemplate
)

type sampleInfo struct {
	name   string
	format AdFormat
}

// samples is ordered the way the picker lists them.
var samples = []sampleInfo{
	SampleBanner:               {"Banner", FormatBanner},
	SampleRectangle:            {"Rectangle", FormatRectangle},
	SampleInterstitial:         {"Interstitial", FormatInterstitial},
	SampleRewardedVideo:        {"Rewarded Video", FormatRewardedVideo},
	SampleRewardedInterstitial: {"Rewarded Interstitial", FormatRewardedInterstitial},
	SampleNative:               {"Native Ad", FormatNative},
	SampleNativeBanner:         {"Native Banner Ad", FormatNativeBanner},
	SampleHScroll:              {"Native Ad in H-Scroll", FormatNative},
	SampleTemplate:             {"Native Ad Template", FormatNative},
}

// Name returns the display name of the sample.
func (s SampleType) Name() string {
	if int(s) < 0 || int(s) >= len(samples) {
		return ""
	}
	return samples[s].name
}

// Format returns the ad format the sample exercises.
func (s SampleType) Format() AdFormat {
	if int(s) < 0 || int(s) >= len(samples) {
		return FormatBanner
	}
	return samples[s].format
}

// AllSamples returns every sample in picker order.
func AllSamples() []SampleType {
	out := make([]SampleType, len(samples))
	for i := range samples {
		out[i] = SampleType(i)
	}
	return out
}

// SampleTypeFromName looks up a sample by its exact display name.
func SampleTypeFromName(name string) (SampleType, bool) {
	for i, s := range samples {
		if s.name == name {
			return SampleType(i), true
		}
	}
	return 0, false
}
