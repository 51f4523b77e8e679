package models

import (
	"fmt"
	"strings"
)

// AdFormat identifies the kind of ad unit a placement serves.
type AdFormat int

const (
	FormatInterstitial AdFormat = iota
	FormatRewardedVideo
	FormatRewardedInterstitial
	FormatBanner
	FormatRectangle
	FormatNative
	FormatNativeBanner
)

var formatNames = map[AdFormat]string{
	FormatInterstitial:         "interstitial",
	FormatRewardedVideo:        "rewarded_video",
	FormatRewardedInterstitial: "rewarded_interstitial",
	FormatBanner:               "banner",
	FormatRectangle:            "rectangle",
	FormatNative:               "native",
	FormatNativeBanner:         "native_banner",
}

// String returns the wire name of the format, used in metrics labels and
// in the ext.format field of ad requests.
func (f AdFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Title returns the human readable name shown in screen titles.
func (f AdFormat) Title() string {
	switch f {
	case FormatInterstitial:
		return "Interstitial"
	case FormatRewardedVideo:
		return "Rewarded video"
	case FormatRewardedInterstitial:
		return "Rewarded interstitial"
	case FormatBanner:
		return "Banner"
	case FormatRectangle:
		return "Rectangle"
	case FormatNative:
		return "Native"
	case FormatNativeBanner:
		return "Native banner"
	}
	return f.String()
}

// IsFullscreen reports whether ads of this format take over the screen and
// therefore follow the load/show/close cycle.
func (f AdFormat) IsFullscreen() bool {
	switch f {
	case FormatInterstitial, FormatRewardedVideo, FormatRewardedInterstitial:
		return true
	}
	return false
}

// IsRewarded reports whether the format grants a reward on completion.
func (f AdFormat) IsRewarded() bool {
	return f == FormatRewardedVideo || f == FormatRewardedInterstitial
}

// ParseAdFormat converts a wire name back into an AdFormat.
func ParseAdFormat(s string) (AdFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown ad format %q", s)
}
