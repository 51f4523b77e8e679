package config

import (
	"fmt"

	"github.com/patrickwarner/adunits/internal/models"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Default placement IDs. The IMG_16_9_APP_INSTALL prefix asks the network for
// a test creative so the samples work without a live campaign.
const (
	DefaultFullscreenPlacement = "IMG_16_9_APP_INSTALL#204905456199565_2276019375754819"
	DefaultBannerPlacement     = "IMG_16_9_APP_INSTALL#204905456199565_905770462779724"
	DefaultNativePlacement     = "YOUR_PLACEMENT_ID"
)

// Placements maps sample display names to placement IDs.
type Placements struct {
	Samples map[string]string `yaml:"samples"`
}

// DefaultPlacements returns the built-in placement IDs for every sample.
func DefaultPlacements() Placements {
	p := Placements{Samples: make(map[string]string)}
	for _, s := range models.AllSamples() {
		switch {
		case s.Format().IsFullscreen():
			p.Samples[s.Name()] = DefaultFullscreenPlacement
		case s.Format() == models.FormatBanner || s.Format() == models.FormatRectangle:
			p.Samples[s.Name()] = DefaultBannerPlacement
		default:
			p.Samples[s.Name()] = DefaultNativePlacement
		}
	}
	return p
}

// For returns the placement ID configured for a sample.
func (p Placements) For(s models.SampleType) string {
	if id, ok := p.Samples[s.Name()]; ok && id != "" {
		return id
	}
	return DefaultPlacements().Samples[s.Name()]
}

// LoadPlacements reads a YAML placements file from fs and overlays it on the
// defaults. An empty path returns the defaults.
//
//	samples:
//	  Interstitial: "VID_HD_9_16_39S_APP_INSTALL#123_456"
//	  Banner: "IMG_16_9_LINK#123_789"
func LoadPlacements(fs afero.Fs, path string) (Placements, error) {
	p := DefaultPlacements()
	if path == "" {
		return p, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return p, fmt.Errorf("read placements: %w", err)
	}

	var file Placements
	if err := yaml.Unmarshal(data, &file); err != nil {
		return p, fmt.Errorf("parse placements: %w", err)
	}
	for name, id := range file.Samples {
		if _, ok := models.SampleTypeFromName(name); !ok {
			return p, fmt.Errorf("unknown sample %q in placements file", name)
		}
		p.Samples[name] = id
	}
	return p, nil
}
