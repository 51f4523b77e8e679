package sdk

import (
	"slices"
	"sync"
)

// Version is reported to the ad network in every request.
const Version = "1.4.0"

// Settings configures process-wide SDK behaviour.
type Settings struct {
	// TestMode requests test ads for every placement.
	TestMode bool
	// DeviceID is the hashed identifier of this device.
	DeviceID string
	// TestDevices lists hashed device IDs that always receive test ads.
	TestDevices []string
}

var (
	settingsMu  sync.RWMutex
	initialized bool
	settings    Settings
)

// Initialize stores the process-wide settings. Only the first call has an
// effect; it reports whether this call performed the initialization. Host
// applications call it once at startup before creating any ad.
func Initialize(s Settings) bool {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	if initialized {
		return false
	}
	settings = Settings{
		TestMode:    s.TestMode,
		DeviceID:    s.DeviceID,
		TestDevices: slices.Clone(s.TestDevices),
	}
	initialized = true
	return true
}

// IsInitialized reports whether Initialize has been called.
func IsInitialized() bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return initialized
}

// AddTestDevice registers a hashed device ID for test ads. It may be called
// before or after Initialize.
func AddTestDevice(deviceID string) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	if !slices.Contains(settings.TestDevices, deviceID) {
		settings.TestDevices = append(settings.TestDevices, deviceID)
	}
}

// isTestRequest reports whether ad requests should ask for test ads.
func isTestRequest() bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings.TestMode || (settings.DeviceID != "" && slices.Contains(settings.TestDevices, settings.DeviceID))
}
