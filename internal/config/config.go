package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	ServiceName string
	// Ad network connection
	AdNetURL         string
	AdNetAPIKey      string
	PublisherID      int
	UserID           string
	DeviceUA         string
	AdRequestTimeout time.Duration
	TestMode         bool
	TestDevices      []string
	// Session behaviour
	TapWhileLoading string
	PlacementsFile  string
	// Event sinks
	RedisAddr     string
	ClickHouseDSN string
	EventQueue    int
	// Metrics endpoint, disabled when empty
	MetricsAddr string
	// Tracing configuration
	TracingEnabled    bool
	TempoEndpoint     string
	TracingSampleRate float64
	// Local ad network
	FakenetPort     string
	FakenetFillRate float64
	TokenSecret     string
	TokenTTL        time.Duration
	GeoIPDB         string
	// Per-user ad request limit of the local network, disabled when zero
	FakenetRateCapacity int
	FakenetRateRefill   int
}

// DefaultDeviceUA is sent when DEVICE_UA is unset.
const DefaultDeviceUA = "Mozilla/5.0 (Linux; Android 12; Pixel 6 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.5735.196 Mobile Safari/537.36"

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.ServiceName = getenv("SERVICE_NAME", "adunits")

	cfg.AdNetURL = strings.TrimRight(getenv("ADNET_URL", "http://localhost:8787"), "/")
	cfg.AdNetAPIKey = getenv("ADNET_API_KEY", "demo123")
	cfg.PublisherID = envInt("PUBLISHER_ID", 1)
	// empty means a random per-process user id is generated by the caller
	cfg.UserID = getenv("USER_ID", "")
	cfg.DeviceUA = getenv("DEVICE_UA", DefaultDeviceUA)
	cfg.AdRequestTimeout = envDuration("AD_REQUEST_TIMEOUT", 5*time.Second)
	cfg.TestMode = envBool("TEST_MODE", false)
	cfg.TestDevices = envList("TEST_DEVICES")

	cfg.TapWhileLoading = strings.ToLower(getenv("TAP_WHILE_LOADING", "retry"))
	cfg.PlacementsFile = getenv("PLACEMENTS_FILE", "")

	cfg.RedisAddr = getenv("REDIS_ADDR", "")
	cfg.ClickHouseDSN = getenv("CLICKHOUSE_DSN", "")
	cfg.EventQueue = envInt("EVENT_QUEUE_SIZE", 256)

	cfg.MetricsAddr = getenv("METRICS_ADDR", "")

	cfg.TracingEnabled = envBool("TRACING_ENABLED", false)
	cfg.TempoEndpoint = getenv("TEMPO_ENDPOINT", "tempo:4317")
	cfg.TracingSampleRate = envFloat("TRACING_SAMPLE_RATE", 1.0)

	cfg.FakenetPort = getenv("FAKENET_PORT", "8787")
	cfg.FakenetFillRate = envFloat("FAKENET_FILL_RATE", 0.8)
	cfg.TokenSecret = getenv("TOKEN_SECRET", "fakenet-secret")
	cfg.TokenTTL = envDuration("TOKEN_TTL", 30*time.Minute)
	cfg.GeoIPDB = getenv("GEOIP_DB", "")
	cfg.FakenetRateCapacity = envInt("FAKENET_RATE_CAPACITY", 0)
	cfg.FakenetRateRefill = envInt("FAKENET_RATE_REFILL", 1)

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

// envFloat parses a float64 environment variable. When unset or invalid, def is returned.
func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return def
}

// envList splits a comma separated variable, dropping empty entries.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
