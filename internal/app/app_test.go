package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/config"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/screens"
	"github.com/patrickwarner/adunits/internal/session"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func baseConfig() config.Config {
	return config.Config{
		AdNetURL:         "http://127.0.0.1:1",
		TapWhileLoading:  "retry",
		AdRequestTimeout: time.Second,
		EventQueue:       8,
	}
}

func TestBuildDefaults(t *testing.T) {
	a, err := Build(context.Background(), baseConfig(), zap.NewNop(), nil, afero.NewMemMapFs())
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()

	assert.IsType(t, analytics.NoOp{}, a.Sink)
	assert.Equal(t, session.TapRetries, a.TapPolicy)
	assert.Equal(t, config.DefaultFullscreenPlacement, a.Placements.For(models.SampleInterstitial))
	assert.NotEmpty(t, a.SessionID)

	deps := a.Deps(screens.NopView{}, nil)
	assert.Same(t, a.Client, deps.Client)
	assert.Equal(t, a.SessionID, deps.SessionID)
}

func TestBuildRejectsUnknownTapPolicy(t *testing.T) {
	cfg := baseConfig()
	cfg.TapWhileLoading = "sometimes"
	_, err := Build(context.Background(), cfg, zap.NewNop(), nil, afero.NewMemMapFs())
	assert.Error(t, err)
}

func TestBuildReadsPlacementsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/placements.yaml", []byte("samples:\n  Banner: \"IMG_16_9_LINK#1_2\"\n"), 0o644))
	cfg := baseConfig()
	cfg.PlacementsFile = "/placements.yaml"
	cfg.TapWhileLoading = "ignore"

	a, err := Build(context.Background(), cfg, zap.NewNop(), nil, fs)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.Equal(t, "IMG_16_9_LINK#1_2", a.Placements.For(models.SampleBanner))
	assert.Equal(t, session.TapIgnored, a.TapPolicy)

	cfg.PlacementsFile = "/missing.yaml"
	_, err = Build(context.Background(), cfg, zap.NewNop(), nil, fs)
	assert.Error(t, err)
}

func TestBuildWiresRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.RedisAddr = mr.Addr()
	// unreachable sinks are skipped
	cfg.ClickHouseDSN = "clickhouse://127.0.0.1:1/default?dial_timeout=200ms"

	a, err := Build(context.Background(), cfg, zap.NewNop(), nil, afero.NewMemMapFs())
	require.NoError(t, err)
	require.IsType(t, &analytics.Async{}, a.Sink)

	now := time.Now()
	require.NoError(t, a.Sink.Record(context.Background(), analytics.Event{
		Timestamp: now,
		Format:    "interstitial",
		Type:      analytics.EventShown,
	}))
	require.NoError(t, a.Close())

	got, err := mr.Get(analytics.CounterKey("interstitial", analytics.EventShown, now))
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}
