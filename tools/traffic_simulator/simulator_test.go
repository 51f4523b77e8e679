package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/config"
	"github.com/patrickwarner/adunits/internal/fakenet"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newNetwork(t *testing.T, fillRate float64) (*fakenet.Server, string) {
	t.Helper()
	s := fakenet.NewServer(fakenet.Config{
		APIKey:      "demo",
		PublisherID: 1,
		FillRate:    fillRate,
		TokenSecret: []byte("secret"),
		TokenTTL:    time.Minute,
	}, zap.NewNop(), nil, nil, nil)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, srv.URL
}

func testOptions(url, placement string) options {
	return options{
		Server:      url,
		APIKey:      "demo",
		PublisherID: 1,
		Users:       3,
		Sessions:    12,
		Concurrency: 4,
		ClickRate:   1,
		Formats:     []models.AdFormat{models.FormatInterstitial, models.FormatRewardedVideo},
		Placement:   placement,
		Timeout:     3 * time.Second,
	}
}

func TestSimulatorFilledSessions(t *testing.T) {
	sdk.Initialize(sdk.Settings{})
	network, url := newNetwork(t, 1)
	next := analytics.NewMock()
	sim := newSimulator(testOptions(url, config.DefaultFullscreenPlacement), zap.NewNop(), observability.NewNoOpRegistry(), next)

	got := sim.run(context.Background())

	assert.Equal(t, uint64(12), got.Started)
	assert.Equal(t, uint64(12), got.Loaded)
	assert.Equal(t, uint64(12), got.Shown)
	assert.Zero(t, got.Failed)
	assert.Zero(t, got.TimedOut)
	assert.Equal(t, uint64(12), got.Clicks)
	assert.Equal(t, 1.0, got.FillRate)
	assert.LessOrEqual(t, got.Rewards, uint64(12))
	assert.Equal(t, 12, network.Count("fill"))
	assert.Contains(t, next.Types(), analytics.EventClosed)
}

func TestSimulatorNoFill(t *testing.T) {
	sdk.Initialize(sdk.Settings{})
	_, url := newNetwork(t, 0)
	opts := testOptions(url, "YOUR_PLACEMENT_ID")
	opts.Sessions = 5
	sim := newSimulator(opts, zap.NewNop(), nil, nil)

	got := sim.run(context.Background())

	assert.Equal(t, uint64(5), got.Started)
	assert.Equal(t, uint64(5), got.Failed)
	assert.Zero(t, got.Shown)
	assert.Zero(t, got.FillRate)
}

func TestSimulatorStopsWithContext(t *testing.T) {
	sdk.Initialize(sdk.Settings{})
	_, url := newNetwork(t, 1)
	opts := testOptions(url, config.DefaultFullscreenPlacement)
	opts.Sessions = 0
	opts.Rate = 20
	opts.Duration = 300 * time.Millisecond

	done := make(chan summary, 1)
	go func() { done <- newSimulator(opts, zap.NewNop(), nil, nil).run(context.Background()) }()
	select {
	case got := <-done:
		assert.NotZero(t, got.Started)
	case <-time.After(5 * time.Second):
		t.Fatal("simulator did not stop after its duration")
	}
}

func TestParseFormats(t *testing.T) {
	got, err := parseFormats("interstitial, rewarded_video,")
	require.NoError(t, err)
	assert.Equal(t, []models.AdFormat{models.FormatInterstitial, models.FormatRewardedVideo}, got)

	_, err = parseFormats("banner")
	assert.Error(t, err)
	_, err = parseFormats("carousel")
	assert.Error(t, err)
	_, err = parseFormats(" , ")
	assert.Error(t, err)
}

func TestFlushCounters(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	rs, err := analytics.InitRedis(ctx, mr.Addr(), zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = rs.Close() }()

	require.NoError(t, rs.Record(ctx, analytics.Event{Format: "banner", Type: analytics.EventShown}))
	require.NoError(t, rs.Record(ctx, analytics.Event{Format: "native", Type: analytics.EventClicked}))
	require.NoError(t, mr.Set("unrelated", "1"))

	n, err := flushCounters(ctx, rs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("unrelated"))

	n, err = flushCounters(ctx, rs)
	require.NoError(t, err)
	assert.Zero(t, n)
}
