package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPrintCounts(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rs, err := analytics.InitRedis(ctx, mr.Addr(), zap.NewNop())
	require.NoError(t, err)
	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, ev := range []analytics.Event{
		{Timestamp: day, Format: "banner", Type: analytics.EventClicked},
		{Timestamp: day, Format: "banner", Type: analytics.EventClicked},
		{Timestamp: day, Format: "rewarded_video", Type: analytics.EventRewardGranted},
		{Timestamp: day.AddDate(0, 0, 1), Format: "banner", Type: analytics.EventShown},
	} {
		require.NoError(t, rs.Record(ctx, ev))
	}
	require.NoError(t, rs.Close())

	var out bytes.Buffer
	require.NoError(t, printCounts(ctx, &out, mr.Addr(), "2024-03-01", zap.NewNop()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"FORMAT", "EVENT", "COUNT"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"rewarded_video", "reward_granted", "1"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"banner", "clicked", "2"}, strings.Fields(lines[2]))
}

func TestPrintCountsErrors(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	assert.Error(t, printCounts(ctx, &out, "", "", zap.NewNop()))
	assert.Error(t, printCounts(ctx, &out, "127.0.0.1:1", "yesterday", zap.NewNop()))
	assert.Error(t, printSession(ctx, &out, "", "s", 10, zap.NewNop()))
	assert.Error(t, printSummary(ctx, &out, "", "s", zap.NewNop()))
}

func TestWriteSummary(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeSummary(&out, map[analytics.EventType]int64{
		analytics.EventClosed:        1,
		analytics.EventLoadRequested: 3,
		analytics.EventShown:         1,
		analytics.EventLoadFailed:    2,
	}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"EVENT", "COUNT"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"load_requested", "3"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"load_failed", "2"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"shown", "1"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"closed", "1"}, strings.Fields(lines[4]))
}
