package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestShouldSampleBounds(t *testing.T) {
	assert.True(t, ShouldSample(1))
	assert.True(t, ShouldSample(1.5))
	assert.False(t, ShouldSample(0))
	assert.False(t, ShouldSample(-1))
}

func TestLogSamplingStats(t *testing.T) {
	const rate = 0.37
	sampled := 0
	for i := 0; i < 200; i++ {
		if ShouldSample(rate) {
			sampled++
		}
	}

	st := GetSamplingStats()[rate]
	assert.Equal(t, int64(200), st.Total)
	assert.Equal(t, int64(sampled), st.Sampled)

	core, logs := observer.New(zapcore.InfoLevel)
	LogSamplingStats(zap.New(core))

	var found bool
	for _, entry := range logs.FilterMessage("log sampling").All() {
		fields := entry.ContextMap()
		if fields["target_rate"] != rate {
			continue
		}
		found = true
		assert.Equal(t, int64(200), fields["total"])
		assert.Equal(t, int64(sampled), fields["sampled"])
		assert.InDelta(t, float64(sampled)/200, fields["actual_rate"], 1e-9)
	}
	require.True(t, found, "no stats line for rate %v", rate)
}
