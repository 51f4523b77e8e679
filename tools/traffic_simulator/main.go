// Command traffic_simulator drives many simulated users through fullscreen ad
// sessions against an ad network and reports what they saw.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/config"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/sdk"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const statsInterval = 5 * time.Second

func main() {
	var (
		opts      options
		formats   string
		stats     bool
		flush     bool
		redisAddr string
		debug     bool
		label     string
		testMode  bool
	)
	flag.StringVar(&opts.Server, "server", "http://localhost:8787", "ad network base URL")
	flag.StringVar(&opts.APIKey, "api-key", "demo123", "publisher API key")
	flag.IntVar(&opts.PublisherID, "publisher-id", 1, "publisher ID")
	flag.IntVar(&opts.Users, "users", 100, "number of simulated users")
	flag.IntVar(&opts.Sessions, "sessions", 1000, "load and show cycles to run (0 to run for -duration)")
	flag.IntVar(&opts.Concurrency, "concurrency", 20, "concurrent sessions")
	flag.DurationVar(&opts.Duration, "duration", 0, "how long to run (0 to disable)")
	flag.Float64Var(&opts.Rate, "rate", 0, "sessions started per second (0 for unlimited)")
	flag.Float64Var(&opts.Jitter, "jitter", 0, "random jitter factor for session spacing")
	flag.Float64Var(&opts.ClickRate, "click-rate", 0.05, "probability a shown ad is clicked")
	flag.StringVar(&opts.Placement, "placement", config.DefaultFullscreenPlacement, "placement ID")
	flag.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "timeout of one session cycle")
	flag.StringVar(&formats, "formats", "interstitial,rewarded_video,rewarded_interstitial", "comma-separated fullscreen formats")
	flag.BoolVar(&stats, "stats", false, "print stats periodically")
	flag.BoolVar(&flush, "flush", false, "delete the daily event counters in redis before starting")
	flag.StringVar(&redisAddr, "redis", "", "record events in redis at this address (defaults to REDIS_ADDR)")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.StringVar(&label, "label", "", "label to identify this run")
	flag.BoolVar(&testMode, "test", false, "request test ads")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	logger, err := observability.InitLoggerWithLevel(level, "traffic-simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if label == "" {
		label = time.Now().Format(time.RFC3339)
	}
	opts.Formats, err = parseFormats(formats)
	if err != nil {
		logger.Fatal("invalid -formats", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if redisAddr == "" {
		redisAddr = config.Load().RedisAddr
	}
	var sink analytics.EventSink = analytics.NoOp{}
	if redisAddr != "" {
		rs, err := analytics.InitRedis(ctx, redisAddr, logger)
		if err != nil {
			logger.Fatal("redis connect", zap.Error(err))
		}
		if flush {
			n, err := flushCounters(ctx, rs)
			if err != nil {
				logger.Fatal("flush counters", zap.Error(err))
			}
			logger.Info("redis event counters flushed", zap.String("addr", redisAddr), zap.Int("keys_deleted", n))
		}
		sink = analytics.NewAsync(rs, 1024, logger, observability.NewNoOpRegistry())
	}

	sdk.Initialize(sdk.Settings{TestMode: testMode})
	sim := newSimulator(opts, logger, observability.NewNoOpRegistry(), sink)
	defer func() { _ = sim.Close() }()

	done := make(chan struct{})
	if stats {
		go func() {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					logStats(logger, label, sim.summary())
				case <-done:
					return
				}
			}
		}()
	}
	result := sim.run(ctx)
	close(done)
	logStats(logger, label, result)
}

func parseFormats(csv string) ([]models.AdFormat, error) {
	var out []models.AdFormat
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := models.ParseAdFormat(part)
		if err != nil {
			return nil, err
		}
		if !f.IsFullscreen() {
			return nil, fmt.Errorf("%s is not a fullscreen format", f)
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no formats given")
	}
	return out, nil
}

// flushCounters deletes the daily event counters, returning how many keys
// were removed.
func flushCounters(ctx context.Context, rs *analytics.RedisSink) (int, error) {
	keys, err := rs.Client.Keys(ctx, "adunits:events:*").Result()
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := rs.Client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("delete keys: %w", err)
	}
	return len(keys), nil
}

func logStats(logger *zap.Logger, label string, s summary) {
	logger.Info("stats",
		zap.String("run", label),
		zap.Uint64("started", s.Started),
		zap.Uint64("loaded", s.Loaded),
		zap.Uint64("failed", s.Failed),
		zap.Uint64("shown", s.Shown),
		zap.Uint64("timed_out", s.TimedOut),
		zap.Uint64("impressions", s.Impressions),
		zap.Uint64("clicks", s.Clicks),
		zap.Uint64("rewards", s.Rewards),
		zap.Float64("fill_rate", s.FillRate),
		zap.Float64("ctr", s.CTR))
}
