package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/config"
	"github.com/patrickwarner/adunits/internal/fakenet"
	"github.com/patrickwarner/adunits/internal/geoip"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName + "-fakenet")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger, cfg); err != nil {
		logger.Error("fakenet error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName+"-fakenet", cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	geo, err := geoip.Init(afero.NewOsFs(), cfg.GeoIPDB)
	if err != nil {
		return fmt.Errorf("failed to load geoip db: %w", err)
	}
	defer func() { _ = geo.Close() }()

	metrics := observability.NewPrometheusRegistry()

	// Network side counters share the redis keyspace with the client sessions.
	var sink analytics.EventSink = analytics.NoOp{}
	if cfg.RedisAddr != "" {
		rs, err := analytics.InitRedis(ctx, cfg.RedisAddr, logger)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		sink = analytics.NewAsync(rs, cfg.EventQueue, logger, metrics)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("close event sink", zap.Error(err))
		}
	}()

	srv := fakenet.NewServer(fakenet.Config{
		APIKey:      cfg.AdNetAPIKey,
		PublisherID: cfg.PublisherID,
		FillRate:    cfg.FakenetFillRate,
		TokenSecret: []byte(cfg.TokenSecret),
		TokenTTL:    cfg.TokenTTL,
		RateLimit: ratelimit.Config{
			Capacity:   cfg.FakenetRateCapacity,
			RefillRate: cfg.FakenetRateRefill,
		},
	}, logger, metrics, sink, geo)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.PathPrefix("/").Handler(srv.Router())

	httpSrv := &http.Server{
		Addr:         ":" + cfg.FakenetPort,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Info("fake ad network running",
		zap.String("addr", httpSrv.Addr),
		zap.Float64("fill_rate", cfg.FakenetFillRate),
		zap.Int("rate_capacity", cfg.FakenetRateCapacity))

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("served", zap.Any("counts", srv.Counts()))
	observability.LogSamplingStats(logger)
	return nil
}
