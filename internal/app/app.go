// Package app wires configuration into the collaborators every sample
// runner needs: the SDK client, placements and event sinks.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/config"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/screens"
	"github.com/patrickwarner/adunits/internal/sdk"
	"github.com/patrickwarner/adunits/internal/session"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// App holds the process-wide collaborators.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Metrics    observability.MetricsRegistry
	Client     *sdk.Client
	Placements config.Placements
	Sink       analytics.EventSink
	TapPolicy  session.TapPolicy
	SessionID  string

	closers []func() error
}

// Build initializes the SDK and connects the configured event sinks. A
// failing sink connection is logged and the sink skipped.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, metrics observability.MetricsRegistry, fs afero.Fs) (*App, error) {
	policy, ok := session.ParseTapPolicy(cfg.TapWhileLoading)
	if !ok {
		return nil, fmt.Errorf("invalid TAP_WHILE_LOADING %q", cfg.TapWhileLoading)
	}
	placements, err := config.LoadPlacements(fs, cfg.PlacementsFile)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}

	if !sdk.Initialize(sdk.Settings{TestMode: cfg.TestMode, DeviceID: cfg.UserID, TestDevices: cfg.TestDevices}) {
		logger.Debug("sdk already initialized")
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Placements: placements,
		TapPolicy:  policy,
		SessionID:  uuid.NewString(),
	}
	a.Client = sdk.NewClient(sdk.ClientConfig{
		BaseURL:     cfg.AdNetURL,
		APIKey:      cfg.AdNetAPIKey,
		PublisherID: cfg.PublisherID,
		UserID:      cfg.UserID,
		UserAgent:   cfg.DeviceUA,
		Timeout:     cfg.AdRequestTimeout,
	}, logger, metrics)

	var sinks analytics.Multi
	if cfg.RedisAddr != "" {
		rs, err := analytics.InitRedis(ctx, cfg.RedisAddr, logger)
		if err != nil {
			logger.Warn("redis event sink disabled", zap.Error(err))
		} else {
			sinks = append(sinks, rs)
		}
	}
	if cfg.ClickHouseDSN != "" {
		ch, err := analytics.InitClickHouse(ctx, cfg.ClickHouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse event sink disabled", zap.Error(err))
		} else {
			sinks = append(sinks, ch)
		}
	}
	if len(sinks) == 0 {
		a.Sink = analytics.NoOp{}
	} else {
		async := analytics.NewAsync(sinks, cfg.EventQueue, logger, metrics)
		a.Sink = async
		a.closers = append(a.closers, async.Close)
	}
	return a, nil
}

// Deps returns the screen dependencies rendering to view and presenting
// fullscreen ads on surface.
func (a *App) Deps(view screens.View, surface sdk.Surface) screens.Deps {
	return screens.Deps{
		Client:          a.Client,
		Placements:      a.Placements,
		Surface:         surface,
		View:            view,
		TapWhileLoading: a.TapPolicy,
		Logger:          a.Logger,
		Metrics:         a.Metrics,
		Sink:            a.Sink,
		SessionID:       a.SessionID,
	}
}

// Close flushes and closes the event sinks.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
