package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/sdk"
	"github.com/patrickwarner/adunits/internal/session"
	"go.uber.org/zap"
)

var userAgents = []string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 12; Pixel 6 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.5735.196 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 11; SAMSUNG SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/15.0 Chrome/94.0.4606.61 Mobile Safari/537.36",
	"Mozilla/5.0 (iPad; CPU OS 15_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.2 Mobile/15E148 Safari/604.1",
}

// options configures a simulation run.
type options struct {
	Server      string
	APIKey      string
	PublisherID int
	Users       int
	// Sessions is the number of load and show cycles to run; zero means
	// run until Duration elapses.
	Sessions    int
	Concurrency int
	Duration    time.Duration
	// Rate caps cycles started per second; zero is unlimited.
	Rate      float64
	Jitter    float64
	ClickRate float64
	Formats   []models.AdFormat
	Placement string
	// Timeout bounds one cycle.
	Timeout time.Duration
}

// summary counts what the simulated users saw.
type summary struct {
	Started     uint64  `json:"started"`
	Loaded      uint64  `json:"loaded"`
	Failed      uint64  `json:"failed"`
	Shown       uint64  `json:"shown"`
	TimedOut    uint64  `json:"timed_out"`
	Impressions uint64  `json:"impressions"`
	Clicks      uint64  `json:"clicks"`
	Rewards     uint64  `json:"rewards"`
	FillRate    float64 `json:"fill_rate"`
	CTR         float64 `json:"ctr"`
}

// simulator runs fullscreen ad sessions for a pool of simulated users. It is
// also the sessions' event sink and forwards every event to next.
type simulator struct {
	opts    options
	logger  *zap.Logger
	metrics observability.MetricsRegistry
	next    analytics.EventSink
	clients []*sdk.Client

	randMu sync.Mutex
	rand   *rand.Rand

	started, loaded, failed, shown, timedOut atomic.Uint64
	impressions, clicks, rewards             atomic.Uint64
}

var _ analytics.EventSink = (*simulator)(nil)

func newSimulator(opts options, logger *zap.Logger, metrics observability.MetricsRegistry, next analytics.EventSink) *simulator {
	if opts.Users <= 0 {
		opts.Users = 1
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []models.AdFormat{models.FormatInterstitial}
	}
	if next == nil {
		next = analytics.NoOp{}
	}
	s := &simulator{
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		next:    next,
		rand:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for i := 0; i < opts.Users; i++ {
		s.clients = append(s.clients, sdk.NewClient(sdk.ClientConfig{
			BaseURL:     opts.Server,
			APIKey:      opts.APIKey,
			PublisherID: opts.PublisherID,
			UserID:      fmt.Sprintf("user%d", i),
			UserAgent:   userAgents[i%len(userAgents)],
			Timeout:     opts.Timeout,
		}, logger, metrics))
	}
	return s
}

func (s *simulator) float() float64 {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.Float64()
}

func (s *simulator) intn(n int) int {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.IntN(n)
}

// Record counts the events the summary reports on.
func (s *simulator) Record(ctx context.Context, ev analytics.Event) error {
	switch ev.Type {
	case analytics.EventImpression:
		s.impressions.Add(1)
	case analytics.EventClicked:
		s.clicks.Add(1)
	case analytics.EventRewardGranted:
		s.rewards.Add(1)
	}
	return s.next.Record(ctx, ev)
}

func (s *simulator) Close() error { return s.next.Close() }

// run starts cycles until the session count or duration is reached, then
// waits for the running ones.
func (s *simulator) run(ctx context.Context) summary {
	if s.opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Duration)
		defer cancel()
	}

	var interval time.Duration
	if s.opts.Rate > 0 {
		interval = time.Duration(float64(time.Second) / s.opts.Rate)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.opts.Concurrency)
	next := time.Now()
loop:
	for i := 0; s.opts.Sessions <= 0 || i < s.opts.Sessions; i++ {
		if interval > 0 {
			wait := interval
			if s.opts.Jitter > 0 {
				jf := max(1+(s.float()*2-1)*s.opts.Jitter, 0.1)
				wait = time.Duration(float64(wait) * jf)
			}
			if d := time.Until(next); d > 0 {
				select {
				case <-time.After(d):
				case <-ctx.Done():
					break loop
				}
			}
			next = next.Add(wait)
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			client := s.clients[s.intn(len(s.clients))]
			format := s.opts.Formats[s.intn(len(s.opts.Formats))]
			s.cycle(ctx, client, format)
		}()
	}
	wg.Wait()
	return s.summary()
}

func (s *simulator) summary() summary {
	out := summary{
		Started:     s.started.Load(),
		Loaded:      s.loaded.Load(),
		Failed:      s.failed.Load(),
		Shown:       s.shown.Load(),
		TimedOut:    s.timedOut.Load(),
		Impressions: s.impressions.Load(),
		Clicks:      s.clicks.Load(),
		Rewards:     s.rewards.Load(),
	}
	if done := out.Loaded + out.Failed; done > 0 {
		out.FillRate = float64(out.Loaded) / float64(done)
	}
	if out.Impressions > 0 {
		out.CTR = float64(out.Clicks) / float64(out.Impressions)
	}
	return out
}

// signalView forwards button changes and errors to the cycle driving the
// session.
type signalView struct {
	ch chan string
}

func (v signalView) send(s string) {
	select {
	case v.ch <- s:
	default:
	}
}

func (v signalView) SetButton(title string, _ bool) { v.send(title) }
func (v signalView) ShowError(string)               { v.send("error") }

// cycle loads one ad, shows it and waits for it to close.
func (s *simulator) cycle(ctx context.Context, client *sdk.Client, format models.AdFormat) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	s.started.Add(1)

	click := s.float() < s.opts.ClickRate
	surface := sdk.SurfaceFunc(func(p *sdk.Presentation) {
		go func() {
			if click {
				p.Click()
			}
			p.CompleteVideo()
			p.Dismiss()
		}()
	})
	view := signalView{ch: make(chan string, 32)}
	sess := session.New(format, session.Options{
		Factory:     session.SDKFactory(client, s.opts.Placement, s.logger),
		Surface:     surface,
		View:        view,
		Logger:      s.logger,
		Metrics:     s.metrics,
		Sink:        s,
		SessionID:   client.UserID(),
		PlacementID: s.opts.Placement,
	})
	go func() { _ = sess.Run(ctx) }()
	defer func() {
		cancel()
		<-sess.Done()
	}()

	wait := func(want ...string) (string, bool) {
		for {
			select {
			case got := <-view.ch:
				for _, w := range want {
					if got == w {
						return got, true
					}
				}
			case <-ctx.Done():
				return "", false
			}
		}
	}

	sess.Tap()
	got, ok := wait("Show Ad", "error")
	switch {
	case !ok:
		s.timedOut.Add(1)
		return
	case got == "error":
		s.failed.Add(1)
		return
	}
	s.loaded.Add(1)

	sess.Tap()
	if _, ok := wait("Load Ad"); !ok {
		s.timedOut.Add(1)
		return
	}
	s.shown.Add(1)
	s.logger.Debug("cycle done",
		zap.String("user_id", client.UserID()),
		zap.String("format", format.String()),
		zap.Bool("clicked", click))
}
