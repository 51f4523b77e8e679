package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickwarner/adunits/internal/app"
	"github.com/patrickwarner/adunits/internal/config"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/screens"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env carries what the commands read from and write to.
type env struct {
	in     io.Reader
	out    io.Writer
	fs     afero.Fs
	config func() config.Config
	// logger, when nil, is built from the configuration.
	logger *zap.Logger
}

func main() {
	e := env{in: os.Stdin, out: os.Stdout, fs: afero.NewOsFs(), config: config.Load}
	if err := newRootCmd(e).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(e env) *cobra.Command {
	root := &cobra.Command{
		Use:           "adunits",
		Short:         "Run the ad unit samples against an ad network",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetIn(e.in)
	root.SetOut(e.out)
	root.SetErr(e.out)
	root.AddCommand(newListCmd(e), newRunCmd(e))
	return root
}

type sampleRow struct {
	Name      string `json:"name"`
	Format    string `json:"format"`
	Placement string `json:"placement_id"`
}

func newListCmd(e env) *cobra.Command {
	var jsonOutput bool
	var placementsFile string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := e.config()
			if placementsFile != "" {
				cfg.PlacementsFile = placementsFile
			}
			placements, err := config.LoadPlacements(e.fs, cfg.PlacementsFile)
			if err != nil {
				return err
			}

			var rows []sampleRow
			for _, s := range models.AllSamples() {
				rows = append(rows, sampleRow{Name: s.Name(), Format: s.Format().String(), Placement: placements.For(s)})
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, r := range rows {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, r.Name, r.Format, r.Placement)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output samples in JSON format")
	cmd.Flags().StringVar(&placementsFile, "placements", "", "YAML file overriding placement IDs")
	return cmd
}

func newRunCmd(e env) *cobra.Command {
	var (
		placementsFile string
		tapPolicy      string
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "run <sample>",
		Short: "Run one sample interactively",
		Long: `Run one sample interactively. Commands are read one per line:

  tap      press the screen button (an empty line also taps)
  click    click the ad on screen
  watch    watch the fullscreen video to the end
  close    close the fullscreen ad
  state    print the fullscreen session state
  quit     leave the sample`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, ok := models.SampleTypeFromName(args[0])
			if !ok {
				return fmt.Errorf("unknown sample %q, see 'adunits list'", args[0])
			}
			cfg := e.config()
			if placementsFile != "" {
				cfg.PlacementsFile = placementsFile
			}
			if tapPolicy != "" {
				cfg.TapWhileLoading = tapPolicy
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			return runSample(cmd.Context(), e, cfg, sample)
		},
	}
	cmd.Flags().StringVar(&placementsFile, "placements", "", "YAML file overriding placement IDs")
	cmd.Flags().StringVar(&tapPolicy, "tap-while-loading", "", "What a tap does while loading: retry or ignore")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

func runSample(ctx context.Context, e env, cfg config.Config, sample models.SampleType) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := e.logger
	if logger == nil {
		var err error
		logger, err = observability.InitLogger(cfg.ServiceName)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()
	}

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	metrics := observability.NewPrometheusRegistry()
	a, err := app.Build(ctx, cfg, logger, metrics, e.fs)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close event sinks", zap.Error(err))
		}
	}()

	if cfg.MetricsAddr != "" {
		srv := metricsServer(cfg.MetricsAddr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	view := &termView{out: e.out}
	surface := &termSurface{view: view}
	screen, err := screens.New(sample, a.Deps(view, surface))
	if err != nil {
		return err
	}
	view.printf("== %s ==", screen.Title())
	screen.Start(ctx)
	defer screen.Close()

	return repl(ctx, e.in, view, surface, screen)
}

func metricsServer(addr string) *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
}

// repl reads commands until quit, end of input or ctx is done.
func repl(ctx context.Context, in io.Reader, view *termView, surface *termSurface, screen screens.Screen) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		switch strings.ToLower(line) {
		case "", "tap":
			screen.Tap()
		case "click":
			if p := surface.take(false); p != nil {
				p.Click()
			} else if c, ok := screen.(screens.Clicker); ok {
				c.Click()
			}
		case "watch":
			if p := surface.take(false); p != nil {
				p.CompleteVideo()
			}
		case "close":
			if p := surface.take(true); p != nil {
				p.Dismiss()
			}
		case "state":
			fs, ok := screen.(*screens.FullscreenScreen)
			if !ok {
				view.printf("state: n/a")
				continue
			}
			st, err := fs.State(ctx)
			if err != nil {
				return err
			}
			view.printf("state: %s", st)
		case "quit", "exit":
			return nil
		default:
			view.printf("unknown command %q", line)
		}
	}
}
