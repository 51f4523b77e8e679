package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/patrickwarner/adunits/internal/app"
	"github.com/patrickwarner/adunits/internal/config"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"github.com/patrickwarner/adunits/internal/screens"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const maxWait = 5 * time.Second

type ListSamplesInput struct{}

type SampleInfo struct {
	Name        string `json:"name"`
	Format      string `json:"format"`
	PlacementID string `json:"placement_id"`
}

type ListSamplesOutput struct {
	Samples []SampleInfo `json:"samples"`
}

// SampleInput names the sample a tool acts on. WaitMS lets the tool wait for
// the screen to render before reporting.
type SampleInput struct {
	Sample string `json:"sample"`
	WaitMS int    `json:"wait_ms,omitempty"`
}

type SampleOutput struct {
	Title string   `json:"title"`
	State string   `json:"state,omitempty"`
	Lines []string `json:"lines"`
}

type CloseOutput struct {
	Closed bool `json:"closed"`
}

// SampleServer exposes the samples as MCP tools.
type SampleServer struct {
	driver *driver
}

func (s *SampleServer) ListSamples(ctx context.Context, req *mcp.CallToolRequest, _ ListSamplesInput) (*mcp.CallToolResult, ListSamplesOutput, error) {
	out := ListSamplesOutput{Samples: []SampleInfo{}}
	for _, sample := range models.AllSamples() {
		out.Samples = append(out.Samples, SampleInfo{
			Name:        sample.Name(),
			Format:      sample.Format().String(),
			PlacementID: s.driver.app.Placements.For(sample),
		})
	}
	return nil, out, nil
}

func (s *SampleServer) OpenSample(ctx context.Context, req *mcp.CallToolRequest, input SampleInput) (*mcp.CallToolResult, SampleOutput, error) {
	open, err := s.driver.open(input.Sample)
	if err != nil {
		return nil, SampleOutput{}, err
	}
	return nil, s.report(ctx, open, input.WaitMS), nil
}

func (s *SampleServer) Tap(ctx context.Context, req *mcp.CallToolRequest, input SampleInput) (*mcp.CallToolResult, SampleOutput, error) {
	open, err := s.driver.open(input.Sample)
	if err != nil {
		return nil, SampleOutput{}, err
	}
	open.screen.Tap()
	return nil, s.report(ctx, open, input.WaitMS), nil
}

func (s *SampleServer) Click(ctx context.Context, req *mcp.CallToolRequest, input SampleInput) (*mcp.CallToolResult, SampleOutput, error) {
	open, err := s.driver.open(input.Sample)
	if err != nil {
		return nil, SampleOutput{}, err
	}
	c, ok := open.screen.(screens.Clicker)
	if !ok {
		return nil, SampleOutput{}, fmt.Errorf("%s has no inline ad to click", input.Sample)
	}
	c.Click()
	return nil, s.report(ctx, open, input.WaitMS), nil
}

func (s *SampleServer) State(ctx context.Context, req *mcp.CallToolRequest, input SampleInput) (*mcp.CallToolResult, SampleOutput, error) {
	open, err := s.driver.open(input.Sample)
	if err != nil {
		return nil, SampleOutput{}, err
	}
	return nil, s.report(ctx, open, input.WaitMS), nil
}

func (s *SampleServer) CloseSample(ctx context.Context, req *mcp.CallToolRequest, input SampleInput) (*mcp.CallToolResult, CloseOutput, error) {
	closed, err := s.driver.close(input.Sample)
	if err != nil {
		return nil, CloseOutput{}, err
	}
	return nil, CloseOutput{Closed: closed}, nil
}

// report waits up to waitMS, then returns what the screen rendered since the
// previous report.
func (s *SampleServer) report(ctx context.Context, open *openScreen, waitMS int) SampleOutput {
	if wait := time.Duration(waitMS) * time.Millisecond; wait > 0 {
		if wait > maxWait {
			wait = maxWait
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
		}
	}
	out := SampleOutput{Title: open.screen.Title(), Lines: open.view.drain()}
	if out.Lines == nil {
		out.Lines = []string{}
	}
	if fs, ok := open.screen.(*screens.FullscreenScreen); ok {
		if st, err := fs.State(ctx); err == nil {
			out.State = st.String()
		}
	}
	return out
}

func sampleSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"sample": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
			"wait_ms": map[string]interface{}{
				"type":        "integer",
				"description": "Milliseconds to wait for the screen before reporting (optional, at most 5000)",
			},
		},
		"required": []string{"sample"},
	}
}

func newMCPServer(s *SampleServer) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "adunits-samples",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_samples",
		Description: "List the ad unit samples with their formats and placement IDs",
		InputSchema: map[string]interface{}{"type": "object"},
	}, s.ListSamples)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "open_sample",
		Description: "Open a sample screen. Banner and native samples start loading immediately",
		InputSchema: sampleSchema("Sample name, e.g. \"Rewarded Video\""),
	}, s.OpenSample)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "tap",
		Description: "Press the sample's button: load, show or refresh the ad",
		InputSchema: sampleSchema("Sample name"),
	}, s.Tap)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "click",
		Description: "Click the inline ad shown by a banner or native sample",
		InputSchema: sampleSchema("Sample name"),
	}, s.Click)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "state",
		Description: "Report what the sample rendered and its fullscreen loading state",
		InputSchema: sampleSchema("Sample name"),
	}, s.State)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "close_sample",
		Description: "Close a sample screen and release its ad",
		InputSchema: sampleSchema("Sample name"),
	}, s.CloseSample)

	return server
}

func main() {
	cfg := config.Load()

	// stdout carries the protocol, so logs go to stderr
	logger, err := observability.InitStderrLogger(cfg.ServiceName + "-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger, observability.NewPrometheusRegistry(), afero.NewOsFs())
	if err != nil {
		logger.Fatal("build app", zap.Error(err))
	}
	defer func() { _ = a.Close() }()

	d := newDriver(ctx, a)
	defer d.closeAll()
	server := newMCPServer(&SampleServer{driver: d})

	var logBuffer bytes.Buffer
	transport := &mcp.LoggingTransport{
		Transport: &mcp.StdioTransport{},
		Writer:    &logBuffer,
	}

	logger.Info("MCP server running via stdio", zap.String("adnet_url", cfg.AdNetURL))
	if err := server.Run(ctx, transport); err != nil && ctx.Err() == nil {
		logger.Error("server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}
